package web

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stock-engine/internal/core"
)

// Roles carried in the token. Admins see every product; everyone else sees their departments.
const (
	RoleAdmin    = "admin"
	RoleImporter = "importer"
	RoleViewer   = "viewer"
)

type authClaimsKey struct{}

// AuthClaims holds the authenticated user's identity extracted from the JWT.
type AuthClaims struct {
	UserID      int
	Role        string
	Departments []string
}

// Scope converts the claims into the visibility predicate applied by every stock operation.
func (c *AuthClaims) Scope() core.Scope {
	if c.Role == RoleAdmin {
		return core.AllowAll
	}
	return core.DepartmentScope(c.Departments...)
}

// authFromContext returns the auth claims stored in ctx, or nil.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// scopeFromContext returns the caller's scope. A request without claims sees nothing.
func scopeFromContext(ctx context.Context) core.Scope {
	if c := authFromContext(ctx); c != nil {
		return c.Scope()
	}
	return core.Scope{}
}

// jwtClaims is the JWT payload struct used for signing and parsing.
type jwtClaims struct {
	UserID      int      `json:"user_id"`
	Role        string   `json:"role"`
	Departments []string `json:"departments,omitempty"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for the given identity. Tokens are normally minted by the
// login service; this is used by tooling and tests.
func SignToken(secret string, userID int, role string, departments []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID:      userID,
		Role:        role,
		Departments: departments,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RequireAuth validates the bearer token (or the auth_token cookie) and injects AuthClaims
// into the request context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		claims := &jwtClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey{}, &AuthClaims{
			UserID:      claims.UserID,
			Role:        claims.Role,
			Departments: claims.Departments,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated callers whose role is not listed with 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := authFromContext(r.Context())
			if c == nil || !slices.Contains(roles, c.Role) {
				writeError(w, r, "insufficient role", "FORBIDDEN", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	if claims == nil {
		writeError(w, r, "not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	type meResponse struct {
		UserID      int      `json:"user_id"`
		Role        string   `json:"role"`
		Departments []string `json:"departments"`
	}
	writeJSON(w, meResponse{UserID: claims.UserID, Role: claims.Role, Departments: claims.Departments})
}
