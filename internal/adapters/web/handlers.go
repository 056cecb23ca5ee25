package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"stock-engine/internal/app"
	"stock-engine/internal/config"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc          app.ApplicationService
	router       chi.Router
	logger       *zap.Logger
	jwtSecret    string
	maxBodyBytes int64
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, cfg config.ServerConfig, jwtSecret string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 16 << 20
	}
	h := &Handler{
		svc:          svc,
		logger:       logger,
		jwtSecret:    jwtSecret,
		maxBodyBytes: maxBody,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(cfg.AllowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		// Snapshot uploads get the large body limit.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin, RoleImporter))
			r.Use(RequestBodyLimit(h.maxBodyBytes))
			r.Post("/api/stock/import", h.apiImportStock)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(1 << 20))

			r.Get("/api/auth/me", h.me)

			// ── Stock report ──────────────────────────────────────────────────────
			r.Get("/api/stock", h.apiListStock)
			r.Get("/api/stock/statistics", h.apiStockStatistics)
			r.Get("/api/stock/export", h.apiExportStock)
			r.Put("/api/stock/{code}/warehouses/{warehouse}/threshold", h.apiSetThreshold)

			// ── Shared pools ──────────────────────────────────────────────────────
			r.Post("/api/pools/merge", h.apiMergePools)
			r.Get("/api/products/{code}/pool", h.apiGetPool)
			r.Post("/api/products/{code}/pool", h.apiProvisionPool)
			r.Put("/api/products/{code}/pool/quantity", h.apiSetPoolQuantity)
			r.Post("/api/products/{code}/pool/split", h.apiSplitPool)

			// ── Code mappings ─────────────────────────────────────────────────────
			r.Post("/api/code-mappings", h.apiAddCodeMapping)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
