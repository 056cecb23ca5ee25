package core

import (
	"context"
	"fmt"
	"strings"
)

// IdentityColumns names the two columns an import row may identify its product by.
type IdentityColumns struct {
	Primary   string // product code (SKU)
	Secondary string // external code, resolved through CodeMapping
}

// IdentityResolver turns a row's identity cells into a Product.
type IdentityResolver struct {
	store   Store
	columns IdentityColumns
}

// NewIdentityResolver builds a resolver reading the given columns.
func NewIdentityResolver(store Store, columns IdentityColumns) *IdentityResolver {
	return &IdentityResolver{store: store, columns: columns}
}

// CheckHeader fails with ErrMissingIdentityColumn when the batch header carries neither identity column.
// It is evaluated once per batch.
func (r *IdentityResolver) CheckHeader(header map[string]struct{}) error {
	_, hasPrimary := header[r.columns.Primary]
	_, hasSecondary := header[r.columns.Secondary]
	if !hasPrimary && !hasSecondary {
		return fmt.Errorf("%w: expected %q or %q", ErrMissingIdentityColumn, r.columns.Primary, r.columns.Secondary)
	}
	return nil
}

// Resolve returns the product a row refers to. A non-blank primary code is used as-is;
// otherwise the secondary code is mapped through CodeMapping. ErrUnresolvedIdentity is
// returned when neither leads to an existing product.
func (r *IdentityResolver) Resolve(ctx context.Context, store Store, row map[string]string) (*Product, error) {
	if store == nil {
		store = r.store
	}

	code := strings.TrimSpace(row[r.columns.Primary])
	if code == "" {
		external := strings.TrimSpace(row[r.columns.Secondary])
		if external == "" {
			return nil, fmt.Errorf("%w: no product code", ErrUnresolvedIdentity)
		}
		m, err := store.LookupCodeMapping(ctx, external)
		if err != nil {
			return nil, fmt.Errorf("failed to look up code mapping %s: %w", external, err)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: external code %s has no mapping", ErrUnresolvedIdentity, external)
		}
		code = m.Code
	}

	p, err := store.ProductByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product %s: %w", code, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: product %s not found", ErrUnresolvedIdentity, code)
	}
	return p, nil
}
