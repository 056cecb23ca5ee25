package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CodeMappingService registers foreign codes that imports may use in place of a SKU.
type CodeMappingService interface {
	// AddCodeMapping maps externalCode onto an existing product. Mappings are write-once.
	AddCodeMapping(ctx context.Context, scope Scope, externalCode, productCode string) (*CodeMapping, error)
	LookupCodeMapping(ctx context.Context, externalCode string) (*CodeMapping, error)
}

type codeMappingService struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewCodeMappingService(store Store, logger *zap.Logger) CodeMappingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &codeMappingService{store: store, logger: logger, now: time.Now}
}

func (s *codeMappingService) AddCodeMapping(ctx context.Context, scope Scope, externalCode, productCode string) (*CodeMapping, error) {
	externalCode = strings.TrimSpace(externalCode)
	productCode = strings.TrimSpace(productCode)
	if externalCode == "" || productCode == "" {
		return nil, validationf("external code and product code are required")
	}

	p, err := s.store.ProductByCode(ctx, productCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product %s: %w", productCode, err)
	}
	if p == nil || !scope.allows(*p) {
		return nil, notFoundf("product %s", productCode)
	}

	m := CodeMapping{ExternalCode: externalCode, Code: p.Code, CreatedAt: s.now().UTC()}
	if err := s.store.InsertCodeMapping(ctx, m); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, validationf("external code %s is already mapped", externalCode)
		}
		return nil, fmt.Errorf("failed to save code mapping: %w", err)
	}

	s.logger.Info("code mapping added", zap.String("external_code", externalCode), zap.String("product", p.Code))
	return &m, nil
}

func (s *codeMappingService) LookupCodeMapping(ctx context.Context, externalCode string) (*CodeMapping, error) {
	externalCode = strings.TrimSpace(externalCode)
	m, err := s.store.LookupCodeMapping(ctx, externalCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up code mapping %s: %w", externalCode, err)
	}
	if m == nil {
		return nil, notFoundf("code mapping %s", externalCode)
	}
	return m, nil
}
