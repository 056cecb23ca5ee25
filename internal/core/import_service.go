package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImportOptions describes the spreadsheet contract of a stock import.
type ImportOptions struct {
	Identity         IdentityColumns
	WarehouseColumn  string
	StockColumn      string
	DailySalesColumn string
	// MonthlySalesColumns are accepted synonyms, tried in order; the first present cell wins.
	MonthlySalesColumns []string
	// AggregateWarehouse is the normalized warehouse code of national roll-up rows, which are skipped.
	AggregateWarehouse string
	MaxRows            int
	ErrorLimit         int
}

// DefaultImportOptions returns the column names and limits used by the stock snapshot export.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		Identity:            IdentityColumns{Primary: "SKU", Secondary: "External Code"},
		WarehouseColumn:     "Warehouse",
		StockColumn:         "Stock",
		DailySalesColumn:    "Daily Sales",
		MonthlySalesColumns: []string{"Monthly Sales", "30-Day Sales", "Sales (30d)", "月销量"},
		AggregateWarehouse:  "全国",
		MaxRows:             10000,
		ErrorLimit:          20,
	}
}

// ImportResult is the per-batch report. Errors holds at most ImportOptions.ErrorLimit messages
// of the form "row <n>: <reason>", where row 1 is the header.
type ImportResult struct {
	BatchID string   `json:"batch_id"`
	Success int      `json:"success"`
	Fail    int      `json:"fail"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// StockImportService ingests stock snapshot rows.
type StockImportService interface {
	// Import processes every row independently. Rows naming products outside scope fail as
	// unresolved. Row failures are reported in the result; only batch-level validation
	// failures are returned as errors.
	Import(ctx context.Context, scope Scope, rows []map[string]string) (*ImportResult, error)
}

type stockImportService struct {
	store    Store
	resolver *IdentityResolver
	locks    *KeyedLocker
	cache    StatsCache
	opts     ImportOptions
	logger   *zap.Logger
	now      func() time.Time
}

// NewStockImportService constructs the import reconciler. locks must be shared with every other
// writer of stock records; cache may be nil.
func NewStockImportService(store Store, locks *KeyedLocker, cache StatsCache, opts ImportOptions, logger *zap.Logger) StockImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ErrorLimit <= 0 {
		opts.ErrorLimit = 20
	}
	return &stockImportService{
		store:    store,
		resolver: NewIdentityResolver(store, opts.Identity),
		locks:    locks,
		cache:    cache,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// rowFailure is an expected per-row rejection whose reason is shown to the user verbatim.
type rowFailure struct{ reason string }

func (e *rowFailure) Error() string { return e.reason }

func rowFailf(format string, args ...any) error {
	return &rowFailure{reason: fmt.Sprintf(format, args...)}
}

// errSkippedRow marks aggregate warehouse rows.
var errSkippedRow = errors.New("aggregate warehouse row skipped")

// batchState remembers, per stock key, the sluggish counter a record had before the batch
// touched it. Rows collapsing onto one key all advance from that value.
type batchState struct {
	prior map[string]*int
}

func (s *stockImportService) Import(ctx context.Context, scope Scope, rows []map[string]string) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, validationf("import contains no rows")
	}
	if s.opts.MaxRows > 0 && len(rows) > s.opts.MaxRows {
		return nil, validationf("import has %d rows, limit is %d", len(rows), s.opts.MaxRows)
	}
	if err := s.resolver.CheckHeader(headerOf(rows)); err != nil {
		return nil, err
	}

	// An abandoned request still finishes the batch: a torn-down batch would be
	// indistinguishable from a legitimate partial failure.
	ctx = context.WithoutCancel(ctx)

	result := &ImportResult{BatchID: uuid.NewString(), Errors: []string{}}
	log := s.logger.With(zap.String("batch_id", result.BatchID))
	batch := &batchState{prior: make(map[string]*int)}

	for i, row := range rows {
		rowNum := i + 2
		err := s.processRow(ctx, scope, batch, row)
		switch {
		case err == nil:
			result.Success++
		case errors.Is(err, errSkippedRow):
			result.Skipped++
		default:
			result.Fail++
			reason := err.Error()
			var rf *rowFailure
			if !errors.As(err, &rf) && !errors.Is(err, ErrUnresolvedIdentity) {
				log.Warn("import row failed", zap.Int("row", rowNum), zap.Error(err))
				reason = "internal error while saving row"
			}
			if len(result.Errors) < s.opts.ErrorLimit {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", rowNum, reason))
			}
		}
	}

	if result.Success > 0 && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Warn("failed to invalidate statistics cache", zap.Error(err))
		}
	}

	log.Info("stock import finished",
		zap.Int("rows", len(rows)),
		zap.Int("success", result.Success),
		zap.Int("fail", result.Fail),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *stockImportService) processRow(ctx context.Context, scope Scope, batch *batchState, row map[string]string) (err error) {
	defer func() {
		if rv := recover(); rv != nil {
			err = fmt.Errorf("panic while processing row: %v", rv)
		}
	}()

	product, err := s.resolver.Resolve(ctx, s.store, row)
	if err != nil {
		return err
	}
	if !scope.allows(*product) {
		return fmt.Errorf("%w: product %s not found", ErrUnresolvedIdentity, product.Code)
	}

	stock, err := parseCount(row, s.opts.StockColumn)
	if err != nil {
		return err
	}
	daily, err := parseCount(row, s.opts.DailySalesColumn)
	if err != nil {
		return err
	}
	monthlyCol, ok := firstPresent(row, s.opts.MonthlySalesColumns)
	if !ok {
		return rowFailf("missing monthly sales (expected one of %s)", strings.Join(s.opts.MonthlySalesColumns, ", "))
	}
	monthly, err := parseCount(row, monthlyCol)
	if err != nil {
		return err
	}

	warehouse := NormalizeWarehouseCode(row[s.opts.WarehouseColumn])
	if warehouse == "" {
		return rowFailf("missing %s", s.opts.WarehouseColumn)
	}
	if warehouse == s.opts.AggregateWarehouse {
		return errSkippedRow
	}

	key := stockKey(product.ID, warehouse)
	unlock := s.locks.Lock(key)
	defer unlock()

	return s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetStockRecord(ctx, product.ID, warehouse)
		if err != nil {
			return fmt.Errorf("failed to read stock record: %w", err)
		}
		prev, seen := batch.prior[key]
		if !seen {
			if existing != nil {
				days := existing.SluggishDays
				prev = &days
			}
			batch.prior[key] = prev
		}
		rec := WarehouseStockRecord{
			ProductID:            product.ID,
			WarehouseCode:        warehouse,
			StockQuantity:        stock,
			DailySalesQuantity:   daily,
			MonthlySalesQuantity: monthly,
			SluggishDays:         NextSluggishDays(prev, stock, daily),
			UpdatedAt:            s.now(),
		}
		if err := tx.UpsertStockRecord(ctx, rec); err != nil {
			return fmt.Errorf("failed to upsert stock record: %w", err)
		}
		return nil
	})
}

// NormalizeWarehouseCode truncates a warehouse name to its first two characters.
// Distinct names sharing a prefix collapse into one code.
func NormalizeWarehouseCode(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= 2 {
		return name
	}
	r := []rune(name)
	return string(r[:2])
}

// maxCount is the largest value a stock or sales column can hold.
var maxCount = decimal.NewFromInt(math.MaxInt32)

// parseCount reads a non-negative whole number no larger than maxCount. Spreadsheet
// decoders may render integers as "12.0", which is accepted.
func parseCount(row map[string]string, column string) (int, error) {
	raw, ok := row[column]
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return 0, rowFailf("missing %s", column)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, rowFailf("%s %q is not a number", column, raw)
	}
	if d.IsNegative() {
		return 0, rowFailf("%s %q is negative", column, raw)
	}
	if !d.IsInteger() {
		return 0, rowFailf("%s %q is not a whole number", column, raw)
	}
	if d.GreaterThan(maxCount) {
		return 0, rowFailf("%s %q is too large", column, raw)
	}
	return int(d.IntPart()), nil
}

// firstPresent picks the first synonym with a non-blank cell, else the first synonym present at all.
func firstPresent(row map[string]string, columns []string) (string, bool) {
	fallback := ""
	for _, c := range columns {
		v, ok := row[c]
		if !ok {
			continue
		}
		if strings.TrimSpace(v) != "" {
			return c, true
		}
		if fallback == "" {
			fallback = c
		}
	}
	return fallback, fallback != ""
}

func headerOf(rows []map[string]string) map[string]struct{} {
	header := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			header[k] = struct{}{}
		}
	}
	return header
}
