package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stock-engine/internal/core"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements core.Store over the schema in migrations/001_stock_engine.sql.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx core.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&PostgresStore{pool: s.pool, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ── Products and code mappings ───────────────────────────────────────────────

const productColumns = `id, code, name, department, responsible_person, shop_name, purchase_unit_cost, pool_id`

func scanProduct(row pgx.Row) (core.Product, error) {
	var p core.Product
	var cost decimal.NullDecimal
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Department, &p.ResponsiblePerson, &p.ShopName, &cost, &p.PoolID); err != nil {
		return core.Product{}, err
	}
	if cost.Valid {
		c := cost.Decimal
		p.UnitCost = &c
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]core.Product, error) {
	defer rows.Close()
	var out []core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ProductByCode(ctx context.Context, code string) (*core.Product, error) {
	p, err := scanProduct(s.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", code, err)
	}
	return &p, nil
}

func (s *PostgresStore) ProductsByIDs(ctx context.Context, ids []int64) ([]core.Product, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY code COLLATE "C"`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return collectProducts(rows)
}

func (s *PostgresStore) ListProducts(ctx context.Context, f core.ProductFilter) ([]core.Product, error) {
	var where []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Department != "" {
		add("department = $%d", f.Department)
	}
	if f.SKUContains != "" {
		add(`code ILIKE ('%%' || $%d || '%%') ESCAPE '\'`, escapeLike(f.SKUContains))
	}
	if f.ResponsiblePerson != "" {
		add("responsible_person = $%d", f.ResponsiblePerson)
	}
	if f.ShopName != "" {
		add("shop_name = $%d", f.ShopName)
	}

	sql := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY code COLLATE "C"`

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return collectProducts(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) LookupCodeMapping(ctx context.Context, externalCode string) (*core.CodeMapping, error) {
	var m core.CodeMapping
	err := s.q.QueryRow(ctx,
		`SELECT external_code, code, created_at FROM code_mappings WHERE external_code = $1`,
		externalCode,
	).Scan(&m.ExternalCode, &m.Code, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch code mapping %s: %w", externalCode, err)
	}
	return &m, nil
}

func (s *PostgresStore) InsertCodeMapping(ctx context.Context, m core.CodeMapping) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO code_mappings (external_code, code, created_at) VALUES ($1, $2, $3)`,
		m.ExternalCode, m.Code, m.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return core.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert code mapping: %w", err)
	}
	return nil
}

// ── Stock records ────────────────────────────────────────────────────────────

const recordColumns = `product_id, warehouse_code, stock_quantity, daily_sales_quantity,
	monthly_sales_quantity, reorder_threshold, sluggish_days, updated_at`

func scanRecord(row pgx.Row) (core.WarehouseStockRecord, error) {
	var r core.WarehouseStockRecord
	err := row.Scan(&r.ProductID, &r.WarehouseCode, &r.StockQuantity, &r.DailySalesQuantity,
		&r.MonthlySalesQuantity, &r.ReorderThreshold, &r.SluggishDays, &r.UpdatedAt)
	return r, err
}

func (s *PostgresStore) GetStockRecord(ctx context.Context, productID int64, warehouseCode string) (*core.WarehouseStockRecord, error) {
	sql := `SELECT ` + recordColumns + ` FROM warehouse_stock_records
		WHERE product_id = $1 AND warehouse_code = $2`
	if s.inTx {
		sql += ` FOR UPDATE`
	}
	r, err := scanRecord(s.q.QueryRow(ctx, sql, productID, warehouseCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stock record: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) UpsertStockRecord(ctx context.Context, rec core.WarehouseStockRecord) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO warehouse_stock_records
			(product_id, warehouse_code, stock_quantity, daily_sales_quantity,
			 monthly_sales_quantity, reorder_threshold, sluggish_days, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		ON CONFLICT (product_id, warehouse_code) DO UPDATE SET
			stock_quantity         = EXCLUDED.stock_quantity,
			daily_sales_quantity   = EXCLUDED.daily_sales_quantity,
			monthly_sales_quantity = EXCLUDED.monthly_sales_quantity,
			sluggish_days          = EXCLUDED.sluggish_days,
			updated_at             = EXCLUDED.updated_at`,
		rec.ProductID, rec.WarehouseCode, rec.StockQuantity, rec.DailySalesQuantity,
		rec.MonthlySalesQuantity, rec.SluggishDays, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stock record: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetReorderThreshold(ctx context.Context, productID int64, warehouseCode string, threshold int) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE warehouse_stock_records SET reorder_threshold = $3
		WHERE product_id = $1 AND warehouse_code = $2`,
		productID, warehouseCode, threshold,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update reorder threshold: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListStockRecords(ctx context.Context, scan core.RecordScan) ([]core.WarehouseStockRecord, error) {
	if scan.ProductIDs != nil && len(scan.ProductIDs) == 0 {
		return []core.WarehouseStockRecord{}, nil
	}
	var where []string
	var args []any
	if scan.ProductIDs != nil {
		args = append(args, scan.ProductIDs)
		where = append(where, fmt.Sprintf("product_id = ANY($%d)", len(args)))
	}
	if scan.WarehouseCode != "" {
		args = append(args, scan.WarehouseCode)
		where = append(where, fmt.Sprintf("warehouse_code = $%d", len(args)))
	}
	sql := `SELECT ` + recordColumns + ` FROM warehouse_stock_records`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY product_id, warehouse_code COLLATE "C"`

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock records: %w", err)
	}
	defer rows.Close()

	out := []core.WarehouseStockRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ── Pools ────────────────────────────────────────────────────────────────────

func (s *PostgresStore) GetPool(ctx context.Context, poolID int64) (*core.SharedPool, error) {
	var p core.SharedPool
	err := s.q.QueryRow(ctx, `SELECT id, quantity FROM shared_pools WHERE id = $1`, poolID).Scan(&p.ID, &p.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool %d: %w", poolID, err)
	}
	return &p, nil
}

func (s *PostgresStore) CreatePool(ctx context.Context, quantity int) (core.SharedPool, error) {
	p := core.SharedPool{Quantity: quantity}
	err := s.q.QueryRow(ctx,
		`INSERT INTO shared_pools (quantity) VALUES ($1) RETURNING id`, quantity,
	).Scan(&p.ID)
	if err != nil {
		return core.SharedPool{}, fmt.Errorf("failed to insert pool: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) SetPoolQuantity(ctx context.Context, poolID int64, quantity int) error {
	_, err := s.q.Exec(ctx,
		`UPDATE shared_pools SET quantity = $2, updated_at = NOW() WHERE id = $1`, poolID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update pool %d: %w", poolID, err)
	}
	return nil
}

func (s *PostgresStore) DeletePool(ctx context.Context, poolID int64) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM shared_pools WHERE id = $1`, poolID); err != nil {
		return fmt.Errorf("failed to delete pool %d: %w", poolID, err)
	}
	return nil
}

func (s *PostgresStore) PoolMembers(ctx context.Context, poolID int64) ([]core.Product, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE pool_id = $1 ORDER BY code COLLATE "C"`, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool members: %w", err)
	}
	return collectProducts(rows)
}

func (s *PostgresStore) SetProductPool(ctx context.Context, productID int64, poolID *int64) error {
	if _, err := s.q.Exec(ctx, `UPDATE products SET pool_id = $2 WHERE id = $1`, productID, poolID); err != nil {
		return fmt.Errorf("failed to update product pool: %w", err)
	}
	return nil
}

// ── Catalogue seeding ────────────────────────────────────────────────────────

// UpsertCatalogProducts inserts or refreshes catalogue products by code in one transaction.
// Pool membership is left untouched. Products belong to the catalogue service; this feeds
// local and test databases.
func (s *PostgresStore) UpsertCatalogProducts(ctx context.Context, products []core.Product) ([]core.Product, error) {
	out := make([]core.Product, 0, len(products))
	err := s.WithTx(ctx, func(tx core.Store) error {
		q := tx.(*PostgresStore).q
		for _, p := range products {
			var cost any
			if p.UnitCost != nil {
				cost = *p.UnitCost
			}
			row := q.QueryRow(ctx, `
				INSERT INTO products (code, name, department, responsible_person, shop_name, purchase_unit_cost)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (code) DO UPDATE
				  SET name               = EXCLUDED.name,
				      department         = EXCLUDED.department,
				      responsible_person = EXCLUDED.responsible_person,
				      shop_name          = EXCLUDED.shop_name,
				      purchase_unit_cost = EXCLUDED.purchase_unit_cost
				RETURNING `+productColumns,
				p.Code, p.Name, p.Department, p.ResponsiblePerson, p.ShopName, cost)
			saved, err := scanProduct(row)
			if err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.Code, err)
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
