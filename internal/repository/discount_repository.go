package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
	"github.com/fairyhunter13/storefront-pricing/internal/service"
	"github.com/fairyhunter13/storefront-pricing/pkg/database"
)

const discountColumns = `code, discount_type, value, min_purchase, max_uses, used_count,
	product_ids, category_ids, active, start_date, end_date, hidden,
	buy_quantity, get_quantity, created_at`

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DiscountRepository is the discount catalog backed by PostgreSQL.
type DiscountRepository struct {
	pool PoolInterface
}

// NewDiscountRepository creates a new DiscountRepository with the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// NewDiscountRepositoryWithPool creates a new DiscountRepository with a custom pool interface.
// This is primarily used for testing.
func NewDiscountRepositoryWithPool(pool PoolInterface) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Insert adds a discount to the catalog.
// Returns service.ErrDiscountExists if the code is already taken.
func (r *DiscountRepository) Insert(ctx context.Context, d *model.Discount) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO discounts (code, discount_type, value, min_purchase, max_uses, used_count,
			product_ids, category_ids, active, start_date, end_date, hidden, buy_quantity, get_quantity)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.Code, string(d.DiscountType), d.Value, d.MinPurchase, d.MaxUses,
		nonNil(d.ProductIDs), nonNil(d.CategoryIDs), d.Active, d.StartDate, d.EndDate, d.Hidden,
		d.BuyQuantity, d.GetQuantity)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrDiscountExists
		}
		return fmt.Errorf("insert discount: %w", err)
	}
	return nil
}

// GetByCode retrieves a discount by its normalized code.
// Returns nil, nil if the discount is not found.
func (r *DiscountRepository) GetByCode(ctx context.Context, code string) (*model.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE code = $1`

	d, err := scanDiscount(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get discount by code %s: %w", code, err)
	}
	return d, nil
}

// List returns every discount, newest first.
func (r *DiscountRepository) List(ctx context.Context) ([]model.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	discounts := []model.Discount{}
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		discounts = append(discounts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discount rows: %w", err)
	}
	return discounts, nil
}

// GetForUpdate retrieves a discount with a row lock (SELECT FOR UPDATE).
// Returns service.ErrDiscountNotFound if the discount doesn't exist.
func (r *DiscountRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE code = $1 FOR UPDATE`

	d, err := scanDiscount(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrDiscountNotFound
		}
		return nil, fmt.Errorf("get discount for update %s: %w", code, err)
	}
	return d, nil
}

// IncrementUsage bumps used_count by one.
// Must be called within a transaction after locking the row.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, code string) error {
	query := `UPDATE discounts SET used_count = used_count + 1 WHERE code = $1`

	if _, err := tx.Exec(ctx, query, code); err != nil {
		return fmt.Errorf("increment usage for %s: %w", code, err)
	}
	return nil
}

func scanDiscount(row pgx.Row) (*model.Discount, error) {
	var (
		d            model.Discount
		discountType string
		minPurchase  decimal.NullDecimal
	)
	err := row.Scan(
		&d.Code,
		&discountType,
		&d.Value,
		&minPurchase,
		&d.MaxUses,
		&d.UsedCount,
		&d.ProductIDs,
		&d.CategoryIDs,
		&d.Active,
		&d.StartDate,
		&d.EndDate,
		&d.Hidden,
		&d.BuyQuantity,
		&d.GetQuantity,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.DiscountType, err = model.ParseDiscountType(discountType)
	if err != nil {
		return nil, err
	}
	if minPurchase.Valid {
		d.MinPurchase = &minPurchase.Decimal
	}
	return &d, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
