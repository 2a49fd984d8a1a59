package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
	"github.com/fairyhunter13/storefront-pricing/internal/service"
	"github.com/fairyhunter13/storefront-pricing/pkg/database"
)

// RedemptionPoolInterface defines the database operations needed by RedemptionRepository.
type RedemptionPoolInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RedemptionRepository records discount uses at checkout.
type RedemptionRepository struct {
	pool RedemptionPoolInterface
}

// NewRedemptionRepository creates a new RedemptionRepository with the given pool.
func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// NewRedemptionRepositoryWithPool creates a new RedemptionRepository with a custom pool interface.
// This is primarily used for testing.
func NewRedemptionRepositoryWithPool(pool RedemptionPoolInterface) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// ListOrderRefs returns the order references that redeemed a discount, oldest first.
// On success, returns an empty slice (not nil) when there are none.
func (r *RedemptionRepository) ListOrderRefs(ctx context.Context, code string) ([]string, error) {
	query := `SELECT order_ref FROM redemptions WHERE discount_code = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("get redemptions for discount %s: %w", code, err)
	}
	defer rows.Close()

	refs := []string{}
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan redemption order_ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemption rows: %w", err)
	}
	return refs, nil
}

// GetByOrderRef returns the redemption recorded for orderRef within a
// transaction, or nil, nil when the order has not redeemed a discount.
func (r *RedemptionRepository) GetByOrderRef(ctx context.Context, tx database.TxQuerier, orderRef string) (*model.Redemption, error) {
	query := `SELECT id, discount_code, order_ref, discount_amount, created_at FROM redemptions WHERE order_ref = $1`

	var red model.Redemption
	err := tx.QueryRow(ctx, query, orderRef).Scan(&red.ID, &red.DiscountCode, &red.OrderRef, &red.DiscountAmount, &red.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get redemption for order %s: %w", orderRef, err)
	}
	return &red, nil
}

// Insert records a redemption within a transaction.
// Returns service.ErrAlreadyRedeemed if the order reference was already used.
func (r *RedemptionRepository) Insert(ctx context.Context, tx database.TxQuerier, red *model.Redemption) error {
	query := `INSERT INTO redemptions (id, discount_code, order_ref, discount_amount) VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, red.ID, red.DiscountCode, red.OrderRef, red.DiscountAmount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrAlreadyRedeemed
		}
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}
