package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
	"github.com/fairyhunter13/storefront-pricing/internal/pricing"
	"github.com/fairyhunter13/storefront-pricing/pkg/database"
)

// DiscountRepositoryInterface defines the interface for discount catalog data access.
type DiscountRepositoryInterface interface {
	Insert(ctx context.Context, d *model.Discount) error
	GetByCode(ctx context.Context, code string) (*model.Discount, error)
	List(ctx context.Context) ([]model.Discount, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Discount, error)
	IncrementUsage(ctx context.Context, tx database.TxQuerier, code string) error
}

// RedemptionRepositoryInterface defines the interface for redemption data access.
type RedemptionRepositoryInterface interface {
	ListOrderRefs(ctx context.Context, code string) ([]string, error)
	GetByOrderRef(ctx context.Context, tx database.TxQuerier, orderRef string) (*model.Redemption, error)
	Insert(ctx context.Context, tx database.TxQuerier, r *model.Redemption) error
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ TxBeginner = (*pgxpool.Pool)(nil)

// DiscountService manages the discount catalog.
type DiscountService struct {
	discountRepo   DiscountRepositoryInterface
	redemptionRepo RedemptionRepositoryInterface
}

// NewDiscountService creates a new DiscountService with the given repositories.
func NewDiscountService(discountRepo DiscountRepositoryInterface, redemptionRepo RedemptionRepositoryInterface) *DiscountService {
	return &DiscountService{
		discountRepo:   discountRepo,
		redemptionRepo: redemptionRepo,
	}
}

// Create adds a discount to the catalog. The code is normalized to upper case.
// Returns ErrDiscountExists if the code is already taken.
// Returns ErrInvalidRequest if request data is nil, incomplete or inconsistent.
func (s *DiscountService) Create(ctx context.Context, req *model.CreateDiscountRequest) error {
	if req == nil || req.Value == nil {
		return ErrInvalidRequest
	}

	discountType, err := model.ParseDiscountType(req.DiscountType)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Value.IsNegative() {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidRequest)
	}
	if discountType != model.DiscountTypeFixed && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: percentage value must be between 0 and 100", ErrInvalidRequest)
	}
	if req.MinPurchase != nil && req.MinPurchase.IsNegative() {
		return fmt.Errorf("%w: min_purchase must not be negative", ErrInvalidRequest)
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidRequest)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	d := &model.Discount{
		Code:         model.NormalizeCode(req.Code),
		DiscountType: discountType,
		Value:        *req.Value,
		MinPurchase:  req.MinPurchase,
		MaxUses:      req.MaxUses,
		ProductIDs:   req.ProductIDs,
		CategoryIDs:  req.CategoryIDs,
		Active:       active,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Hidden:       req.Hidden,
	}
	if discountType == model.DiscountTypeBuyXGetY {
		d.BuyQuantity = req.BuyQuantity
		d.GetQuantity = req.GetQuantity
	}
	return s.discountRepo.Insert(ctx, d)
}

// GetByCode retrieves a discount with the order references that redeemed it.
// Returns ErrDiscountNotFound if the discount doesn't exist.
func (s *DiscountService) GetByCode(ctx context.Context, code string) (*model.DiscountResponse, error) {
	code = model.NormalizeCode(code)

	d, err := s.discountRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get discount: %w", err)
	}
	if d == nil {
		return nil, ErrDiscountNotFound
	}

	refs, err := s.redemptionRepo.ListOrderRefs(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get redemptions: %w", err)
	}

	return &model.DiscountResponse{
		Discount:     *d,
		Label:        pricing.Label(d),
		RedeemedRefs: refs,
	}, nil
}

// List returns every catalog discount.
func (s *DiscountService) List(ctx context.Context) ([]model.Discount, error) {
	discounts, err := s.discountRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	return discounts, nil
}
