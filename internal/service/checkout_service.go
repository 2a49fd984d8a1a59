package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
	"github.com/fairyhunter13/storefront-pricing/internal/pricing"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "usd"

// SessionStores resolves a session id to its discount store.
type SessionStores interface {
	Store(ctx context.Context, sessionID string) (*DiscountStore, error)
}

// CheckoutService prepares the payment-intent payload for a session's cart
// and records the discount redemption.
type CheckoutService struct {
	pool           TxBeginner
	discountRepo   DiscountRepositoryInterface
	redemptionRepo RedemptionRepositoryInterface
	sessions       SessionStores
	currency       string
	now            func() time.Time
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(pool TxBeginner, discountRepo DiscountRepositoryInterface, redemptionRepo RedemptionRepositoryInterface, sessions SessionStores, currency string) *CheckoutService {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &CheckoutService{
		pool:           pool,
		discountRepo:   discountRepo,
		redemptionRepo: redemptionRepo,
		sessions:       sessions,
		currency:       currency,
		now:            time.Now,
	}
}

// Prepare prices the cart with the session's active discount and returns the
// draft for the payment-intent request. When a discount changes the total,
// its use is recorded atomically. Retrying with an order reference that
// already redeemed the same code for the same amount returns the draft again
// without recording a second use.
//   - ErrDiscountNotFound if the discount was deleted from the catalog
//   - ErrDiscountInvalid if it expired or ran out of uses since it was applied
//   - ErrAlreadyRedeemed if the order reference redeemed a different discount or amount
func (s *CheckoutService) Prepare(ctx context.Context, sessionID string, req *model.CheckoutRequest) (*model.PaymentIntentDraft, error) {
	if req == nil || len(req.Lines) == 0 {
		return nil, ErrInvalidRequest
	}

	store, err := s.sessions.Store(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := pricing.ComputeTotal(req.Lines, store.Active())
	draft := &model.PaymentIntentDraft{
		OrderRef:    req.OrderRef,
		AmountCents: toCents(result.Total),
		Currency:    s.currency,
		Metadata:    map[string]string{"order_ref": req.OrderRef},
		Pricing:     result,
	}
	if !result.Applied {
		return draft, nil
	}

	if err := s.redeem(ctx, result, req.OrderRef); err != nil {
		return nil, err
	}
	draft.Metadata["discount_code"] = result.Code
	return draft, nil
}

func (s *CheckoutService) redeem(ctx context.Context, result model.PricingResult, orderRef string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the discount row (SELECT FOR UPDATE)
	d, err := s.discountRepo.GetForUpdate(ctx, tx, result.Code)
	if err != nil {
		if errors.Is(err, ErrDiscountNotFound) {
			return ErrDiscountNotFound
		}
		return fmt.Errorf("get discount for update: %w", err)
	}

	// 2. A retry of an order already redeemed under this discount is a no-op
	existing, err := s.redemptionRepo.GetByOrderRef(ctx, tx, orderRef)
	if err != nil {
		return fmt.Errorf("get redemption by order ref: %w", err)
	}
	if existing != nil {
		if existing.DiscountCode == result.Code && toCents(existing.DiscountAmount) == toCents(result.DiscountAmount) {
			return nil
		}
		return ErrAlreadyRedeemed
	}

	// 3. Re-check validity against the locked row
	if !d.IsValidAt(s.now()) {
		return ErrDiscountInvalid
	}

	// 4. Insert redemption (UNIQUE order_ref catches duplicates)
	err = s.redemptionRepo.Insert(ctx, tx, &model.Redemption{
		ID:             uuid.NewString(),
		DiscountCode:   result.Code,
		OrderRef:       orderRef,
		DiscountAmount: result.DiscountAmount,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyRedeemed) {
			return ErrAlreadyRedeemed
		}
		return fmt.Errorf("insert redemption: %w", err)
	}

	// 5. Increment usage
	if err := s.discountRepo.IncrementUsage(ctx, tx, result.Code); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}

	return tx.Commit(ctx)
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
