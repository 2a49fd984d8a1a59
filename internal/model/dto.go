package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateDiscountRequest is the DTO for adding a discount to the catalog.
type CreateDiscountRequest struct {
	Code         string           `json:"code" validate:"required,notblank,max=64"`
	DiscountType string           `json:"discount_type" validate:"required,discounttype"`
	Value        *decimal.Decimal `json:"value" validate:"required,gte=0"`
	MinPurchase  *decimal.Decimal `json:"min_purchase" validate:"omitempty,gte=0"`
	MaxUses      *int             `json:"max_uses" validate:"omitempty,gte=1"`
	ProductIDs   []string         `json:"product_ids" validate:"omitempty,dive,notblank"`
	CategoryIDs  []string         `json:"category_ids" validate:"omitempty,dive,notblank"`
	Active       *bool            `json:"active"`
	StartDate    *time.Time       `json:"start_date"`
	EndDate      *time.Time       `json:"end_date"`
	Hidden       bool             `json:"hidden"`
	BuyQuantity  *int             `json:"buy_quantity" validate:"omitempty,gte=1"`
	GetQuantity  *int             `json:"get_quantity" validate:"omitempty,gte=1"`
}

// DiscountResponse is the admin view of a catalog discount.
type DiscountResponse struct {
	Discount
	Label        string   `json:"label"`
	RedeemedRefs []string `json:"redeemed_refs"`
}

// ApplyDiscountRequest is the DTO for applying a code to a session.
type ApplyDiscountRequest struct {
	Code string `json:"code" validate:"required,notblank,max=64"`
}

// StoreState is a snapshot of a session's discount store.
type StoreState struct {
	Discount      *Discount `json:"discount"`
	BannerVisible bool      `json:"banner_visible"`
	Label         string    `json:"label,omitempty"`
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// PriceResponse is the single-item price preview.
type PriceResponse struct {
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

// QuoteRequest carries a cart snapshot to price.
type QuoteRequest struct {
	Lines []CartLine `json:"lines" validate:"max=500,dive"`
}

// CheckoutRequest carries the cart snapshot and the caller's order reference.
type CheckoutRequest struct {
	OrderRef string     `json:"order_ref" validate:"required,notblank,max=255"`
	Lines    []CartLine `json:"lines" validate:"required,min=1,max=500,dive"`
}

// PaymentIntentDraft is what the payment collaborator needs to create an intent.
type PaymentIntentDraft struct {
	OrderRef    string            `json:"order_ref"`
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
	Pricing     PricingResult     `json:"pricing"`
}

// Redemption records one use of a discount at checkout.
type Redemption struct {
	ID             string
	DiscountCode   string
	OrderRef       string
	DiscountAmount decimal.Decimal
	CreatedAt      time.Time
}
