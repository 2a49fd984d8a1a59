package model

import "github.com/shopspring/decimal"

// CartLine is a single entry of the shopper's cart. Several lines may share
// the same identity key; their quantities are additive for discount purposes.
type CartLine struct {
	ProductID string          `json:"product_id" validate:"required,max=255"`
	Size      string          `json:"size,omitempty" validate:"max=64"`
	Type      string          `json:"type,omitempty" validate:"max=64"`
	Category  string          `json:"category,omitempty" validate:"max=255"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"gte=0,lte=10000"`
}

// Key returns the line's identity key.
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.Size, Type: l.Type}
}

// Amount is price * quantity.
func (l CartLine) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey identifies a purchasable variant.
type LineKey struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Type      string `json:"type,omitempty"`
}

// LineGroup is the merge of every cart line sharing one LineKey.
type LineGroup struct {
	Key       LineKey
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Amount is the undiscounted total of the group.
func (g LineGroup) Amount() decimal.Decimal {
	return g.UnitPrice.Mul(decimal.NewFromInt(int64(g.Quantity)))
}

// GroupBreakdown is the per-group result of a pricing calculation.
type GroupBreakdown struct {
	Key                 LineKey         `json:"key"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Eligible            bool            `json:"eligible"`
	FullPriceUnits      int             `json:"full_price_units"`
	DiscountedUnits     int             `json:"discounted_units"`
	DiscountedUnitPrice decimal.Decimal `json:"discounted_unit_price"`
	Total               decimal.Decimal `json:"total"`
}

// PricingResult is recomputed from the cart and the active discount on every call.
type PricingResult struct {
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	Total          decimal.Decimal  `json:"total"`
	Applied        bool             `json:"applied"`
	Code           string           `json:"code,omitempty"`
	Label          string           `json:"label,omitempty"`
	Groups         []GroupBreakdown `json:"groups"`
}
