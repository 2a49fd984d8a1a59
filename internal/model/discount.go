package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is the closed set of discount kinds the pricing engine understands.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypeBuyXGetY   DiscountType = "buy_one_get_one"
)

// DiscountTypes returns every supported discount type.
func DiscountTypes() []DiscountType {
	return []DiscountType{DiscountTypePercentage, DiscountTypeFixed, DiscountTypeBuyXGetY}
}

// Valid reports whether t is one of the supported discount types.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed, DiscountTypeBuyXGetY:
		return true
	}
	return false
}

// ParseDiscountType converts a raw string into a DiscountType.
func ParseDiscountType(s string) (DiscountType, error) {
	t := DiscountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown discount type %q", s)
	}
	return t, nil
}

// UnmarshalText rejects unknown discount types at decode time, so a record
// with an unsupported type never reaches the calculator.
func (t *DiscountType) UnmarshalText(text []byte) error {
	parsed, err := ParseDiscountType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Discount is a promotional code record as served by the discount catalog.
type Discount struct {
	Code         string           `json:"code"`
	DiscountType DiscountType     `json:"discount_type"`
	Value        decimal.Decimal  `json:"value"`
	MinPurchase  *decimal.Decimal `json:"min_purchase,omitempty"`
	MaxUses      *int             `json:"max_uses,omitempty"`
	UsedCount    int              `json:"used_count"`
	ProductIDs   []string         `json:"product_ids,omitempty"`
	CategoryIDs  []string         `json:"category_ids,omitempty"`
	Active       bool             `json:"active"`
	StartDate    *time.Time       `json:"start_date,omitempty"`
	EndDate      *time.Time       `json:"end_date,omitempty"`
	Hidden       bool             `json:"hidden"`
	BuyQuantity  *int             `json:"buy_quantity,omitempty"`
	GetQuantity  *int             `json:"get_quantity,omitempty"`
	CreatedAt    time.Time        `json:"-"`
}

// NormalizeCode trims and upper-cases a discount code. Codes are compared
// and stored in this form only.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidAt reports whether the discount may be applied at the given instant.
// The end date is inclusive: a discount ending exactly at now is still valid.
func (d *Discount) IsValidAt(now time.Time) bool {
	if d == nil || !d.Active {
		return false
	}
	if d.EndDate != nil && d.EndDate.Before(now) {
		return false
	}
	if d.StartDate != nil && d.StartDate.After(now) {
		return false
	}
	if d.MaxUses != nil && d.UsedCount >= *d.MaxUses {
		return false
	}
	return true
}

// AppliesTo reports whether a product is covered by the discount's allow-lists.
// Empty lists mean the discount applies to everything.
func (d *Discount) AppliesTo(productID, category string) bool {
	if len(d.ProductIDs) == 0 && len(d.CategoryIDs) == 0 {
		return true
	}
	for _, id := range d.ProductIDs {
		if id == productID {
			return true
		}
	}
	if category == "" {
		return false
	}
	for _, c := range d.CategoryIDs {
		if c == category {
			return true
		}
	}
	return false
}

// Buy returns the number of full-price units in one BOGO set (default 1).
func (d *Discount) Buy() int {
	if d.BuyQuantity == nil || *d.BuyQuantity <= 0 {
		return 1
	}
	return *d.BuyQuantity
}

// Get returns the number of discounted units in one BOGO set (default 1).
func (d *Discount) Get() int {
	if d.GetQuantity == nil || *d.GetQuantity <= 0 {
		return 1
	}
	return *d.GetQuantity
}

// SetSize is Buy()+Get().
func (d *Discount) SetSize() int {
	return d.Buy() + d.Get()
}

// Clone returns a deep copy so callers can't mutate shared state.
func (d *Discount) Clone() *Discount {
	if d == nil {
		return nil
	}
	c := *d
	if d.MinPurchase != nil {
		v := *d.MinPurchase
		c.MinPurchase = &v
	}
	if d.MaxUses != nil {
		v := *d.MaxUses
		c.MaxUses = &v
	}
	if d.StartDate != nil {
		v := *d.StartDate
		c.StartDate = &v
	}
	if d.EndDate != nil {
		v := *d.EndDate
		c.EndDate = &v
	}
	if d.BuyQuantity != nil {
		v := *d.BuyQuantity
		c.BuyQuantity = &v
	}
	if d.GetQuantity != nil {
		v := *d.GetQuantity
		c.GetQuantity = &v
	}
	c.ProductIDs = append([]string(nil), d.ProductIDs...)
	c.CategoryIDs = append([]string(nil), d.CategoryIDs...)
	return &c
}
