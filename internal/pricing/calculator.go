// Package pricing turns a cart snapshot and an optional discount into the
// amounts shown at cart and checkout. Every function here is pure.
package pricing

import (
	"math"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
)

var hundred = decimal.NewFromInt(100)

// MergeLines groups cart lines by identity key, summing quantities. Groups
// keep first-seen order and the first-seen unit price. Lines with a
// non-positive quantity are ignored. A summed quantity saturates at
// math.MaxInt instead of wrapping negative.
func MergeLines(lines []model.CartLine) []model.LineGroup {
	groups := make([]model.LineGroup, 0, len(lines))
	index := make(map[model.LineKey]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		key := line.Key()
		if i, ok := index[key]; ok {
			groups[i].Quantity = addQuantity(groups[i].Quantity, line.Quantity)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, model.LineGroup{
			Key:       key,
			Category:  line.Category,
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
		})
	}
	return groups
}

// addQuantity adds two positive quantities, saturating at math.MaxInt.
func addQuantity(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// Subtotal is the undiscounted cart total.
func Subtotal(lines []model.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		total = total.Add(line.Amount())
	}
	return total
}

// SplitGroup decomposes quantity units into full-price and discounted units
// for a buy/get promotion. Within every complete set the first buy units are
// full price and the next get units are discounted; a trailing partial set
// fills full-price units first.
func SplitGroup(quantity, buy, get int) (fullPrice, discounted int) {
	if quantity <= 0 {
		return 0, 0
	}
	if buy <= 0 || get <= 0 {
		return quantity, 0
	}
	setSize := buy + get
	sets := quantity / setSize
	remainder := quantity % setSize
	fullPrice = sets*buy + min(remainder, buy)
	discounted = sets*get + max(0, remainder-buy)
	return fullPrice, discounted
}

// ComputeTotal prices a cart with the given discount. A nil discount, a
// subtotal below the discount's minimum purchase, or a cart with no eligible
// group leaves the subtotal untouched and Applied false. Product and category
// allow-lists are applied per merged group.
func ComputeTotal(lines []model.CartLine, d *model.Discount) model.PricingResult {
	groups := MergeLines(lines)
	subtotal := decimal.Zero
	for _, g := range groups {
		subtotal = subtotal.Add(g.Amount())
	}

	result := model.PricingResult{
		Subtotal:       subtotal,
		DiscountAmount: decimal.Zero,
		Total:          subtotal,
		Groups:         fullPriceBreakdown(groups),
	}

	if d == nil {
		return result
	}
	if d.MinPurchase != nil && subtotal.LessThan(*d.MinPurchase) {
		return result
	}

	var total decimal.Decimal
	switch d.DiscountType {
	case model.DiscountTypePercentage:
		total = applyPercentage(groups, result.Groups, d)
	case model.DiscountTypeFixed:
		total = applyFixed(groups, result.Groups, subtotal, d)
	case model.DiscountTypeBuyXGetY:
		total = applyBuyXGetY(groups, result.Groups, d)
	default:
		log.Warn().
			Str("discount_code", d.Code).
			Str("discount_type", string(d.DiscountType)).
			Msg("unrecognized discount type, pricing without discount")
		return result
	}
	if !anyEligible(result.Groups) {
		return result
	}

	result.Total = total
	result.DiscountAmount = subtotal.Sub(total)
	result.Applied = true
	result.Code = d.Code
	result.Label = Label(d)
	return result
}

// DiscountedPrice previews one nominal unit of a product under d. It goes
// through ComputeTotal so the eligibility rules match the cart exactly.
func DiscountedPrice(price decimal.Decimal, productID, category string, d *model.Discount) decimal.Decimal {
	if d == nil {
		return price
	}
	line := model.CartLine{ProductID: productID, Category: category, Price: price, Quantity: 1}
	return ComputeTotal([]model.CartLine{line}, d).Total
}

func fullPriceBreakdown(groups []model.LineGroup) []model.GroupBreakdown {
	out := make([]model.GroupBreakdown, len(groups))
	for i, g := range groups {
		out[i] = model.GroupBreakdown{
			Key:                 g.Key,
			Quantity:            g.Quantity,
			UnitPrice:           g.UnitPrice,
			FullPriceUnits:      g.Quantity,
			DiscountedUnitPrice: g.UnitPrice,
			Total:               g.Amount(),
		}
	}
	return out
}

func anyEligible(groups []model.GroupBreakdown) bool {
	for _, g := range groups {
		if g.Eligible {
			return true
		}
	}
	return false
}

func discountFactor(percent decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(percent.Div(hundred))
}

// applyPercentage discounts every eligible group. The breakdown is updated in place.
func applyPercentage(groups []model.LineGroup, out []model.GroupBreakdown, d *model.Discount) decimal.Decimal {
	factor := discountFactor(d.Value)
	total := decimal.Zero
	for i := range out {
		g := &out[i]
		if d.AppliesTo(groups[i].Key.ProductID, groups[i].Category) {
			g.Eligible = true
			g.FullPriceUnits = 0
			g.DiscountedUnits = g.Quantity
			g.DiscountedUnitPrice = g.UnitPrice.Mul(factor)
			g.Total = g.DiscountedUnitPrice.Mul(decimal.NewFromInt(int64(g.Quantity)))
		}
		total = total.Add(g.Total)
	}
	return total
}

// applyFixed takes the flat amount off the cart once. The deduction is capped
// at the combined amount of the eligible groups, so with no allow-lists the
// total is max(0, subtotal - value).
func applyFixed(groups []model.LineGroup, out []model.GroupBreakdown, subtotal decimal.Decimal, d *model.Discount) decimal.Decimal {
	eligibleAmount := decimal.Zero
	for i := range out {
		if d.AppliesTo(groups[i].Key.ProductID, groups[i].Category) {
			out[i].Eligible = true
			eligibleAmount = eligibleAmount.Add(groups[i].Amount())
		}
	}
	return subtotal.Sub(decimal.Min(d.Value, eligibleAmount))
}

func applyBuyXGetY(groups []model.LineGroup, out []model.GroupBreakdown, d *model.Discount) decimal.Decimal {
	buy, get := d.Buy(), d.Get()
	factor := discountFactor(d.Value)
	total := decimal.Zero
	for i := range out {
		g := &out[i]
		if d.AppliesTo(groups[i].Key.ProductID, groups[i].Category) {
			full, discounted := SplitGroup(g.Quantity, buy, get)
			g.Eligible = true
			g.FullPriceUnits = full
			g.DiscountedUnits = discounted
			g.DiscountedUnitPrice = g.UnitPrice.Mul(factor)
			g.Total = g.UnitPrice.Mul(decimal.NewFromInt(int64(full))).
				Add(g.DiscountedUnitPrice.Mul(decimal.NewFromInt(int64(discounted))))
		}
		total = total.Add(g.Total)
	}
	return total
}
