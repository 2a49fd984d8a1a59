package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func line(productID string, price string, qty int) model.CartLine {
	return model.CartLine{ProductID: productID, Price: dec(price), Quantity: qty}
}

func bogo(buy, get int, value string) *model.Discount {
	return &model.Discount{
		Code:         "BOGO",
		DiscountType: model.DiscountTypeBuyXGetY,
		Value:        dec(value),
		Active:       true,
		BuyQuantity:  intPtr(buy),
		GetQuantity:  intPtr(get),
	}
}

func TestComputeTotal_NoDiscount(t *testing.T) {
	result := ComputeTotal([]model.CartLine{line("tee", "25", 2)}, nil)

	assertDecimal(t, "50", result.Subtotal)
	assertDecimal(t, "0", result.DiscountAmount)
	assertDecimal(t, "50", result.Total)
	assert.False(t, result.Applied)
	assert.Empty(t, result.Label)
}

func TestComputeTotal_FixedAboveMinimum(t *testing.T) {
	d := &model.Discount{Code: "TWENTY", DiscountType: model.DiscountTypeFixed, Value: dec("20"), MinPurchase: decPtr("50"), Active: true}

	result := ComputeTotal([]model.CartLine{line("hoodie", "100", 1)}, d)

	assertDecimal(t, "100", result.Subtotal)
	assertDecimal(t, "20", result.DiscountAmount)
	assertDecimal(t, "80", result.Total)
	assert.True(t, result.Applied)
	assert.Equal(t, "TWENTY", result.Code)
	assert.Equal(t, "$20.00 Off", result.Label)
}

func TestComputeTotal_FixedBelowMinimum(t *testing.T) {
	d := &model.Discount{Code: "TWENTY", DiscountType: model.DiscountTypeFixed, Value: dec("20"), MinPurchase: decPtr("50"), Active: true}

	result := ComputeTotal([]model.CartLine{line("cap", "40", 1)}, d)

	assertDecimal(t, "40", result.Total)
	assertDecimal(t, "0", result.DiscountAmount)
	assert.False(t, result.Applied)
}

func TestComputeTotal_MinimumIsInclusive(t *testing.T) {
	d := &model.Discount{Code: "TEN", DiscountType: model.DiscountTypeFixed, Value: dec("10"), MinPurchase: decPtr("50"), Active: true}

	result := ComputeTotal([]model.CartLine{line("cap", "50", 1)}, d)

	assertDecimal(t, "40", result.Total)
}

func TestComputeTotal_FixedClampedAtZero(t *testing.T) {
	d := &model.Discount{Code: "BIG", DiscountType: model.DiscountTypeFixed, Value: dec("500"), Active: true}

	result := ComputeTotal([]model.CartLine{line("sock", "12.5", 2)}, d)

	assertDecimal(t, "0", result.Total)
	assertDecimal(t, "25", result.DiscountAmount)
}

func TestComputeTotal_FixedMonotonicInValue(t *testing.T) {
	lines := []model.CartLine{line("tee", "30", 3)}
	previous := dec("90")
	for _, v := range []string{"0", "10", "45.5", "89.99", "90", "120"} {
		d := &model.Discount{Code: "F", DiscountType: model.DiscountTypeFixed, Value: dec(v), Active: true}
		total := ComputeTotal(lines, d).Total
		assert.True(t, total.LessThanOrEqual(previous), "value %s: total %s should not exceed %s", v, total, previous)
		assert.False(t, total.IsNegative())
		previous = total
	}
}

func TestComputeTotal_Percentage(t *testing.T) {
	d := &model.Discount{Code: "QUARTER", DiscountType: model.DiscountTypePercentage, Value: dec("25"), Active: true}

	result := ComputeTotal([]model.CartLine{line("tee", "20", 4)}, d)

	assertDecimal(t, "80", result.Subtotal)
	assertDecimal(t, "60", result.Total)
	assertDecimal(t, "20", result.DiscountAmount)
	assert.Equal(t, "25% Off", result.Label)
}

func TestComputeTotal_PercentageBounds(t *testing.T) {
	lines := []model.CartLine{line("tee", "19.99", 3), line("cap", "7.5", 1)}

	zero := ComputeTotal(lines, &model.Discount{DiscountType: model.DiscountTypePercentage, Value: dec("0"), Active: true})
	assertDecimal(t, "67.47", zero.Total)

	full := ComputeTotal(lines, &model.Discount{DiscountType: model.DiscountTypePercentage, Value: dec("100"), Active: true})
	assertDecimal(t, "0", full.Total)
	assertDecimal(t, "67.47", full.DiscountAmount)
}

func TestComputeTotal_PercentageRespectsAllowList(t *testing.T) {
	d := &model.Discount{
		Code:         "SHIRTS",
		DiscountType: model.DiscountTypePercentage,
		Value:        dec("50"),
		Active:       true,
		CategoryIDs:  []string{"shirts"},
	}
	lines := []model.CartLine{
		{ProductID: "tee", Category: "shirts", Price: dec("20"), Quantity: 1},
		{ProductID: "mug", Category: "kitchen", Price: dec("10"), Quantity: 1},
	}

	result := ComputeTotal(lines, d)

	assertDecimal(t, "30", result.Subtotal)
	assertDecimal(t, "20", result.Total)
	require.Len(t, result.Groups, 2)
	assert.True(t, result.Groups[0].Eligible)
	assert.False(t, result.Groups[1].Eligible)
	assertDecimal(t, "10", result.Groups[1].Total)
}

func TestComputeTotal_FixedWithNoEligibleLine(t *testing.T) {
	d := &model.Discount{Code: "MUGS", DiscountType: model.DiscountTypeFixed, Value: dec("5"), Active: true, ProductIDs: []string{"mug"}}

	result := ComputeTotal([]model.CartLine{line("tee", "20", 1)}, d)

	assertDecimal(t, "20", result.Total)
	assertDecimal(t, "0", result.DiscountAmount)
	assert.False(t, result.Applied, "nothing eligible, nothing to redeem")
	assert.Empty(t, result.Code)
}

func TestComputeTotal_FixedCappedAtEligibleAmount(t *testing.T) {
	d := &model.Discount{Code: "MUGS", DiscountType: model.DiscountTypeFixed, Value: dec("20"), Active: true, ProductIDs: []string{"mug"}}

	result := ComputeTotal([]model.CartLine{line("mug", "5", 1), line("tee", "30", 1)}, d)

	assertDecimal(t, "35", result.Subtotal)
	assertDecimal(t, "5", result.DiscountAmount)
	assertDecimal(t, "30", result.Total)
	assert.True(t, result.Applied)
	assert.True(t, result.Groups[0].Eligible)
	assert.False(t, result.Groups[1].Eligible)
}

func TestComputeTotal_FixedBelowEligibleAmount(t *testing.T) {
	d := &model.Discount{Code: "MUGS", DiscountType: model.DiscountTypeFixed, Value: dec("4"), Active: true, ProductIDs: []string{"mug"}}

	result := ComputeTotal([]model.CartLine{line("mug", "5", 2), line("tee", "30", 1)}, d)

	assertDecimal(t, "4", result.DiscountAmount)
	assertDecimal(t, "36", result.Total)
}

func TestComputeTotal_BogoFreeOddQuantity(t *testing.T) {
	result := ComputeTotal([]model.CartLine{line("tee", "10", 5)}, bogo(1, 1, "100"))

	assertDecimal(t, "50", result.Subtotal)
	assertDecimal(t, "30", result.Total)
	assertDecimal(t, "20", result.DiscountAmount)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, 3, result.Groups[0].FullPriceUnits)
	assert.Equal(t, 2, result.Groups[0].DiscountedUnits)
	assertDecimal(t, "0", result.Groups[0].DiscountedUnitPrice)
	assert.Equal(t, "Buy One Get One Free", result.Label)
}

func TestComputeTotal_BogoHalfOff(t *testing.T) {
	result := ComputeTotal([]model.CartLine{line("tee", "10", 3)}, bogo(1, 1, "50"))

	assertDecimal(t, "25", result.Total)
	assert.Equal(t, 2, result.Groups[0].FullPriceUnits)
	assert.Equal(t, 1, result.Groups[0].DiscountedUnits)
	assert.Equal(t, "Buy One Get One 50% Off", result.Label)
}

func TestComputeTotal_BogoDefaultsToOneAndOne(t *testing.T) {
	d := &model.Discount{Code: "BOGO", DiscountType: model.DiscountTypeBuyXGetY, Value: dec("100"), Active: true}

	result := ComputeTotal([]model.CartLine{line("tee", "10", 4)}, d)

	assertDecimal(t, "20", result.Total)
}

func TestComputeTotal_BogoMergesSplitLines(t *testing.T) {
	lines := []model.CartLine{
		{ProductID: "tee", Size: "M", Type: "cotton", Price: dec("10"), Quantity: 1},
		{ProductID: "tee", Size: "L", Type: "cotton", Price: dec("10"), Quantity: 1},
		{ProductID: "tee", Size: "M", Type: "cotton", Price: dec("10"), Quantity: 1},
	}

	result := ComputeTotal(lines, bogo(1, 1, "100"))

	// M merges into one group of two (one free); L stays alone at full price.
	require.Len(t, result.Groups, 2)
	assert.Equal(t, 2, result.Groups[0].Quantity)
	assert.Equal(t, 1, result.Groups[0].DiscountedUnits)
	assert.Equal(t, 0, result.Groups[1].DiscountedUnits)
	assertDecimal(t, "20", result.Total)
}

func TestComputeTotal_BogoBuyTwoGetOne(t *testing.T) {
	result := ComputeTotal([]model.CartLine{line("tee", "9", 7)}, bogo(2, 1, "100"))

	// 7 = 2 sets (4 full + 2 free) + remainder 1 (full).
	assert.Equal(t, 5, result.Groups[0].FullPriceUnits)
	assert.Equal(t, 2, result.Groups[0].DiscountedUnits)
	assertDecimal(t, "45", result.Total)
	assert.Equal(t, "Buy 2 Get 1 Free", result.Label)
}

func TestComputeTotal_BogoIneligibleGroupsFullPrice(t *testing.T) {
	d := bogo(1, 1, "100")
	d.ProductIDs = []string{"tee"}
	lines := []model.CartLine{line("tee", "10", 2), line("mug", "8", 2)}

	result := ComputeTotal(lines, d)

	assertDecimal(t, "36", result.Subtotal)
	assertDecimal(t, "26", result.Total)
	assert.False(t, result.Groups[1].Eligible)
	assert.Equal(t, 2, result.Groups[1].FullPriceUnits)
}

func TestComputeTotal_BogoGroupBounds(t *testing.T) {
	for _, tc := range []struct {
		buy, get int
		value    string
	}{
		{1, 1, "100"}, {2, 1, "100"}, {3, 2, "50"}, {1, 3, "100"}, {2, 2, "25"},
	} {
		d := bogo(tc.buy, tc.get, tc.value)
		for qty := 0; qty <= 20; qty++ {
			result := ComputeTotal([]model.CartLine{line("tee", "10", qty)}, d)
			full := dec("10").Mul(decimal.NewFromInt(int64(qty)))
			floor := full.Mul(decimal.NewFromInt(int64(tc.buy))).Div(decimal.NewFromInt(int64(tc.buy + tc.get)))
			assert.True(t, result.Total.LessThanOrEqual(full), "buy %d get %d qty %d above full price", tc.buy, tc.get, qty)
			assert.True(t, result.Total.GreaterThanOrEqual(floor), "buy %d get %d qty %d below floor", tc.buy, tc.get, qty)
		}
	}
}

func TestComputeTotal_Idempotent(t *testing.T) {
	lines := []model.CartLine{line("tee", "10", 3), line("tee", "10", 2), line("mug", "4.25", 1)}
	snapshot := append([]model.CartLine(nil), lines...)
	d := bogo(1, 1, "50")

	first := ComputeTotal(lines, d)
	second := ComputeTotal(lines, d)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, lines, "cart must not be mutated")
}

func TestComputeTotal_UnknownTypeLeavesSubtotal(t *testing.T) {
	d := &model.Discount{Code: "ODD", DiscountType: model.DiscountType("mystery"), Value: dec("10"), Active: true}

	result := ComputeTotal([]model.CartLine{line("tee", "10", 2)}, d)

	assertDecimal(t, "20", result.Total)
	assert.False(t, result.Applied)
}

func TestComputeTotal_IgnoresNonPositiveQuantities(t *testing.T) {
	lines := []model.CartLine{line("tee", "10", 0), line("mug", "5", -3), line("cap", "7", 1)}

	result := ComputeTotal(lines, nil)

	assertDecimal(t, "7", result.Total)
	assert.Len(t, result.Groups, 1)
}

func TestComputeTotal_EmptyCart(t *testing.T) {
	result := ComputeTotal(nil, bogo(1, 1, "100"))

	assertDecimal(t, "0", result.Total)
	assert.NotNil(t, result.Groups)
}

func TestSubtotal(t *testing.T) {
	lines := []model.CartLine{line("tee", "10", 2), line("mug", "2.5", 3), line("cap", "9", 0)}

	assertDecimal(t, "27.5", Subtotal(lines))
}

func TestMergeLines(t *testing.T) {
	lines := []model.CartLine{
		{ProductID: "tee", Size: "M", Type: "v", Category: "shirts", Price: dec("10"), Quantity: 2},
		{ProductID: "mug", Price: dec("5"), Quantity: 1},
		{ProductID: "tee", Size: "M", Type: "v", Category: "shirts", Price: dec("10"), Quantity: 3},
		{ProductID: "tee", Size: "M", Type: "crew", Price: dec("10"), Quantity: 1},
	}

	groups := MergeLines(lines)

	require.Len(t, groups, 3)
	assert.Equal(t, model.LineKey{ProductID: "tee", Size: "M", Type: "v"}, groups[0].Key)
	assert.Equal(t, 5, groups[0].Quantity)
	assert.Equal(t, "shirts", groups[0].Category)
	assert.Equal(t, "mug", groups[1].Key.ProductID)
	assert.Equal(t, "crew", groups[2].Key.Type)
	assertDecimal(t, "50", groups[0].Amount())
}

func TestMergeLines_QuantitySaturates(t *testing.T) {
	half := math.MaxInt/2 + 1
	lines := []model.CartLine{
		{ProductID: "p", Price: dec("1"), Quantity: half},
		{ProductID: "p", Price: dec("1"), Quantity: half},
	}

	groups := MergeLines(lines)

	require.Len(t, groups, 1)
	assert.Equal(t, math.MaxInt, groups[0].Quantity)

	result := ComputeTotal(lines, nil)
	assert.False(t, result.Subtotal.IsNegative())
	assert.False(t, result.Total.IsNegative())

	percent := &model.Discount{Code: "HALF", DiscountType: model.DiscountTypePercentage, Value: dec("50"), Active: true}
	assert.False(t, ComputeTotal(lines, percent).Total.IsNegative())
	assert.False(t, ComputeTotal(lines, bogo(1, 1, "100")).Total.IsNegative())
}

func TestSplitGroup(t *testing.T) {
	testCases := []struct {
		name               string
		quantity, buy, get int
		full, discounted   int
	}{
		{"empty", 0, 1, 1, 0, 0},
		{"below_set_size", 1, 1, 1, 1, 0},
		{"exact_set", 2, 1, 1, 1, 1},
		{"odd_classic", 5, 1, 1, 3, 2},
		{"remainder_within_buy", 4, 2, 1, 3, 1},
		{"remainder_spills_into_get", 9, 3, 2, 6, 3},
		{"exact_multiple", 10, 3, 2, 6, 4},
		{"partial_below_buy", 2, 3, 1, 2, 0},
		{"get_heavy", 3, 1, 3, 1, 2},
		{"invalid_set", 4, 0, 1, 4, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			full, discounted := SplitGroup(tc.quantity, tc.buy, tc.get)
			assert.Equal(t, tc.full, full, "full-price units")
			assert.Equal(t, tc.discounted, discounted, "discounted units")
			assert.Equal(t, tc.quantity, full+discounted, "units must be conserved")
		})
	}
}

func TestDiscountedPrice(t *testing.T) {
	percent := &model.Discount{DiscountType: model.DiscountTypePercentage, Value: dec("10"), Active: true, CategoryIDs: []string{"shirts"}}
	fixed := &model.Discount{DiscountType: model.DiscountTypeFixed, Value: dec("15"), Active: true}
	minimum := &model.Discount{DiscountType: model.DiscountTypeFixed, Value: dec("5"), MinPurchase: decPtr("100"), Active: true}

	assertDecimal(t, "40", DiscountedPrice(dec("40"), "tee", "shirts", nil))
	assertDecimal(t, "36", DiscountedPrice(dec("40"), "tee", "shirts", percent))
	assertDecimal(t, "40", DiscountedPrice(dec("40"), "mug", "kitchen", percent))
	assertDecimal(t, "0", DiscountedPrice(dec("12"), "sock", "", fixed))
	assertDecimal(t, "40", DiscountedPrice(dec("40"), "tee", "", minimum))
	// A single unit never completes a buy/get set.
	assertDecimal(t, "40", DiscountedPrice(dec("40"), "tee", "", bogo(1, 1, "100")))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "", Label(nil))
	assert.Equal(t, "12.5% Off", Label(&model.Discount{DiscountType: model.DiscountTypePercentage, Value: dec("12.5")}))
	assert.Equal(t, "$5.00 Off", Label(&model.Discount{DiscountType: model.DiscountTypeFixed, Value: dec("5")}))
	assert.Equal(t, "Buy One Get One Free", Label(bogo(1, 1, "100")))
	assert.Equal(t, "Buy One Get One 50% Off", Label(bogo(1, 1, "50")))
	assert.Equal(t, "Buy 2 Get 1 Free", Label(bogo(2, 1, "100")))
	assert.Equal(t, "Buy 3 Get 2 25% Off", Label(bogo(3, 2, "25")))
	assert.Equal(t, "", Label(&model.Discount{DiscountType: model.DiscountType("mystery")}))
}
