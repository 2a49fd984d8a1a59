package pricing

import (
	"fmt"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
)

// Label renders the applied-discount caption, e.g. "25% Off",
// "$5.00 Off", "Buy One Get One Free" or "Buy 2 Get 1 50% Off".
func Label(d *model.Discount) string {
	if d == nil {
		return ""
	}
	switch d.DiscountType {
	case model.DiscountTypePercentage:
		return d.Value.String() + "% Off"
	case model.DiscountTypeFixed:
		return "$" + d.Value.StringFixed(2) + " Off"
	case model.DiscountTypeBuyXGetY:
		buy, get := d.Buy(), d.Get()
		reward := d.Value.String() + "% Off"
		if d.Value.Equal(hundred) {
			reward = "Free"
		}
		if buy == 1 && get == 1 {
			return "Buy One Get One " + reward
		}
		return fmt.Sprintf("Buy %d Get %d %s", buy, get, reward)
	}
	return ""
}
