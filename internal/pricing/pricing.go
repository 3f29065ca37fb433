package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrPriceExceedsMRP      = errors.New("selling price exceeds mrp")
	ErrDiscountExceedsLimit = errors.New("discount exceeds variant limit")
)

var hundred = decimal.NewFromInt(100)

// Validate checks a proposed selling price against a variant's MRP and
// maximum discount percentage. It is pure and is re-run inside the store
// transaction for every sale line.
func Validate(sellingPrice, mrp decimal.Decimal, maxDiscountPercent float64) error {
	if sellingPrice.GreaterThan(mrp) {
		return ErrPriceExceedsMRP
	}
	if !mrp.IsPositive() {
		// No printed MRP, so there is no base to compute a discount from.
		return nil
	}
	discount := mrp.Sub(sellingPrice).Div(mrp).Mul(hundred)
	if discount.GreaterThan(decimal.NewFromFloat(maxDiscountPercent)) {
		return ErrDiscountExceedsLimit
	}
	return nil
}

// DiscountPercent reports the discount a selling price represents against
// an MRP, as a percentage. Zero when the MRP is not positive.
func DiscountPercent(sellingPrice, mrp decimal.Decimal) decimal.Decimal {
	if !mrp.IsPositive() {
		return decimal.Zero
	}
	return mrp.Sub(sellingPrice).Div(mrp).Mul(hundred)
}
