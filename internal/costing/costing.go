package costing

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stokpos/internal/domain"
)

// Aging buckets by days since purchase, with the base discount percentage
// suggested for stock sitting in each bucket.
const (
	BucketFresh    = "0-30"
	BucketAging    = "31-60"
	BucketStale    = "61-90"
	BucketDeadWood = "90+"
)

// Allocate spreads a purchase's extra charges (freight, duties, handling)
// across its lines proportionally to quantity and returns the effective
// unit cost per line, rounded to 2 decimal places. Lines with zero quantity
// keep their raw unit cost.
func Allocate(quantities []int, unitCosts []decimal.Decimal, extraCharges decimal.Decimal) []decimal.Decimal {
	totalQty := 0
	for _, qty := range quantities {
		if qty > 0 {
			totalQty += qty
		}
	}

	effective := make([]decimal.Decimal, len(quantities))
	for i := range quantities {
		if quantities[i] < 1 {
			effective[i] = unitCosts[i].Round(2)
			continue
		}
		qty := decimal.NewFromInt(int64(quantities[i]))
		lineCost := unitCosts[i].Mul(qty)
		if totalQty > 0 && extraCharges.IsPositive() {
			share := qty.Div(decimal.NewFromInt(int64(totalQty))).Mul(extraCharges)
			lineCost = lineCost.Add(share)
		}
		effective[i] = lineCost.Div(qty).Round(2)
	}
	return effective
}

// AverageCosts computes the quantity-weighted average effective unit cost
// per variant over all received layers. Variants with no received quantity
// map to zero. No intermediate rounding is applied.
func AverageCosts(layers []domain.CostLayer) map[string]decimal.Decimal {
	totalQty := make(map[string]int)
	totalValue := make(map[string]decimal.Decimal)
	for _, layer := range layers {
		if layer.Quantity < 1 {
			continue
		}
		totalQty[layer.ProductVariantID] += layer.Quantity
		totalValue[layer.ProductVariantID] = totalValue[layer.ProductVariantID].
			Add(layer.EffectiveUnitCost.Mul(decimal.NewFromInt(int64(layer.Quantity))))
	}

	averages := make(map[string]decimal.Decimal, len(totalQty))
	for variantID, qty := range totalQty {
		if qty < 1 {
			averages[variantID] = decimal.Zero
			continue
		}
		averages[variantID] = totalValue[variantID].Div(decimal.NewFromInt(int64(qty)))
	}
	return averages
}

// RemainingLayers consumes totalSold units from the given layers oldest
// first and returns the layers still holding stock. Input layers must all
// belong to the same variant; they are sorted by purchase date before
// consumption so callers need not pre-sort.
func RemainingLayers(layers []domain.CostLayer, totalSold int) []domain.CostLayer {
	sorted := make([]domain.CostLayer, len(layers))
	copy(sorted, layers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PurchasedAt.Before(sorted[j].PurchasedAt)
	})

	remaining := make([]domain.CostLayer, 0, len(sorted))
	left := totalSold
	for _, layer := range sorted {
		if layer.Quantity < 1 {
			continue
		}
		if left >= layer.Quantity {
			left -= layer.Quantity
			continue
		}
		kept := layer
		kept.Quantity -= left
		left = 0
		remaining = append(remaining, kept)
	}
	return remaining
}

// AgeDays returns whole days elapsed between the purchase date and the
// as-of date, both truncated to UTC midnight.
func AgeDays(purchasedAt time.Time, asOf time.Time) int {
	from := midnightUTC(purchasedAt)
	to := midnightUTC(asOf)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}

func BucketFor(ageDays int) string {
	switch {
	case ageDays <= 30:
		return BucketFresh
	case ageDays <= 60:
		return BucketAging
	case ageDays <= 90:
		return BucketStale
	default:
		return BucketDeadWood
	}
}

func BaseDiscountPercent(bucket string) float64 {
	switch bucket {
	case BucketAging:
		return 5
	case BucketStale:
		return 10
	case BucketDeadWood:
		return 20
	default:
		return 0
	}
}

// Suggestion is a markdown proposal for one aging stock layer.
type Suggestion struct {
	DiscountPercent float64
	Price           decimal.Decimal
	CappedByCost    bool
}

// SuggestDiscount proposes a discounted selling price for a layer of the
// given age. The discount is the bucket's base rate clamped to the
// variant's maximum; the resulting price never drops below the layer's
// effective unit cost, and when the cost floor wins the suggestion is
// flagged as capped.
func SuggestDiscount(variant domain.ProductVariant, effectiveUnitCost decimal.Decimal, ageDays int) Suggestion {
	discount := math.Min(BaseDiscountPercent(BucketFor(ageDays)), variant.MaxDiscountPercent)
	if discount < 0 {
		discount = 0
	}

	base := variant.DefaultSellingPrice
	if !base.IsPositive() {
		base = effectiveUnitCost
	}

	price := base.Mul(decimal.NewFromFloat(1 - discount/100)).Round(2)
	capped := false
	if price.LessThan(effectiveUnitCost) {
		price = effectiveUnitCost
		capped = true
	}

	return Suggestion{
		DiscountPercent: discount,
		Price:           price,
		CappedByCost:    capped,
	}
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
