package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateAcceptsPriceAtMRP(t *testing.T) {
	if err := Validate(dec("100"), dec("100"), 10); err != nil {
		t.Fatalf("price equal to mrp should be valid, got %v", err)
	}
}

func TestValidateRejectsPriceAboveMRP(t *testing.T) {
	err := Validate(dec("100.01"), dec("100"), 50)
	if !errors.Is(err, ErrPriceExceedsMRP) {
		t.Fatalf("expected ErrPriceExceedsMRP, got %v", err)
	}
}

func TestValidateRejectsDiscountBeyondLimit(t *testing.T) {
	// 80 against an mrp of 100 is a 20% discount.
	err := Validate(dec("80"), dec("100"), 19.99)
	if !errors.Is(err, ErrDiscountExceedsLimit) {
		t.Fatalf("expected ErrDiscountExceedsLimit, got %v", err)
	}
	if err := Validate(dec("80"), dec("100"), 20); err != nil {
		t.Fatalf("discount exactly at the limit should be valid, got %v", err)
	}
}

func TestValidateWithoutMRP(t *testing.T) {
	// The ceiling still applies; only the discount check needs a base.
	if err := Validate(dec("5"), decimal.Zero, 0); !errors.Is(err, ErrPriceExceedsMRP) {
		t.Fatalf("expected ErrPriceExceedsMRP against a zero mrp, got %v", err)
	}
	if err := Validate(decimal.Zero, decimal.Zero, 0); err != nil {
		t.Fatalf("zero price at zero mrp should be valid, got %v", err)
	}
}

func TestDiscountPercent(t *testing.T) {
	if got := DiscountPercent(dec("75"), dec("100")); !got.Equal(dec("25")) {
		t.Fatalf("expected 25, got %s", got)
	}
	if got := DiscountPercent(dec("75"), decimal.Zero); !got.IsZero() {
		t.Fatalf("expected zero without mrp, got %s", got)
	}
}
