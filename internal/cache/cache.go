package cache

import (
	"context"
	"time"

	"stokpos/internal/domain"
)

// ReportCache holds rendered daily sales reports for days that are already
// closed. Stock and cost figures are never cached; the only values that go
// through here are aggregates over sales that can no longer change.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.DailySalesReport, bool, error)
	Set(ctx context.Context, key string, value *domain.DailySalesReport, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.DailySalesReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.DailySalesReport, _ time.Duration) error {
	return nil
}
