package cache

import (
	"context"
	"time"

	"metavendas/internal/domain"
)

type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.SummaryReport, bool, error)
	Set(ctx context.Context, key string, value *domain.SummaryReport, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.SummaryReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.SummaryReport, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
