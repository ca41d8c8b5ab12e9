// Package report aggregates sale rows into the summary the report screen
// shows: grand total, per-seller totals and the pending pickup count.
package report

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"metavendas/internal/cache"
	"metavendas/internal/domain"
	"metavendas/internal/money"
)

const summaryCacheKey = "report:summary"

type Builder struct {
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewBuilder(cacheStore cache.ReportCache, cacheTTL time.Duration) *Builder {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Builder{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// Summary returns the cached report when fresh, otherwise aggregates the
// given sales and caches the result. Cache failures only cost the caching,
// never the report.
func (b *Builder) Summary(ctx context.Context, sales []domain.Sale) domain.SummaryReport {
	if cached, ok, err := b.cache.Get(ctx, summaryCacheKey); err == nil && ok {
		return *cached
	}

	summary := Aggregate(sales)
	if err := b.cache.Set(ctx, summaryCacheKey, &summary, b.cacheTTL); err != nil {
		log.Printf("[report] WARN: failed to cache summary: %v", err)
	}
	return summary
}

// Invalidate drops the cached summary. Called after every sale mutation.
func (b *Builder) Invalidate(ctx context.Context) {
	if err := b.cache.Invalidate(ctx, summaryCacheKey); err != nil {
		log.Printf("[report] WARN: failed to invalidate summary cache: %v", err)
	}
}

// Aggregate is the pure aggregation step, separated so it can be exercised
// without a cache.
func Aggregate(sales []domain.Sale) domain.SummaryReport {
	total := decimal.Zero
	pending := 0
	perSellerTotal := make(map[string]decimal.Decimal)
	perSellerCount := make(map[string]int)

	for _, sale := range sales {
		total = total.Add(sale.Amount)
		perSellerTotal[sale.Seller] = perSellerTotal[sale.Seller].Add(sale.Amount)
		perSellerCount[sale.Seller]++
		if sale.PickupLater == domain.PickupPending {
			pending++
		}
	}

	sellers := make([]string, 0, len(perSellerTotal))
	for seller := range perSellerTotal {
		sellers = append(sellers, seller)
	}
	sort.Strings(sellers)

	bySeller := make([]domain.SellerTotal, 0, len(sellers))
	for _, seller := range sellers {
		bySeller = append(bySeller, domain.SellerTotal{
			Seller:      seller,
			Count:       perSellerCount[seller],
			TotalAmount: money.FormatAmount(perSellerTotal[seller]),
		})
	}

	return domain.SummaryReport{
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
		Count:          len(sales),
		TotalAmount:    money.FormatAmount(total),
		PendingPickups: pending,
		BySeller:       bySeller,
	}
}
