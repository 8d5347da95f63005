package services

import (
	"context"
	"time"

	"storefront/internal/cache"

	"github.com/rs/zerolog"
)

const (
	cacheKeyDaily     = "analytics:daily"
	cacheKeyTop       = "analytics:top-customers"
	cacheKeyDashboard = "analytics:dashboard"
	cacheKeyOverview  = "analytics:overview"
	cacheKeySales     = "analytics:sales:"
)

var analyticsCacheKeys = []string{
	cacheKeyDaily,
	cacheKeyTop,
	cacheKeyDashboard,
	cacheKeyOverview,
	cacheKeySales + PeriodWeek,
	cacheKeySales + PeriodMonth,
	cacheKeySales + PeriodYear,
}

// CachedAnalytics wraps Analytics with a time-boxed cache. Cache failures are
// logged and the underlying service answers instead.
type CachedAnalytics struct {
	Analytics
	cache cache.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedAnalytics decorates next with c.
func NewCachedAnalytics(next Analytics, c cache.Cache, ttl time.Duration, log zerolog.Logger) *CachedAnalytics {
	return &CachedAnalytics{Analytics: next, cache: c, ttl: ttl, log: log}
}

func cached[T any](ctx context.Context, a *CachedAnalytics, key string, load func() (T, error)) (T, error) {
	var value T
	found, err := a.cache.Get(ctx, key, &value)
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("analytics cache read failed")
	} else if found {
		return value, nil
	}

	value, err = load()
	if err != nil {
		return value, err
	}
	if err := a.cache.Set(ctx, key, value, a.ttl); err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("analytics cache write failed")
	}
	return value, nil
}

func (a *CachedAnalytics) SalesByPeriod(ctx context.Context, period string) (*SalesReport, error) {
	if period == "" {
		period = PeriodWeek
	}
	if _, ok := periodDays[period]; !ok {
		return a.Analytics.SalesByPeriod(ctx, period)
	}
	return cached(ctx, a, cacheKeySales+period, func() (*SalesReport, error) {
		return a.Analytics.SalesByPeriod(ctx, period)
	})
}

func (a *CachedAnalytics) DailyRevenue(ctx context.Context) ([]DayRevenue, error) {
	return cached(ctx, a, cacheKeyDaily, func() ([]DayRevenue, error) {
		return a.Analytics.DailyRevenue(ctx)
	})
}

func (a *CachedAnalytics) TopCustomers(ctx context.Context) ([]CustomerSpend, error) {
	return cached(ctx, a, cacheKeyTop, func() ([]CustomerSpend, error) {
		return a.Analytics.TopCustomers(ctx)
	})
}

func (a *CachedAnalytics) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	return cached(ctx, a, cacheKeyDashboard, func() (*DashboardSummary, error) {
		return a.Analytics.DashboardSummary(ctx)
	})
}

func (a *CachedAnalytics) Overview(ctx context.Context) (*Overview, error) {
	return cached(ctx, a, cacheKeyOverview, func() (*Overview, error) {
		return a.Analytics.Overview(ctx)
	})
}

// Invalidate drops every cached report.
func (a *CachedAnalytics) Invalidate(ctx context.Context) {
	if err := a.cache.Delete(ctx, analyticsCacheKeys...); err != nil {
		a.log.Warn().Err(err).Msg("analytics cache invalidation failed")
	}
}
