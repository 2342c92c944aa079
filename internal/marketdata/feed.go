package marketdata

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/storage"
)

// BarCache caches the latest bar per symbol and fans new bars out to
// streaming subscribers. Implemented by the redis price cache.
type BarCache interface {
	LatestBar(ctx context.Context, symbol string) (*domain.PriceBar, error)
	Publish(ctx context.Context, bar domain.PriceBar) error
}

// Feed answers "latest close for symbol" with a cache read-through to the
// price store of record. A cache miss or error falls back to the store.
type Feed struct {
	bars  storage.BarStore
	cache BarCache
}

func NewFeed(bars storage.BarStore, cache BarCache) *Feed {
	return &Feed{bars: bars, cache: cache}
}

func (f *Feed) LatestClose(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	if f.cache != nil {
		if bar, err := f.cache.LatestBar(ctx, symbol); err == nil && bar != nil {
			return decimal.NewFromFloat(bar.Close), true, nil
		}
	}
	bar, err := f.bars.LatestBar(ctx, symbol)
	if err != nil {
		return decimal.Zero, false, err
	}
	if bar == nil {
		return decimal.Zero, false, nil
	}
	return decimal.NewFromFloat(bar.Close), true, nil
}
