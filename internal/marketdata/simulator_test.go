package marketdata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/simbroker/internal/domain"
)

type memBars struct {
	bars      map[string][]domain.PriceBar
	tickers   []domain.Ticker
	latestErr map[string]error
}

func newMemBars(tickers ...domain.Ticker) *memBars {
	return &memBars{
		bars:      make(map[string][]domain.PriceBar),
		tickers:   tickers,
		latestErr: make(map[string]error),
	}
}

func (m *memBars) LatestBar(_ context.Context, symbol string) (*domain.PriceBar, error) {
	if err := m.latestErr[symbol]; err != nil {
		return nil, err
	}
	series := m.bars[symbol]
	if len(series) == 0 {
		return nil, nil
	}
	bar := series[len(series)-1]
	return &bar, nil
}

func (m *memBars) UpsertBar(_ context.Context, bar *domain.PriceBar) error {
	m.bars[bar.Ticker] = append(m.bars[bar.Ticker], *bar)
	return nil
}

func (m *memBars) Series(_ context.Context, symbol string, _ int) ([]domain.PriceBar, error) {
	return m.bars[symbol], nil
}

func (m *memBars) Tickers(_ context.Context, _ string, limit int) ([]domain.Ticker, error) {
	if limit < len(m.tickers) {
		return m.tickers[:limit], nil
	}
	return m.tickers, nil
}

func (m *memBars) Ticker(_ context.Context, symbol string) (*domain.Ticker, error) {
	for _, t := range m.tickers {
		if t.Symbol == symbol {
			return &t, nil
		}
	}
	return nil, nil
}

type recordingCache struct {
	published []domain.PriceBar
}

func (c *recordingCache) LatestBar(context.Context, string) (*domain.PriceBar, error) {
	return nil, nil
}

func (c *recordingCache) Publish(_ context.Context, bar domain.PriceBar) error {
	c.published = append(c.published, bar)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimulateOnceFirstBar(t *testing.T) {
	bars := newMemBars(domain.Ticker{Symbol: "AAPL", AssetType: "equity"})
	sim := NewSimulator(bars, nil, DefaultProfiles(), 0, 0, testLogger())

	bar, err := sim.SimulateOnce(context.Background(), "AAPL")
	require.NoError(t, err)

	bound := DefaultProfiles().Default.StepBound
	assert.Equal(t, 100.0, bar.Open, "no history starts from the base price")
	assert.InDelta(t, 100.0, bar.Close, 100.0*bound+1e-9)
	assert.GreaterOrEqual(t, bar.Close, 0.01)
	assert.GreaterOrEqual(t, bar.High, bar.Open)
	assert.GreaterOrEqual(t, bar.High, bar.Close)
	assert.LessOrEqual(t, bar.Low, bar.Open)
	assert.LessOrEqual(t, bar.Low, bar.Close)
	assert.Greater(t, bar.Volume, int64(0))
	assert.Equal(t, SourceSim, bar.Source)

	require.Len(t, bars.bars["AAPL"], 1, "bar must be persisted")
}

func TestSimulateOnceWalksFromLastClose(t *testing.T) {
	bars := newMemBars(domain.Ticker{Symbol: "AAPL", AssetType: "equity"})
	bars.bars["AAPL"] = []domain.PriceBar{{Ticker: "AAPL", Close: 50}}
	sim := NewSimulator(bars, nil, DefaultProfiles(), 0, 0, testLogger())

	bar, err := sim.SimulateOnce(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 50.0, bar.Open, "open is the previous close")
}

func TestSimulateOnceUnknownSymbolUsesDefaults(t *testing.T) {
	bars := newMemBars()
	sim := NewSimulator(bars, nil, DefaultProfiles(), 0, 0, testLogger())

	bar, err := sim.SimulateOnce(context.Background(), "NEW")
	require.NoError(t, err)
	assert.Equal(t, 100.0, bar.Open)
}

func TestTickContinuesAfterSymbolFailure(t *testing.T) {
	bars := newMemBars(
		domain.Ticker{Symbol: "BAD", AssetType: "equity"},
		domain.Ticker{Symbol: "GOOD", AssetType: "equity"},
	)
	bars.latestErr["BAD"] = errors.New("boom")
	sim := NewSimulator(bars, nil, DefaultProfiles(), 0, 0, testLogger())

	sim.tick()

	assert.Empty(t, bars.bars["BAD"])
	assert.Len(t, bars.bars["GOOD"], 1, "one failure must not stop the round")
}

func TestTickPublishesToCache(t *testing.T) {
	bars := newMemBars(domain.Ticker{Symbol: "AAPL", AssetType: "equity"})
	cache := &recordingCache{}
	sim := NewSimulator(bars, cache, DefaultProfiles(), 0, 0, testLogger())

	sim.tick()

	require.Len(t, cache.published, 1)
	assert.Equal(t, "AAPL", cache.published[0].Ticker)
}

func TestTickHonorsSymbolLimit(t *testing.T) {
	bars := newMemBars(
		domain.Ticker{Symbol: "A"},
		domain.Ticker{Symbol: "B"},
		domain.Ticker{Symbol: "C"},
	)
	sim := NewSimulator(bars, nil, DefaultProfiles(), 0, 2, testLogger())

	sim.tick()

	written := 0
	for _, series := range bars.bars {
		written += len(series)
	}
	assert.Equal(t, 2, written)
}
