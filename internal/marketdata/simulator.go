package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/observability"
	"github.com/yourorg/simbroker/internal/storage"
)

// SourceSim marks bars written by the simulator.
const SourceSim = "SIM"

const defaultStartPrice = 100.0

// Simulator perturbs each symbol's last close by a profile-bounded random
// walk on a fixed cadence, appending new bars to the price store. It is
// best-effort: a failure on one symbol is logged and the tick moves on.
type Simulator struct {
	bars        storage.BarStore
	cache       BarCache
	profiles    *Profiles
	interval    time.Duration
	symbolLimit int
	logger      *slog.Logger
	scheduler   *gocron.Scheduler
}

func NewSimulator(bars storage.BarStore, cache BarCache, profiles *Profiles, interval time.Duration, symbolLimit int, logger *slog.Logger) *Simulator {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if symbolLimit <= 0 {
		symbolLimit = 50
	}
	return &Simulator{
		bars:        bars,
		cache:       cache,
		profiles:    profiles,
		interval:    interval,
		symbolLimit: symbolLimit,
		logger:      logger,
	}
}

// Start launches the background tick loop. The loop runs until Stop.
func (s *Simulator) Start() error {
	s.scheduler = gocron.NewScheduler(time.UTC)
	s.scheduler.SingletonModeAll()
	if _, err := s.scheduler.Every(s.interval).Do(s.tick); err != nil {
		return fmt.Errorf("schedule simulator: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Info("price simulator started", "interval", s.interval, "symbol_limit", s.symbolLimit)
	return nil
}

func (s *Simulator) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.logger.Info("price simulator stopped")
}

// tick simulates one bar for the first symbolLimit tickers by symbol order.
// Per-symbol failures never abort the round.
func (s *Simulator) tick() {
	ctx := context.Background()
	tickers, err := s.bars.Tickers(ctx, "", s.symbolLimit)
	if err != nil {
		s.logger.Error("simulator: list tickers failed", "err", err)
		observability.SimulatorErrors.Inc()
		return
	}
	for _, t := range tickers {
		if _, err := s.step(ctx, t.Symbol, t.AssetType); err != nil {
			s.logger.Error("simulator: symbol step failed", "symbol", t.Symbol, "err", err)
			observability.SimulatorErrors.Inc()
		}
	}
	observability.SimulatorTicks.Inc()
}

// SimulateOnce runs the same per-symbol step synchronously and returns the
// new bar. Used by the manual tick endpoint.
func (s *Simulator) SimulateOnce(ctx context.Context, symbol string) (*domain.PriceBar, error) {
	assetClass := ""
	if t, err := s.bars.Ticker(ctx, symbol); err != nil {
		return nil, err
	} else if t != nil {
		assetClass = t.AssetType
	}
	return s.step(ctx, symbol, assetClass)
}

func (s *Simulator) step(ctx context.Context, symbol, assetClass string) (*domain.PriceBar, error) {
	lastClose := defaultStartPrice
	if last, err := s.bars.LatestBar(ctx, symbol); err != nil {
		return nil, err
	} else if last != nil {
		lastClose = last.Close
	}

	prof := s.profiles.Resolve(symbol, assetClass)
	step := (rand.Float64()*2 - 1) * prof.StepBound

	open := lastClose
	closePx := math.Max(0.01, open*(1+step))
	high := math.Max(open, closePx) * (1 + math.Abs(step)*0.5)
	low := math.Min(open, closePx) * (1 - math.Abs(step)*0.5)
	volume := int64(float64(prof.BaseVolume) * (0.8 + rand.Float64()*0.4))

	bar := &domain.PriceBar{
		Ticker: symbol,
		Time:   time.Now().UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: volume,
		Source: SourceSim,
	}
	if err := s.bars.UpsertBar(ctx, bar); err != nil {
		return nil, err
	}
	observability.BarsWritten.Inc()

	if s.cache != nil {
		if err := s.cache.Publish(ctx, *bar); err != nil {
			// The store of record already has the bar; streaming is
			// best-effort.
			s.logger.Warn("simulator: publish bar failed", "symbol", symbol, "err", err)
		}
	}
	return bar, nil
}
