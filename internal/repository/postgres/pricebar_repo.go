package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yourorg/simbroker/internal/domain"
)

// PriceBarRepo is the price store of record: append-mostly OHLCV bars,
// upserted on (ticker, time).
type PriceBarRepo struct {
	db *sqlx.DB
}

func NewPriceBarRepo(db *sqlx.DB) *PriceBarRepo {
	return &PriceBarRepo{db: db}
}

func (r *PriceBarRepo) LatestBar(ctx context.Context, symbol string) (*domain.PriceBar, error) {
	var bar domain.PriceBar
	err := r.db.GetContext(ctx, &bar, `
		SELECT ticker, time, open, high, low, close, volume, source
		FROM price_bars WHERE ticker = $1
		ORDER BY time DESC LIMIT 1`, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest bar: %w", err)
	}
	return &bar, nil
}

func (r *PriceBarRepo) UpsertBar(ctx context.Context, bar *domain.PriceBar) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_bars (ticker, time, open, high, low, close, volume, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker, time) DO UPDATE SET
			open   = EXCLUDED.open,
			high   = EXCLUDED.high,
			low    = EXCLUDED.low,
			close  = EXCLUDED.close,
			volume = EXCLUDED.volume,
			source = EXCLUDED.source`,
		bar.Ticker, bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.Source)
	if err != nil {
		return fmt.Errorf("upsert bar: %w", err)
	}
	return nil
}

// Series returns up to limit bars for a symbol in ascending time order.
func (r *PriceBarRepo) Series(ctx context.Context, symbol string, limit int) ([]domain.PriceBar, error) {
	var bars []domain.PriceBar
	err := r.db.SelectContext(ctx, &bars, `
		SELECT ticker, time, open, high, low, close, volume, source
		FROM (
			SELECT ticker, time, open, high, low, close, volume, source
			FROM price_bars WHERE ticker = $1
			ORDER BY time DESC LIMIT $2
		) recent
		ORDER BY time ASC`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("bar series: %w", err)
	}
	return bars, nil
}

func (r *PriceBarRepo) Tickers(ctx context.Context, query string, limit int) ([]domain.Ticker, error) {
	var tickers []domain.Ticker
	err := r.db.SelectContext(ctx, &tickers, `
		SELECT symbol, name, asset_type FROM tickers
		WHERE $1 = '' OR LOWER(symbol) LIKE '%' || LOWER($1) || '%' OR LOWER(name) LIKE '%' || LOWER($1) || '%'
		ORDER BY symbol LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	return tickers, nil
}

func (r *PriceBarRepo) Ticker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	var t domain.Ticker
	err := r.db.GetContext(ctx, &t,
		`SELECT symbol, name, asset_type FROM tickers WHERE symbol = $1`, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ticker: %w", err)
	}
	return &t, nil
}

func (r *PriceBarRepo) UpsertTicker(ctx context.Context, t *domain.Ticker) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tickers (symbol, name, asset_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET name = EXCLUDED.name, asset_type = EXCLUDED.asset_type`,
		t.Symbol, t.Name, t.AssetType)
	if err != nil {
		return fmt.Errorf("upsert ticker: %w", err)
	}
	return nil
}
