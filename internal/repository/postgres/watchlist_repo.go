package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yourorg/simbroker/internal/domain"
)

type WatchlistRepo struct {
	db *sqlx.DB
}

func NewWatchlistRepo(db *sqlx.DB) *WatchlistRepo {
	return &WatchlistRepo{db: db}
}

func (r *WatchlistRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistEntry, error) {
	var entries []domain.WatchlistEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT user_id, symbol, added_at FROM watchlists
		WHERE user_id = $1 ORDER BY symbol`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return entries, nil
}

func (r *WatchlistRepo) Add(ctx context.Context, userID uuid.UUID, symbol string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watchlists (user_id, symbol)
		VALUES ($1, $2)
		ON CONFLICT (user_id, symbol) DO NOTHING`, userID, symbol)
	if err != nil {
		return fmt.Errorf("add watchlist entry: %w", err)
	}
	return nil
}

func (r *WatchlistRepo) Remove(ctx context.Context, userID uuid.UUID, symbol string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM watchlists WHERE user_id = $1 AND symbol = $2`, userID, symbol)
	if err != nil {
		return false, fmt.Errorf("remove watchlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
