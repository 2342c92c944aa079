package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yourorg/simbroker/internal/domain"
)

type NewsRepo struct {
	db *sqlx.DB
}

func NewNewsRepo(db *sqlx.DB) *NewsRepo {
	return &NewsRepo{db: db}
}

func (r *NewsRepo) Recent(ctx context.Context, limit int) ([]domain.NewsArticle, error) {
	var articles []domain.NewsArticle
	err := r.db.SelectContext(ctx, &articles, `
		SELECT id, published_at, source, title, url, sentiment, impact_tags
		FROM news_articles ORDER BY published_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent news: %w", err)
	}
	return articles, nil
}

func (r *NewsRepo) ByTicker(ctx context.Context, symbol string, limit int) ([]domain.NewsArticle, error) {
	var articles []domain.NewsArticle
	err := r.db.SelectContext(ctx, &articles, `
		SELECT n.id, n.published_at, n.source, n.title, n.url, n.sentiment, n.impact_tags
		FROM news_articles n
		JOIN news_ticker_map m ON m.article_id = n.id
		WHERE m.ticker = $1
		ORDER BY n.published_at DESC LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("news by ticker: %w", err)
	}
	return articles, nil
}

func (r *NewsRepo) Create(ctx context.Context, a *domain.NewsArticle, tickers []string) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO news_articles (id, published_at, source, title, url, sentiment, impact_tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.PublishedAt, a.Source, a.Title, a.URL, a.Sentiment, a.ImpactTags)
	if err != nil {
		return fmt.Errorf("create news article: %w", err)
	}
	for _, symbol := range tickers {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO news_ticker_map (article_id, ticker)
			VALUES ($1, $2)
			ON CONFLICT (article_id, ticker) DO NOTHING`, a.ID, symbol)
		if err != nil {
			return fmt.Errorf("map news ticker: %w", err)
		}
	}
	return nil
}
