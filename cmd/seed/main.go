// Command seed loads a demo data set: two users, a shared account with risk
// limits, a group, a handful of tickers with 50 bars of simulated history,
// and some news.
package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/simbroker/internal/config"
	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/marketdata"
	pgRepo "github.com/yourorg/simbroker/internal/repository/postgres"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	db, err := pgRepo.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	if err := pgRepo.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	users := pgRepo.NewUserRepo(db)
	accounts := pgRepo.NewAccountRepo(db)
	members := pgRepo.NewMembershipRepo(db)
	groups := pgRepo.NewGroupRepo(db)
	bars := pgRepo.NewPriceBarRepo(db)
	news := pgRepo.NewNewsRepo(db)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), 12)

	owner := &domain.User{Email: "owner@example.com", PasswordHash: string(hash)}
	trader := &domain.User{Email: "trader@example.com", PasswordHash: string(hash)}
	for _, u := range []*domain.User{owner, trader} {
		if err := users.Create(ctx, u); err != nil {
			logger.Error("seed user failed (already seeded?)", "email", u.Email, "err", err)
			os.Exit(1)
		}
	}

	maxNotional := decimal.NewFromInt(5000)
	account := &domain.Account{
		Name:         "Desk Alpha",
		AccountType:  "simulated",
		StartingCash: decimal.NewFromInt(100000),
	}
	account.MaxOrderNotional = &maxNotional
	if err := accounts.Create(ctx, account); err != nil {
		logger.Error("seed account failed", "err", err)
		os.Exit(1)
	}
	memberships := []domain.AccountMembership{
		{AccountID: account.ID, UserID: owner.ID, Role: domain.RoleOwner},
		{AccountID: account.ID, UserID: trader.ID, Role: domain.RoleTrader},
	}
	for _, m := range memberships {
		if err := members.UpsertAccountMembership(ctx, m); err != nil {
			logger.Error("seed membership failed", "err", err)
			os.Exit(1)
		}
	}

	group := &domain.Group{Name: "Momentum Club", CreatedBy: owner.ID}
	if err := groups.Create(ctx, group); err != nil {
		logger.Error("seed group failed", "err", err)
		os.Exit(1)
	}
	groupMembers := []domain.GroupMembership{
		{GroupID: group.ID, UserID: owner.ID, Role: domain.RoleOwner},
		{GroupID: group.ID, UserID: trader.ID, Role: domain.RoleMember},
	}
	for _, m := range groupMembers {
		if err := members.AddGroupMember(ctx, m); err != nil {
			logger.Error("seed group member failed", "err", err)
			os.Exit(1)
		}
	}

	tickers := []domain.Ticker{
		{Symbol: "AAPL", Name: "Apple Inc.", AssetType: "equity"},
		{Symbol: "TSLA", Name: "Tesla, Inc.", AssetType: "equity"},
		{Symbol: "SPY", Name: "SPDR S&P 500 ETF", AssetType: "etf"},
		{Symbol: "BTC-USD", Name: "Bitcoin", AssetType: "crypto"},
	}
	profiles := marketdata.DefaultProfiles()
	for _, t := range tickers {
		if err := bars.UpsertTicker(ctx, &t); err != nil {
			logger.Error("seed ticker failed", "symbol", t.Symbol, "err", err)
			os.Exit(1)
		}
		if err := seedHistory(ctx, bars, profiles, t, 50); err != nil {
			logger.Error("seed bars failed", "symbol", t.Symbol, "err", err)
			os.Exit(1)
		}
	}

	articles := []struct {
		article domain.NewsArticle
		tickers []string
	}{
		{
			article: domain.NewsArticle{
				PublishedAt: time.Now().UTC().Add(-2 * time.Hour),
				Source:      "SimWire",
				Title:       "Apple unveils new product line",
				URL:         "https://news.example.com/apple-product-line",
				Sentiment:   "positive",
				ImpactTags:  "product,guidance",
			},
			tickers: []string{"AAPL"},
		},
		{
			article: domain.NewsArticle{
				PublishedAt: time.Now().UTC().Add(-30 * time.Minute),
				Source:      "SimWire",
				Title:       "Broad market rallies on rate outlook",
				URL:         "https://news.example.com/market-rally",
				Sentiment:   "positive",
				ImpactTags:  "macro",
			},
			tickers: []string{"SPY", "AAPL", "TSLA"},
		},
	}
	for _, a := range articles {
		art := a.article
		if err := news.Create(ctx, &art, a.tickers); err != nil {
			logger.Error("seed news failed", "title", art.Title, "err", err)
			os.Exit(1)
		}
	}

	logger.Info("seed complete",
		"users", 2, "accounts", 1, "groups", 1, "tickers", len(tickers))
}

// seedHistory writes n bars of random-walk history ending now, one bar per
// minute, using the same walk the live simulator runs.
func seedHistory(ctx context.Context, bars *pgRepo.PriceBarRepo, profiles *marketdata.Profiles, t domain.Ticker, n int) error {
	prof := profiles.Resolve(t.Symbol, t.AssetType)
	closePx := 100.0
	start := time.Now().UTC().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		step := (rand.Float64()*2 - 1) * prof.StepBound
		open := closePx
		closePx = open * (1 + step)
		if closePx < 0.01 {
			closePx = 0.01
		}
		high := open
		if closePx > high {
			high = closePx
		}
		low := open
		if closePx < low {
			low = closePx
		}
		bar := &domain.PriceBar{
			Ticker: t.Symbol,
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   open,
			High:   high * (1 + prof.StepBound*0.5),
			Low:    low * (1 - prof.StepBound*0.5),
			Close:  closePx,
			Volume: int64(float64(prof.BaseVolume) * (0.8 + rand.Float64()*0.4)),
			Source: marketdata.SourceSim,
		}
		if err := bars.UpsertBar(ctx, bar); err != nil {
			return err
		}
	}
	return nil
}
