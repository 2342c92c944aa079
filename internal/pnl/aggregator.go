// Package pnl derives positions and account valuations from the transaction
// ledger. Everything here is read-only and computed fresh per call: the
// ledger is the single source of truth and positions are never cached.
package pnl

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/storage"
)

// Position is the signed net quantity for one (account, ticker, group)
// bucket, marked at the latest close.
type Position struct {
	AccountID   uuid.UUID       `json:"account_id"`
	GroupID     *uuid.UUID      `json:"group_id,omitempty"`
	Ticker      string          `json:"ticker"`
	Qty         decimal.Decimal `json:"qty"`
	MarkPrice   decimal.Decimal `json:"mark_price"`
	MarketValue decimal.Decimal `json:"market_value"`
}

// Valuation is the account-level rollup. PnL is value relative to the
// account's starting cash.
type Valuation struct {
	AccountID    uuid.UUID       `json:"account_id"`
	Name         string          `json:"name"`
	StartingCash decimal.Decimal `json:"starting_cash"`
	Cash         decimal.Decimal `json:"cash"`
	MarketValue  decimal.Decimal `json:"market_value"`
	AccountValue decimal.Decimal `json:"account_value"`
	PnL          decimal.Decimal `json:"pnl"`
}

type Aggregator struct {
	ledger   storage.Ledger
	accounts storage.AccountStore
	prices   storage.PriceSource
}

func NewAggregator(ledger storage.Ledger, accounts storage.AccountStore, prices storage.PriceSource) *Aggregator {
	return &Aggregator{ledger: ledger, accounts: accounts, prices: prices}
}

// NetPosition is the signed sum of fill quantities for one symbol.
func (a *Aggregator) NetPosition(ctx context.Context, accountID uuid.UUID, ticker string) (decimal.Decimal, error) {
	return a.ledger.NetPosition(ctx, accountID, ticker)
}

type bucketKey struct {
	ticker string
	group  uuid.UUID // uuid.Nil when the fill has no group
}

// Positions folds the account's fills into per-(ticker, group) buckets and
// marks each at the latest close. Flat buckets (qty zero) are dropped.
func (a *Aggregator) Positions(ctx context.Context, accountID uuid.UUID) ([]Position, error) {
	fills, err := a.ledger.AccountFills(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load fills: %w", err)
	}

	buckets := make(map[bucketKey]*Position)
	lastFillPrice := make(map[string]decimal.Decimal)
	for _, f := range fills {
		key := bucketKey{ticker: f.Ticker}
		if f.GroupID != nil {
			key.group = *f.GroupID
		}
		pos, ok := buckets[key]
		if !ok {
			pos = &Position{AccountID: accountID, GroupID: f.GroupID, Ticker: f.Ticker}
			buckets[key] = pos
		}
		pos.Qty = pos.Qty.Add(f.SignedQty())
		lastFillPrice[f.Ticker] = f.Price
	}

	out := make([]Position, 0, len(buckets))
	for _, pos := range buckets {
		if pos.Qty.IsZero() {
			continue
		}
		mark, err := a.markPrice(ctx, pos.Ticker, lastFillPrice)
		if err != nil {
			return nil, err
		}
		pos.MarkPrice = mark
		pos.MarketValue = pos.Qty.Mul(mark)
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

// Valuation computes account value as starting cash plus the cash effect of
// every fill plus the mark-to-market of what remains open.
func (a *Aggregator) Valuation(ctx context.Context, accountID uuid.UUID) (*Valuation, error) {
	account, err := a.accounts.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	fills, err := a.ledger.AccountFills(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load fills: %w", err)
	}

	cash := account.StartingCash
	positions := make(map[string]decimal.Decimal)
	lastFillPrice := make(map[string]decimal.Decimal)
	for _, f := range fills {
		flow := f.Qty.Mul(f.Price)
		if f.Side == domain.SideBuy {
			cash = cash.Sub(flow)
		} else {
			cash = cash.Add(flow)
		}
		positions[f.Ticker] = positions[f.Ticker].Add(f.SignedQty())
		lastFillPrice[f.Ticker] = f.Price
	}

	marketValue := decimal.Zero
	for ticker, qty := range positions {
		if qty.IsZero() {
			continue
		}
		mark, err := a.markPrice(ctx, ticker, lastFillPrice)
		if err != nil {
			return nil, err
		}
		marketValue = marketValue.Add(qty.Mul(mark))
	}

	value := cash.Add(marketValue)
	return &Valuation{
		AccountID:    account.ID,
		Name:         account.Name,
		StartingCash: account.StartingCash,
		Cash:         cash,
		MarketValue:  marketValue,
		AccountValue: value,
		PnL:          value.Sub(account.StartingCash),
	}, nil
}

// Leaderboard values every account and sorts by P&L, best first.
func (a *Aggregator) Leaderboard(ctx context.Context) ([]Valuation, error) {
	accounts, err := a.accounts.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Valuation, 0, len(accounts))
	for _, acct := range accounts {
		v, err := a.Valuation(ctx, acct.ID)
		if err != nil {
			return nil, fmt.Errorf("value account %s: %w", acct.ID, err)
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PnL.GreaterThan(out[j].PnL) })
	return out, nil
}

// markPrice resolves the mark for a symbol: latest close when the store has
// one, otherwise the last execution price seen in this account's fills so a
// symbol with no bar history still values at something sane.
func (a *Aggregator) markPrice(ctx context.Context, ticker string, lastFill map[string]decimal.Decimal) (decimal.Decimal, error) {
	price, ok, err := a.prices.LatestClose(ctx, ticker)
	if err != nil {
		return decimal.Zero, fmt.Errorf("latest close %s: %w", ticker, err)
	}
	if ok {
		return price, nil
	}
	return lastFill[ticker], nil
}
