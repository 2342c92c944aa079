package pnl

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/storage"
)

type fillLedger struct {
	storage.Ledger
	fills map[uuid.UUID][]domain.Transaction
}

func (l fillLedger) AccountFills(_ context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	return l.fills[accountID], nil
}

func (l fillLedger) NetPosition(_ context.Context, accountID uuid.UUID, ticker string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, f := range l.fills[accountID] {
		if f.Ticker == ticker {
			sum = sum.Add(f.SignedQty())
		}
	}
	return sum, nil
}

type accountStore struct {
	storage.AccountStore
	accounts map[uuid.UUID]domain.Account
}

func (s accountStore) Account(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (s accountStore) Accounts(context.Context) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

type priceMap map[string]decimal.Decimal

func (p priceMap) LatestClose(_ context.Context, symbol string) (decimal.Decimal, bool, error) {
	v, ok := p[symbol]
	return v, ok, nil
}

func fill(accountID uuid.UUID, ticker string, side domain.Side, qty, price int64) domain.Transaction {
	return domain.Transaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Ticker:    ticker,
		Side:      side,
		Qty:       decimal.NewFromInt(qty),
		Price:     decimal.NewFromInt(price),
		Kind:      domain.KindFill,
		Status:    domain.StatusExecuted,
	}
}

func TestNetPositionSequence(t *testing.T) {
	accountID := uuid.New()
	ledger := fillLedger{fills: map[uuid.UUID][]domain.Transaction{
		accountID: {
			fill(accountID, "AAPL", domain.SideBuy, 100, 50),
			fill(accountID, "AAPL", domain.SideSell, 30, 52),
		},
	}}
	agg := NewAggregator(ledger, accountStore{}, priceMap{})

	qty, err := agg.NetPosition(context.Background(), accountID, "AAPL")
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(70)))

	ledger.fills[accountID] = append(ledger.fills[accountID],
		fill(accountID, "AAPL", domain.SideBuy, 10, 53))

	qty, err = agg.NetPosition(context.Background(), accountID, "AAPL")
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(80)))
}

func TestPositionsBucketsByTickerAndGroup(t *testing.T) {
	accountID := uuid.New()
	groupID := uuid.New()

	grouped := fill(accountID, "AAPL", domain.SideBuy, 5, 50)
	grouped.GroupID = &groupID

	ledger := fillLedger{fills: map[uuid.UUID][]domain.Transaction{
		accountID: {
			fill(accountID, "AAPL", domain.SideBuy, 10, 50),
			grouped,
			// A flat position should not appear.
			fill(accountID, "TSLA", domain.SideBuy, 3, 200),
			fill(accountID, "TSLA", domain.SideSell, 3, 210),
		},
	}}
	agg := NewAggregator(ledger, accountStore{}, priceMap{"AAPL": decimal.NewFromInt(55)})

	positions, err := agg.Positions(context.Background(), accountID)
	require.NoError(t, err)

	require.Len(t, positions, 2, "grouped and ungrouped AAPL buckets, no flat TSLA")
	for _, p := range positions {
		assert.Equal(t, "AAPL", p.Ticker)
		assert.True(t, p.MarkPrice.Equal(decimal.NewFromInt(55)))
		assert.True(t, p.MarketValue.Equal(p.Qty.Mul(p.MarkPrice)))
	}
}

func TestValuation(t *testing.T) {
	accountID := uuid.New()
	accounts := accountStore{accounts: map[uuid.UUID]domain.Account{
		accountID: {
			ID:           accountID,
			Name:         "Desk Alpha",
			StartingCash: decimal.NewFromInt(100000),
		},
	}}
	ledger := fillLedger{fills: map[uuid.UUID][]domain.Transaction{
		accountID: {
			fill(accountID, "AAPL", domain.SideBuy, 10, 100),
		},
	}}
	agg := NewAggregator(ledger, accounts, priceMap{"AAPL": decimal.NewFromInt(110)})

	v, err := agg.Valuation(context.Background(), accountID)
	require.NoError(t, err)

	assert.True(t, v.Cash.Equal(decimal.NewFromInt(99000)), "100000 - 10*100")
	assert.True(t, v.MarketValue.Equal(decimal.NewFromInt(1100)), "10 * 110")
	assert.True(t, v.AccountValue.Equal(decimal.NewFromInt(100100)))
	assert.True(t, v.PnL.Equal(decimal.NewFromInt(100)))
}

func TestValuationMarksAtLastFillWithoutBars(t *testing.T) {
	accountID := uuid.New()
	accounts := accountStore{accounts: map[uuid.UUID]domain.Account{
		accountID: {ID: accountID, StartingCash: decimal.NewFromInt(1000)},
	}}
	ledger := fillLedger{fills: map[uuid.UUID][]domain.Transaction{
		accountID: {fill(accountID, "GHOST", domain.SideBuy, 2, 100)},
	}}
	agg := NewAggregator(ledger, accounts, priceMap{})

	v, err := agg.Valuation(context.Background(), accountID)
	require.NoError(t, err)

	// Cash 800, position marked at the 100 execution price.
	assert.True(t, v.AccountValue.Equal(decimal.NewFromInt(1000)))
	assert.True(t, v.PnL.IsZero())
}

func TestLeaderboardSortsByPnL(t *testing.T) {
	winner, loser := uuid.New(), uuid.New()
	accounts := accountStore{accounts: map[uuid.UUID]domain.Account{
		winner: {ID: winner, Name: "winner", StartingCash: decimal.NewFromInt(1000)},
		loser:  {ID: loser, Name: "loser", StartingCash: decimal.NewFromInt(1000)},
	}}
	ledger := fillLedger{fills: map[uuid.UUID][]domain.Transaction{
		winner: {fill(winner, "AAPL", domain.SideBuy, 10, 10)},
		loser:  {fill(loser, "AAPL", domain.SideBuy, 10, 30)},
	}}
	// Latest close 20: winner bought at 10 (+100), loser at 30 (-100).
	agg := NewAggregator(ledger, accounts, priceMap{"AAPL": decimal.NewFromInt(20)})

	board, err := agg.Leaderboard(context.Background())
	require.NoError(t, err)

	require.Len(t, board, 2)
	assert.Equal(t, "winner", board[0].Name)
	assert.True(t, board[0].PnL.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "loser", board[1].Name)
	assert.True(t, board[1].PnL.Equal(decimal.NewFromInt(-100)))
}
