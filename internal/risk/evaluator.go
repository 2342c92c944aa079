// Package risk decides whether an order request needs manual approval before
// it may fill.
package risk

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/storage"
)

// Limits are the global gates applied to every account, on top of whatever
// per-account limits are configured. They are injected so tests can override
// thresholds per case.
type Limits struct {
	ApprovalNotionalThreshold decimal.Decimal
	MaxPositionAbsQty         decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{
		ApprovalNotionalThreshold: decimal.NewFromInt(10000),
		MaxPositionAbsQty:         decimal.NewFromInt(1000),
	}
}

// Assessment is the evaluator's verdict for one order request.
type Assessment struct {
	NeedsApproval bool
	// Notional is qty x reference price, the dollar exposure of the order.
	Notional decimal.Decimal
	// RefPrice is the price risk was evaluated against: the limit price if
	// provided, else the latest close.
	RefPrice decimal.Decimal
}

// Evaluator is read-only and deterministic given ledger state and the latest
// price; calling it never mutates anything.
type Evaluator struct {
	prices    storage.PriceSource
	positions storage.Ledger
	accounts  storage.AccountStore
	limits    Limits
}

func NewEvaluator(prices storage.PriceSource, positions storage.Ledger, accounts storage.AccountStore, limits Limits) *Evaluator {
	return &Evaluator{prices: prices, positions: positions, accounts: accounts, limits: limits}
}

// Evaluate resolves the reference price, projects the position the fill
// would produce, and reports whether any global or account-level gate
// requires approval.
func (e *Evaluator) Evaluate(ctx context.Context, accountID uuid.UUID, ticker string, side domain.Side, qty decimal.Decimal, limitPrice *decimal.Decimal) (Assessment, error) {
	refPrice, err := e.referencePrice(ctx, ticker, limitPrice)
	if err != nil {
		return Assessment{}, err
	}

	notional := qty.Mul(refPrice)

	current, err := e.positions.NetPosition(ctx, accountID, ticker)
	if err != nil {
		return Assessment{}, err
	}
	projected := current.Add(qty)
	if side == domain.SideSell {
		projected = current.Sub(qty)
	}

	limits, err := e.accounts.RiskLimits(ctx, accountID)
	if err != nil {
		return Assessment{}, err
	}

	needsApproval := notional.GreaterThan(e.limits.ApprovalNotionalThreshold) ||
		projected.Abs().GreaterThan(e.limits.MaxPositionAbsQty) ||
		(limits.MaxOrderNotional != nil && notional.GreaterThan(*limits.MaxOrderNotional)) ||
		(limits.MaxPositionAbsQty != nil && projected.Abs().GreaterThan(*limits.MaxPositionAbsQty)) ||
		limits.EarningsLockout

	return Assessment{
		NeedsApproval: needsApproval,
		Notional:      notional,
		RefPrice:      refPrice,
	}, nil
}

func (e *Evaluator) referencePrice(ctx context.Context, ticker string, limitPrice *decimal.Decimal) (decimal.Decimal, error) {
	if limitPrice != nil && limitPrice.IsPositive() {
		return *limitPrice, nil
	}
	price, ok, err := e.prices.LatestClose(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrNoPriceAvailable, ticker)
	}
	return price, nil
}
