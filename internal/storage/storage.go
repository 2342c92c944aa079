// Package storage declares the persistence contracts consumed by the core
// services. The postgres and redis repositories provide the production
// implementations; tests substitute in-memory fakes.
package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourorg/simbroker/internal/domain"
)

// Ledger is the transaction table. Only the order lifecycle engine mutates
// it, and all mutations happen inside ExecTx.
type Ledger interface {
	// GetOrder returns the ORDER row with the given id, or
	// domain.ErrNotFound.
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// ListAccountOrders returns ORDER rows for an account, newest first.
	// With openOnly set, only orders still in an open status are returned.
	ListAccountOrders(ctx context.Context, accountID uuid.UUID, openOnly bool) ([]domain.Transaction, error)

	// ListGroupOrders is ListAccountOrders scoped to a group.
	ListGroupOrders(ctx context.Context, groupID uuid.UUID, openOnly bool) ([]domain.Transaction, error)

	// PendingApprovals returns PENDING_APPROVAL orders across every account
	// where the user holds an owner or manager role.
	PendingApprovals(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)

	// AccountFills returns FILL rows for an account in fill-status states.
	AccountFills(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)

	// AccountTransactions returns all ledger rows for an account in an
	// optional time window, oldest first.
	AccountTransactions(ctx context.Context, accountID uuid.UUID, start, end *string) ([]domain.Transaction, error)

	// NetPosition is the signed sum of FILL quantities for (account,
	// ticker) with status in FillStatuses.
	NetPosition(ctx context.Context, accountID uuid.UUID, ticker string) (decimal.Decimal, error)

	// ExecTx runs fn inside one database transaction. Every write fn issues
	// commits or rolls back together.
	ExecTx(ctx context.Context, fn func(LedgerTx) error) error
}

// LedgerTx is the write surface available inside ExecTx.
type LedgerTx interface {
	// InsertOrder appends an ORDER row and fills in its id and time.
	InsertOrder(ctx context.Context, t *domain.Transaction) error

	// InsertFill appends an immutable FILL row (status EXECUTED).
	InsertFill(ctx context.Context, t *domain.Transaction) error

	// TransitionOrder updates an ORDER row's status conditionally: the
	// update applies only if the row is kind ORDER and, when from is
	// non-empty, its status is still one of from at the moment of update.
	// Returns false when the row did not match, so concurrent transitions
	// resolve to exactly one winner.
	TransitionOrder(ctx context.Context, id uuid.UUID, from []domain.TxStatus, to domain.TxStatus, approvedBy *uuid.UUID) (bool, error)

	// GetOrder re-reads an ORDER row inside the transaction.
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

// AccountStore reads accounts and their risk limits.
type AccountStore interface {
	Account(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Accounts(ctx context.Context) ([]domain.Account, error)
	RiskLimits(ctx context.Context, accountID uuid.UUID) (*domain.RiskLimits, error)
}

// MembershipStore resolves a user's role within an account or group.
// RoleNone is returned when the user has no membership row.
type MembershipStore interface {
	AccountRole(ctx context.Context, userID, accountID uuid.UUID) (domain.Role, error)
	GroupRole(ctx context.Context, userID, groupID uuid.UUID) (domain.Role, error)
}

// BarStore is the price store: an append-mostly OHLCV time series per
// symbol, upserted on (ticker, time).
type BarStore interface {
	// LatestBar returns the max(time) bar for a symbol, or nil when the
	// symbol has no history.
	LatestBar(ctx context.Context, symbol string) (*domain.PriceBar, error)
	UpsertBar(ctx context.Context, bar *domain.PriceBar) error
	Series(ctx context.Context, symbol string, limit int) ([]domain.PriceBar, error)
	Tickers(ctx context.Context, query string, limit int) ([]domain.Ticker, error)
	Ticker(ctx context.Context, symbol string) (*domain.Ticker, error)
}

// PriceSource resolves the latest close for a symbol. ok is false when the
// symbol has no price history.
type PriceSource interface {
	LatestClose(ctx context.Context, symbol string) (price decimal.Decimal, ok bool, err error)
}
