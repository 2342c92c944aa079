package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is only consulted at order creation time to decide whether a
// low-risk order auto-fills. It is not persisted: the ledger records ORDER
// and FILL rows, and LIMIT/STOP orders that reach APPROVED simply rest there
// (no matching engine exists to trigger them).
type OrderType string

const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
	TypeStop   OrderType = "STOP"
)

type TxKind string

const (
	KindOrder TxKind = "ORDER"
	KindFill  TxKind = "FILL"
)

type TxStatus string

const (
	StatusNew             TxStatus = "NEW"
	StatusPendingApproval TxStatus = "PENDING_APPROVAL"
	StatusApproved        TxStatus = "APPROVED"
	StatusFilled          TxStatus = "FILLED"
	// StatusPartialFill is reserved for multi-fill support; nothing in the
	// engine currently produces it.
	StatusPartialFill TxStatus = "PARTIAL_FILL"
	StatusCanceled    TxStatus = "CANCELED"
	// StatusExecuted is the terminal status of FILL rows.
	StatusExecuted TxStatus = "EXECUTED"
)

// OpenOrderStatuses are the statuses from which an order may still be
// canceled.
var OpenOrderStatuses = []TxStatus{StatusNew, StatusPendingApproval, StatusApproved}

// FillStatuses are the statuses that count toward net position.
var FillStatuses = []TxStatus{StatusExecuted, StatusFilled}

type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleTrader  Role = "trader"
	RoleMember  Role = "member"
	RoleNone    Role = ""
)

var roleRank = map[Role]int{
	RoleOwner:   4,
	RoleManager: 3,
	RoleTrader:  2,
	RoleMember:  1,
	RoleNone:    0,
}

// AtLeast reports whether r grants the permissions of min or higher.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

type User struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

// RiskLimits are the account-level gates consulted by the risk evaluator.
// Nil pointers mean the account has no configured limit of that kind.
type RiskLimits struct {
	MaxOrderNotional  *decimal.Decimal `db:"max_order_notional"   json:"max_order_notional"`
	MaxPositionAbsQty *decimal.Decimal `db:"max_position_abs_qty" json:"max_position_abs_qty"`
	EarningsLockout   bool             `db:"earnings_lockout"     json:"earnings_lockout"`
}

type Account struct {
	ID           uuid.UUID       `db:"id"            json:"id"`
	AccountType  string          `db:"account_type"  json:"account_type"`
	Name         string          `db:"name"          json:"name"`
	StartingCash decimal.Decimal `db:"starting_cash" json:"starting_cash"`
	RiskLimits
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type AccountMembership struct {
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	Role      Role      `db:"role"       json:"role"`
}

type Group struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type GroupMembership struct {
	GroupID uuid.UUID `db:"group_id" json:"group_id"`
	UserID  uuid.UUID `db:"user_id"  json:"user_id"`
	Role    Role      `db:"role"     json:"role"`
}

type Ticker struct {
	Symbol    string `db:"symbol"     json:"symbol"`
	Name      string `db:"name"       json:"name"`
	AssetType string `db:"asset_type" json:"asset_type"`
}

// PriceBar is one OHLCV bar. price_bars is append-mostly and unique on
// (ticker, time); the latest price for a symbol is the max(time) row.
type PriceBar struct {
	Ticker string    `db:"ticker" json:"ticker"`
	Time   time.Time `db:"time"   json:"time"`
	Open   float64   `db:"open"   json:"open"`
	High   float64   `db:"high"   json:"high"`
	Low    float64   `db:"low"    json:"low"`
	Close  float64   `db:"close"  json:"close"`
	Volume int64     `db:"volume" json:"volume"`
	Source string    `db:"source" json:"source"`
}

// Transaction is a ledger entry. A row is either an ORDER (mutable status,
// constrained transitions) or a FILL (immutable once created, always
// EXECUTED with a concrete execution price). Rows are never deleted; group
// deletion nulls GroupID.
type Transaction struct {
	ID          uuid.UUID       `db:"id"           json:"id"`
	AccountID   uuid.UUID       `db:"account_id"   json:"account_id"`
	GroupID     *uuid.UUID      `db:"group_id"     json:"group_id,omitempty"`
	Ticker      string          `db:"ticker"       json:"ticker"`
	Time        time.Time       `db:"time"         json:"time"`
	Side        Side            `db:"side"         json:"side"`
	Qty         decimal.Decimal `db:"qty"          json:"qty"`
	Price       decimal.Decimal `db:"price"        json:"price"`
	Kind        TxKind          `db:"kind"         json:"kind"`
	Status      TxStatus        `db:"status"       json:"status"`
	RequestedBy uuid.UUID       `db:"requested_by" json:"requested_by"`
	ApprovedBy  *uuid.UUID      `db:"approved_by"  json:"approved_by,omitempty"`
}

// SignedQty is the fill's contribution to net position: +qty for BUY, -qty
// for SELL.
func (t Transaction) SignedQty() decimal.Decimal {
	if t.Side == SideSell {
		return t.Qty.Neg()
	}
	return t.Qty
}

type WatchlistEntry struct {
	UserID  uuid.UUID `db:"user_id"  json:"user_id"`
	Symbol  string    `db:"symbol"   json:"symbol"`
	AddedAt time.Time `db:"added_at" json:"added_at"`
}

type NewsArticle struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	Source      string    `db:"source"       json:"source"`
	Title       string    `db:"title"        json:"title"`
	URL         string    `db:"url"          json:"url"`
	Sentiment   string    `db:"sentiment"    json:"sentiment"`
	ImpactTags  string    `db:"impact_tags"  json:"impact_tags"`
}
