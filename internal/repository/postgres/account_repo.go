package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yourorg/simbroker/internal/domain"
)

type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, account_type, name, starting_cash, max_order_notional, max_position_abs_qty, earnings_lockout, created_at`

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
		INSERT INTO accounts (id, account_type, name, starting_cash,
		                      max_order_notional, max_position_abs_qty, earnings_lockout)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, a.ID, a.AccountType, a.Name, a.StartingCash,
		a.MaxOrderNotional, a.MaxPositionAbsQty, a.EarningsLockout).
		Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := r.db.GetContext(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) Accounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := r.db.SelectContext(ctx, &accounts, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// AccountView is an account joined with the requesting user's role.
type AccountView struct {
	domain.Account
	Role domain.Role `db:"role" json:"role"`
}

func (r *AccountRepo) AccountsForUser(ctx context.Context, userID uuid.UUID) ([]AccountView, error) {
	var views []AccountView
	err := r.db.SelectContext(ctx, &views, `
		SELECT a.id, a.account_type, a.name, a.starting_cash,
		       a.max_order_notional, a.max_position_abs_qty, a.earnings_lockout,
		       a.created_at, am.role
		FROM account_memberships am
		JOIN accounts a ON a.id = am.account_id
		WHERE am.user_id = $1
		ORDER BY a.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("accounts for user: %w", err)
	}
	return views, nil
}

func (r *AccountRepo) RiskLimits(ctx context.Context, accountID uuid.UUID) (*domain.RiskLimits, error) {
	var limits domain.RiskLimits
	err := r.db.GetContext(ctx, &limits, `
		SELECT max_order_notional, max_position_abs_qty, earnings_lockout
		FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get risk limits: %w", err)
	}
	return &limits, nil
}

// RiskLimitsUpdate carries a partial risk-limit update. Only non-nil set
// flags touch the corresponding column; nil values clear a limit.
type RiskLimitsUpdate struct {
	MaxOrderNotional     *float64
	SetMaxOrderNotional  bool
	MaxPositionAbsQty    *float64
	SetMaxPositionAbsQty bool
	EarningsLockout      *bool
	SetEarningsLockout   bool
}

func (u RiskLimitsUpdate) Empty() bool {
	return !u.SetMaxOrderNotional && !u.SetMaxPositionAbsQty && !u.SetEarningsLockout
}

func (r *AccountRepo) UpdateRiskLimits(ctx context.Context, accountID uuid.UUID, upd RiskLimitsUpdate) (*domain.RiskLimits, error) {
	if upd.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrInvalidRequest)
	}
	var clauses []string
	var args []interface{}
	if upd.SetMaxOrderNotional {
		args = append(args, upd.MaxOrderNotional)
		clauses = append(clauses, fmt.Sprintf("max_order_notional = $%d", len(args)))
	}
	if upd.SetMaxPositionAbsQty {
		args = append(args, upd.MaxPositionAbsQty)
		clauses = append(clauses, fmt.Sprintf("max_position_abs_qty = $%d", len(args)))
	}
	if upd.SetEarningsLockout {
		args = append(args, upd.EarningsLockout)
		clauses = append(clauses, fmt.Sprintf("earnings_lockout = COALESCE($%d, FALSE)", len(args)))
	}
	args = append(args, accountID)
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d",
		strings.Join(clauses, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update risk limits: %w", err)
	}
	return r.RiskLimits(ctx, accountID)
}
