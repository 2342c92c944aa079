package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/storage"
)

// TransactionRepo is the ledger: ORDER and FILL rows in the transactions
// table. Rows are never deleted.
type TransactionRepo struct {
	db *sqlx.DB
}

func NewTransactionRepo(db *sqlx.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

const txColumns = `id, account_id, group_id, ticker, time, side, qty, price, kind, status, requested_by, approved_by`

func (r *TransactionRepo) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return getOrder(ctx, r.db, id)
}

func getOrder(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*domain.Transaction, error) {
	var t domain.Transaction
	err := sqlx.GetContext(ctx, q, &t,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 AND kind = 'ORDER'`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &t, nil
}

func (r *TransactionRepo) ListAccountOrders(ctx context.Context, accountID uuid.UUID, openOnly bool) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE account_id = ? AND kind = 'ORDER'`
	args := []interface{}{accountID}
	if openOnly {
		query += ` AND status IN (?)`
		args = append(args, domain.OpenOrderStatuses)
	}
	query += ` ORDER BY time DESC LIMIT 200`
	return r.selectIn(ctx, query, args)
}

func (r *TransactionRepo) ListGroupOrders(ctx context.Context, groupID uuid.UUID, openOnly bool) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE group_id = ? AND kind = 'ORDER'`
	args := []interface{}{groupID}
	if openOnly {
		query += ` AND status IN (?)`
		args = append(args, domain.OpenOrderStatuses)
	}
	query += ` ORDER BY time DESC LIMIT 200`
	return r.selectIn(ctx, query, args)
}

func (r *TransactionRepo) PendingApprovals(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+txColumns+` FROM transactions t
		WHERE t.kind = 'ORDER' AND t.status = 'PENDING_APPROVAL'
		  AND EXISTS (
		    SELECT 1 FROM account_memberships am
		    WHERE am.account_id = t.account_id
		      AND am.user_id = $1
		      AND am.role IN ('owner', 'manager')
		  )
		ORDER BY t.time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("pending approvals: %w", err)
	}
	return txs, nil
}

func (r *TransactionRepo) AccountFills(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
		WHERE account_id = ? AND kind = 'FILL' AND status IN (?) ORDER BY time ASC`
	return r.selectIn(ctx, query, []interface{}{accountID, domain.FillStatuses})
}

func (r *TransactionRepo) AccountTransactions(ctx context.Context, accountID uuid.UUID, start, end *string) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE account_id = ?`
	args := []interface{}{accountID}
	if start != nil {
		query += ` AND time >= ?`
		args = append(args, *start)
	}
	if end != nil {
		query += ` AND time <= ?`
		args = append(args, *end)
	}
	query += ` ORDER BY time ASC`
	return r.selectIn(ctx, query, args)
}

func (r *TransactionRepo) NetPosition(ctx context.Context, accountID uuid.UUID, ticker string) (decimal.Decimal, error) {
	var qty decimal.Decimal
	query, args, err := sqlx.In(`
		SELECT COALESCE(SUM(CASE WHEN side = 'BUY' THEN qty ELSE -qty END), 0)
		FROM transactions
		WHERE account_id = ? AND ticker = ? AND kind = 'FILL' AND status IN (?)`,
		accountID, ticker, domain.FillStatuses)
	if err != nil {
		return decimal.Zero, err
	}
	if err := r.db.GetContext(ctx, &qty, r.db.Rebind(query), args...); err != nil {
		return decimal.Zero, fmt.Errorf("net position: %w", err)
	}
	return qty, nil
}

func (r *TransactionRepo) ExecTx(ctx context.Context, fn func(storage.LedgerTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) selectIn(ctx context.Context, query string, args []interface{}) ([]domain.Transaction, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	var txs []domain.Transaction
	if err := r.db.SelectContext(ctx, &txs, r.db.Rebind(q), expanded...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// ledgerTx binds the write operations to one open database transaction.
type ledgerTx struct {
	tx *sqlx.Tx
}

func (l *ledgerTx) InsertOrder(ctx context.Context, t *domain.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Kind = domain.KindOrder
	query := `
		INSERT INTO transactions (id, account_id, group_id, ticker, side, qty, price, kind, status, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING time`
	err := l.tx.QueryRowContext(ctx, query,
		t.ID, t.AccountID, t.GroupID, t.Ticker, t.Side, t.Qty, t.Price, t.Kind, t.Status, t.RequestedBy).
		Scan(&t.Time)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (l *ledgerTx) InsertFill(ctx context.Context, t *domain.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Kind = domain.KindFill
	t.Status = domain.StatusExecuted
	query := `
		INSERT INTO transactions (id, account_id, group_id, ticker, side, qty, price, kind, status, requested_by, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING time`
	err := l.tx.QueryRowContext(ctx, query,
		t.ID, t.AccountID, t.GroupID, t.Ticker, t.Side, t.Qty, t.Price, t.Kind, t.Status, t.RequestedBy, t.ApprovedBy).
		Scan(&t.Time)
	if err != nil {
		return fmt.Errorf("insert fill: %w", err)
	}
	return nil
}

func (l *ledgerTx) TransitionOrder(ctx context.Context, id uuid.UUID, from []domain.TxStatus, to domain.TxStatus, approvedBy *uuid.UUID) (bool, error) {
	query := `UPDATE transactions SET status = ?`
	args := []interface{}{to}
	if approvedBy != nil {
		query += `, approved_by = ?`
		args = append(args, *approvedBy)
	}
	query += ` WHERE id = ? AND kind = 'ORDER'`
	args = append(args, id)
	if len(from) > 0 {
		query += ` AND status IN (?)`
		args = append(args, from)
	}
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return false, err
	}
	res, err := l.tx.ExecContext(ctx, l.tx.Rebind(q), expanded...)
	if err != nil {
		return false, fmt.Errorf("transition order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *ledgerTx) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return getOrder(ctx, l.tx, id)
}
