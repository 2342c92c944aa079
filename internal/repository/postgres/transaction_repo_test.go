package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/storage"
)

func newMockRepo(t *testing.T) (*TransactionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTransactionRepo(sqlx.NewDb(db, "pgx")), mock
}

func TestNetPositionSumsSignedFills(t *testing.T) {
	repo, mock := newMockRepo(t)
	accountID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN side = 'BUY' THEN qty ELSE -qty END\), 0\)`).
		WithArgs(accountID, "AAPL", string(domain.StatusExecuted), string(domain.StatusFilled)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("70"))

	qty, err := repo.NetPosition(context.Background(), accountID, "AAPL")
	require.NoError(t, err)

	assert.True(t, qty.Equal(decimal.NewFromInt(70)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM transactions WHERE id = \$1 AND kind = 'ORDER'`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetOrder(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransitionOrderCASLoserGetsFalse(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE transactions SET status = \$1 WHERE id = \$2 AND kind = 'ORDER' AND status IN \(\$3, \$4, \$5\)`).
		WithArgs(string(domain.StatusCanceled), id,
			string(domain.StatusNew), string(domain.StatusPendingApproval), string(domain.StatusApproved)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var won bool
	err := repo.ExecTx(context.Background(), func(tx storage.LedgerTx) error {
		var err error
		won, err = tx.TransitionOrder(context.Background(), id, domain.OpenOrderStatuses, domain.StatusCanceled, nil)
		return err
	})
	require.NoError(t, err)

	assert.False(t, won, "zero rows touched means the race was lost")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionOrderStampsApprover(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	approver := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE transactions SET status = \$1, approved_by = \$2 WHERE id = \$3 AND kind = 'ORDER'`).
		WithArgs(string(domain.StatusApproved), approver, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ExecTx(context.Background(), func(tx storage.LedgerTx) error {
		won, err := tx.TransitionOrder(context.Background(), id, nil, domain.StatusApproved, &approver)
		require.NoError(t, err)
		assert.True(t, won)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecTxRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := repo.ExecTx(context.Background(), func(storage.LedgerTx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecTxInsertsOrderAndFillTogether(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	accountID := uuid.New()
	requester := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO transactions \(id, account_id, group_id, ticker, side, qty, price, kind, status, requested_by\)`).
		WillReturnRows(sqlmock.NewRows([]string{"time"}).AddRow(now))
	mock.ExpectQuery(`INSERT INTO transactions \(id, account_id, group_id, ticker, side, qty, price, kind, status, requested_by, approved_by\)`).
		WillReturnRows(sqlmock.NewRows([]string{"time"}).AddRow(now))
	mock.ExpectCommit()

	err := repo.ExecTx(context.Background(), func(tx storage.LedgerTx) error {
		order := &domain.Transaction{
			AccountID:   accountID,
			Ticker:      "AAPL",
			Side:        domain.SideBuy,
			Qty:         decimal.NewFromInt(10),
			Price:       decimal.NewFromInt(50),
			Status:      domain.StatusApproved,
			RequestedBy: requester,
		}
		if err := tx.InsertOrder(context.Background(), order); err != nil {
			return err
		}
		assert.Equal(t, domain.KindOrder, order.Kind)
		assert.NotEqual(t, uuid.Nil, order.ID)
		assert.Equal(t, now, order.Time)

		fill := &domain.Transaction{
			AccountID:   accountID,
			Ticker:      "AAPL",
			Side:        domain.SideBuy,
			Qty:         decimal.NewFromInt(10),
			Price:       decimal.NewFromInt(50),
			RequestedBy: requester,
			ApprovedBy:  &requester,
		}
		if err := tx.InsertFill(context.Background(), fill); err != nil {
			return err
		}
		assert.Equal(t, domain.KindFill, fill.Kind)
		assert.Equal(t, domain.StatusExecuted, fill.Status)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
