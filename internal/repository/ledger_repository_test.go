package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/campusprint/printq-api/internal/models"
)

// decimalArg matches a decimal bind value regardless of representation.
type decimalArg string

func (d decimalArg) Match(v driver.Value) bool {
	want, err := decimal.NewFromString(string(d))
	if err != nil {
		return false
	}
	got, err := decimal.NewFromString(fmt.Sprintf("%v", v))
	if err != nil {
		return false
	}
	return want.Equal(got)
}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func expectLedgerMutation(mock sqlmock.Sqlmock, balanceBefore string) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM wallets WHERE member_id = $1 FOR UPDATE")).
		WithArgs("member-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(balanceBefore))
}

func TestLedgerRepositoryCredit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLedgerRepository(db)
	expectLedgerMutation(mock, "10.00")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $2")).
		WithArgs("member-1", decimalArg("60.00"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := repo.Credit(context.Background(), "member-1", decimal.RequireFromString("50.00"), models.TransactionTopUp, "Wallet top-up", nil)
	require.NoError(t, err)
	require.Equal(t, models.TransactionTopUp, tx.Type)
	require.True(t, tx.Amount.Equal(decimal.RequireFromString("50.00")))
	require.True(t, tx.BalanceAfter.Equal(decimal.RequireFromString("60.00")))
	require.NotEmpty(t, tx.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryDebitStoresNegatedAmount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLedgerRepository(db)
	expectLedgerMutation(mock, "50.00")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $2")).
		WithArgs("member-1", decimalArg("40.00"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := repo.Debit(context.Background(), "member-1", decimal.RequireFromString("10.00"), "Print charge", nil)
	require.NoError(t, err)
	require.Equal(t, models.TransactionBilling, tx.Type)
	require.True(t, tx.Amount.Equal(decimal.RequireFromString("-10.00")), "amount %s", tx.Amount)
	require.True(t, tx.BalanceAfter.Equal(decimal.RequireFromString("40.00")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryDebitInsufficientFunds(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLedgerRepository(db)
	expectLedgerMutation(mock, "5.00")
	mock.ExpectRollback()

	_, err := repo.Debit(context.Background(), "member-1", decimal.RequireFromString("10.00"), "Print charge", nil)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryReplayReproducesSnapshots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLedgerRepository(db)
	expectMovement := func(before, after string) {
		expectLedgerMutation(mock, before)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $2")).
			WithArgs("member-1", decimalArg(after), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
	}
	expectMovement("0", "50.00")
	expectMovement("50.00", "30.00")
	expectMovement("30.00", "40.00")

	var log []*models.Transaction
	tx, err := repo.Credit(context.Background(), "member-1", decimal.RequireFromString("50.00"), models.TransactionTopUp, "Wallet top-up", nil)
	require.NoError(t, err)
	log = append(log, tx)
	tx, err = repo.Debit(context.Background(), "member-1", decimal.RequireFromString("20.00"), "Print charge", nil)
	require.NoError(t, err)
	log = append(log, tx)
	tx, err = repo.Credit(context.Background(), "member-1", decimal.RequireFromString("10.00"), models.TransactionRefund, "Refund for deleted document", nil)
	require.NoError(t, err)
	log = append(log, tx)

	// Replaying the signed amounts in order reproduces every stored
	// balance snapshot.
	running := decimal.Zero
	for i, entry := range log {
		running = running.Add(entry.Amount)
		require.True(t, running.Equal(entry.BalanceAfter),
			"entry %d: running sum %s, snapshot %s", i, running, entry.BalanceAfter)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryBalanceDefaultsToZero(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLedgerRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE((SELECT balance FROM wallets WHERE member_id = $1), 0)")).
		WithArgs("member-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))

	balance, err := repo.Balance(context.Background(), "member-1")
	require.NoError(t, err)
	require.True(t, balance.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryTotalsByType(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLedgerRepository(db)
	rows := sqlmock.NewRows([]string{"type", "total"}).
		AddRow("TOPUP", "100.00").
		AddRow("BILLING", "-40.00").
		AddRow("REFUND", "10.00")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT type, COALESCE(SUM(amount), 0) AS total FROM transactions GROUP BY type")).
		WillReturnRows(rows)

	totals, err := repo.TotalsByType(context.Background())
	require.NoError(t, err)
	require.True(t, totals.TopUps.Equal(decimal.RequireFromString("100.00")))
	require.True(t, totals.Billing.Equal(decimal.RequireFromString("40.00")), "billing is reported positive, got %s", totals.Billing)
	require.True(t, totals.Refunds.Equal(decimal.RequireFromString("10.00")))
	require.True(t, totals.Net.Equal(decimal.RequireFromString("70.00")), "net %s", totals.Net)
	require.NoError(t, mock.ExpectationsWereMet())
}
