package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/campusprint/printq-api/internal/models"
)

// ErrInsufficientFunds is returned when a debit would overdraw a wallet.
var ErrInsufficientFunds = errors.New("insufficient funds")

const transactionColumns = `id, member_id, type, amount, balance_after, description, reference_id, created_at`

// LedgerRepository owns wallet balances and the append-only transaction
// log. Every balance mutation and its transaction row commit in one SQL
// transaction, with the wallet row locked for the duration, so that
// concurrent debits can never jointly overdraw an account.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Balance returns the member's current balance, zero for a fresh wallet.
func (r *LedgerRepository) Balance(ctx context.Context, memberID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	const query = `SELECT COALESCE((SELECT balance FROM wallets WHERE member_id = $1), 0)`
	if err := r.db.GetContext(ctx, &balance, query, memberID); err != nil {
		return decimal.Zero, fmt.Errorf("get wallet balance: %w", err)
	}
	return balance, nil
}

// Credit increases the balance and appends a transaction of the given type.
func (r *LedgerRepository) Credit(ctx context.Context, memberID string, amount decimal.Decimal, txType models.TransactionType, description string, referenceID *string) (*models.Transaction, error) {
	return r.apply(ctx, memberID, amount, txType, description, referenceID)
}

// Debit decreases the balance, storing the negated amount on the BILLING
// transaction. Fails with ErrInsufficientFunds inside the same locked
// transaction that would have applied the mutation.
func (r *LedgerRepository) Debit(ctx context.Context, memberID string, amount decimal.Decimal, description string, referenceID *string) (*models.Transaction, error) {
	return r.apply(ctx, memberID, amount.Neg(), models.TransactionBilling, description, referenceID)
}

// apply locks the wallet row, adjusts the balance by the signed amount
// and appends the matching transaction row atomically.
func (r *LedgerRepository) apply(ctx context.Context, memberID string, signedAmount decimal.Decimal, txType models.TransactionType, description string, referenceID *string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const ensure = `INSERT INTO wallets (member_id, balance, updated_at) VALUES ($1, 0, $2)
	ON CONFLICT (member_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, ensure, memberID, now); err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}

	var balance decimal.Decimal
	if err := tx.GetContext(ctx, &balance, `SELECT balance FROM wallets WHERE member_id = $1 FOR UPDATE`, memberID); err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	newBalance := balance.Add(signedAmount)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx, `UPDATE wallets SET balance = $2, updated_at = $3 WHERE member_id = $1`, memberID, newBalance, now); err != nil {
		return nil, fmt.Errorf("update wallet balance: %w", err)
	}

	entry := &models.Transaction{
		ID:           uuid.NewString(),
		MemberID:     memberID,
		Type:         txType,
		Amount:       signedAmount,
		BalanceAfter: newBalance,
		Description:  description,
		ReferenceID:  referenceID,
		CreatedAt:    now,
	}
	const insert = `INSERT INTO transactions (id, member_id, type, amount, balance_after, description, reference_id, created_at)
	VALUES (:id, :member_id, :type, :amount, :balance_after, :description, :reference_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, entry); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger transaction: %w", err)
	}
	return entry, nil
}

// History returns all of a member's transactions, newest first.
func (r *LedgerRepository) History(ctx context.Context, memberID string) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE member_id = $1 ORDER BY created_at DESC, id DESC`
	var entries []models.Transaction
	if err := r.db.SelectContext(ctx, &entries, query, memberID); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return entries, nil
}

// Recent returns the member's latest transactions.
func (r *LedgerRepository) Recent(ctx context.Context, memberID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE member_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	var entries []models.Transaction
	if err := r.db.SelectContext(ctx, &entries, query, memberID, limit); err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return entries, nil
}

// RecentAll returns the latest transactions across all members, for
// operator review.
func (r *LedgerRepository) RecentAll(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY created_at DESC, id DESC LIMIT $1`
	var entries []models.Transaction
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list all recent transactions: %w", err)
	}
	return entries, nil
}

// TotalsByType sums the audit log per entry type. BILLING amounts are
// stored negated, so the sum is negated back for reporting.
func (r *LedgerRepository) TotalsByType(ctx context.Context) (*models.TransactionTotals, error) {
	rows := []struct {
		Type  models.TransactionType `db:"type"`
		Total decimal.Decimal        `db:"total"`
	}{}
	const query = `SELECT type, COALESCE(SUM(amount), 0) AS total FROM transactions GROUP BY type`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("sum transactions by type: %w", err)
	}
	totals := &models.TransactionTotals{
		TopUps:  decimal.Zero,
		Billing: decimal.Zero,
		Refunds: decimal.Zero,
	}
	for _, row := range rows {
		switch row.Type {
		case models.TransactionTopUp:
			totals.TopUps = row.Total
		case models.TransactionBilling:
			totals.Billing = row.Total.Neg()
		case models.TransactionRefund:
			totals.Refunds = row.Total
		}
	}
	totals.Net = totals.TopUps.Add(totals.Refunds).Sub(totals.Billing)
	return totals, nil
}
