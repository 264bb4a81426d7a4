package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/internal/repository"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
)

// LedgerStore is what the ledger service needs from persistence.
type LedgerStore interface {
	Balance(ctx context.Context, memberID string) (decimal.Decimal, error)
	Credit(ctx context.Context, memberID string, amount decimal.Decimal, txType models.TransactionType, description string, referenceID *string) (*models.Transaction, error)
	Debit(ctx context.Context, memberID string, amount decimal.Decimal, description string, referenceID *string) (*models.Transaction, error)
	History(ctx context.Context, memberID string) ([]models.Transaction, error)
	Recent(ctx context.Context, memberID string, limit int) ([]models.Transaction, error)
	RecentAll(ctx context.Context, limit int) ([]models.Transaction, error)
	TotalsByType(ctx context.Context) (*models.TransactionTotals, error)
}

// LedgerService owns wallet balance reads and all money movements.
// Every movement writes one transaction row inside the same database
// transaction that adjusts the balance, so the ledger always replays
// to the stored balance.
type LedgerService struct {
	store  LedgerStore
	logger *zap.Logger
}

// NewLedgerService creates a ledger service.
func NewLedgerService(store LedgerStore, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{store: store, logger: logger}
}

// Balance returns the member's current balance, zero for members with
// no wallet row yet.
func (s *LedgerService) Balance(ctx context.Context, memberID string) (decimal.Decimal, error) {
	return s.store.Balance(ctx, memberID)
}

// TopUp credits the wallet from an external payment reference.
func (s *LedgerService) TopUp(ctx context.Context, memberID string, amount decimal.Decimal, referenceID, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, appErrors.ErrInvalidAmount
	}
	if description == "" {
		description = "Wallet top-up"
	}
	tx, err := s.store.Credit(ctx, memberID, amount, models.TransactionTopUp, description, &referenceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to credit wallet")
	}
	s.logger.Info("wallet credited",
		zap.String("member_id", memberID),
		zap.String("type", string(models.TransactionTopUp)),
		zap.String("amount", amount.String()))
	return tx, nil
}

// RefundCredit returns money to the wallet, for example when a pending
// document is withdrawn before printing.
func (s *LedgerService) RefundCredit(ctx context.Context, memberID string, amount decimal.Decimal, description string, referenceID *string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, appErrors.ErrInvalidAmount
	}
	tx, err := s.store.Credit(ctx, memberID, amount, models.TransactionRefund, description, referenceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to credit wallet")
	}
	return tx, nil
}

// Debit charges the wallet. The stored transaction carries the negated
// amount and the balance after the movement.
func (s *LedgerService) Debit(ctx context.Context, memberID string, amount decimal.Decimal, description string, referenceID *string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, appErrors.ErrInvalidAmount
	}
	tx, err := s.store.Debit(ctx, memberID, amount, description, referenceID)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, appErrors.ErrInsufficientBalance
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to debit wallet")
	}
	return tx, nil
}

// HasSufficientBalance reports whether the member can afford the amount.
func (s *LedgerService) HasSufficientBalance(ctx context.Context, memberID string, amount decimal.Decimal) (bool, error) {
	balance, err := s.store.Balance(ctx, memberID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read wallet balance")
	}
	return balance.GreaterThanOrEqual(amount), nil
}

// History returns the member's movements, newest first.
func (s *LedgerService) History(ctx context.Context, memberID string) ([]models.Transaction, error) {
	txs, err := s.store.History(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Transaction{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read transaction history")
	}
	return txs, nil
}

// Recent returns the member's latest movements.
func (s *LedgerService) Recent(ctx context.Context, memberID string, limit int) ([]models.Transaction, error) {
	txs, err := s.store.Recent(ctx, memberID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read recent transactions")
	}
	return txs, nil
}

// RecentAll returns the newest movements across all wallets, for the
// operator dashboard.
func (s *LedgerService) RecentAll(ctx context.Context, limit int) ([]models.Transaction, error) {
	txs, err := s.store.RecentAll(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read recent transactions")
	}
	return txs, nil
}

// Totals aggregates turnover per transaction type.
func (s *LedgerService) Totals(ctx context.Context) (*models.TransactionTotals, error) {
	totals, err := s.store.TotalsByType(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate transactions")
	}
	return totals, nil
}
