package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/pkg/config"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
)

// RefundStore is what the refund service needs from persistence.
type RefundStore interface {
	Create(ctx context.Context, req *models.RefundRequest) error
	GetByID(ctx context.Context, id string) (*models.RefundRequest, error)
	ExistsPending(ctx context.Context, memberID string) (bool, error)
	ListPending(ctx context.Context) ([]models.RefundRequest, error)
	ListByMember(ctx context.Context, memberID string) ([]models.RefundRequest, error)
	MarkProcessed(ctx context.Context, id, payoutReference string, note *string, processedAt time.Time) error
	MarkRejected(ctx context.Context, id string, note *string, processedAt time.Time) error
	Reopen(ctx context.Context, id string) error
}

// WithdrawalLedger is the slice of the ledger the refund flow uses.
type WithdrawalLedger interface {
	Balance(ctx context.Context, memberID string) (decimal.Decimal, error)
	Debit(ctx context.Context, memberID string, amount decimal.Decimal, description string, referenceID *string) (*models.Transaction, error)
}

// RefundService handles wallet withdrawal requests. The fee is charged
// on the requested amount, the payout is the remainder, and the wallet
// is debited the full requested amount only when an operator approves.
type RefundService struct {
	store      RefundStore
	ledger     WithdrawalLedger
	feePercent decimal.Decimal
	logger     *zap.Logger
}

// NewRefundService parses the configured fee and creates the service.
func NewRefundService(store RefundStore, ledger WithdrawalLedger, cfg config.RefundsConfig, logger *zap.Logger) (*RefundService, error) {
	feePercent, err := decimal.NewFromString(cfg.FeePercent)
	if err != nil {
		return nil, fmt.Errorf("parse refund fee percent %q: %w", cfg.FeePercent, err)
	}
	if feePercent.IsNegative() {
		return nil, fmt.Errorf("refund fee percent must not be negative, got %s", cfg.FeePercent)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefundService{store: store, ledger: ledger, feePercent: feePercent, logger: logger}, nil
}

// Request opens a withdrawal request. A member may hold at most one
// pending request, the amount must be covered by the current balance,
// and the net payout after the fee must stay positive. The balance is
// not debited here; that happens on approval against a fresh balance.
func (s *RefundService) Request(ctx context.Context, memberID string, amount decimal.Decimal, payoutChannelID, reason string) (*models.RefundRequest, error) {
	pending, err := s.store.ExistsPending(ctx, memberID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending refunds")
	}
	if pending {
		return nil, appErrors.ErrDuplicatePending
	}

	if !amount.IsPositive() {
		return nil, appErrors.ErrInvalidAmount
	}
	balance, err := s.ledger.Balance(ctx, memberID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read wallet balance")
	}
	if amount.GreaterThan(balance) {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "requested amount exceeds wallet balance")
	}

	fee := amount.Mul(s.feePercent).Div(decimal.NewFromInt(100)).Round(2)
	net := amount.Sub(fee)
	if !net.IsPositive() {
		return nil, appErrors.ErrNetPayoutNonPositive
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	req := &models.RefundRequest{
		MemberID:        memberID,
		AmountRequested: amount,
		FeePercent:      s.feePercent,
		FeeAmount:       fee,
		NetPayout:       net,
		PayoutChannelID: payoutChannelID,
		Reason:          reasonPtr,
		Status:          models.RefundPending,
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refund request")
	}

	s.logger.Info("refund requested",
		zap.String("refund_id", req.ID),
		zap.String("member_id", memberID),
		zap.String("amount", amount.String()),
		zap.String("net_payout", net.String()))
	return req, nil
}

// Approve settles a pending request: the balance is re-checked at
// approval time and the full requested amount is debited with the
// payout reference on the transaction. The status-guarded PENDING to
// PROCESSED transition is the serialization point against concurrent
// approvals; the wallet is only debited after it reports success, and
// a failed debit reopens the request.
func (s *RefundService) Approve(ctx context.Context, id, payoutReference string, note *string) (*models.RefundRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RefundPending {
		return nil, appErrors.ErrInvalidState
	}

	balance, err := s.ledger.Balance(ctx, req.MemberID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read wallet balance")
	}
	if req.AmountRequested.GreaterThan(balance) {
		return nil, appErrors.ErrInsufficientBalance
	}

	processedAt := time.Now().UTC()
	if err := s.store.MarkProcessed(ctx, id, payoutReference, note, processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidState
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle refund request")
	}

	description := fmt.Sprintf("Wallet withdrawal for refund request %s", req.ID)
	if _, err := s.ledger.Debit(ctx, req.MemberID, req.AmountRequested, description, &payoutReference); err != nil {
		if reopenErr := s.store.Reopen(ctx, id); reopenErr != nil {
			s.logger.Error("failed to reopen refund request after debit failure",
				zap.String("refund_id", id),
				zap.Error(reopenErr))
		}
		return nil, err
	}

	s.logger.Info("refund approved",
		zap.String("refund_id", req.ID),
		zap.String("member_id", req.MemberID),
		zap.String("amount", req.AmountRequested.String()),
		zap.String("payout_reference", payoutReference))
	return s.load(ctx, id)
}

// Reject declines a pending request without touching the wallet.
func (s *RefundService) Reject(ctx context.Context, id string, note *string) (*models.RefundRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RefundPending {
		return nil, appErrors.ErrInvalidState
	}

	if err := s.store.MarkRejected(ctx, id, note, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidState
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle refund request")
	}

	s.logger.Info("refund rejected",
		zap.String("refund_id", req.ID),
		zap.String("member_id", req.MemberID))
	return s.load(ctx, id)
}

// ListPending returns all pending requests for operator review.
func (s *RefundService) ListPending(ctx context.Context) ([]models.RefundRequest, error) {
	reqs, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending refunds")
	}
	if reqs == nil {
		reqs = []models.RefundRequest{}
	}
	return reqs, nil
}

// ListByMember returns a member's own requests.
func (s *RefundService) ListByMember(ctx context.Context, memberID string) ([]models.RefundRequest, error) {
	reqs, err := s.store.ListByMember(ctx, memberID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list refunds")
	}
	if reqs == nil {
		reqs = []models.RefundRequest{}
	}
	return reqs, nil
}

func (s *RefundService) load(ctx context.Context, id string) (*models.RefundRequest, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "refund request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refund request")
	}
	return req, nil
}
