package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/pkg/config"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
)

type refundStoreStub struct {
	requests         map[string]*models.RefundRequest
	pending          bool
	markProcessedErr error
}

func newRefundStoreStub() *refundStoreStub {
	return &refundStoreStub{requests: map[string]*models.RefundRequest{}}
}

func (s *refundStoreStub) Create(ctx context.Context, req *models.RefundRequest) error {
	if req.ID == "" {
		req.ID = "refund-1"
	}
	req.CreatedAt = time.Now().UTC()
	s.requests[req.ID] = req
	return nil
}

func (s *refundStoreStub) GetByID(ctx context.Context, id string) (*models.RefundRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (s *refundStoreStub) ExistsPending(ctx context.Context, memberID string) (bool, error) {
	return s.pending, nil
}

func (s *refundStoreStub) ListPending(ctx context.Context) ([]models.RefundRequest, error) {
	return nil, nil
}

func (s *refundStoreStub) ListByMember(ctx context.Context, memberID string) ([]models.RefundRequest, error) {
	return nil, nil
}

func (s *refundStoreStub) MarkProcessed(ctx context.Context, id, payoutReference string, note *string, processedAt time.Time) error {
	if s.markProcessedErr != nil {
		return s.markProcessedErr
	}
	req, ok := s.requests[id]
	if !ok || req.Status != models.RefundPending {
		return sql.ErrNoRows
	}
	req.Status = models.RefundProcessed
	req.PayoutReference = &payoutReference
	req.AdminNote = note
	req.ProcessedAt = &processedAt
	return nil
}

func (s *refundStoreStub) MarkRejected(ctx context.Context, id string, note *string, processedAt time.Time) error {
	req, ok := s.requests[id]
	if !ok || req.Status != models.RefundPending {
		return sql.ErrNoRows
	}
	req.Status = models.RefundRejected
	req.AdminNote = note
	req.ProcessedAt = &processedAt
	return nil
}

func (s *refundStoreStub) Reopen(ctx context.Context, id string) error {
	req, ok := s.requests[id]
	if !ok || req.Status != models.RefundProcessed {
		return sql.ErrNoRows
	}
	req.Status = models.RefundPending
	req.PayoutReference = nil
	req.AdminNote = nil
	req.ProcessedAt = nil
	return nil
}

type withdrawalLedgerStub struct {
	balance  decimal.Decimal
	debits   []models.Transaction
	debitErr error
}

func (s *withdrawalLedgerStub) Balance(ctx context.Context, memberID string) (decimal.Decimal, error) {
	return s.balance, nil
}

func (s *withdrawalLedgerStub) Debit(ctx context.Context, memberID string, amount decimal.Decimal, description string, referenceID *string) (*models.Transaction, error) {
	if s.debitErr != nil {
		return nil, s.debitErr
	}
	if amount.GreaterThan(s.balance) {
		return nil, appErrors.ErrInsufficientBalance
	}
	s.balance = s.balance.Sub(amount)
	tx := models.Transaction{MemberID: memberID, Type: models.TransactionBilling, Amount: amount.Neg(), Description: description, ReferenceID: referenceID}
	s.debits = append(s.debits, tx)
	return &tx, nil
}

func newRefundServiceForTest(t *testing.T, store *refundStoreStub, ledger *withdrawalLedgerStub, feePercent string) *RefundService {
	t.Helper()
	svc, err := NewRefundService(store, ledger, config.RefundsConfig{FeePercent: feePercent}, nil)
	require.NoError(t, err)
	return svc
}

func TestRefundServiceRequestFeeMath(t *testing.T) {
	store := newRefundStoreStub()
	ledger := &withdrawalLedgerStub{balance: mustDecimal(t, "200.00")}
	svc := newRefundServiceForTest(t, store, ledger, "2.00")

	req, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "100.00"), "bank-1", "moving out")
	require.NoError(t, err)
	require.True(t, req.FeeAmount.Equal(mustDecimal(t, "2.00")), "fee %s", req.FeeAmount)
	require.True(t, req.NetPayout.Equal(mustDecimal(t, "98.00")), "net %s", req.NetPayout)
	require.Equal(t, models.RefundPending, req.Status)
	require.Empty(t, ledger.debits, "request must not debit the wallet")
}

func TestRefundServiceRequestFeeRounding(t *testing.T) {
	store := newRefundStoreStub()
	ledger := &withdrawalLedgerStub{balance: mustDecimal(t, "200.00")}
	svc := newRefundServiceForTest(t, store, ledger, "2.00")

	// 33.33 * 2% = 0.6666, rounds half-up to 0.67.
	req, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "33.33"), "bank-1", "")
	require.NoError(t, err)
	require.True(t, req.FeeAmount.Equal(mustDecimal(t, "0.67")), "fee %s", req.FeeAmount)
	require.True(t, req.NetPayout.Equal(mustDecimal(t, "32.66")), "net %s", req.NetPayout)
}

func TestRefundServiceRequestDuplicatePending(t *testing.T) {
	store := newRefundStoreStub()
	store.pending = true
	svc := newRefundServiceForTest(t, store, &withdrawalLedgerStub{balance: mustDecimal(t, "100")}, "2.00")

	_, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "10.00"), "bank-1", "")
	require.ErrorIs(t, err, appErrors.ErrDuplicatePending)
}

func TestRefundServiceRequestInvalidAmounts(t *testing.T) {
	store := newRefundStoreStub()
	svc := newRefundServiceForTest(t, store, &withdrawalLedgerStub{balance: mustDecimal(t, "50.00")}, "2.00")

	_, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "0"), "bank-1", "")
	require.ErrorIs(t, err, appErrors.ErrInvalidAmount)

	_, err = svc.Request(context.Background(), "member-1", mustDecimal(t, "50.01"), "bank-1", "")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidAmount.Code, appErr.Code)
}

func TestRefundServiceRequestNetPayoutNonPositive(t *testing.T) {
	store := newRefundStoreStub()
	svc := newRefundServiceForTest(t, store, &withdrawalLedgerStub{balance: mustDecimal(t, "50.00")}, "100.00")

	_, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "10.00"), "bank-1", "")
	require.ErrorIs(t, err, appErrors.ErrNetPayoutNonPositive)
}

func TestRefundServiceApprove(t *testing.T) {
	store := newRefundStoreStub()
	ledger := &withdrawalLedgerStub{balance: mustDecimal(t, "200.00")}
	svc := newRefundServiceForTest(t, store, ledger, "2.00")

	req, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "100.00"), "bank-1", "")
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), req.ID, "payout-789", nil)
	require.NoError(t, err)
	require.Equal(t, models.RefundProcessed, approved.Status)
	require.NotNil(t, approved.PayoutReference)
	require.Equal(t, "payout-789", *approved.PayoutReference)
	require.NotNil(t, approved.ProcessedAt)

	// The full requested amount is debited; the fee stays in the system.
	require.Len(t, ledger.debits, 1)
	require.True(t, ledger.debits[0].Amount.Equal(mustDecimal(t, "-100.00")))
	require.Equal(t, "payout-789", *ledger.debits[0].ReferenceID)
}

func TestRefundServiceApproveReChecksBalance(t *testing.T) {
	store := newRefundStoreStub()
	ledger := &withdrawalLedgerStub{balance: mustDecimal(t, "200.00")}
	svc := newRefundServiceForTest(t, store, ledger, "2.00")

	req, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "150.00"), "bank-1", "")
	require.NoError(t, err)

	// Balance dropped between request and approval.
	ledger.balance = mustDecimal(t, "100.00")
	_, err = svc.Approve(context.Background(), req.ID, "payout-1", nil)
	require.ErrorIs(t, err, appErrors.ErrInsufficientBalance)

	stored, err := store.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, models.RefundPending, stored.Status)
}

func TestRefundServiceApproveLostSettleRaceDoesNotDebit(t *testing.T) {
	store := newRefundStoreStub()
	ledger := &withdrawalLedgerStub{balance: mustDecimal(t, "200.00")}
	svc := newRefundServiceForTest(t, store, ledger, "2.00")

	req, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "50.00"), "bank-1", "")
	require.NoError(t, err)

	// A concurrent approval won the status transition between our load
	// and settle.
	store.markProcessedErr = sql.ErrNoRows
	_, err = svc.Approve(context.Background(), req.ID, "payout-2", nil)
	require.ErrorIs(t, err, appErrors.ErrInvalidState)
	require.Empty(t, ledger.debits, "a lost settle race must not touch the wallet")
}

func TestRefundServiceApproveReopensOnDebitFailure(t *testing.T) {
	store := newRefundStoreStub()
	ledger := &withdrawalLedgerStub{balance: mustDecimal(t, "200.00")}
	svc := newRefundServiceForTest(t, store, ledger, "2.00")

	req, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "50.00"), "bank-1", "")
	require.NoError(t, err)

	ledger.debitErr = appErrors.ErrInternal
	_, err = svc.Approve(context.Background(), req.ID, "payout-2", nil)
	require.Error(t, err)

	stored, err := store.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, models.RefundPending, stored.Status, "request must reopen for a retry")
	require.Nil(t, stored.PayoutReference)
	require.Empty(t, ledger.debits)
}

func TestRefundServiceApproveNonPending(t *testing.T) {
	store := newRefundStoreStub()
	ledger := &withdrawalLedgerStub{balance: mustDecimal(t, "200.00")}
	svc := newRefundServiceForTest(t, store, ledger, "2.00")

	req, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "10.00"), "bank-1", "")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), req.ID, "payout-1", nil)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), req.ID, "payout-2", nil)
	require.ErrorIs(t, err, appErrors.ErrInvalidState)
}

func TestRefundServiceReject(t *testing.T) {
	store := newRefundStoreStub()
	ledger := &withdrawalLedgerStub{balance: mustDecimal(t, "200.00")}
	svc := newRefundServiceForTest(t, store, ledger, "2.00")

	req, err := svc.Request(context.Background(), "member-1", mustDecimal(t, "10.00"), "bank-1", "")
	require.NoError(t, err)

	note := "payout channel unverified"
	rejected, err := svc.Reject(context.Background(), req.ID, &note)
	require.NoError(t, err)
	require.Equal(t, models.RefundRejected, rejected.Status)
	require.Empty(t, ledger.debits)
}

func TestRefundServiceApproveMissing(t *testing.T) {
	svc := newRefundServiceForTest(t, newRefundStoreStub(), &withdrawalLedgerStub{}, "2.00")

	_, err := svc.Approve(context.Background(), "missing", "payout-1", nil)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
