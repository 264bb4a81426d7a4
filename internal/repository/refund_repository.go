package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusprint/printq-api/internal/models"
)

const refundColumns = `id, member_id, amount_requested, fee_percent, fee_amount, net_payout,
       payout_channel_id, reason, status, payout_reference, admin_note, created_at, processed_at`

// RefundRepository persists withdrawal requests.
type RefundRepository struct {
	db *sqlx.DB
}

// NewRefundRepository constructs the repository.
func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create stores a new pending request.
func (r *RefundRepository) Create(ctx context.Context, req *models.RefundRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.RefundPending
	}
	const query = `INSERT INTO refund_requests
	(id, member_id, amount_requested, fee_percent, fee_amount, net_payout, payout_channel_id, reason, status, payout_reference, admin_note, created_at, processed_at)
	VALUES (:id, :member_id, :amount_requested, :fee_percent, :fee_amount, :net_payout, :payout_channel_id, :reason, :status, :payout_reference, :admin_note, :created_at, :processed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create refund request: %w", err)
	}
	return nil
}

// GetByID retrieves one request.
func (r *RefundRepository) GetByID(ctx context.Context, id string) (*models.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE id = $1`
	var req models.RefundRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ExistsPending reports whether the member already has a pending request.
func (r *RefundRepository) ExistsPending(ctx context.Context, memberID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM refund_requests WHERE member_id = $1 AND status = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, memberID, models.RefundPending); err != nil {
		return false, fmt.Errorf("check pending refund: %w", err)
	}
	return exists, nil
}

// ListPending returns all pending requests, newest first.
func (r *RefundRepository) ListPending(ctx context.Context) ([]models.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE status = $1 ORDER BY created_at DESC`
	var reqs []models.RefundRequest
	if err := r.db.SelectContext(ctx, &reqs, query, models.RefundPending); err != nil {
		return nil, fmt.Errorf("list pending refunds: %w", err)
	}
	return reqs, nil
}

// ListByMember returns a member's requests, newest first.
func (r *RefundRepository) ListByMember(ctx context.Context, memberID string) ([]models.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE member_id = $1 ORDER BY created_at DESC`
	var reqs []models.RefundRequest
	if err := r.db.SelectContext(ctx, &reqs, query, memberID); err != nil {
		return nil, fmt.Errorf("list refunds by member: %w", err)
	}
	return reqs, nil
}

// MarkProcessed settles a pending request with its payout reference.
// Returns sql.ErrNoRows when the request is absent or not pending.
func (r *RefundRepository) MarkProcessed(ctx context.Context, id, payoutReference string, note *string, processedAt time.Time) error {
	const query = `UPDATE refund_requests
	SET status = $2, payout_reference = $3, admin_note = $4, processed_at = $5
	WHERE id = $1 AND status = $6`
	return r.settle(ctx, query, id, models.RefundProcessed, payoutReference, note, processedAt)
}

// MarkRejected declines a pending request.
func (r *RefundRepository) MarkRejected(ctx context.Context, id string, note *string, processedAt time.Time) error {
	const query = `UPDATE refund_requests
	SET status = $2, payout_reference = $3, admin_note = $4, processed_at = $5
	WHERE id = $1 AND status = $6`
	return r.settle(ctx, query, id, models.RefundRejected, "", note, processedAt)
}

// Reopen reverts a PROCESSED request back to PENDING. Used to
// compensate an approval whose wallet debit failed. Returns
// sql.ErrNoRows when the request is absent or not processed.
func (r *RefundRepository) Reopen(ctx context.Context, id string) error {
	const query = `UPDATE refund_requests
	SET status = $2, payout_reference = NULL, admin_note = NULL, processed_at = NULL
	WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.RefundPending, models.RefundProcessed)
	if err != nil {
		return fmt.Errorf("reopen refund request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check refund reopen rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *RefundRepository) settle(ctx context.Context, query, id string, to models.RefundStatus, payoutReference string, note *string, processedAt time.Time) error {
	var ref *string
	if payoutReference != "" {
		ref = &payoutReference
	}
	res, err := r.db.ExecContext(ctx, query, id, to, ref, note, processedAt, models.RefundPending)
	if err != nil {
		return fmt.Errorf("settle refund request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check refund settle rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
