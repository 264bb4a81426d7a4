package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RefundStatus is the workflow state of a withdrawal request.
type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundProcessed RefundStatus = "PROCESSED"
	RefundRejected  RefundStatus = "REJECTED"
)

// Transition validates a workflow move; only PENDING requests may settle.
func (s RefundStatus) Transition(to RefundStatus) error {
	if s == RefundPending && (to == RefundProcessed || to == RefundRejected) {
		return nil
	}
	return fmt.Errorf("illegal refund status transition %s -> %s", s, to)
}

// RefundRequest is a member-initiated balance withdrawal. The wallet is
// debited only when an operator approves the request.
type RefundRequest struct {
	ID              string          `db:"id" json:"id"`
	MemberID        string          `db:"member_id" json:"memberId"`
	AmountRequested decimal.Decimal `db:"amount_requested" json:"amountRequested"`
	FeePercent      decimal.Decimal `db:"fee_percent" json:"feePercent"`
	FeeAmount       decimal.Decimal `db:"fee_amount" json:"feeAmount"`
	NetPayout       decimal.Decimal `db:"net_payout" json:"netPayout"`
	PayoutChannelID string          `db:"payout_channel_id" json:"payoutChannelId"`
	Reason          *string         `db:"reason" json:"reason,omitempty"`
	Status          RefundStatus    `db:"status" json:"status"`
	PayoutReference *string         `db:"payout_reference" json:"payoutReference,omitempty"`
	AdminNote       *string         `db:"admin_note" json:"adminNote,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	ProcessedAt     *time.Time      `db:"processed_at" json:"processedAt,omitempty"`
}
