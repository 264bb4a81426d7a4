package dto

// CreateRefundRequest opens a withdrawal request for the calling member.
type CreateRefundRequest struct {
	Amount          string `json:"amount" binding:"required"`
	PayoutChannelID string `json:"payoutChannelId" binding:"required"`
	Reason          string `json:"reason"`
}

// ApproveRefundRequest settles a pending request with a payout reference.
type ApproveRefundRequest struct {
	PayoutReference string `json:"payoutReference" binding:"required"`
	Note            string `json:"note"`
}

// RejectRefundRequest declines a pending request.
type RejectRefundRequest struct {
	Note string `json:"note"`
}
