package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/campusprint/printq-api/internal/dto"
	"github.com/campusprint/printq-api/internal/service"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
	"github.com/campusprint/printq-api/pkg/response"
)

// RefundHandler exposes withdrawal request endpoints.
type RefundHandler struct {
	refunds *service.RefundService
}

// NewRefundHandler constructs a refund handler.
func NewRefundHandler(refunds *service.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// Create opens a withdrawal request for the calling member.
func (h *RefundHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refund payload"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidAmount, "amount is not a valid decimal"))
		return
	}
	refund, err := h.refunds.Request(c.Request.Context(), claims.MemberID, amount, req.PayoutChannelID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, refund)
}

// Mine lists the caller's withdrawal requests.
func (h *RefundHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	refunds, err := h.refunds.ListByMember(c.Request.Context(), claims.MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, refunds, map[string]interface{}{"count": len(refunds)})
}

// Pending lists all pending requests for operator review.
func (h *RefundHandler) Pending(c *gin.Context) {
	refunds, err := h.refunds.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, refunds, map[string]interface{}{"count": len(refunds)})
}

// Approve settles a pending request and debits the wallet. Operator only.
func (h *RefundHandler) Approve(c *gin.Context) {
	var req dto.ApproveRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}
	refund, err := h.refunds.Approve(c.Request.Context(), c.Param("id"), req.PayoutReference, optionalNote(req.Note))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, refund)
}

// Reject declines a pending request. Operator only.
func (h *RefundHandler) Reject(c *gin.Context) {
	var req dto.RejectRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}
	refund, err := h.refunds.Reject(c.Request.Context(), c.Param("id"), optionalNote(req.Note))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, refund)
}

func optionalNote(note string) *string {
	if note == "" {
		return nil
	}
	return &note
}
