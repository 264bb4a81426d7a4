package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/campusprint/printq-api/internal/dto"
	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/internal/service"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
	"github.com/campusprint/printq-api/pkg/response"
)

// WalletHandler exposes balance and transaction endpoints.
type WalletHandler struct {
	ledger  *service.LedgerService
	metrics *service.MetricsService
}

// NewWalletHandler constructs a wallet handler.
func NewWalletHandler(ledger *service.LedgerService, metrics *service.MetricsService) *WalletHandler {
	return &WalletHandler{ledger: ledger, metrics: metrics}
}

// Balance returns the caller's current balance.
func (h *WalletHandler) Balance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	balance, err := h.ledger.Balance(c.Request.Context(), claims.MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"balance": balance})
}

// History returns the caller's full transaction history, newest first.
func (h *WalletHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	txs, err := h.ledger.History(c.Request.Context(), claims.MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txs, map[string]interface{}{"count": len(txs)})
}

// TopUp credits a member's wallet against a settled external payment.
// Operator only.
func (h *WalletHandler) TopUp(c *gin.Context) {
	var req dto.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid top-up payload"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidAmount, "amount is not a valid decimal"))
		return
	}
	tx, err := h.ledger.TopUp(c.Request.Context(), c.Param("memberId"), amount, req.ReferenceID, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveWalletMovement(string(models.TransactionTopUp))
	response.Created(c, tx)
}

// RecentAll returns the newest movements across all wallets. Operator only.
func (h *WalletHandler) RecentAll(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	txs, err := h.ledger.RecentAll(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txs, map[string]interface{}{"count": len(txs)})
}

// Totals aggregates turnover by transaction type. Operator only.
func (h *WalletHandler) Totals(c *gin.Context) {
	totals, err := h.ledger.Totals(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals)
}
