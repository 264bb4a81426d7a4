package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusprint/printq-api/internal/dto"
	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/internal/service"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
	"github.com/campusprint/printq-api/pkg/response"
)

// DocumentHandler exposes document submission endpoints for members.
type DocumentHandler struct {
	uploads *service.UploadService
	metrics *service.MetricsService
}

// NewDocumentHandler constructs a document handler.
func NewDocumentHandler(uploads *service.UploadService, metrics *service.MetricsService) *DocumentHandler {
	return &DocumentHandler{uploads: uploads, metrics: metrics}
}

// Upload receives one PDF plus its print options, prices it and charges
// the member's wallet.
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var form dto.UploadForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload form"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	upload := service.DocumentUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}
	doc, tx, err := h.uploads.Submit(c.Request.Context(), claims.MemberID, upload, form.CopyCount, models.PrintMode(form.PrintMode))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveUpload(doc.SizeBytes)
	h.metrics.ObserveWalletMovement(string(models.TransactionBilling))

	response.Created(c, gin.H{"document": doc, "transaction": tx})
}

// List returns the caller's documents, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	docs, err := h.uploads.ListByOwner(c.Request.Context(), claims.MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, map[string]interface{}{"count": len(docs)})
}

// Delete withdraws one of the caller's pending documents and refunds
// the charge.
func (h *DocumentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	tx, err := h.uploads.Delete(c.Request.Context(), c.Param("id"), claims.MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveWalletMovement(string(models.TransactionRefund))
	response.JSON(c, http.StatusOK, gin.H{"refund": tx})
}
