package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusprint/printq-api/internal/dto"
	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/internal/service"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
	"github.com/campusprint/printq-api/pkg/export"
	"github.com/campusprint/printq-api/pkg/response"
)

// MergeHandler exposes the operator-facing container merge endpoints.
type MergeHandler struct {
	merges  *service.MergeService
	metrics *service.MetricsService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewMergeHandler constructs a merge handler.
func NewMergeHandler(merges *service.MergeService, metrics *service.MetricsService, csv *export.CSVExporter, pdf *export.PDFExporter) *MergeHandler {
	return &MergeHandler{merges: merges, metrics: metrics, csv: csv, pdf: pdf}
}

func containerFromQuery(c *gin.Context) (models.ContainerKey, *models.PrintMode, error) {
	var query dto.ContainerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return models.ContainerKey{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "all five container attributes are required")
	}
	key := models.NewContainerKey(query.Period, query.Group, query.Subgroup, query.Term, query.Cohort)
	if query.PrintMode == "" {
		return key, nil, nil
	}
	mode, err := models.ParsePrintMode(query.PrintMode)
	if err != nil {
		return models.ContainerKey{}, nil, appErrors.Clone(appErrors.ErrValidation, "unknown print mode")
	}
	return key, &mode, nil
}

// Merge builds the container's combined artifact and caches it for
// download.
func (h *MergeHandler) Merge(c *gin.Context) {
	key, mode, err := containerFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.merges.MergeContainer(c.Request.Context(), key, mode)
	if err != nil {
		h.metrics.ObserveFailedMerge()
		response.Error(c, err)
		return
	}
	h.metrics.ObserveMerge(result.SuccessCount, len(result.Failures))
	response.JSON(c, http.StatusOK, result, map[string]interface{}{
		"container":     key.String(),
		"artifactBytes": len(result.Artifact),
	})
}

// Download streams the container's cached merged artifact.
func (h *MergeHandler) Download(c *gin.Context) {
	key, mode, err := containerFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	artifact, err := h.merges.Artifact(c.Request.Context(), key, mode)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := artifactFilename(key, mode)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "application/pdf", artifact)
}

// Failures lists the documents excluded from the container's last merge.
func (h *MergeHandler) Failures(c *gin.Context) {
	key, mode, err := containerFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	failures, err := h.merges.Failures(c.Request.Context(), key, mode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, failures, map[string]interface{}{"count": len(failures)})
}

// FailureReport exports the failure list as CSV or PDF for the print
// room noticeboard.
func (h *MergeHandler) FailureReport(c *gin.Context) {
	key, mode, err := containerFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	failures, err := h.merges.Failures(c.Request.Context(), key, mode)
	if err != nil {
		response.Error(c, err)
		return
	}

	dataset := failureDataset(failures)
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	switch format {
	case "csv":
		data, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render failure report"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="merge-failures.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	case "pdf":
		title := fmt.Sprintf("Merge Failures - %s", key.String())
		data, err := h.pdf.Render(dataset, title)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render failure report"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="merge-failures.pdf"`)
		c.Data(http.StatusOK, "application/pdf", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

// MarkProcessed settles the container's pending documents after printing.
func (h *MergeHandler) MarkProcessed(c *gin.Context) {
	key, mode, err := containerFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	affected, err := h.merges.MarkProcessed(c.Request.Context(), key, mode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"processed": affected})
}

// ClearCache drops the container's cached artifact after download.
func (h *MergeHandler) ClearCache(c *gin.Context) {
	key, mode, err := containerFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.merges.ClearCache(c.Request.Context(), key, mode); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CopyCount reports the total physical copies a merge would produce.
func (h *MergeHandler) CopyCount(c *gin.Context) {
	key, mode, err := containerFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	total, err := h.merges.TotalCopyCount(c.Request.Context(), key, mode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"totalCopies": total})
}

func failureDataset(failures []models.FailedDocument) export.Dataset {
	rows := make([]map[string]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, map[string]string{
			"Document ID": f.DocumentID,
			"Filename":    f.Filename,
			"Owner":       f.OwnerName,
			"Print Mode":  string(f.PrintMode),
			"Reason":      f.Reason,
		})
	}
	return export.Dataset{
		Headers: []string{"Document ID", "Filename", "Owner", "Print Mode", "Reason"},
		Rows:    rows,
	}
}

func artifactFilename(key models.ContainerKey, mode *models.PrintMode) string {
	parts := []string{key.Period, key.Group, key.Subgroup, key.Term, key.Cohort}
	if mode != nil {
		parts = append(parts, string(*mode))
	}
	joined := strings.Join(parts, "_")
	joined = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '-'
		}
		return r
	}, joined)
	return joined + ".pdf"
}
