package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/pkg/config"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
)

// DocumentStore is what the upload service needs from document persistence.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	MarkDeleted(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ProfileSource resolves member profiles for container attribution.
type ProfileSource interface {
	GetByID(ctx context.Context, id string) (*models.MemberProfile, error)
}

// BlobStore persists and removes raw document bytes.
type BlobStore interface {
	Save(data []byte, suggestedName, containerHint string) (string, error)
	Delete(path string) error
}

// PageInspector parses uploads and pads odd duplex documents.
type PageInspector interface {
	PageCount(data []byte) (int, error)
	AppendBlankPage(data []byte) ([]byte, error)
}

// BillingLedger is the slice of the ledger the upload flow uses.
type BillingLedger interface {
	Debit(ctx context.Context, memberID string, amount decimal.Decimal, description string, referenceID *string) (*models.Transaction, error)
	RefundCredit(ctx context.Context, memberID string, amount decimal.Decimal, description string, referenceID *string) (*models.Transaction, error)
}

// DocumentUpload carries one file received from a member.
type DocumentUpload struct {
	Filename    string `validate:"required"`
	ContentType string `validate:"required"`
	Data        []byte `validate:"required"`
}

// UploadService ingests member documents: it validates the file, prices
// it, persists bytes and metadata, and charges the wallet. A failed
// charge rolls the ingestion back so no unpaid document stays pending.
type UploadService struct {
	docs      DocumentStore
	members   ProfileSource
	blobs     BlobStore
	pdf       PageInspector
	pricing   *PricingTable
	ledger    BillingLedger
	cfg       config.UploadsConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUploadService creates an upload service.
func NewUploadService(docs DocumentStore, members ProfileSource, blobs BlobStore, pdf PageInspector, pricing *PricingTable, ledger BillingLedger, cfg config.UploadsConfig, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		docs:      docs,
		members:   members,
		blobs:     blobs,
		pdf:       pdf,
		pricing:   pricing,
		ledger:    ledger,
		cfg:       cfg,
		validator: validator.New(),
		logger:    logger,
	}
}

// Submit ingests the upload and charges the owner's wallet for it in
// one flow. When the debit fails the stored record and bytes are rolled
// back, so a submission either exists fully paid or not at all.
func (s *UploadService) Submit(ctx context.Context, ownerID string, upload DocumentUpload, copyCount int, mode models.PrintMode) (*models.Document, *models.Transaction, error) {
	doc, err := s.ingest(ctx, ownerID, upload, copyCount, mode)
	if err != nil {
		return nil, nil, err
	}

	description := fmt.Sprintf("Print charge for %s", doc.OriginalFilename)
	tx, err := s.ledger.Debit(ctx, ownerID, doc.TotalCost, description, &doc.ID)
	if err != nil {
		s.rollback(ctx, doc)
		return nil, nil, err
	}

	s.logger.Info("document submitted",
		zap.String("document_id", doc.ID),
		zap.String("owner_id", ownerID),
		zap.String("container", doc.Container().String()),
		zap.String("total_cost", doc.TotalCost.String()))
	return doc, tx, nil
}

// ingest validates, prices and persists the upload without touching the
// wallet.
func (s *UploadService) ingest(ctx context.Context, ownerID string, upload DocumentUpload, copyCount int, mode models.PrintMode) (*models.Document, error) {
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}
	if copyCount < 1 || copyCount > s.cfg.MaxCopyCount {
		message := fmt.Sprintf("copy count must be between 1 and %d", s.cfg.MaxCopyCount)
		return nil, appErrors.Clone(appErrors.ErrValidation, message)
	}
	if _, err := models.ParsePrintMode(string(mode)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown print mode")
	}

	member, err := s.members.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member profile")
	}
	if !member.HasCompleteContainer() {
		return nil, appErrors.ErrProfileIncomplete
	}

	pageCount, err := s.pdf.PageCount(upload.Data)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrCorruptDocument, "uploaded file is not a readable PDF")
	}

	quote, err := s.pricing.Cost(pageCount, copyCount, mode)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	// Odd duplex documents are padded before storage so the billed and
	// stored page counts agree and the merged batch keeps sheet parity.
	data := upload.Data
	if mode == models.PrintDuplex && quote.BilledPages > pageCount {
		padded, err := s.pdf.AppendBlankPage(data)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrCorruptDocument, "failed to pad duplex document")
		}
		data = padded
	}

	container := member.Container()
	path, err := s.blobs.Save(data, upload.Filename, container.String())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}

	doc := &models.Document{
		OwnerID:          member.ID,
		OwnerName:        member.FullName,
		OriginalFilename: upload.Filename,
		StoragePath:      path,
		Period:           container.Period,
		Group:            container.Group,
		Subgroup:         container.Subgroup,
		Term:             container.Term,
		Cohort:           container.Cohort,
		SizeBytes:        int64(len(data)),
		PrintMode:        mode,
		CopyCount:        copyCount,
		PageCount:        pageCount,
		BilledPageCount:  quote.BilledPages,
		TotalCost:        quote.TotalCost,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(path); delErr != nil {
			s.logger.Warn("orphaned blob after failed create", zap.String("path", path), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}
	return doc, nil
}

// Delete withdraws a pending document. Only the owner may withdraw, the
// full charge is credited back, and the stored bytes are removed.
func (s *UploadService) Delete(ctx context.Context, documentID, requesterID string) (*models.Transaction, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.OwnerID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "only the owner may delete a document")
	}
	if doc.Status != models.DocumentPending {
		return nil, appErrors.ErrNotPending
	}

	if err := s.docs.MarkDeleted(ctx, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotPending
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}

	description := fmt.Sprintf("Refund for deleted document: %s", doc.OriginalFilename)
	tx, err := s.ledger.RefundCredit(ctx, doc.OwnerID, doc.TotalCost, description, &doc.ID)
	if err != nil {
		// The record goes back to PENDING so a retry can refund again.
		if restoreErr := s.docs.Restore(ctx, documentID); restoreErr != nil {
			s.logger.Error("failed to restore document after refund failure",
				zap.String("document_id", documentID),
				zap.Error(restoreErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refund document charge")
	}

	if err := s.blobs.Delete(doc.StoragePath); err != nil {
		s.logger.Warn("failed to remove stored document", zap.String("path", doc.StoragePath), zap.Error(err))
	}

	s.logger.Info("document withdrawn",
		zap.String("document_id", doc.ID),
		zap.String("owner_id", doc.OwnerID),
		zap.String("refund", doc.TotalCost.String()))
	return tx, nil
}

// ListByOwner returns the member's documents, newest first.
func (s *UploadService) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	docs, err := s.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// CountByOwner counts the member's documents.
func (s *UploadService) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	count, err := s.docs.CountByOwner(ctx, ownerID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count documents")
	}
	return count, nil
}

func (s *UploadService) validateUpload(upload DocumentUpload) error {
	if err := s.validator.Struct(upload); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "filename, content type and file data are required")
	}
	if !s.allowedContentType(upload.ContentType) {
		return appErrors.Clone(appErrors.ErrValidation, "only PDF uploads are accepted")
	}
	if int64(len(upload.Data)) > s.cfg.MaxFileSizeBytes {
		message := fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes)
		return appErrors.Clone(appErrors.ErrValidation, message)
	}
	if !strings.EqualFold(filepath.Ext(upload.Filename), ".pdf") {
		return appErrors.Clone(appErrors.ErrValidation, "only .pdf files are accepted")
	}
	return nil
}

func (s *UploadService) allowedContentType(contentType string) bool {
	base := contentType
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(base)
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(base, allowed) {
			return true
		}
	}
	return false
}

// rollback undoes a persisted ingestion whose billing debit failed.
func (s *UploadService) rollback(ctx context.Context, doc *models.Document) {
	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		s.logger.Error("failed to roll back document record", zap.String("document_id", doc.ID), zap.Error(err))
	}
	if err := s.blobs.Delete(doc.StoragePath); err != nil {
		s.logger.Warn("failed to roll back stored document", zap.String("path", doc.StoragePath), zap.Error(err))
	}
}
