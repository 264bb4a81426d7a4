package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/campusprint/printq-api/internal/models"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
)

// PendingDocumentSource lists and settles a container's pending queue.
type PendingDocumentSource interface {
	ListPendingByContainer(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) ([]models.Document, error)
	MarkProcessedByContainer(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) (int64, error)
	TotalCopyCount(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) (int, error)
}

// BlobFetcher reads stored document bytes.
type BlobFetcher interface {
	Fetch(path string) ([]byte, error)
}

// DocumentCombiner validates and concatenates PDF streams.
type DocumentCombiner interface {
	Validate(data []byte) error
	Merge(docs [][]byte) ([]byte, error)
}

// MergeResultCache stores the latest artifact and failure list per
// container key.
type MergeResultCache interface {
	StoreResult(ctx context.Context, key string, artifact []byte, failures []models.FailedDocument) error
	Artifact(ctx context.Context, key string) ([]byte, error)
	Failures(ctx context.Context, key string) ([]models.FailedDocument, error)
	Clear(ctx context.Context, key string) error
}

// MergeService builds one print-ready artifact per container. Stored
// files are fetched by a small worker pool, then validated and
// concatenated strictly in submission order so the merge is
// deterministic regardless of fetch completion order. A document that
// cannot be fetched or validated is skipped and reported, never aborts
// the batch.
type MergeService struct {
	docs    PendingDocumentSource
	blobs   BlobFetcher
	pdf     DocumentCombiner
	cache   MergeResultCache
	workers int
	logger  *zap.Logger
}

// NewMergeService creates a merge service.
func NewMergeService(docs PendingDocumentSource, blobs BlobFetcher, pdf DocumentCombiner, cache MergeResultCache, workers int, logger *zap.Logger) *MergeService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MergeService{
		docs:    docs,
		blobs:   blobs,
		pdf:     pdf,
		cache:   cache,
		workers: workers,
		logger:  logger,
	}
}

type fetchOutcome struct {
	index int
	data  []byte
	err   error
}

// MergeContainer merges the container's pending documents into one
// artifact, repeating each document per its copy count, and caches the
// outcome under the container key.
func (s *MergeService) MergeContainer(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) (*models.MergeResult, error) {
	docs, err := s.docs.ListPendingByContainer(ctx, key, mode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending documents")
	}
	if len(docs) == 0 {
		return nil, appErrors.ErrNothingToMerge
	}

	fetched, fetchErrs := s.fetchAll(docs)

	// Assembly is single threaded and walks the submission order, so
	// the artifact layout never depends on fetch timing.
	var streams [][]byte
	var failures []models.FailedDocument
	successCount := 0
	for i, doc := range docs {
		reason := ""
		switch {
		case fetchErrs[i] != nil:
			reason = "stored file could not be read"
		default:
			if err := s.pdf.Validate(fetched[i]); err != nil {
				reason = "document failed validation"
			}
		}
		if reason != "" {
			s.logger.Warn("document excluded from merge",
				zap.String("document_id", doc.ID),
				zap.String("container", key.String()),
				zap.String("reason", reason))
			failures = append(failures, models.FailedDocument{
				DocumentID: doc.ID,
				Filename:   doc.OriginalFilename,
				OwnerID:    doc.OwnerID,
				OwnerName:  doc.OwnerName,
				PrintMode:  doc.PrintMode,
				Reason:     reason,
			})
			continue
		}
		for c := 0; c < doc.CopyCount; c++ {
			streams = append(streams, fetched[i])
		}
		successCount++
	}

	if successCount == 0 {
		return nil, appErrors.ErrAllDocumentsFailed
	}

	artifact, err := s.pdf.Merge(streams)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to merge documents")
	}

	result := &models.MergeResult{
		Artifact:     artifact,
		SuccessCount: successCount,
		TotalCount:   len(docs),
		Failures:     failures,
	}

	cacheKey := key.CacheKey(mode)
	if err := s.cache.StoreResult(ctx, cacheKey, artifact, failures); err != nil {
		s.logger.Error("failed to cache merge result", zap.String("key", cacheKey), zap.Error(err))
	}

	s.logger.Info("container merged",
		zap.String("container", key.String()),
		zap.Int("documents", len(docs)),
		zap.Int("succeeded", successCount),
		zap.Int("failed", len(failures)))
	return result, nil
}

// fetchAll reads every document's bytes through a bounded worker pool.
// Results land in per-index slots, so no ordering is lost.
func (s *MergeService) fetchAll(docs []models.Document) ([][]byte, []error) {
	jobs := make(chan int)
	results := make(chan fetchOutcome)

	workers := s.workers
	if workers > len(docs) {
		workers = len(docs)
	}
	for w := 0; w < workers; w++ {
		go func() {
			for i := range jobs {
				data, err := s.blobs.Fetch(docs[i].StoragePath)
				results <- fetchOutcome{index: i, data: data, err: err}
			}
		}()
	}
	go func() {
		for i := range docs {
			jobs <- i
		}
		close(jobs)
	}()

	fetched := make([][]byte, len(docs))
	errs := make([]error, len(docs))
	for range docs {
		outcome := <-results
		fetched[outcome.index] = outcome.data
		errs[outcome.index] = outcome.err
	}
	return fetched, errs
}

// Artifact returns the cached merged artifact for the container.
func (s *MergeService) Artifact(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) ([]byte, error) {
	artifact, err := s.cache.Artifact(ctx, key.CacheKey(mode))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no merged artifact cached for container")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read cached artifact")
	}
	return artifact, nil
}

// Failures returns the failure descriptors from the container's last merge.
func (s *MergeService) Failures(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) ([]models.FailedDocument, error) {
	failures, err := s.cache.Failures(ctx, key.CacheKey(mode))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return []models.FailedDocument{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read cached failures")
	}
	if failures == nil {
		failures = []models.FailedDocument{}
	}
	return failures, nil
}

// MarkProcessed settles the container's pending documents after the
// operator has printed the artifact. Documents that failed the merge
// are settled too; the failure list names them for manual handling.
func (s *MergeService) MarkProcessed(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) (int64, error) {
	affected, err := s.docs.MarkProcessedByContainer(ctx, key, mode)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark container processed")
	}
	if affected == 0 {
		return 0, appErrors.ErrNothingToMerge
	}
	s.logger.Info("container marked processed",
		zap.String("container", key.String()),
		zap.Int64("documents", affected))
	return affected, nil
}

// ClearCache drops the container's cached artifact and failure list.
func (s *MergeService) ClearCache(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) error {
	if err := s.cache.Clear(ctx, key.CacheKey(mode)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear merge cache")
	}
	return nil
}

// TotalCopyCount sums requested copies over the container's pending
// documents, for sizing the print run.
func (s *MergeService) TotalCopyCount(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) (int, error) {
	total, err := s.docs.TotalCopyCount(ctx, key, mode)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum container copies")
	}
	return total, nil
}
