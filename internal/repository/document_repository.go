package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusprint/printq-api/internal/models"
)

const documentColumns = `id, owner_id, owner_name, original_filename, storage_path,
       period, grp, subgroup, term, cohort, size_bytes, status, print_mode,
       copy_count, page_count, billed_page_count, total_cost, submitted_at`

// DocumentRepository handles document metadata persistence.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores metadata for a newly ingested document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.SubmittedAt.IsZero() {
		doc.SubmittedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = models.DocumentPending
	}
	const query = `INSERT INTO documents
	(id, owner_id, owner_name, original_filename, storage_path, period, grp, subgroup, term, cohort,
	 size_bytes, status, print_mode, copy_count, page_count, billed_page_count, total_cost, submitted_at)
	VALUES (:id, :owner_id, :owner_name, :original_filename, :storage_path, :period, :grp, :subgroup, :term, :cohort,
	 :size_bytes, :status, :print_mode, :copy_count, :page_count, :billed_page_count, :total_cost, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID retrieves one document row.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListPendingByContainer returns PENDING documents for one container,
// optionally filtered by print mode, in submission order. Ties on the
// submission timestamp fall back to insertion order via the seq column.
func (r *DocumentRepository) ListPendingByContainer(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) ([]models.Document, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + documentColumns + ` FROM documents
	WHERE status = $1 AND period = $2 AND grp = $3 AND subgroup = $4 AND term = $5 AND cohort = $6`)
	args := []interface{}{models.DocumentPending, key.Period, key.Group, key.Subgroup, key.Term, key.Cohort}
	if mode != nil {
		args = append(args, *mode)
		builder.WriteString(fmt.Sprintf(" AND print_mode = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY submitted_at ASC, seq ASC")

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list pending documents: %w", err)
	}
	return docs, nil
}

// ListByOwner returns all of a member's documents, newest first.
func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
	WHERE owner_id = $1 AND status <> $2 ORDER BY submitted_at DESC`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, ownerID, models.DocumentDeleted); err != nil {
		return nil, fmt.Errorf("list documents by owner: %w", err)
	}
	return docs, nil
}

// CountByOwner counts a member's non-deleted documents.
func (r *DocumentRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM documents WHERE owner_id = $1 AND status <> $2`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, ownerID, models.DocumentDeleted); err != nil {
		return 0, fmt.Errorf("count documents by owner: %w", err)
	}
	return count, nil
}

// TotalCopyCount sums the requested copies over a container's pending
// documents, for operator sizing before a merge.
func (r *DocumentRepository) TotalCopyCount(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) (int, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT COALESCE(SUM(copy_count), 0) FROM documents
	WHERE status = $1 AND period = $2 AND grp = $3 AND subgroup = $4 AND term = $5 AND cohort = $6`)
	args := []interface{}{models.DocumentPending, key.Period, key.Group, key.Subgroup, key.Term, key.Cohort}
	if mode != nil {
		args = append(args, *mode)
		builder.WriteString(fmt.Sprintf(" AND print_mode = $%d", len(args)))
	}
	var total int
	if err := r.db.GetContext(ctx, &total, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("sum container copy count: %w", err)
	}
	return total, nil
}

// MarkProcessedByContainer bulk-transitions a container's PENDING
// documents to PROCESSED and returns how many rows changed.
func (r *DocumentRepository) MarkProcessedByContainer(ctx context.Context, key models.ContainerKey, mode *models.PrintMode) (int64, error) {
	builder := strings.Builder{}
	builder.WriteString(`UPDATE documents SET status = $1
	WHERE status = $2 AND period = $3 AND grp = $4 AND subgroup = $5 AND term = $6 AND cohort = $7`)
	args := []interface{}{models.DocumentProcessed, models.DocumentPending, key.Period, key.Group, key.Subgroup, key.Term, key.Cohort}
	if mode != nil {
		args = append(args, *mode)
		builder.WriteString(fmt.Sprintf(" AND print_mode = $%d", len(args)))
	}
	res, err := r.db.ExecContext(ctx, builder.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("mark container processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check processed rows: %w", err)
	}
	return affected, nil
}

// MarkDeleted transitions a PENDING document to DELETED. Returns
// sql.ErrNoRows when the document is absent or no longer pending.
func (r *DocumentRepository) MarkDeleted(ctx context.Context, id string) error {
	const query = `UPDATE documents SET status = $2 WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.DocumentDeleted, models.DocumentPending)
	if err != nil {
		return fmt.Errorf("mark document deleted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Restore re-marks a DELETED document PENDING. Used to compensate a
// withdrawal whose refund credit failed. Returns sql.ErrNoRows when
// the document is absent or not deleted.
func (r *DocumentRepository) Restore(ctx context.Context, id string) error {
	const query = `UPDATE documents SET status = $2 WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.DocumentPending, models.DocumentDeleted)
	if err != nil {
		return fmt.Errorf("restore document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document restore rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a document row outright. Used only to roll back an
// ingestion whose billing debit failed.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
