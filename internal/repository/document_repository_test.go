package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campusprint/printq-api/internal/models"
)

func documentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "owner_name", "original_filename", "storage_path",
		"period", "grp", "subgroup", "term", "cohort", "size_bytes", "status",
		"print_mode", "copy_count", "page_count", "billed_page_count", "total_cost", "submitted_at",
	})
}

func TestDocumentRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.Document{
		OwnerID:          "member-1",
		OwnerName:        "Dina Rahma",
		OriginalFilename: "notes.pdf",
		StoragePath:      "2026/notes.pdf",
		Period:           "2026/2027",
		Group:            "XI",
		Subgroup:         "A",
		Term:             "Odd",
		Cohort:           "2026",
		PrintMode:        models.PrintSimplex,
		CopyCount:        1,
		PageCount:        5,
		BilledPageCount:  5,
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	require.NotEmpty(t, doc.ID)
	require.Equal(t, models.DocumentPending, doc.Status)
	require.False(t, doc.SubmittedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListPendingByContainer(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	rows := documentRows().
		AddRow("doc-1", "member-1", "Dina", "a.pdf", "p/a.pdf", "2026/2027", "XI", "A", "Odd", "2026", 100, "PENDING", "SIMPLEX", 1, 5, 5, "10.00", time.Now()).
		AddRow("doc-2", "member-2", "Budi", "b.pdf", "p/b.pdf", "2026/2027", "XI", "A", "Odd", "2026", 200, "PENDING", "SIMPLEX", 2, 3, 3, "12.00", time.Now())
	mock.ExpectQuery("SELECT .+ FROM documents").
		WithArgs("PENDING", "2026/2027", "XI", "A", "Odd", "2026").
		WillReturnRows(rows)

	key := models.NewContainerKey("2026/2027", "XI", "A", "Odd", "2026")
	docs, err := repo.ListPendingByContainer(context.Background(), key, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "doc-1", docs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListPendingByContainerWithMode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectQuery("SELECT .+ FROM documents").
		WithArgs("PENDING", "2026/2027", "XI", "A", "Odd", "2026", "DUPLEX").
		WillReturnRows(documentRows())

	key := models.NewContainerKey("2026/2027", "XI", "A", "Odd", "2026")
	mode := models.PrintDuplex
	docs, err := repo.ListPendingByContainer(context.Background(), key, &mode)
	require.NoError(t, err)
	require.Empty(t, docs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMarkProcessedByContainer(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $1")).
		WithArgs("PROCESSED", "PENDING", "2026/2027", "XI", "A", "Odd", "2026").
		WillReturnResult(sqlmock.NewResult(0, 3))

	key := models.NewContainerKey("2026/2027", "XI", "A", "Odd", "2026")
	affected, err := repo.MarkProcessedByContainer(context.Background(), key, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMarkDeletedGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("doc-1", "DELETED", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkDeleted(context.Background(), "doc-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("doc-2", "DELETED", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkDeleted(context.Background(), "doc-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryRestoreGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("doc-1", "PENDING", "DELETED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Restore(context.Background(), "doc-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("doc-2", "PENDING", "DELETED").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Restore(context.Background(), "doc-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryTotalCopyCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(copy_count), 0) FROM documents")).
		WithArgs("PENDING", "2026/2027", "XI", "A", "Odd", "2026").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(7))

	key := models.NewContainerKey("2026/2027", "XI", "A", "Odd", "2026")
	total, err := repo.TotalCopyCount(context.Background(), key, nil)
	require.NoError(t, err)
	require.Equal(t, 7, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
