package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentStatus is the lifecycle state of a submitted document.
type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "PENDING"
	DocumentProcessed DocumentStatus = "PROCESSED"
	DocumentDeleted   DocumentStatus = "DELETED"
)

// Transition validates a lifecycle move. PENDING is the only state that
// may change: to PROCESSED after a merge, to DELETED on member deletion.
func (s DocumentStatus) Transition(to DocumentStatus) error {
	if s == DocumentPending && (to == DocumentProcessed || to == DocumentDeleted) {
		return nil
	}
	return fmt.Errorf("illegal document status transition %s -> %s", s, to)
}

// PrintMode selects the printing style and unit price of a document.
type PrintMode string

const (
	PrintSimplex PrintMode = "SIMPLEX"
	PrintDuplex  PrintMode = "DUPLEX"
	PrintColor   PrintMode = "COLOR"
)

// ParsePrintMode validates a raw print mode value.
func ParsePrintMode(raw string) (PrintMode, error) {
	switch PrintMode(raw) {
	case PrintSimplex, PrintDuplex, PrintColor:
		return PrintMode(raw), nil
	}
	return "", fmt.Errorf("unknown print mode %q", raw)
}

// Document represents one submitted file awaiting batch printing.
type Document struct {
	ID               string          `db:"id" json:"id"`
	OwnerID          string          `db:"owner_id" json:"ownerId"`
	OwnerName        string          `db:"owner_name" json:"ownerName"`
	OriginalFilename string          `db:"original_filename" json:"originalFilename"`
	StoragePath      string          `db:"storage_path" json:"-"`
	Period           string          `db:"period" json:"period"`
	Group            string          `db:"grp" json:"group"`
	Subgroup         string          `db:"subgroup" json:"subgroup"`
	Term             string          `db:"term" json:"term"`
	Cohort           string          `db:"cohort" json:"cohort"`
	SizeBytes        int64           `db:"size_bytes" json:"sizeBytes"`
	Status           DocumentStatus  `db:"status" json:"status"`
	PrintMode        PrintMode       `db:"print_mode" json:"printMode"`
	CopyCount        int             `db:"copy_count" json:"copyCount"`
	PageCount        int             `db:"page_count" json:"pageCount"`
	BilledPageCount  int             `db:"billed_page_count" json:"billedPageCount"`
	TotalCost        decimal.Decimal `db:"total_cost" json:"totalCost"`
	SubmittedAt      time.Time       `db:"submitted_at" json:"submittedAt"`
}

// Container reassembles the grouping key from the stored columns.
func (d *Document) Container() ContainerKey {
	return NewContainerKey(d.Period, d.Group, d.Subgroup, d.Term, d.Cohort)
}
