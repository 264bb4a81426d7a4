package models

// FailedDocument describes one document excluded from a merge, with
// enough detail for an operator to retrieve and print it separately.
type FailedDocument struct {
	DocumentID string    `json:"documentId"`
	Filename   string    `json:"filename"`
	OwnerID    string    `json:"ownerId"`
	OwnerName  string    `json:"ownerName"`
	PrintMode  PrintMode `json:"printMode"`
	Reason     string    `json:"reason"`
}

// MergeResult is the outcome of one container merge. The artifact is
// ephemeral: it lives in the result cache and can be rebuilt from the
// document records at any time.
type MergeResult struct {
	Artifact     []byte           `json:"-"`
	SuccessCount int              `json:"successCount"`
	TotalCount   int              `json:"totalCount"`
	Failures     []FailedDocument `json:"failures"`
}

// HasFailures reports whether any document was excluded.
func (r *MergeResult) HasFailures() bool {
	return len(r.Failures) > 0
}
