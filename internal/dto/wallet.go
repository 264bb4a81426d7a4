package dto

// TopUpRequest credits a wallet after an external payment settles.
// Amounts travel as strings to keep decimal parsing explicit.
type TopUpRequest struct {
	Amount      string `json:"amount" binding:"required"`
	ReferenceID string `json:"referenceId" binding:"required"`
	Description string `json:"description"`
}
