package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies ledger entries. The enum is closed:
// withdrawals are recorded as BILLING debits carrying a payout reference.
type TransactionType string

const (
	TransactionTopUp   TransactionType = "TOPUP"
	TransactionBilling TransactionType = "BILLING"
	TransactionRefund  TransactionType = "REFUND"
)

// Wallet holds a member's prepaid balance. Only the ledger mutates it.
type Wallet struct {
	MemberID  string          `db:"member_id" json:"memberId"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Transaction is one immutable ledger entry. Amount is signed: BILLING
// entries store the negated debit so that replaying amounts in order
// reproduces every balance snapshot.
type Transaction struct {
	ID           string          `db:"id" json:"id"`
	MemberID     string          `db:"member_id" json:"memberId"`
	Type         TransactionType `db:"type" json:"type"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balanceAfter"`
	Description  string          `db:"description" json:"description"`
	ReferenceID  *string         `db:"reference_id" json:"referenceId,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// TransactionTotals aggregates the audit log by entry type.
type TransactionTotals struct {
	TopUps  decimal.Decimal `json:"topUps"`
	Billing decimal.Decimal `json:"billing"`
	Refunds decimal.Decimal `json:"refunds"`
	Net     decimal.Decimal `json:"net"`
}
