package models

import (
	"time"

	"github.com/google/uuid"
)

// Fine payment states, always derived via DeriveFineStatus.
const (
	FineStatusUnpaid        = "unpaid"
	FineStatusPartiallyPaid = "partially_paid"
	FineStatusPaid          = "paid"
)

const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodOnline       = "online"
	PaymentMethodOther        = "other"
)

type FineRule struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"team_id"`
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fine is a monetary obligation charged to one member. Amount is fixed at
// creation; amount_paid only ever grows and never exceeds amount. Label and
// amount are snapshotted from the rule at creation so later rule edits do
// not rewrite history.
type Fine struct {
	ID         uuid.UUID  `json:"id"`
	TeamID     uuid.UUID  `json:"team_id"`
	OffenderID uuid.UUID  `json:"offender_id"`
	IssuerID   uuid.UUID  `json:"issuer_id"`
	RuleID     *uuid.UUID `json:"rule_id,omitempty"`
	Label      string     `json:"label"`
	Amount     float64    `json:"amount"`
	AmountPaid float64    `json:"amount_paid"`
	Status     string     `json:"status"`
	Note       *string    `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Outstanding returns the unpaid remainder.
func (f *Fine) Outstanding() float64 {
	return f.Amount - f.AmountPaid
}

// DeriveFineStatus computes a fine's status from its amounts. Status is
// never written by hand anywhere else.
func DeriveFineStatus(amount, amountPaid float64) string {
	switch {
	case amountPaid >= amount:
		return FineStatusPaid
	case amountPaid > 0:
		return FineStatusPartiallyPaid
	default:
		return FineStatusUnpaid
	}
}

// Payment is append-only. A nil FineID marks a credit payment, surplus
// banked on the payer's membership.
type Payment struct {
	ID         uuid.UUID  `json:"id"`
	TeamID     uuid.UUID  `json:"team_id"`
	FineID     *uuid.UUID `json:"fine_id,omitempty"`
	PayerID    uuid.UUID  `json:"payer_id"`
	Amount     float64    `json:"amount"`
	Method     string     `json:"method"`
	Note       *string    `json:"note,omitempty"`
	RecordedBy uuid.UUID  `json:"recorded_by"`
	CreatedAt  time.Time  `json:"created_at"`
}
