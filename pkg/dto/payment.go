package dto

import "github.com/google/uuid"

// RecordPaymentRequest pays one fine when fine_id is set, otherwise the
// amount is distributed across the payer's open fines oldest-first.
type RecordPaymentRequest struct {
	PayerID uuid.UUID  `json:"payer_id"`
	FineID  *uuid.UUID `json:"fine_id,omitempty"`
	Amount  float64    `json:"amount"`
	Method  string     `json:"method,omitempty"`
	Note    string     `json:"note,omitempty"`
}

type PaymentResponse struct {
	ID         uuid.UUID  `json:"id"`
	TeamID     uuid.UUID  `json:"team_id"`
	FineID     *uuid.UUID `json:"fine_id,omitempty"`
	PayerID    uuid.UUID  `json:"payer_id"`
	Amount     float64    `json:"amount"`
	Method     string     `json:"method"`
	Note       *string    `json:"note,omitempty"`
	RecordedBy uuid.UUID  `json:"recorded_by"`
	CreatedAt  string     `json:"created_at"`
}

type PaymentResultResponse struct {
	Payments     []PaymentResponse `json:"payments"`
	TotalApplied float64           `json:"total_applied"`
	CreditAdded  float64           `json:"credit_added"`
}
