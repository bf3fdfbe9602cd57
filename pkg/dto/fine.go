package dto

import "github.com/google/uuid"

// CreateFineRequest fines one offender, or several when offender_ids is set.
// Either rule_id or a custom label with amount describes the charge; a
// positive amount next to rule_id overrides the rule's default.
type CreateFineRequest struct {
	OffenderID  *uuid.UUID  `json:"offender_id,omitempty"`
	OffenderIDs []uuid.UUID `json:"offender_ids,omitempty"`
	RuleID      *uuid.UUID  `json:"rule_id,omitempty"`
	Label       string      `json:"label,omitempty"`
	Amount      float64     `json:"amount,omitempty"`
	Note        string      `json:"note,omitempty"`
}

type FineResponse struct {
	ID          uuid.UUID  `json:"id"`
	TeamID      uuid.UUID  `json:"team_id"`
	OffenderID  uuid.UUID  `json:"offender_id"`
	IssuerID    uuid.UUID  `json:"issuer_id"`
	RuleID      *uuid.UUID `json:"rule_id,omitempty"`
	Label       string     `json:"label"`
	Amount      float64    `json:"amount"`
	AmountPaid  float64    `json:"amount_paid"`
	Outstanding float64    `json:"outstanding"`
	Status      string     `json:"status"`
	Note        *string    `json:"note,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

type BatchFineFailure struct {
	OffenderID uuid.UUID `json:"offender_id"`
	Error      string    `json:"error"`
}

type CreateFinesResponse struct {
	Created []FineResponse     `json:"created"`
	Failed  []BatchFineFailure `json:"failed"`
}
