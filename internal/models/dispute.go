package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute lifecycle. pending is the only non-terminal state.
const (
	DisputeStatusPending      = "pending"
	DisputeStatusApproved     = "approved"
	DisputeStatusRejected     = "rejected"
	DisputeStatusAutoApproved = "auto_approved"
)

type FineDispute struct {
	ID             uuid.UUID  `json:"id"`
	FineID         uuid.UUID  `json:"fine_id"`
	DisputerID     uuid.UUID  `json:"disputer_id"`
	Reason         string     `json:"reason"`
	Status         string     `json:"status"`
	VotesCount     int        `json:"votes_count"`
	VotesRequired  int        `json:"votes_required"`
	ResolvedBy     *uuid.UUID `json:"resolved_by,omitempty"`
	ResolutionNote *string    `json:"resolution_note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the dispute accepts further votes or resolutions.
func (d *FineDispute) IsTerminal() bool {
	return d.Status != DisputeStatusPending
}

type FineDisputeVote struct {
	ID        uuid.UUID `json:"id"`
	DisputeID uuid.UUID `json:"dispute_id"`
	VoterID   uuid.UUID `json:"voter_id"`
	Vote      bool      `json:"vote"`
	CreatedAt time.Time `json:"created_at"`
}
