package dto

import "github.com/google/uuid"

type CreateDisputeRequest struct {
	Reason string `json:"reason"`
}

// VoteRequest: approve true votes to cancel the fine, false votes to keep
// it, which raises the cancellation threshold by one.
type VoteRequest struct {
	Approve bool `json:"approve"`
}

type ResolveDisputeRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

type DisputeResponse struct {
	ID             uuid.UUID  `json:"id"`
	FineID         uuid.UUID  `json:"fine_id"`
	DisputerID     uuid.UUID  `json:"disputer_id"`
	Reason         string     `json:"reason"`
	Status         string     `json:"status"`
	VotesCount     int        `json:"votes_count"`
	VotesRequired  int        `json:"votes_required"`
	ResolvedBy     *uuid.UUID `json:"resolved_by,omitempty"`
	ResolutionNote *string    `json:"resolution_note,omitempty"`
	CreatedAt      string     `json:"created_at"`
}

type DisputeVoteResponse struct {
	ID        uuid.UUID `json:"id"`
	DisputeID uuid.UUID `json:"dispute_id"`
	VoterID   uuid.UUID `json:"voter_id"`
	Approve   bool      `json:"approve"`
	CreatedAt string    `json:"created_at"`
}
