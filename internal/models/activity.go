package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity types written alongside ledger and dispute mutations.
const (
	ActivityFineCreated     = "fine_created"
	ActivityFineDeleted     = "fine_deleted"
	ActivityPaymentRecorded = "payment_recorded"
	ActivityDisputeOpened   = "dispute_opened"
	ActivityDisputeVoteCast = "dispute_vote_cast"
	ActivityDisputeResolved = "dispute_resolved"
)

type Activity struct {
	ID        uuid.UUID       `json:"id"`
	TeamID    uuid.UUID       `json:"team_id"`
	ActorID   uuid.UUID       `json:"actor_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
