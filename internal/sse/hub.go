package sse

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/models"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type FineCreatedEvent struct {
	FineID     uuid.UUID `json:"fine_id"`
	TeamID     uuid.UUID `json:"team_id"`
	OffenderID uuid.UUID `json:"offender_id"`
	IssuerID   uuid.UUID `json:"issuer_id"`
	Label      string    `json:"label"`
	Amount     float64   `json:"amount"`
}

type FinesCreatedEvent struct {
	TeamID   uuid.UUID   `json:"team_id"`
	IssuerID uuid.UUID   `json:"issuer_id"`
	FineIDs  []uuid.UUID `json:"fine_ids"`
}

type FineDeletedEvent struct {
	FineID    uuid.UUID `json:"fine_id"`
	TeamID    uuid.UUID `json:"team_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

type PaymentRecordedEvent struct {
	TeamID       uuid.UUID `json:"team_id"`
	PayerID      uuid.UUID `json:"payer_id"`
	Amount       float64   `json:"amount"`
	FinesSettled int       `json:"fines_settled"`
	CreditAdded  float64   `json:"credit_added"`
}

type DisputeOpenedEvent struct {
	DisputeID  uuid.UUID `json:"dispute_id"`
	FineID     uuid.UUID `json:"fine_id"`
	TeamID     uuid.UUID `json:"team_id"`
	DisputerID uuid.UUID `json:"disputer_id"`
}

type DisputeVoteCastEvent struct {
	DisputeID     uuid.UUID `json:"dispute_id"`
	TeamID        uuid.UUID `json:"team_id"`
	VotesCount    int       `json:"votes_count"`
	VotesRequired int       `json:"votes_required"`
	Status        string    `json:"status"`
}

type DisputeResolvedEvent struct {
	DisputeID uuid.UUID `json:"dispute_id"`
	FineID    uuid.UUID `json:"fine_id"`
	TeamID    uuid.UUID `json:"team_id"`
	Status    string    `json:"status"`
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Teams  map[uuid.UUID]bool
	Send   chan []byte
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *TeamMessage
	mu         sync.RWMutex
}

type TeamMessage struct {
	TeamID uuid.UUID
	Event  Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *TeamMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Event)
			for _, client := range h.clients {
				if client.Teams[msg.TeamID] {
					select {
					case client.Send <- data:
					default:
						// Client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) SubscribeToTeam(clientID string, teamID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		client.Teams[teamID] = true
	}
}

func (h *Hub) UnsubscribeFromTeam(clientID string, teamID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		delete(client.Teams, teamID)
	}
}

func (h *Hub) BroadcastFineCreated(teamID, fineID, offenderID, issuerID uuid.UUID, label string, amount float64) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: models.ActivityFineCreated,
			Data: FineCreatedEvent{
				FineID:     fineID,
				TeamID:     teamID,
				OffenderID: offenderID,
				IssuerID:   issuerID,
				Label:      label,
				Amount:     amount,
			},
		},
	}
}

// BroadcastFinesCreated announces a batch issuance as a single event so
// clients are not flooded with one message per offender.
func (h *Hub) BroadcastFinesCreated(teamID, issuerID uuid.UUID, fineIDs []uuid.UUID) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: "fines_created",
			Data: FinesCreatedEvent{
				TeamID:   teamID,
				IssuerID: issuerID,
				FineIDs:  fineIDs,
			},
		},
	}
}

func (h *Hub) BroadcastFineDeleted(teamID, fineID, deletedBy uuid.UUID) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: models.ActivityFineDeleted,
			Data: FineDeletedEvent{
				FineID:    fineID,
				TeamID:    teamID,
				DeletedBy: deletedBy,
			},
		},
	}
}

func (h *Hub) BroadcastPaymentRecorded(teamID, payerID uuid.UUID, amount float64, finesSettled int, creditAdded float64) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: models.ActivityPaymentRecorded,
			Data: PaymentRecordedEvent{
				TeamID:       teamID,
				PayerID:      payerID,
				Amount:       amount,
				FinesSettled: finesSettled,
				CreditAdded:  creditAdded,
			},
		},
	}
}

func (h *Hub) BroadcastDisputeOpened(teamID, disputeID, fineID, disputerID uuid.UUID) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: models.ActivityDisputeOpened,
			Data: DisputeOpenedEvent{
				DisputeID:  disputeID,
				FineID:     fineID,
				TeamID:     teamID,
				DisputerID: disputerID,
			},
		},
	}
}

func (h *Hub) BroadcastDisputeVoteCast(teamID, disputeID uuid.UUID, votesCount, votesRequired int, status string) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: models.ActivityDisputeVoteCast,
			Data: DisputeVoteCastEvent{
				DisputeID:     disputeID,
				TeamID:        teamID,
				VotesCount:    votesCount,
				VotesRequired: votesRequired,
				Status:        status,
			},
		},
	}
}

func (h *Hub) BroadcastDisputeResolved(teamID, disputeID, fineID uuid.UUID, status string) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: models.ActivityDisputeResolved,
			Data: DisputeResolvedEvent{
				DisputeID: disputeID,
				FineID:    fineID,
				TeamID:    teamID,
				Status:    status,
			},
		},
	}
}
