package sse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.broadcast)
}

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  make(map[uuid.UUID]bool),
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)

	// Wait for registration to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, exists := hub.clients[client.ID]
	hub.mu.RUnlock()

	assert.True(t, exists)
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  make(map[uuid.UUID]bool),
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, exists := hub.clients[client.ID]
	hub.mu.RUnlock()

	assert.False(t, exists)
}

func TestHub_UnregisterClient_ClosesSendChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  make(map[uuid.UUID]bool),
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	// Send channel should be closed
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_SubscribeToTeam(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  make(map[uuid.UUID]bool),
		Send:   make(chan []byte, 256),
	}
	teamID := uuid.New()

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.SubscribeToTeam(client.ID, teamID)

	hub.mu.RLock()
	isSubscribed := client.Teams[teamID]
	hub.mu.RUnlock()

	assert.True(t, isSubscribed)
}

func TestHub_UnsubscribeFromTeam(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	teamID := uuid.New()
	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  map[uuid.UUID]bool{teamID: true},
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.UnsubscribeFromTeam(client.ID, teamID)

	hub.mu.RLock()
	isSubscribed := client.Teams[teamID]
	hub.mu.RUnlock()

	assert.False(t, isSubscribed)
}

func TestHub_BroadcastFineCreated_ToSubscribedClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	teamID := uuid.New()
	fineID := uuid.New()
	offenderID := uuid.New()
	issuerID := uuid.New()

	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  map[uuid.UUID]bool{teamID: true},
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastFineCreated(teamID, fineID, offenderID, issuerID, "Late to training", 5)

	select {
	case msg := <-client.Send:
		var event Event
		err := json.Unmarshal(msg, &event)
		require.NoError(t, err)

		assert.Equal(t, models.ActivityFineCreated, event.Type)

		// Verify event data
		dataBytes, _ := json.Marshal(event.Data)
		var fineEvent FineCreatedEvent
		err = json.Unmarshal(dataBytes, &fineEvent)
		require.NoError(t, err)

		assert.Equal(t, fineID, fineEvent.FineID)
		assert.Equal(t, teamID, fineEvent.TeamID)
		assert.Equal(t, offenderID, fineEvent.OffenderID)
		assert.Equal(t, issuerID, fineEvent.IssuerID)
		assert.Equal(t, "Late to training", fineEvent.Label)
		assert.Equal(t, 5.0, fineEvent.Amount)

	case <-time.After(100 * time.Millisecond):
		t.Fatal("did not receive message")
	}
}

func TestHub_BroadcastDisputeVoteCast_CarriesThresholdState(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	teamID := uuid.New()
	disputeID := uuid.New()

	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  map[uuid.UUID]bool{teamID: true},
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastDisputeVoteCast(teamID, disputeID, 1, 3, models.DisputeStatusPending)

	select {
	case msg := <-client.Send:
		var event Event
		err := json.Unmarshal(msg, &event)
		require.NoError(t, err)

		assert.Equal(t, models.ActivityDisputeVoteCast, event.Type)

		dataBytes, _ := json.Marshal(event.Data)
		var voteEvent DisputeVoteCastEvent
		err = json.Unmarshal(dataBytes, &voteEvent)
		require.NoError(t, err)

		assert.Equal(t, disputeID, voteEvent.DisputeID)
		assert.Equal(t, 1, voteEvent.VotesCount)
		assert.Equal(t, 3, voteEvent.VotesRequired)
		assert.Equal(t, models.DisputeStatusPending, voteEvent.Status)

	case <-time.After(100 * time.Millisecond):
		t.Fatal("did not receive message")
	}
}

func TestHub_BroadcastPaymentRecorded_NotToUnsubscribedClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	teamID := uuid.New()
	otherTeamID := uuid.New()

	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  map[uuid.UUID]bool{otherTeamID: true}, // Subscribed to different team
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastPaymentRecorded(teamID, uuid.New(), 25, 2, 5)

	select {
	case <-client.Send:
		t.Fatal("should not have received message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestHub_BroadcastFineCreated_ToMultipleClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	teamID := uuid.New()

	client1 := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  map[uuid.UUID]bool{teamID: true},
		Send:   make(chan []byte, 256),
	}
	client2 := &Client{
		ID:     "client-2",
		UserID: uuid.New(),
		Teams:  map[uuid.UUID]bool{teamID: true},
		Send:   make(chan []byte, 256),
	}
	client3 := &Client{
		ID:     "client-3",
		UserID: uuid.New(),
		Teams:  map[uuid.UUID]bool{uuid.New(): true}, // Different team
		Send:   make(chan []byte, 256),
	}

	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastFineCreated(teamID, uuid.New(), uuid.New(), uuid.New(), "Phone rang in meeting", 2.5)

	// Client 1 and 2 should receive, client 3 should not
	receivedCount := 0

	select {
	case <-client1.Send:
		receivedCount++
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case <-client2.Send:
		receivedCount++
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case <-client3.Send:
		t.Fatal("client3 should not receive message")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, 2, receivedCount)
}

func TestHub_Broadcast_FullBufferDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	teamID := uuid.New()

	// Create client with small buffer
	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  map[uuid.UUID]bool{teamID: true},
		Send:   make(chan []byte, 1), // Very small buffer
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	// Fill the buffer
	client.Send <- []byte("fill")

	// This should not panic - message should be dropped
	hub.BroadcastFineDeleted(teamID, uuid.New(), uuid.New())
	time.Sleep(10 * time.Millisecond)

	// Drain the buffer
	<-client.Send

	// Should not receive the dropped message
	select {
	case <-client.Send:
		t.Fatal("should not receive dropped message")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}

func TestHub_SubscribeToTeam_NonexistentClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	// Should not panic when client doesn't exist
	hub.SubscribeToTeam("nonexistent", uuid.New())
}

func TestHub_UnsubscribeFromTeam_NonexistentClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	// Should not panic when client doesn't exist
	hub.UnsubscribeFromTeam("nonexistent", uuid.New())
}

func TestHub_UnregisterNonexistentClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		ID:     "nonexistent",
		UserID: uuid.New(),
		Teams:  make(map[uuid.UUID]bool),
		Send:   make(chan []byte, 256),
	}

	// Should not panic
	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)
}

func TestHub_MultipleTeamSubscriptions(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	team1 := uuid.New()
	team2 := uuid.New()

	client := &Client{
		ID:     "client-1",
		UserID: uuid.New(),
		Teams:  make(map[uuid.UUID]bool),
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.SubscribeToTeam(client.ID, team1)
	hub.SubscribeToTeam(client.ID, team2)

	hub.mu.RLock()
	assert.True(t, client.Teams[team1])
	assert.True(t, client.Teams[team2])
	hub.mu.RUnlock()
}
