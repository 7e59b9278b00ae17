package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastDeliversAndEvictsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	fast := &Client{send: make(chan []byte, 1)}
	// unbuffered with no reader, so the broadcast cannot hand it the message
	slow := &Client{send: make(chan []byte)}
	hub.register <- fast
	hub.register <- slow

	hub.Broadcast(NewEvent(EventMetricsUpdated, 7, "done"))

	var event Event
	require.NoError(t, json.Unmarshal(<-fast.send, &event))
	assert.Equal(t, EventMetricsUpdated, event.Type)
	assert.Equal(t, uint(7), event.MarathonID)
	assert.Equal(t, "done", event.Status)
	assert.NotZero(t, event.Timestamp)

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, stillThere := hub.clients[slow]
		return !stillThere
	}, time.Second, 10*time.Millisecond, "slow client should be dropped")

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Contains(t, hub.clients, fast)
}
