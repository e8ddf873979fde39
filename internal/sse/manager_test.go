package sse

import (
	"io"
	"testing"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/logger"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEManager(t *testing.T) {
	sseManager := NewSSEManager(logger.NewWithWriter(io.Discard))
	defer sseManager.Close()

	userID := "test_user_123"
	clientChannel := sseManager.AddClient(userID)
	assert.Equal(t, 1, sseManager.GetUserConnectionCount(userID))

	sseManager.BroadcastToUser(userID, "email_sent", map[string]string{"id": "email-1"})

	select {
	case msg := <-clientChannel:
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, "email_sent", event["type"])
		assert.Equal(t, "email-1", event["data"].(map[string]interface{})["id"])
		assert.NotZero(t, event["time"])
	case <-time.After(time.Second):
		t.Fatal("Did not receive message within timeout")
	}

	sseManager.RemoveClient(userID, clientChannel)
	assert.Equal(t, 0, sseManager.GetUserConnectionCount(userID))

	_, open := <-clientChannel
	assert.False(t, open)

	// Removing twice is harmless.
	sseManager.RemoveClient(userID, clientChannel)
}

func TestBroadcastOnlyReachesTargetUser(t *testing.T) {
	sseManager := NewSSEManager(logger.NewWithWriter(io.Discard))
	defer sseManager.Close()

	alice := sseManager.AddClient("alice")
	bob := sseManager.AddClient("bob")

	sseManager.BroadcastToUser("alice", "email_updated", nil)

	assert.Len(t, alice, 1)
	assert.Len(t, bob, 0)
}

func TestBroadcastDoesNotBlockOnSlowClient(t *testing.T) {
	sseManager := NewSSEManager(logger.NewWithWriter(io.Discard))
	defer sseManager.Close()

	ch := sseManager.AddClient("u")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			sseManager.BroadcastToUser("u", "email_updated", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked")
	}
	assert.Equal(t, cap(ch), len(ch))
}

func TestCloseEndsStreams(t *testing.T) {
	sseManager := NewSSEManager(logger.NewWithWriter(io.Discard))
	ch := sseManager.AddClient("u")

	sseManager.Close()
	_, open := <-ch
	assert.False(t, open)

	// A closed manager hands out closed channels and tolerates removal.
	late := sseManager.AddClient("u")
	_, open = <-late
	assert.False(t, open)
	sseManager.RemoveClient("u", ch)
}
