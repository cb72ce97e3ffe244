package livesync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubscriberConfig(serverURL string) SubscriberConfig {
	config := DefaultSubscriberConfig()
	config.URL = "ws" + strings.TrimPrefix(serverURL, "http")
	config.InitialBackoff = 10 * time.Millisecond
	config.MaxBackoff = 50 * time.Millisecond
	return config
}

func TestSubscriberDeliversDecodedMessages(t *testing.T) {
	matchID := uuid.New()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, matchID.String(), r.URL.Query().Get("match_id"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ev := testEvent(45, "Team A scores")
		data, _ := json.Marshal(eventMsg(ev))
		conn.WriteMessage(websocket.TextMessage, data)
		// Malformed frames must be absorbed without killing the stream.
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		data, _ = json.Marshal(updateMsg(models.MatchSnapshot{
			MatchID: matchID,
			Status:  models.MatchStatusLive,
		}))
		conn.WriteMessage(websocket.TextMessage, data)

		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	messages := make(chan *models.PushMessage, 16)
	statuses := make(chan ConnectionStatus, 16)
	sub := NewSubscriber(matchID, testSubscriberConfig(server.URL),
		func(m *models.PushMessage) { messages <- m },
		func(s ConnectionStatus) { statuses <- s },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	require.Equal(t, StatusConnecting, <-statuses)
	require.Equal(t, StatusConnected, <-statuses)

	first := <-messages
	require.Equal(t, models.PushTypeEvent, first.Type)
	assert.Equal(t, "Team A scores", first.Event.Description)

	second := <-messages
	require.Equal(t, models.PushTypeUpdate, second.Type)
	assert.Equal(t, models.MatchStatusLive, second.Snapshot.Status)
}

func TestSubscriberReconnectsAfterDisconnect(t *testing.T) {
	matchID := uuid.New()
	upgrader := websocket.Upgrader{}
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := connections.Add(1)
		if n == 1 {
			// Drop the first connection immediately to force a reconnect.
			conn.Close()
			return
		}
		defer conn.Close()
		data, _ := json.Marshal(eventMsg(testEvent(10, "after reconnect")))
		conn.WriteMessage(websocket.TextMessage, data)
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	messages := make(chan *models.PushMessage, 16)
	statuses := make(chan ConnectionStatus, 64)
	sub := NewSubscriber(matchID, testSubscriberConfig(server.URL),
		func(m *models.PushMessage) { messages <- m },
		func(s ConnectionStatus) { statuses <- s },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	select {
	case msg := <-messages:
		assert.Equal(t, "after reconnect", msg.Event.Description)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not recover from the dropped connection")
	}

	assert.GreaterOrEqual(t, connections.Load(), int32(2))

	// The status stream must have reported the drop before the recovery.
	deadline := time.After(2 * time.Second)
	for sawDisconnect := false; !sawDisconnect; {
		select {
		case s := <-statuses:
			sawDisconnect = s == StatusDisconnected
		case <-deadline:
			t.Fatal("no disconnect status observed")
		}
	}
}

func TestSubscriberStopsOnContextCancel(t *testing.T) {
	matchID := uuid.New()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	statuses := make(chan ConnectionStatus, 16)
	sub := NewSubscriber(matchID, testSubscriberConfig(server.URL),
		func(*models.PushMessage) {},
		func(s ConnectionStatus) { statuses <- s },
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sub.Run(ctx)
		close(done)
	}()

	require.Equal(t, StatusConnecting, <-statuses)
	require.Equal(t, StatusConnected, <-statuses)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop on context cancellation")
	}
}
