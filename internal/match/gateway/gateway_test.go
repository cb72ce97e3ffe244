package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jimmy058910/realmrivalry-live/internal/match/outbox"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeToPushMessage(t *testing.T) {
	matchID := uuid.New()
	snap := models.MatchSnapshot{MatchID: matchID, Status: models.MatchStatusLive, HomeScore: 1}
	snapBytes, err := json.Marshal(snap)
	require.NoError(t, err)

	ev := models.MatchEvent{ID: uuid.New(), MatchID: matchID, TimeSec: 45, Description: "goal"}
	evBytes, err := json.Marshal(ev)
	require.NoError(t, err)

	tests := []struct {
		name      string
		eventType string
		payload   []byte
		wantType  models.PushMessageType
		wantErr   bool
	}{
		{name: "update carries snapshot", eventType: outbox.EventTypeMatchUpdate, payload: snapBytes, wantType: models.PushTypeUpdate},
		{name: "completed carries final snapshot", eventType: outbox.EventTypeMatchCompleted, payload: snapBytes, wantType: models.PushTypeComplete},
		{name: "event carries occurrence", eventType: outbox.EventTypeMatchEvent, payload: evBytes, wantType: models.PushTypeEvent},
		{name: "unknown type rejected", eventType: "Mystery", payload: snapBytes, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := toPushMessage(&outbox.Envelope{
				EventID:   uuid.NewString(),
				EventType: tt.eventType,
				MatchID:   matchID.String(),
				Timestamp: time.Now(),
				Payload:   tt.payload,
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, msg.Type)
			assert.Equal(t, matchID.String(), msg.MatchID)

			switch tt.wantType {
			case models.PushTypeEvent:
				require.NotNil(t, msg.Event)
				assert.Equal(t, "goal", msg.Event.Description)
				assert.Nil(t, msg.Snapshot)
			default:
				require.NotNil(t, msg.Snapshot)
				assert.Equal(t, 1, msg.Snapshot.HomeScore)
				assert.Nil(t, msg.Event)
			}
		})
	}
}

func TestBroadcastReachesOnlyTheMatchSubscribers(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	matchA := uuid.New()
	matchB := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(r.URL.Query().Get("match_id"))
		require.NoError(t, err)
		require.NoError(t, cm.UpgradeConnection(w, r, "viewer", matchID))
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	dial := func(matchID uuid.UUID) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?match_id="+matchID.String(), nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	connA := dial(matchA)
	connB := dial(matchB)

	require.Eventually(t, func() bool {
		total, _ := cm.GetConnectionStats()
		return total == 2
	}, time.Second, time.Millisecond)

	cm.BroadcastToMatch(matchA, &models.PushMessage{
		Type:    models.PushTypeEvent,
		MatchID: matchA.String(),
		Event:   &models.MatchEvent{TimeSec: 45, Description: "Team A scores"},
	})

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := connA.ReadMessage()
	require.NoError(t, err)

	var msg models.PushMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, models.PushTypeEvent, msg.Type)
	assert.Equal(t, "Team A scores", msg.Event.Description)

	// The other match's subscriber must not see it.
	connB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "expected a read timeout on the unrelated subscription")
}

func TestConnectionStatsTrackPools(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	total, active := cm.GetConnectionStats()
	assert.Zero(t, total)
	assert.Zero(t, active)
}
