package outbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOutboxRepo struct {
	rows []struct {
		matchID   uuid.UUID
		eventType string
		payload   []byte
	}
}

func (r *memOutboxRepo) Insert(ctx context.Context, matchID uuid.UUID, eventType string, payload []byte) error {
	r.rows = append(r.rows, struct {
		matchID   uuid.UUID
		eventType string
		payload   []byte
	}{matchID, eventType, payload})
	return nil
}

func TestInsertTagsEventTypes(t *testing.T) {
	repo := &memOutboxRepo{}
	app := NewApp(repo)
	matchID := uuid.New()
	ctx := context.Background()

	require.NoError(t, app.InsertMatchUpdate(ctx, matchID, []byte(`{"status":"live"}`)))
	require.NoError(t, app.InsertMatchEvent(ctx, matchID, []byte(`{"description":"goal"}`)))
	require.NoError(t, app.InsertMatchCompleted(ctx, matchID, []byte(`{"status":"completed"}`)))

	require.Len(t, repo.rows, 3)
	assert.Equal(t, EventTypeMatchUpdate, repo.rows[0].eventType)
	assert.Equal(t, EventTypeMatchEvent, repo.rows[1].eventType)
	assert.Equal(t, EventTypeMatchCompleted, repo.rows[2].eventType)
}

func TestInsertRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "invalid json", payload: []byte(`{"unterminated`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memOutboxRepo{}
			app := NewApp(repo)

			err := app.InsertMatchEvent(context.Background(), uuid.New(), tt.payload)
			assert.Error(t, err)
			assert.Empty(t, repo.rows, "rejected payloads never reach the repository")
		})
	}
}
