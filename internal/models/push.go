package models

import "time"

// PushMessageType tags messages on the per-match push channel.
type PushMessageType string

const (
	// PushTypeUpdate carries a full snapshot replace.
	PushTypeUpdate PushMessageType = "update"
	// PushTypeEvent carries a single incremental event.
	PushTypeEvent PushMessageType = "event"
	// PushTypeComplete carries the final snapshot and marks end-of-stream.
	PushTypeComplete PushMessageType = "complete"
)

// PushMessage is the wire format delivered to match subscribers. Exactly one
// of Snapshot or Event is set depending on Type; complete messages carry the
// final Snapshot.
type PushMessage struct {
	Type      PushMessageType `json:"type"`
	MatchID   string          `json:"match_id"`
	Timestamp time.Time       `json:"timestamp"`
	Snapshot  *MatchSnapshot  `json:"snapshot,omitempty"`
	Event     *MatchEvent     `json:"event,omitempty"`
}
