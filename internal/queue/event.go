// Package queue defines the activity messages exchanged over the broker and
// the consumer that turns them into the activity log.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActivityQueue is the durable queue movie mutations are published to.
const ActivityQueue = "movie.activity"

// ActivityEvent describes one successful write made through the API. It
// carries enough context for the log line so the consumer never has to
// query the database.
type ActivityEvent struct {
	Actor      string          `json:"actor"`
	UserID     uint64          `json:"user_id"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Entity     string          `json:"entity"`
	EntityID   uint64          `json:"entity_id"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Line renders the event as one activity log line without the trailing
// newline.
func (ev ActivityEvent) Line() string {
	payload := "{}"
	if len(ev.Payload) > 0 {
		payload = string(ev.Payload)
	}
	return fmt.Sprintf("[%s] %s - %s - %s - %s - %s",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Actor, ev.Method, ev.Path, ev.Summary, payload)
}
