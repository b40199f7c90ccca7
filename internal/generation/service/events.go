package service

import "encoding/json"

// EventType names one entry of the per-turn event log.
type EventType string

const (
	EventProjectID EventType = "project_id"
	EventText      EventType = "text"
	EventCode      EventType = "code"
	EventDone      EventType = "done"
)

// Event is one entry of the append-only log a turn produces. Events are
// emitted in order: an optional project_id, text tokens, an optional code
// artifact, and always a final done.
type Event struct {
	Type    EventType
	ID      string
	Content string
}

// EmitFunc delivers one event to the caller. An error aborts the turn.
type EmitFunc func(Event) error

// MarshalJSON renders the wire shape: project_id carries "id", text and code
// carry "content" even when it is empty.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventProjectID:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			ID   string    `json:"id"`
		}{e.Type, e.ID})
	case EventText, EventCode:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Content string    `json:"content"`
		}{e.Type, e.Content})
	default:
		return json.Marshal(struct {
			Type EventType `json:"type"`
		}{e.Type})
	}
}

// TextOf returns the text chunks of a log in order, ready for splitter.Replay.
func TextOf(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Type == EventText {
			out = append(out, ev.Content)
		}
	}
	return out
}
