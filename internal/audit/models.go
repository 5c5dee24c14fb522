package audit

import "time"

// Event is an immutable, append-only record of one admin API action.
//
// Invariants:
// - Events are never updated or deleted.
// - Capture is best-effort; admin flows must not block on audit failures.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	// ActorUsername is the authenticated admin identity behind the action.
	ActorUsername string `json:"actor_username,omitempty"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ip_address,omitempty"`

	// Target identifiers, depending on the event type.
	ConferenceID string `json:"conference_id,omitempty"`
	CallID       string `json:"call_id,omitempty"`
	PIN          int    `json:"pin,omitempty"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	// EventTypeDirectoryChange covers conference and user CRUD.
	EventTypeDirectoryChange EventType = "directory_change"
	// EventTypeConferenceControl covers mute/unmute/kick actions.
	EventTypeConferenceControl EventType = "conference_control"
)
