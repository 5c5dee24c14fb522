package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sinch Voice callback event kinds.
//
// ICE fires when a call rings in, PIE when the caller finishes DTMF input,
// ACE when an outbound call is answered, DICE when a call disconnects.
const (
	EventIncomingCall = "ice"
	EventAnsweredCall = "ace"
	EventPinInput     = "pie"
	EventDisconnected = "dice"
)

var (
	ErrUnsupportedEvent = errors.New("voice: unsupported event type")
	ErrInvalidEvent     = errors.New("voice: invalid event payload")
)

// Event captures the subset of the Sinch Voice callback payload the bridge
// cares about. Provider-adapter-only; business logic never parses JSON.
type Event struct {
	Event  string `json:"event"`
	CallID string `json:"callid"`

	// CLI is the inbound caller line identity, present on ICE.
	CLI string `json:"cli,omitempty"`

	// MenuResult carries the collected DTMF digits, present on PIE.
	MenuResult *MenuResult `json:"menuResult,omitempty"`

	Timestamp string `json:"timestamp,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type MenuResult struct {
	MenuID string `json:"menuId,omitempty"`
	Type   string `json:"type,omitempty"`
	Value  string `json:"value,omitempty"`
}

// ParseEvent decodes a callback body. Unknown event kinds parse fine and
// are rejected at dispatch with ErrUnsupportedEvent.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	ev.Event = strings.ToLower(strings.TrimSpace(ev.Event))
	if ev.Event == "" {
		return Event{}, fmt.Errorf("%w: missing event kind", ErrInvalidEvent)
	}
	if ev.CallID == "" {
		return Event{}, fmt.Errorf("%w: missing callid", ErrInvalidEvent)
	}
	return ev, nil
}

// Digits returns the collected DTMF input, empty when absent.
func (e Event) Digits() string {
	if e.MenuResult == nil {
		return ""
	}
	return e.MenuResult.Value
}
