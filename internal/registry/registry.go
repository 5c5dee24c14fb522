// Package registry tracks currently-connected calls per conference.
//
// A LiveCall exists from the moment PIN entry succeeds until the disconnect
// event is processed. Ringing-but-unauthenticated legs never enter the
// registry; they live in the ringing store.
package registry

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateCall is returned by Add when the call id is already
	// registered. Callers treat it as non-fatal: the existing record wins.
	ErrDuplicateCall = errors.New("registry: duplicate call")

	ErrNotFound = errors.New("registry: call not found")
)

// LiveCall is one connected conference leg.
type LiveCall struct {
	CallID       string `json:"call_id"`
	ConferenceID string `json:"conference_id"`
	PIN          int    `json:"pin"`

	// IsBridge marks the SIP leg gatewaying the video room, copied from
	// the resolved user's role at join time.
	IsBridge bool `json:"is_bridge"`

	// CallerNumber is the inbound line identity captured at ring time,
	// empty when unavailable.
	CallerNumber string `json:"caller_number,omitempty"`

	// DisplayName and ExternalID are denormalized from the user row at
	// join time so presence notifications and listings need no join.
	DisplayName string `json:"display_name,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`

	JoinedAt time.Time `json:"joined_at"`

	// NotifiedRoom tracks whether the room service has been told about
	// this call, to suppress duplicate joined-notifications under replay.
	NotifiedRoom bool `json:"notified_room"`
}

// Registry is the durable set of live calls.
//
// Implementations must keep ListByConference ordered by join time (ties
// broken by call id) so reconciliation fan-out is deterministic.
type Registry interface {
	// Add fails with ErrDuplicateCall when the call id is present.
	Add(ctx context.Context, call LiveCall) error

	// Remove deletes the call and reports whether it was present.
	// A missing call is not an error.
	Remove(ctx context.Context, callID string) (bool, error)

	// Get fails with ErrNotFound when absent.
	Get(ctx context.Context, callID string) (LiveCall, error)

	// ListByConference returns the conference's live calls in join order,
	// optionally excluding bridge legs.
	ListByConference(ctx context.Context, conferenceID string, excludeBridge bool) ([]LiveCall, error)

	// HasActiveBridge reports whether any live call in the conference is
	// a bridge leg.
	HasActiveBridge(ctx context.Context, conferenceID string) (bool, error)

	// MarkNotified records whether the room service knows about the call.
	MarkNotified(ctx context.Context, callID string, notified bool) error

	// ListAll returns every live call across conferences, ordered by
	// conference id then join time. Used by the admin API.
	ListAll(ctx context.Context) ([]LiveCall, error)
}
