// Package rooms talks to the video room service about phone participants.
package rooms

import "context"

// Participant is the phone-participant identity shown to video-room viewers.
type Participant struct {
	CallID       string
	CallerNumber string
	Name         string
	ExternalID   string
}

// Notifier is the one-way adapter to the room service. Implementations own
// their retry/timeout policy; callers treat failures as log-and-continue.
type Notifier interface {
	NotifyJoined(ctx context.Context, roomID string, p Participant) error
	NotifyLeft(ctx context.Context, roomID, callID string) error
}
