package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. It is
// append-only; no Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records admin API actions. Internal-only: these records are for
// operators, never exposed to dial-in users.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogDirectoryChange records a conference or user mutation.
func (s *Service) LogDirectoryChange(ctx context.Context, actor, ip, conferenceID string, pin int, message string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeDirectoryChange,
		ActorUsername: actor,
		IPAddress:     ip,
		ConferenceID:  conferenceID,
		PIN:           pin,
		Message:       message,
	})
}

// LogConferenceControl records a mute/unmute/kick against a live call.
func (s *Service) LogConferenceControl(ctx context.Context, actor, ip, conferenceID, callID, message string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeConferenceControl,
		ActorUsername: actor,
		IPAddress:     ip,
		ConferenceID:  conferenceID,
		CallID:        callID,
		Message:       message,
	})
}
