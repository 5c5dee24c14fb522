package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestService_AppendFillsDefaults(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return fixed }

	err := svc.LogDirectoryChange(context.Background(), "admin", "10.0.0.1", "conf-1", 1234, "user created")
	if err != nil {
		t.Fatalf("LogDirectoryChange: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Fatalf("expected generated id")
	}
	if !e.CreatedAt.Equal(fixed) {
		t.Fatalf("expected clock timestamp, got %v", e.CreatedAt)
	}
	if e.Type != EventTypeDirectoryChange || e.ActorUsername != "admin" || e.PIN != 1234 {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestService_RejectsMissingType(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_LogConferenceControl(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogConferenceControl(context.Background(), "admin", "10.0.0.1", "conf-1", "call-1", "kick"); err != nil {
		t.Fatalf("LogConferenceControl: %v", err)
	}
	events := repo.Events()
	if len(events) != 1 || events[0].Type != EventTypeConferenceControl || events[0].CallID != "call-1" {
		t.Fatalf("unexpected events %+v", events)
	}
}
