package ringing

import (
	"context"
	"testing"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "c1"); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "c1", "4512345678"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	n, ok, err := s.Get(ctx, "c1")
	if err != nil || !ok || n != "4512345678" {
		t.Fatalf("Get: %q ok=%v err=%v", n, ok, err)
	}

	// Replayed ICE overwrites the record.
	if err := s.Put(ctx, "c1", "4599999999"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	n, _, _ = s.Get(ctx, "c1")
	if n != "4599999999" {
		t.Fatalf("expected overwrite, got %q", n)
	}

	// A record with an empty caller number is still a record.
	if err := s.Put(ctx, "c2", ""); err != nil {
		t.Fatalf("Put empty: %v", err)
	}
	n, ok, _ = s.Get(ctx, "c2")
	if !ok || n != "" {
		t.Fatalf("expected empty record, got %q ok=%v", n, ok)
	}

	if err := s.Delete(ctx, "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "c1"); ok {
		t.Fatalf("expected record gone")
	}
	// Deleting a missing record is a no-op.
	if err := s.Delete(ctx, "c1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestMemoryStore_KeysDoNotInterfere(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, "c1", "111")
	_ = s.Put(ctx, "c2", "222")
	_ = s.Delete(ctx, "c1")

	n, ok, _ := s.Get(ctx, "c2")
	if !ok || n != "222" {
		t.Fatalf("unrelated record affected: %q ok=%v", n, ok)
	}
}
