package stats

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMonitor_RecordsCounts(t *testing.T) {
	m, err := NewMonitor(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	m.EventReceived("ice")
	m.EventReceived("ice")
	m.EventReceived("pie")
	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("ice")); got != 2 {
		t.Fatalf("expected 2 ice events, got %v", got)
	}

	m.CallConnected()
	m.CallConnected()
	m.CallDisconnected()
	if got := testutil.ToFloat64(m.callsActive); got != 1 {
		t.Fatalf("expected 1 active call, got %v", got)
	}

	m.NotificationSent("joined", nil)
	m.NotificationSent("joined", errors.New("boom"))
	if got := testutil.ToFloat64(m.notificationsTotal.WithLabelValues("joined", "ok")); got != 1 {
		t.Fatalf("expected 1 ok notification, got %v", got)
	}
	if got := testutil.ToFloat64(m.notificationsTotal.WithLabelValues("joined", "error")); got != 1 {
		t.Fatalf("expected 1 failed notification, got %v", got)
	}
}

func TestMonitor_NilIsSafe(t *testing.T) {
	var m *Monitor
	m.EventReceived("ice")
	m.CallConnected()
	m.CallDisconnected()
	m.NotificationSent("left", nil)
}

func TestNewMonitor_RejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMonitor(reg); err != nil {
		t.Fatalf("first NewMonitor: %v", err)
	}
	if _, err := NewMonitor(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
