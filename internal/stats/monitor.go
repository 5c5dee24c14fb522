// Package stats exposes Prometheus metrics for the bridge.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Monitor holds the bridge's metrics. A nil *Monitor is valid and records
// nothing, so wiring metrics stays optional in tests.
type Monitor struct {
	eventsTotal        *prometheus.CounterVec
	callsActive        prometheus.Gauge
	notificationsTotal *prometheus.CounterVec
}

func NewMonitor(reg prometheus.Registerer) (*Monitor, error) {
	m := &Monitor{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialin",
			Name:      "voice_events_total",
			Help:      "Telephony callback events received, by event type.",
		}, []string{"event"}),
		callsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dialin",
			Name:      "calls_active",
			Help:      "Currently connected conference calls.",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialin",
			Name:      "room_notifications_total",
			Help:      "Room service notifications issued, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	for _, c := range []prometheus.Collector{m.eventsTotal, m.callsActive, m.notificationsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Monitor) EventReceived(event string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(event).Inc()
}

func (m *Monitor) CallConnected() {
	if m == nil {
		return
	}
	m.callsActive.Inc()
}

func (m *Monitor) CallDisconnected() {
	if m == nil {
		return
	}
	m.callsActive.Dec()
}

func (m *Monitor) NotificationSent(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.notificationsTotal.WithLabelValues(kind, outcome).Inc()
}
