// Package presence reconciles the live-call registry with the video room
// service: phone participants are mirrored into the room only while a
// bridge leg is present in their conference.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"dialin-bridge/internal/directory"
	"dialin-bridge/internal/registry"
	"dialin-bridge/internal/rooms"
	"dialin-bridge/internal/stats"
	"dialin-bridge/pkg/logger"
)

// Reconciler decides which room notifications must fire on each join and
// leave, and dispatches them as background tasks.
//
// Callers must invoke OnJoin/OnLeave inside the per-conference serial lane:
// the decision reads (HasActiveBridge, ListByConference) and the event's own
// registry mutation have to be observed as one consistent sequence, or two
// near-simultaneous joins can both conclude "no bridge yet" and a
// participant is never mirrored. The notification HTTP calls themselves run
// outside the lane and never block the telephony control response.
type Reconciler struct {
	conferences directory.ConferenceStore
	registry    registry.Registry
	notifier    rooms.Notifier
	log         *slog.Logger
	monitor     *stats.Monitor

	sem chan struct{}
	wg  sync.WaitGroup
}

type Option func(*Reconciler)

// WithMonitor wires notification outcome metrics.
func WithMonitor(m *stats.Monitor) Option {
	return func(r *Reconciler) { r.monitor = m }
}

// WithMaxInFlight bounds concurrent notification calls.
func WithMaxInFlight(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.sem = make(chan struct{}, n)
		}
	}
}

const defaultMaxInFlight = 16

func NewReconciler(conferences directory.ConferenceStore, reg registry.Registry, notifier rooms.Notifier, log *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		conferences: conferences,
		registry:    reg,
		notifier:    notifier,
		log:         log,
		sem:         make(chan struct{}, defaultMaxInFlight),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// OnJoin runs after newCall has been durably added to the registry.
//
// If the joining call is the bridge leg, the room service is caught up on
// every phone participant that joined before the bridge existed. An
// ordinary phone leg is announced only when a bridge is already active.
func (r *Reconciler) OnJoin(ctx context.Context, newCall registry.LiveCall) error {
	roomID, ok, err := r.roomFor(ctx, newCall.ConferenceID)
	if err != nil || !ok {
		return err
	}

	if newCall.IsBridge {
		others, err := r.registry.ListByConference(ctx, newCall.ConferenceID, true)
		if err != nil {
			return err
		}
		for _, call := range others {
			if call.NotifiedRoom {
				// Room already knows; replayed bridge joins must
				// not double-announce.
				continue
			}
			r.dispatchJoined(roomID, call)
		}
		return nil
	}

	active, err := r.registry.HasActiveBridge(ctx, newCall.ConferenceID)
	if err != nil {
		return err
	}
	if active && !newCall.NotifiedRoom {
		r.dispatchJoined(roomID, newCall)
	}
	return nil
}

// OnLeave runs before leavingCall is removed from the registry, so the
// pre-leave snapshot (including the leaving call's own bridge status) is
// still visible.
//
// A departing bridge leg means the mirror is now unsupervised: the room
// service is told to drop every remaining phone participant.
func (r *Reconciler) OnLeave(ctx context.Context, leavingCall registry.LiveCall) error {
	roomID, ok, err := r.roomFor(ctx, leavingCall.ConferenceID)
	if err != nil || !ok {
		return err
	}

	if leavingCall.IsBridge {
		others, err := r.registry.ListByConference(ctx, leavingCall.ConferenceID, true)
		if err != nil {
			return err
		}
		for _, call := range others {
			if call.CallID == leavingCall.CallID {
				continue
			}
			r.dispatchLeft(roomID, call.CallID, leavingCall.ConferenceID, true)
		}
		return nil
	}

	// The bridge, if any, is still live here: disconnects are processed
	// one event at a time within the conference lane.
	active, err := r.registry.HasActiveBridge(ctx, leavingCall.ConferenceID)
	if err != nil {
		return err
	}
	if active {
		r.dispatchLeft(roomID, leavingCall.CallID, leavingCall.ConferenceID, false)
	}
	return nil
}

// Wait blocks until all in-flight notifications have completed. Used by
// tests and shutdown.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Close drains in-flight notifications, honoring ctx.
func (r *Reconciler) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// roomFor reports the conference's room id and whether mirroring is enabled.
func (r *Reconciler) roomFor(ctx context.Context, conferenceID string) (string, bool, error) {
	conf, err := r.conferences.GetConference(ctx, conferenceID)
	if errors.Is(err, directory.ErrNotFound) {
		// A live call for an unknown conference means the conference was
		// deleted mid-call; nothing to mirror.
		r.log.Warn("conference missing during reconciliation", "conference_id", conferenceID)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return conf.RoomID, conf.RoomID != "", nil
}

// dispatchJoined announces one participant in the background. Each
// notification is independent: a failure is logged and counted, never
// retried automatically, and never propagated to the caller flow.
func (r *Reconciler) dispatchJoined(roomID string, call registry.LiveCall) {
	log := logger.WithCall(r.log, call.CallID, call.ConferenceID).With("room_id", roomID)
	r.spawn(func() {
		err := r.notifier.NotifyJoined(context.Background(), roomID, rooms.Participant{
			CallID:       call.CallID,
			CallerNumber: call.CallerNumber,
			Name:         call.DisplayName,
			ExternalID:   call.ExternalID,
		})
		r.monitor.NotificationSent("joined", err)
		if err != nil {
			log.Error("room joined-notification failed", "err", err)
			return
		}
		log.Info("room joined-notification sent")
		if err := r.registry.MarkNotified(context.Background(), call.CallID, true); err != nil && !errors.Is(err, registry.ErrNotFound) {
			log.Error("marking call notified failed", "err", err)
		}
	})
}

func (r *Reconciler) dispatchLeft(roomID, callID, conferenceID string, clearNotified bool) {
	log := logger.WithCall(r.log, callID, conferenceID).With("room_id", roomID)
	r.spawn(func() {
		err := r.notifier.NotifyLeft(context.Background(), roomID, callID)
		r.monitor.NotificationSent("left", err)
		if err != nil {
			log.Error("room left-notification failed", "err", err)
			return
		}
		log.Info("room left-notification sent")
		if !clearNotified {
			return
		}
		// The participant stays live after a bridge departure; clearing
		// the flag lets a future bridge re-announce them.
		if err := r.registry.MarkNotified(context.Background(), callID, false); err != nil && !errors.Is(err, registry.ErrNotFound) {
			log.Error("clearing call notified flag failed", "err", err)
		}
	})
}

func (r *Reconciler) spawn(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		fn()
	}()
}
