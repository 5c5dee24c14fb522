package voice

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"dialin-bridge/internal/directory"
	"dialin-bridge/internal/presence"
	"dialin-bridge/internal/registry"
	"dialin-bridge/internal/ringing"
	"dialin-bridge/internal/stats"
	"dialin-bridge/pkg/logger"
	"dialin-bridge/pkg/utils"
)

// Fixed prompt parameters. Callers can retry the PIN indefinitely; capping
// attempts is the vendor's decision, not ours.
const (
	welcomePrompt       = "Welcome to the conference. Please enter your PIN followed by hash sign."
	retryPrompt         = "Unrecognised PIN. Please enter your PIN followed by hash sign."
	connectAnnouncement = "Thank you. We will now connect you to the conference."
	apologyAnnouncement = "We are sorry, something went wrong. Please try again later."

	pinMaxDigits       = 6
	pinTerminatorDigit = "#"
	pinTimeoutMillis   = 30000

	holdMusic = "music3"
)

// StateMachine drives a call through ringing, PIN authentication,
// connection and disconnect. Per call the lifecycle is strictly
// ICE → PIE (repeated until a PIN matches) → DICE; the machine owns the
// ringing-record lifecycle, the registry owns the LiveCall lifecycle.
//
// All registry mutations and presence reconciliation for one conference
// run inside that conference's serial lane; see presence.Reconciler.
type StateMachine struct {
	users      directory.UserStore
	registry   registry.Registry
	ringing    ringing.Store
	reconciler *presence.Reconciler

	lanes   *utils.KeyedMutex
	monitor *stats.Monitor
	clock   func() time.Time
}

func NewStateMachine(users directory.UserStore, reg registry.Registry, ring ringing.Store, rec *presence.Reconciler, monitor *stats.Monitor) *StateMachine {
	return &StateMachine{
		users:      users,
		registry:   reg,
		ringing:    ring,
		reconciler: rec,
		lanes:      utils.NewKeyedMutex(),
		monitor:    monitor,
		clock:      time.Now,
	}
}

func pinPrompt(message string) Prompt {
	return Prompt{
		Message:         message,
		MaxDigits:       pinMaxDigits,
		TerminatorDigit: pinTerminatorDigit,
		TimeoutMillis:   pinTimeoutMillis,
	}
}

// OnIncomingCall records the ringing leg and asks the vendor to collect a
// PIN. Safe to replay: a second ICE for the same call overwrites the record.
func (m *StateMachine) OnIncomingCall(ctx context.Context, callID, callerNumber string) (Response, error) {
	if err := m.ringing.Put(ctx, callID, callerNumber); err != nil {
		return nil, err
	}
	logger.WithCall(logger.From(ctx), callID, "").Info("incoming call, prompting for pin", "caller_number", callerNumber)
	return pinPrompt(welcomePrompt), nil
}

// OnPinEntered authenticates the collected digits and, on success, persists
// the LiveCall and reconciles room presence. Every path returns a valid
// control response: an unassigned PIN re-prompts, and any internal failure
// becomes an apology-and-hangup rather than leaving the caller hanging.
func (m *StateMachine) OnPinEntered(ctx context.Context, callID, rawDigits string) Response {
	log := logger.WithCall(logger.From(ctx), callID, "")

	pin, ok := parsePin(rawDigits)
	if !ok {
		log.Info("pin input not numeric, re-prompting")
		return pinPrompt(retryPrompt)
	}

	user, err := m.users.ByPin(ctx, pin)
	if errors.Is(err, directory.ErrNotFound) {
		log.Info("unassigned pin, re-prompting")
		return pinPrompt(retryPrompt)
	}
	if err != nil {
		log.Error("pin lookup failed", "err", err)
		return Hangup{Announcement: apologyAnnouncement}
	}

	log = logger.WithCall(logger.From(ctx), callID, user.ConferenceID)

	callerNumber, _, err := m.ringing.Get(ctx, callID)
	if err != nil {
		// The line identity is best-effort; the call can still join.
		log.Warn("ringing record lookup failed", "err", err)
		callerNumber = ""
	}

	call := registry.LiveCall{
		CallID:       callID,
		ConferenceID: user.ConferenceID,
		PIN:          user.PIN,
		IsBridge:     user.Role == directory.RoleBridge,
		CallerNumber: callerNumber,
		DisplayName:  user.DisplayName,
		ExternalID:   user.ExternalID,
		JoinedAt:     m.clock().UTC(),
	}

	m.lanes.Lock(user.ConferenceID)
	err = m.registry.Add(ctx, call)
	switch {
	case errors.Is(err, registry.ErrDuplicateCall):
		// Replayed PIE for an already-connected call; the existing
		// record wins and presence has been reconciled once already.
		log.Warn("call already registered, skipping reconciliation")
	case err != nil:
		m.lanes.Unlock(user.ConferenceID)
		log.Error("registering live call failed", "err", err)
		return Hangup{Announcement: apologyAnnouncement}
	default:
		m.monitor.CallConnected()
		// Reconciliation decisions happen here, inside the lane; the
		// notification calls themselves never delay this response.
		if err := m.reconciler.OnJoin(ctx, call); err != nil {
			log.Error("presence reconciliation on join failed", "err", err)
		}
	}
	m.lanes.Unlock(user.ConferenceID)

	if err := m.ringing.Delete(ctx, callID); err != nil {
		log.Warn("ringing record cleanup failed", "err", err)
	}

	log.Info("pin accepted, connecting", "pin", user.PIN, "is_bridge", call.IsBridge)
	return Connect{
		ConferenceID: user.ConferenceID,
		Announcement: connectAnnouncement,
		HoldMusic:    holdMusic,
	}
}

// OnDisconnected reconciles room presence from the pre-deletion snapshot,
// then drops the LiveCall and any leftover ringing record. A disconnect for
// an unknown call (never authenticated, or replayed) is a no-op.
func (m *StateMachine) OnDisconnected(ctx context.Context, callID string) (Response, error) {
	log := logger.WithCall(logger.From(ctx), callID, "")

	call, err := m.registry.Get(ctx, callID)
	if errors.Is(err, registry.ErrNotFound) {
		if err := m.ringing.Delete(ctx, callID); err != nil {
			log.Warn("ringing record cleanup failed", "err", err)
		}
		log.Info("disconnect for unregistered call, nothing to do")
		return Empty{}, nil
	}
	if err != nil {
		return nil, err
	}

	conferenceID := call.ConferenceID
	log = logger.WithCall(logger.From(ctx), callID, conferenceID)

	m.lanes.Lock(conferenceID)
	// Re-read inside the lane; a concurrent duplicate disconnect may have
	// already removed the call.
	call, err = m.registry.Get(ctx, callID)
	if err == nil {
		if recErr := m.reconciler.OnLeave(ctx, call); recErr != nil {
			log.Error("presence reconciliation on leave failed", "err", recErr)
		}
		removed, remErr := m.registry.Remove(ctx, callID)
		if remErr != nil {
			m.lanes.Unlock(conferenceID)
			return nil, remErr
		}
		if removed {
			m.monitor.CallDisconnected()
		}
	} else if !errors.Is(err, registry.ErrNotFound) {
		m.lanes.Unlock(conferenceID)
		return nil, err
	}
	m.lanes.Unlock(conferenceID)

	if err := m.ringing.Delete(ctx, callID); err != nil {
		log.Warn("ringing record cleanup failed", "err", err)
	}
	log.Info("call disconnected")
	return Empty{}, nil
}

// parsePin strips one trailing terminator digit and parses the rest as a
// positive integer.
func parsePin(rawDigits string) (int, bool) {
	digits := strings.TrimSpace(rawDigits)
	digits = strings.TrimSuffix(digits, pinTerminatorDigit)
	if digits == "" {
		return 0, false
	}
	pin, err := strconv.Atoi(digits)
	if err != nil || pin <= 0 {
		return 0, false
	}
	return pin, true
}
