package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dialin-bridge/internal/directory"
	"dialin-bridge/internal/registry"
	"dialin-bridge/internal/rooms"
)

type notification struct {
	kind         string
	roomID       string
	callID       string
	callerNumber string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification

	failJoined bool
	failLeft   bool
}

func (f *fakeNotifier) NotifyJoined(ctx context.Context, roomID string, p rooms.Participant) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failJoined {
		return errors.New("room service down")
	}
	f.sent = append(f.sent, notification{kind: "joined", roomID: roomID, callID: p.CallID, callerNumber: p.CallerNumber})
	return nil
}

func (f *fakeNotifier) NotifyLeft(ctx context.Context, roomID, callID string) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLeft {
		return errors.New("room service down")
	}
	f.sent = append(f.sent, notification{kind: "left", roomID: roomID, callID: callID})
	return nil
}

func (f *fakeNotifier) notifications() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notification, len(f.sent))
	copy(out, f.sent)
	return out
}

func phoneCall(callID, conferenceID string, joined time.Time) registry.LiveCall {
	return registry.LiveCall{
		CallID:       callID,
		ConferenceID: conferenceID,
		PIN:          1000,
		CallerNumber: "4512345678",
		JoinedAt:     joined,
	}
}

func bridgeCall(callID, conferenceID string, joined time.Time) registry.LiveCall {
	c := phoneCall(callID, conferenceID, joined)
	c.IsBridge = true
	return c
}

func newTestReconciler(t *testing.T) (*Reconciler, *registry.MemoryRegistry, *fakeNotifier) {
	t.Helper()

	store := directory.NewMemoryStore()
	require.NoError(t, store.CreateConference(context.Background(), directory.Conference{ConferenceID: "conf-1", RoomID: "room-1"}))
	require.NoError(t, store.CreateConference(context.Background(), directory.Conference{ConferenceID: "conf-noroom"}))

	reg := registry.NewMemoryRegistry()
	notifier := &fakeNotifier{}
	rec := NewReconciler(store, reg, notifier, nil)
	return rec, reg, notifier
}

func TestOnJoin_PhoneWithoutBridgeIsSilent(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	call := phoneCall("c1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, call))
	require.NoError(t, rec.OnJoin(ctx, call))
	rec.Wait()

	require.Empty(t, notifier.notifications())
}

func TestOnJoin_PhoneWithActiveBridgeIsAnnounced(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	bridge := bridgeCall("b1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, bridge))

	call := phoneCall("c1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, call))
	require.NoError(t, rec.OnJoin(ctx, call))
	rec.Wait()

	require.Equal(t, []notification{{kind: "joined", roomID: "room-1", callID: "c1", callerNumber: "4512345678"}}, notifier.notifications())

	got, err := reg.Get(ctx, "c1")
	require.NoError(t, err)
	require.True(t, got.NotifiedRoom)
}

func TestOnJoin_BridgeCatchesUpEarlierPhones(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	base := time.Now()
	first := phoneCall("c1", "conf-1", base)
	second := phoneCall("c2", "conf-1", base.Add(time.Second))
	require.NoError(t, reg.Add(ctx, first))
	require.NoError(t, reg.Add(ctx, second))

	bridge := bridgeCall("b1", "conf-1", base.Add(2*time.Second))
	require.NoError(t, reg.Add(ctx, bridge))
	require.NoError(t, rec.OnJoin(ctx, bridge))
	rec.Wait()

	got := notifier.notifications()
	require.Len(t, got, 2)
	seen := map[string]bool{}
	for _, n := range got {
		require.Equal(t, "joined", n.kind)
		require.Equal(t, "room-1", n.roomID)
		seen[n.callID] = true
	}
	require.True(t, seen["c1"])
	require.True(t, seen["c2"])
}

func TestOnJoin_BridgeSkipsAlreadyNotifiedPhones(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	call := phoneCall("c1", "conf-1", time.Now())
	call.NotifiedRoom = true
	require.NoError(t, reg.Add(ctx, call))

	bridge := bridgeCall("b1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, bridge))
	require.NoError(t, rec.OnJoin(ctx, bridge))
	rec.Wait()

	require.Empty(t, notifier.notifications())
}

func TestOnJoin_NoRoomConfiguredIsNoop(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	bridge := bridgeCall("b1", "conf-noroom", time.Now())
	require.NoError(t, reg.Add(ctx, bridge))
	call := phoneCall("c1", "conf-noroom", time.Now())
	require.NoError(t, reg.Add(ctx, call))
	require.NoError(t, rec.OnJoin(ctx, call))
	rec.Wait()

	require.Empty(t, notifier.notifications())
}

func TestOnJoin_UnknownConferenceIsNoop(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	call := phoneCall("c1", "conf-deleted", time.Now())
	require.NoError(t, reg.Add(ctx, call))
	require.NoError(t, rec.OnJoin(ctx, call))
	rec.Wait()

	require.Empty(t, notifier.notifications())
}

func TestOnLeave_PhoneWithBridgeSendsLeft(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	bridge := bridgeCall("b1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, bridge))
	call := phoneCall("c1", "conf-1", time.Now())
	call.NotifiedRoom = true
	require.NoError(t, reg.Add(ctx, call))

	require.NoError(t, rec.OnLeave(ctx, call))
	rec.Wait()

	require.Equal(t, []notification{{kind: "left", roomID: "room-1", callID: "c1"}}, notifier.notifications())
}

func TestOnLeave_PhoneWithoutBridgeIsSilent(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	call := phoneCall("c1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, call))
	require.NoError(t, rec.OnLeave(ctx, call))
	rec.Wait()

	require.Empty(t, notifier.notifications())
}

func TestOnLeave_BridgeTearsDownAllPhones(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	base := time.Now()
	first := phoneCall("c1", "conf-1", base)
	first.NotifiedRoom = true
	second := phoneCall("c2", "conf-1", base.Add(time.Second))
	second.NotifiedRoom = true
	bridge := bridgeCall("b1", "conf-1", base.Add(2*time.Second))
	require.NoError(t, reg.Add(ctx, first))
	require.NoError(t, reg.Add(ctx, second))
	require.NoError(t, reg.Add(ctx, bridge))

	require.NoError(t, rec.OnLeave(ctx, bridge))
	rec.Wait()

	got := notifier.notifications()
	require.Len(t, got, 2)
	for _, n := range got {
		require.Equal(t, "left", n.kind)
	}

	// The phones stay live; a future bridge must be able to re-announce them.
	for _, id := range []string{"c1", "c2"} {
		call, err := reg.Get(ctx, id)
		require.NoError(t, err)
		require.False(t, call.NotifiedRoom)
	}
}

func TestOnJoin_NotifierFailureLeavesCallUnnotified(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	notifier.failJoined = true
	ctx := context.Background()

	bridge := bridgeCall("b1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, bridge))
	call := phoneCall("c1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, call))

	require.NoError(t, rec.OnJoin(ctx, call))
	rec.Wait()

	got, err := reg.Get(ctx, "c1")
	require.NoError(t, err)
	require.False(t, got.NotifiedRoom)
}

// A bridge and a phone joining back-to-back: when the decisions run in
// sequence (as the per-conference lane guarantees), the phone is announced
// exactly once, either by the bridge catch-up or by its own join.
func TestJoinSequence_BridgeThenPhone_AnnouncesOnce(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	bridge := bridgeCall("b1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, bridge))
	require.NoError(t, rec.OnJoin(ctx, bridge))
	rec.Wait()

	call := phoneCall("c1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, call))
	require.NoError(t, rec.OnJoin(ctx, call))
	rec.Wait()

	joined := 0
	for _, n := range notifier.notifications() {
		if n.kind == "joined" && n.callID == "c1" {
			joined++
		}
	}
	require.Equal(t, 1, joined)
}

// Full lifecycle: a phone joins silently, the bridge arrives and catches the
// room up, the phone leaves and is dropped, the bridge leaves last with
// nobody else to tear down.
func TestLifecycle_PhoneThenBridgeThenDisconnects(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()
	base := time.Now()

	phone := phoneCall("call-a", "conf-1", base)
	phone.CallerNumber = "+15551234"
	require.NoError(t, reg.Add(ctx, phone))
	require.NoError(t, rec.OnJoin(ctx, phone))
	rec.Wait()
	require.Empty(t, notifier.notifications())

	bridge := bridgeCall("call-b", "conf-1", base.Add(time.Second))
	require.NoError(t, reg.Add(ctx, bridge))
	require.NoError(t, rec.OnJoin(ctx, bridge))
	rec.Wait()
	require.Equal(t, []notification{
		{kind: "joined", roomID: "room-1", callID: "call-a", callerNumber: "+15551234"},
	}, notifier.notifications())

	phone, err := reg.Get(ctx, "call-a")
	require.NoError(t, err)
	require.NoError(t, rec.OnLeave(ctx, phone))
	_, err = reg.Remove(ctx, "call-a")
	require.NoError(t, err)
	rec.Wait()
	require.Equal(t, []notification{
		{kind: "joined", roomID: "room-1", callID: "call-a", callerNumber: "+15551234"},
		{kind: "left", roomID: "room-1", callID: "call-a"},
	}, notifier.notifications())

	require.NoError(t, rec.OnLeave(ctx, bridge))
	_, err = reg.Remove(ctx, "call-b")
	require.NoError(t, err)
	rec.Wait()
	require.Len(t, notifier.notifications(), 2)
}

func TestClose_DrainsInFlightNotifications(t *testing.T) {
	rec, reg, notifier := newTestReconciler(t)
	ctx := context.Background()

	bridge := bridgeCall("b1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, bridge))
	call := phoneCall("c1", "conf-1", time.Now())
	require.NoError(t, reg.Add(ctx, call))
	require.NoError(t, rec.OnJoin(ctx, call))

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rec.Close(closeCtx))
	require.Len(t, notifier.notifications(), 1)
}
