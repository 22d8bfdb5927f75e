package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/codec"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

const room = "love-nest"

type update struct {
	path  string
	patch realtime.Value
}

// spyStore records every update a session issues.
type spyStore struct {
	*LocalStore

	mu         sync.Mutex
	updates    []update
	failPushes bool
}

func (s *spyStore) Update(ctx context.Context, path string, patch realtime.Value) error {
	s.mu.Lock()
	s.updates = append(s.updates, update{path: path, patch: patch})
	s.mu.Unlock()
	return s.LocalStore.Update(ctx, path, patch)
}

func (s *spyStore) Push(ctx context.Context, collection string, v realtime.Value) (string, error) {
	s.mu.Lock()
	fail := s.failPushes
	s.mu.Unlock()
	if fail {
		return "", errors.New("network down")
	}
	return s.LocalStore.Push(ctx, collection, v)
}

func (s *spyStore) count(path string, key string, val any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.updates {
		if u.path == path && u.patch[key] == val {
			n++
		}
	}
	return n
}

type harness struct {
	store *realtime.Store
	clock *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := realtime.NewStore(realtime.NewMemoryBackend(), zerolog.Nop())
	t.Cleanup(func() { _ = st.Close() })
	return &harness{store: st, clock: newFakeClock()}
}

func (h *harness) open(t *testing.T, user, passphrase string) (*Session, *spyStore) {
	t.Helper()
	spy := &spyStore{LocalStore: NewLocalStore(h.store.Connect(user))}
	s, err := NewSession(Options{
		Store:      spy,
		Auth:       NewStaticAuth(Identity{ID: user, DisplayName: user}),
		Codec:      codec.Base64{},
		Room:       room,
		Passphrase: passphrase,
		Clock:      h.clock,
		Log:        zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, spy
}

func waitView(t *testing.T, s *Session, ok func(View) bool) View {
	t.Helper()
	var v View
	require.Eventually(t, func() bool {
		v = s.View()
		return ok(v)
	}, 2*time.Second, 5*time.Millisecond)
	return v
}

func TestEndToEndPassphraseScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, _ := h.open(t, "A", "secret123")
	b, _ := h.open(t, "B", "secret123")
	c, _ := h.open(t, "C", "wrong")
	for _, s := range []*Session{a, b, c} {
		require.NoError(t, s.Connect(ctx))
		assert.Equal(t, Active, s.State())
	}

	require.NoError(t, a.Send(ctx, "Hello 💖"))

	vb := waitView(t, b, func(v View) bool { return len(v.Messages) == 1 })
	assert.Equal(t, "Hello 💖", vb.Messages[0].Plaintext)
	assert.Equal(t, "A", vb.Messages[0].SenderRef)
	assert.False(t, vb.Messages[0].Mine)

	vc := waitView(t, c, func(v View) bool { return len(v.Messages) == 1 })
	assert.Equal(t, codec.Placeholder, vc.Messages[0].Plaintext)
	assert.NotEqual(t, vc.Messages[0].RawPayload, vc.Messages[0].Plaintext)
	assert.True(t, vc.Messages[0].Unreadable)

	va := waitView(t, a, func(v View) bool { return len(v.Messages) == 1 })
	assert.True(t, va.Messages[0].Mine)
	assert.Equal(t, "Hello 💖", va.Messages[0].Plaintext)
}

func TestNeedsPassphraseBeforeActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s, _ := h.open(t, "A", "")

	require.NoError(t, s.Connect(ctx))
	assert.Equal(t, NeedsPassphrase, s.State())
	_, ok, _ := h.store.Get(ctx, refs.Online(room, "A"))
	assert.False(t, ok, "no presence before the room opens")

	assert.True(t, apperr.CodeOf(s.ProvidePassphrase(ctx, "a:b")) == apperr.CodeInvalidArgument)
	require.NoError(t, s.ProvidePassphrase(ctx, "secret123"))
	assert.Equal(t, Active, s.State())

	v, ok, _ := h.store.Get(ctx, refs.Online(room, "A"))
	require.True(t, ok)
	assert.Equal(t, true, v["isOnline"])
	assert.True(t, h.store.Guarded(refs.Online(room, "A")))
}

func TestConnectWithoutUser(t *testing.T) {
	h := newHarness(t)
	auth := NewStaticAuth(Identity{ID: "A"})
	require.NoError(t, auth.Logout(context.Background()))
	s, err := NewSession(Options{
		Store: NewLocalStore(h.store.Connect("x")),
		Auth:  auth,
		Room:  room,
		Log:   zerolog.Nop(),
	})
	require.NoError(t, err)
	defer s.Close(context.Background())

	assert.ErrorIs(t, s.Connect(context.Background()), apperr.ErrNotLoggedIn)
	assert.Equal(t, Disconnected, s.State())
}

func TestPartnerPresenceAndTyping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, _ := h.open(t, "A", "pw")
	b, _ := h.open(t, "B", "pw")
	require.NoError(t, a.Connect(ctx))
	waitView(t, a, func(v View) bool { return !v.Partner.PartnerOnline })

	require.NoError(t, b.Connect(ctx))
	waitView(t, a, func(v View) bool { return v.Partner.PartnerOnline })

	b.Typing(true)
	waitView(t, a, func(v View) bool { return v.Partner.PartnerTyping })
	b.Typing(false)
	waitView(t, a, func(v View) bool { return !v.Partner.PartnerTyping })

	require.NoError(t, b.Logout(ctx))
	waitView(t, a, func(v View) bool { return !v.Partner.PartnerOnline })
	assert.Equal(t, Disconnected, b.State())
}

func TestTypingExpiresAfterFiveSeconds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s, spy := h.open(t, "A", "pw")
	require.NoError(t, s.Connect(ctx))
	path := refs.Typing(room, "A")

	s.Typing(true)
	require.Eventually(t, func() bool { return spy.count(path, "isTyping", true) == 1 }, time.Second, 5*time.Millisecond)

	// more keystrokes renew the deadline without new writes
	s.Typing(true)
	s.View()
	h.clock.Advance(4 * time.Second)
	s.Typing(true)
	s.View()
	h.clock.Advance(4 * time.Second)
	s.View()
	assert.Zero(t, spy.count(path, "isTyping", false))

	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool { return spy.count(path, "isTyping", false) == 1 }, time.Second, 5*time.Millisecond)

	h.clock.Advance(time.Minute)
	s.View()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, spy.count(path, "isTyping", false))
	assert.Equal(t, 1, spy.count(path, "isTyping", true))
}

func TestReadReceiptsWrittenOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, _ := h.open(t, "A", "pw")
	b, spyB := h.open(t, "B", "pw")
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, b.Connect(ctx))

	require.NoError(t, a.Send(ctx, "one"))
	require.NoError(t, a.Send(ctx, "two"))

	va := waitView(t, a, func(v View) bool {
		return len(v.Messages) == 2 && v.Messages[0].Read && v.Messages[1].Read
	})
	for _, m := range va.Messages {
		assert.Equal(t, 1, spyB.count(refs.Message(room, m.ID), "read", true))
	}

	// B's own message is never marked by B
	require.NoError(t, b.Send(ctx, "three"))
	vb := waitView(t, b, func(v View) bool { return len(v.Messages) == 3 })
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, spyB.count(refs.Message(room, vb.Messages[2].ID), "read", true))
}

func TestWrongPassphraseReaderStillMarksRead(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, _ := h.open(t, "A", "secret123")
	c, spyC := h.open(t, "C", "wrong")
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, c.Connect(ctx))

	require.NoError(t, a.Send(ctx, "Hello 💖"))
	vc := waitView(t, c, func(v View) bool { return len(v.Messages) == 1 })
	require.True(t, vc.Messages[0].Unreadable)
	path := refs.Message(room, vc.Messages[0].ID)

	waitView(t, a, func(v View) bool { return len(v.Messages) == 1 && v.Messages[0].Read })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, spyC.count(path, "read", true))
}

func TestAbnormalDisconnectFlipsPresence(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, _ := h.open(t, "A", "pw")
	b, spyB := h.open(t, "B", "pw")
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, b.Connect(ctx))
	waitView(t, a, func(v View) bool { return v.Partner.PartnerOnline })

	// B's connection drops without the session cleaning up
	spyB.LocalStore.Close(ctx)
	waitView(t, a, func(v View) bool { return !v.Partner.PartnerOnline })
}

func TestDroppedStoreReconnectsOnFreshConnection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, _ := h.open(t, "A", "pw")
	b, spyB := h.open(t, "B", "pw")
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, b.Connect(ctx))
	require.NoError(t, a.Send(ctx, "before"))
	waitView(t, b, func(v View) bool { return len(v.Messages) == 1 })

	spyB.LocalStore.Close(ctx)
	v := waitView(t, b, func(v View) bool { return v.State == Reconnecting })
	assert.Len(t, v.Messages, 1, "messages stay visible while offline")
	select {
	case n := <-b.Notices():
		assert.Equal(t, NoticeError, n.Level)
		assert.Equal(t, "Connection lost. Reconnecting...", n.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no connection-lost notice")
	}

	// writes made while B is away arrive once it is back
	require.NoError(t, a.Send(ctx, "while you were gone"))
	fresh := NewLocalStore(h.store.Connect("B"))
	require.NoError(t, b.ReconnectWith(ctx, fresh))
	assert.Equal(t, Active, b.State())
	vb := waitView(t, b, func(v View) bool { return len(v.Messages) == 2 })
	assert.Equal(t, "while you were gone", vb.Messages[1].Plaintext)
	waitView(t, a, func(v View) bool { return v.Partner.PartnerOnline })

	// the new connection is watched too
	fresh.Close(ctx)
	waitView(t, b, func(v View) bool { return v.State == Reconnecting })
}

func TestReconnectWithIgnoredWhileActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, spy := h.open(t, "A", "pw")
	require.NoError(t, a.Connect(ctx))

	other := NewLocalStore(h.store.Connect("A"))
	defer other.Close(ctx)
	require.NoError(t, a.ReconnectWith(ctx, other))
	assert.Same(t, spy, a.st())
}

func TestNewSessionRejectsBadPassphrase(t *testing.T) {
	h := newHarness(t)
	_, err := NewSession(Options{
		Store:      NewLocalStore(h.store.Connect("A")),
		Auth:       NewStaticAuth(Identity{ID: "A"}),
		Room:       room,
		Passphrase: "a:b",
		Log:        zerolog.Nop(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestLogoutClearsPassphraseButKeepsMessages(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, _ := h.open(t, "A", "pw")
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, a.Send(ctx, "keep me"))
	waitView(t, a, func(v View) bool { return len(v.Messages) == 1 })

	require.NoError(t, a.Logout(ctx))
	v := a.View()
	assert.Equal(t, Disconnected, v.State)
	assert.Empty(t, v.Messages)

	es, err := h.store.List(ctx, refs.Messages(room))
	require.NoError(t, err)
	assert.Len(t, es, 1)

	online, _, _ := h.store.Get(ctx, refs.Online(room, "A"))
	assert.Equal(t, false, online["isOnline"])
	assert.False(t, h.store.Guarded(refs.Online(room, "A")))

	assert.ErrorIs(t, a.Send(ctx, "after logout"), apperr.ErrSessionInactive)
}

func TestSendFailureNotifies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, spy := h.open(t, "A", "pw")
	require.NoError(t, a.Connect(ctx))

	spy.mu.Lock()
	spy.failPushes = true
	spy.mu.Unlock()

	assert.ErrorIs(t, a.Send(ctx, "lost"), apperr.ErrSendFailed)
	select {
	case n := <-a.Notices():
		assert.Equal(t, NoticeError, n.Level)
		assert.Equal(t, apperr.Public(apperr.ErrSendFailed), n.Message)
	case <-time.After(time.Second):
		t.Fatal("no notice")
	}
	assert.ErrorIs(t, a.Send(ctx, "   "), apperr.InvalidArg("message is empty"))
}

func TestSubscribeFailureReconnecting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	conn := h.store.Connect("A")
	conn.Close(ctx) // every later subscribe or registration fails

	s, err := NewSession(Options{
		Store:      NewLocalStore(conn),
		Auth:       NewStaticAuth(Identity{ID: "A"}),
		Room:       room,
		Passphrase: "pw",
		Log:        zerolog.Nop(),
	})
	require.NoError(t, err)
	defer s.Close(ctx)

	assert.Error(t, s.Connect(ctx))
	assert.Equal(t, Reconnecting, s.State())
}

func TestSignOutElsewhereEndsSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	auth := NewStaticAuth(Identity{ID: "A"})
	s, err := NewSession(Options{
		Store:      NewLocalStore(h.store.Connect("A")),
		Auth:       auth,
		Room:       room,
		Passphrase: "pw",
		Log:        zerolog.Nop(),
	})
	require.NoError(t, err)
	defer s.Close(ctx)
	require.NoError(t, s.Connect(ctx))

	require.NoError(t, auth.Logout(ctx))
	waitView(t, s, func(v View) bool { return v.State == Disconnected })
}
