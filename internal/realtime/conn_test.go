package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseRunsDisconnectWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	conn := s.Connect("c1")

	path := "rooms/r/online/u1"
	require.NoError(t, conn.Announce(ctx, path, Value{"isOnline": true}, Value{"isOnline": false}))
	assert.True(t, s.Guarded(path))

	v, _, _ := s.Get(ctx, path)
	assert.Equal(t, true, v["isOnline"])

	conn.Close(ctx)
	v, _, _ = s.Get(ctx, path)
	assert.Equal(t, false, v["isOnline"])
	assert.False(t, s.Guarded(path))

	// closing twice is harmless
	conn.Close(ctx)
}

func TestCancelOnDisconnect(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	conn := s.Connect("c1")

	path := "rooms/r/typing/u1"
	require.NoError(t, s.Set(ctx, path, Value{"isTyping": true}))
	require.NoError(t, conn.OnDisconnect(path, Value{"isTyping": false}))
	conn.CancelOnDisconnect(path)
	conn.Close(ctx)

	v, _, _ := s.Get(ctx, path)
	assert.Equal(t, true, v["isTyping"])
}

func TestConnSubscriptionsEndOnClose(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	conn := s.Connect("c1")

	rec := newRecorder()
	require.NoError(t, conn.Subscribe(ctx, "m", "rooms/r/messages", rec.fn))
	rec.waitFor(t, hasLen(0))
	conn.Close(ctx)

	assert.Error(t, conn.Subscribe(ctx, "m2", "rooms/r/messages", rec.fn))
	assert.Error(t, conn.OnDisconnect("rooms/r/online/u1", Value{}))
}

func TestSharedGuardSurvivesOneConnection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a, b := s.Connect("a"), s.Connect("b")
	path := "rooms/r/online/u1"

	require.NoError(t, a.OnDisconnect(path, Value{"isOnline": false}))
	require.NoError(t, b.OnDisconnect(path, Value{"isOnline": false}))
	a.Close(ctx)
	assert.True(t, s.Guarded(path))
	b.Close(ctx)
	assert.False(t, s.Guarded(path))
}
