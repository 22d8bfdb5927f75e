package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepResetsStalePresence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	old := now.Add(-10 * time.Minute).UnixMilli()
	fresh := now.Add(-10 * time.Second).UnixMilli()

	require.NoError(t, s.Set(ctx, "rooms/r/online/gone", Value{"isOnline": true, "timestamp": old}))
	require.NoError(t, s.Set(ctx, "rooms/r/online/recent", Value{"isOnline": true, "timestamp": fresh}))
	require.NoError(t, s.Set(ctx, "rooms/r/online/offline", Value{"isOnline": false, "timestamp": old}))
	require.NoError(t, s.Set(ctx, "rooms/r/typing/gone", Value{"isTyping": true, "timestamp": old}))

	live := s.Connect("live")
	defer live.Close(ctx)
	require.NoError(t, s.Set(ctx, "rooms/r/online/live", Value{"isOnline": true, "timestamp": old}))
	require.NoError(t, live.OnDisconnect("rooms/r/online/live", Value{"isOnline": false}))

	sw, err := NewSweeper(s, "* * * * *", 2*time.Minute, zerolog.Nop())
	require.NoError(t, err)
	sw.now = func() time.Time { return now }

	n, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, _, _ := s.Get(ctx, "rooms/r/online/gone")
	assert.Equal(t, false, v["isOnline"])
	v, _, _ = s.Get(ctx, "rooms/r/online/recent")
	assert.Equal(t, true, v["isOnline"])
	v, _, _ = s.Get(ctx, "rooms/r/online/live")
	assert.Equal(t, true, v["isOnline"])
	v, _, _ = s.Get(ctx, "rooms/r/typing/gone")
	assert.Equal(t, false, v["isTyping"])

	n, err = sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweeperRejectsBadCron(t *testing.T) {
	_, err := NewSweeper(newTestStore(t), "every minute", time.Minute, zerolog.Nop())
	assert.Error(t, err)
}

func TestSweepLeavesLiveTypingAlone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	old := now.Add(-10 * time.Minute).UnixMilli()

	// a long typing burst: stamped once when it started, owner still connected
	live := s.Connect("live")
	defer live.Close(ctx)
	require.NoError(t, live.OnDisconnect("rooms/r/typing/live", Value{"isTyping": false}))
	require.NoError(t, s.Set(ctx, "rooms/r/typing/live", Value{"isTyping": true, "timestamp": old}))

	sw, err := NewSweeper(s, "* * * * *", 2*time.Minute, zerolog.Nop())
	require.NoError(t, err)
	sw.now = func() time.Time { return now }

	n, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	v, _, _ := s.Get(ctx, "rooms/r/typing/live")
	assert.Equal(t, true, v["isTyping"])

	live.Close(ctx)
	v, _, _ = s.Get(ctx, "rooms/r/typing/live")
	assert.Equal(t, false, v["isTyping"])
}
