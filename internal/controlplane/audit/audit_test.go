package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	log, err := Open("")
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	require.NoError(t, log.Record(ctx, Event{Kind: EventLoginSuccess, SessionKey: "a:1", InitiatorIQN: "iqn.initiator:a"}))
	require.NoError(t, log.Record(ctx, Event{Kind: EventLoginFailure, SessionKey: "b:2", Reason: "auth_failed"}))
	require.NoError(t, log.Record(ctx, Event{Kind: EventLogout, SessionKey: "a:1", Reason: "session_closed"}))

	all, err := log.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := log.Recent(ctx, "a:1", 10)
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
	for _, ev := range filtered {
		assert.Equal(t, "a:1", ev.SessionKey)
	}
}

func TestRecentOrderingIsReverseChronological(t *testing.T) {
	log, err := Open("")
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Record(ctx, Event{Kind: EventConnectionClosed, Reason: string(rune('a' + i))}))
		time.Sleep(time.Millisecond)
	}

	events, err := log.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[0].Reason)
	assert.Equal(t, "a", events[2].Reason)
}

func TestRecentRespectsLimit(t *testing.T) {
	log, err := Open("")
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Record(ctx, Event{Kind: EventChannelOffline}))
	}

	events, err := log.Recent(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
