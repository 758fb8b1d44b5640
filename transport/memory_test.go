package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthshare "github.com/ozanturksever/go-healthshare"
	"github.com/ozanturksever/go-healthshare/transport"
)

func testHealth(t *testing.T, name string) healthshare.NodeHealth {
	t.Helper()
	d, err := healthshare.NewNodeDetails(healthshare.NodeDetailsParams{
		Type:      healthshare.NodeTypeSearch,
		Name:      name,
		Host:      "127.0.0.1",
		Port:      9200,
		StartedAt: 1_700_000_000_000,
	})
	require.NoError(t, err)
	h, err := healthshare.NewNodeHealth(healthshare.StatusGreen, d)
	require.NoError(t, err)
	return h
}

func TestMemory_Membership(t *testing.T) {
	hub := transport.NewMemoryHub()
	ctx := context.Background()

	a := hub.Join("a")
	hub.Join("c")
	hub.Join("b")
	assert.Equal(t, healthshare.MemberID("a"), a.LocalMember())

	members, err := a.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []healthshare.MemberID{"a", "b", "c"}, members)

	hub.Evict("b")
	members, err = a.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []healthshare.MemberID{"a", "c"}, members)
}

func TestMemory_Clock(t *testing.T) {
	hub := transport.NewMemoryHub()
	m := hub.Join("a")
	ctx := context.Background()

	before := time.Now().UnixMilli()
	now, err := m.ClusterTime(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, now, before, "unpinned clock follows wall time")

	hub.SetTime(5_000)
	now, err = m.ClusterTime(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, now, before, "the clock never goes backwards")

	hub.SetTime(before + 60_000)
	now, err = m.ClusterTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+60_000, now)

	hub.Advance(1500 * time.Millisecond)
	now, err = m.ClusterTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+61_500, now)
}

func TestMemory_HealthEntries(t *testing.T) {
	hub := transport.NewMemoryHub()
	a := hub.Join("a")
	b := hub.Join("b")
	ctx := context.Background()

	entry := healthshare.TimestampedNodeHealth{NodeHealth: testHealth(t, "search-1"), Timestamp: 42}
	require.NoError(t, a.PutHealth(ctx, "a", entry))

	entries, err := b.HealthEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries["a"]
	assert.Equal(t, int64(42), got.Timestamp)
	assert.True(t, entry.NodeHealth.Equal(got.NodeHealth))
	assert.True(t, hub.HasEntry("a"))

	require.NoError(t, a.RemoveHealth(ctx, "a"))
	require.NoError(t, a.RemoveHealth(ctx, "a"))
	entries, err = b.HealthEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemory_Leave(t *testing.T) {
	hub := transport.NewMemoryHub()
	a := hub.Join("a")
	b := hub.Join("b")
	ctx := context.Background()

	require.NoError(t, a.PutHealth(ctx, "a", healthshare.TimestampedNodeHealth{NodeHealth: testHealth(t, "s"), Timestamp: 1}))
	a.Leave()

	_, err := a.ClusterTime(ctx)
	assert.ErrorIs(t, err, healthshare.ErrMemberLeft)
	_, err = a.Members(ctx)
	assert.ErrorIs(t, err, healthshare.ErrMemberLeft)
	_, err = a.HealthEntries(ctx)
	assert.ErrorIs(t, err, healthshare.ErrMemberLeft)
	assert.ErrorIs(t, a.RemoveHealth(ctx, "a"), healthshare.ErrMemberLeft)

	members, err := b.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []healthshare.MemberID{"b"}, members)
	assert.True(t, hub.HasEntry("a"), "leaving does not remove the health entry")
}

func TestMemory_CancelledContext(t *testing.T) {
	hub := transport.NewMemoryHub()
	a := hub.Join("a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.ClusterTime(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, a.RemoveHealth(ctx, "a"), context.Canceled)
}
