package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthshare "github.com/ozanturksever/go-healthshare"
	"github.com/ozanturksever/go-healthshare/testutil"
	"github.com/ozanturksever/go-healthshare/transport"
)

func TestNewNATS_InvalidConfig(t *testing.T) {
	_, err := transport.NewNATS(transport.NATSConfig{NATSURLs: []string{"nats://localhost:4222"}})
	assert.Error(t, err)
}

func TestNewNATS_AssignsMemberID(t *testing.T) {
	a, err := transport.NewNATS(transport.NATSConfig{ClusterID: "c", NATSURLs: []string{"nats://localhost:4222"}})
	require.NoError(t, err)
	b, err := transport.NewNATS(transport.NATSConfig{ClusterID: "c", NATSURLs: []string{"nats://localhost:4222"}})
	require.NoError(t, err)

	assert.NotEmpty(t, a.LocalMember())
	assert.NotEqual(t, a.LocalMember(), b.LocalMember())

	c, err := transport.NewNATS(transport.NATSConfig{ClusterID: "c", NATSURLs: []string{"nats://localhost:4222"}, MemberID: "node-7"})
	require.NoError(t, err)
	assert.Equal(t, healthshare.MemberID("node-7"), c.LocalMember())
}

func TestNATS_NotStarted(t *testing.T) {
	nt, err := transport.NewNATS(transport.NATSConfig{ClusterID: "c", NATSURLs: []string{"nats://localhost:4222"}})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = nt.ClusterTime(ctx)
	assert.ErrorIs(t, err, healthshare.ErrClusterInactive)
	_, err = nt.Members(ctx)
	assert.ErrorIs(t, err, healthshare.ErrClusterInactive)
	_, err = nt.HealthEntries(ctx)
	assert.ErrorIs(t, err, healthshare.ErrClusterInactive)
	assert.ErrorIs(t, nt.RemoveHealth(ctx, nt.LocalMember()), healthshare.ErrClusterInactive)
	assert.ErrorIs(t, nt.Stop(), healthshare.ErrNotStarted)
	assert.False(t, nt.Connected())
}

func TestNATS_StartTwice(t *testing.T) {
	ns := testutil.StartNATS(t)
	nt := testutil.StartTransport(t, ns.URL(), "twice", "node-1")

	assert.ErrorIs(t, nt.Start(context.Background()), healthshare.ErrAlreadyStarted)
	assert.True(t, nt.Connected())
}

func TestNATS_Membership(t *testing.T) {
	ns := testutil.StartNATS(t)
	ctx := context.Background()

	a := testutil.StartTransport(t, ns.URL(), "members", "node-1")
	b := testutil.StartTransport(t, ns.URL(), "members", "node-2")
	observer := testutil.StartObserver(t, ns.URL(), "members")

	members, err := observer.Members(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []healthshare.MemberID{"node-1", "node-2"}, members)

	require.NoError(t, b.Stop())

	members, err = a.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []healthshare.MemberID{"node-1"}, members)
}

func TestNATS_DuplicateMemberID(t *testing.T) {
	ns := testutil.StartNATS(t)
	testutil.StartTransport(t, ns.URL(), "dup", "node-1")

	nt, err := transport.NewNATS(transport.NATSConfig{
		ClusterID: "dup",
		NATSURLs:  []string{ns.URL()},
		MemberID:  "node-1",
	})
	require.NoError(t, err)

	err = nt.Start(context.Background())
	assert.ErrorIs(t, err, transport.ErrMemberAlreadyPresent)
	assert.False(t, nt.Connected())
}

func TestNATS_ClusterTime(t *testing.T) {
	ns := testutil.StartNATS(t)
	a := testutil.StartTransport(t, ns.URL(), "clock", "node-1")
	b := testutil.StartTransport(t, ns.URL(), "clock", "node-2")
	ctx := context.Background()

	before := time.Now().Add(-time.Second).UnixMilli()

	t1, err := a.ClusterTime(ctx)
	require.NoError(t, err)
	t2, err := b.ClusterTime(ctx)
	require.NoError(t, err)
	t3, err := a.ClusterTime(ctx)
	require.NoError(t, err)

	assert.Greater(t, t1, before)
	assert.GreaterOrEqual(t, t2, t1, "both members read the server clock")
	assert.GreaterOrEqual(t, t3, t1)
	assert.Less(t, t3, time.Now().Add(time.Second).UnixMilli())
}

func TestNATS_HealthEntries(t *testing.T) {
	ns := testutil.StartNATS(t)
	a := testutil.StartTransport(t, ns.URL(), "entries", "node-1")
	b := testutil.StartTransport(t, ns.URL(), "entries", "node-2")
	ctx := context.Background()

	entries, err := b.HealthEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entry := healthshare.TimestampedNodeHealth{NodeHealth: testHealth(t, "search-1"), Timestamp: 1234}
	require.NoError(t, a.PutHealth(ctx, a.LocalMember(), entry))

	entries, err = b.HealthEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries["node-1"]
	assert.Equal(t, int64(1234), got.Timestamp)
	assert.True(t, entry.NodeHealth.Equal(got.NodeHealth))

	require.NoError(t, a.RemoveHealth(ctx, a.LocalMember()))
	entries, err = b.HealthEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNATS_SkipsUndecodableEntries(t *testing.T) {
	ns := testutil.StartNATS(t)
	a := testutil.StartTransport(t, ns.URL(), "garbage", "node-1")
	ctx := context.Background()

	require.NoError(t, a.PutHealth(ctx, a.LocalMember(), healthshare.TimestampedNodeHealth{NodeHealth: testHealth(t, "ok"), Timestamp: 1}))

	nc := ns.Connect(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)
	kv, err := js.KeyValue(ctx, "garbage_health")
	require.NoError(t, err)
	_, err = kv.Put(ctx, "intruder", []byte(`{"nodeHealth":{"status":"PURPLE"}}`))
	require.NoError(t, err)

	entries, err := a.HealthEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, entries, healthshare.MemberID("node-1"))
}

func TestNATS_SharedStateRoundTrip(t *testing.T) {
	ns := testutil.StartNATS(t)
	a := testutil.StartTransport(t, ns.URL(), "roundtrip", "node-1")
	b := testutil.StartTransport(t, ns.URL(), "roundtrip", "node-2")
	ctx := context.Background()

	sa := healthshare.NewSharedHealthState(a)
	sb := healthshare.NewSharedHealthState(b)
	require.NoError(t, sa.WriteMine(ctx, testHealth(t, "search-1")))
	require.NoError(t, sb.WriteMine(ctx, testHealth(t, "search-2")))

	nodes, err := sa.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "search-1", nodes[0].Details().Name())
	assert.Equal(t, "search-2", nodes[1].Details().Name())

	// A member that leaves without clearing drops out through membership.
	require.NoError(t, b.Stop())
	nodes, err = sa.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "search-1", nodes[0].Details().Name())
}

func TestNATS_ServerDownIsTransient(t *testing.T) {
	ns := testutil.StartNATS(t)
	a := testutil.StartTransport(t, ns.URL(), "down", "node-1")

	ns.Stop()
	require.Eventually(t, func() bool { return !a.Connected() }, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := a.ClusterTime(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, healthshare.ErrClusterInactive)
}
