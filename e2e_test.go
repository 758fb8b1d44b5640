package healthshare_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthshare "github.com/ozanturksever/go-healthshare"
	"github.com/ozanturksever/go-healthshare/testutil"
)

func TestE2E_ClusterSeesAllNodes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	tc := testutil.StartCluster(t, testutil.ClusterConfig{Nodes: 3, ClusterID: "e2e-all"})

	nodes := tc.WaitForNodes(t, "node-1", 3, 10*time.Second)
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Details().Name())
		assert.Equal(t, healthshare.StatusGreen, n.Status())
	}
	assert.Equal(t, []string{"node-1", "node-2", "node-3"}, names)
}

func TestE2E_StoppedNodeDisappears(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	tc := testutil.StartCluster(t, testutil.ClusterConfig{Nodes: 2, ClusterID: "e2e-stop"})
	tc.WaitForNodes(t, "node-1", 2, 10*time.Second)

	tc.Kill("node-2")

	nodes := tc.WaitForNodes(t, "node-1", 1, 5*time.Second)
	assert.Equal(t, "node-1", nodes[0].Details().Name())
}

func TestE2E_ObserverReadsWithoutJoining(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	tc := testutil.StartCluster(t, testutil.ClusterConfig{Nodes: 2, ClusterID: "e2e-observer"})
	tc.WaitForNodes(t, "node-1", 2, 10*time.Second)

	observer := testutil.StartObserver(t, tc.NATS().URL(), "e2e-observer")
	state := healthshare.NewSharedHealthState(observer)

	nodes, err := state.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	members, err := observer.Members(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, members, observer.LocalMember())
}

func TestE2E_NATSOutageIsTransient(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	tc := testutil.StartCluster(t, testutil.ClusterConfig{Nodes: 1, ClusterID: "e2e-outage"})
	tc.WaitForNodes(t, "node-1", 1, 10*time.Second)
	node := tc.Node("node-1")

	tc.NATS().Stop()
	require.Eventually(t, func() bool { return !node.Transport.Connected() }, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := node.Sharing.SharedState().ReadAll(ctx)
	require.Error(t, err)
	assert.True(t, healthshare.IsTransient(err), "got %v", err)
}
