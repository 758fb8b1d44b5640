package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	healthshare "github.com/ozanturksever/go-healthshare"
	"github.com/ozanturksever/go-healthshare/transport"
)

// ClusterConfig configures a test cluster.
type ClusterConfig struct {
	Nodes           int
	ClusterID       string
	RefreshInterval time.Duration
}

// TestCluster runs several health-sharing nodes against one embedded NATS
// server.
type TestCluster struct {
	t     *testing.T
	nats  *NATSServer
	cfg   ClusterConfig
	nodes map[string]*TestNode
}

// TestNode is one member of a TestCluster.
type TestNode struct {
	Transport *transport.NATS
	Sharing   *healthshare.Sharing
	Details   healthshare.NodeDetails
}

// StartCluster starts a test cluster in which every node reports GREEN.
func StartCluster(t *testing.T, cfg ClusterConfig) *TestCluster {
	t.Helper()

	if cfg.Nodes < 1 {
		cfg.Nodes = 1
	}
	if cfg.ClusterID == "" {
		cfg.ClusterID = "test"
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 100 * time.Millisecond
	}

	tc := &TestCluster{
		t:     t,
		nats:  StartNATS(t),
		cfg:   cfg,
		nodes: make(map[string]*TestNode),
	}

	for i := 0; i < cfg.Nodes; i++ {
		tc.AddNode(fmt.Sprintf("node-%d", i+1))
	}

	t.Cleanup(tc.Stop)
	return tc
}

// NATS returns the embedded server.
func (tc *TestCluster) NATS() *NATSServer {
	return tc.nats
}

// AddNode starts a node with the given ID.
func (tc *TestCluster) AddNode(nodeID string) *TestNode {
	tc.t.Helper()

	nt := StartTransport(tc.t, tc.nats.URL(), tc.cfg.ClusterID, nodeID)

	details, err := healthshare.NewNodeDetails(healthshare.NodeDetailsParams{
		Type:      healthshare.NodeTypeApplication,
		Name:      nodeID,
		Host:      "127.0.0.1",
		Port:      9000 + len(tc.nodes),
		StartedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		tc.t.Fatalf("invalid details for %s: %v", nodeID, err)
	}
	health, err := healthshare.NewNodeHealth(healthshare.StatusGreen, details)
	if err != nil {
		tc.t.Fatalf("invalid health for %s: %v", nodeID, err)
	}

	provider := healthshare.ProviderFunc(func(context.Context) (healthshare.NodeHealth, error) {
		return health, nil
	})

	sharing, err := healthshare.NewSharing(nt, provider,
		healthshare.WithInitialDelay(0),
		healthshare.WithRefreshInterval(tc.cfg.RefreshInterval),
		healthshare.WithShutdownTimeout(time.Second),
	)
	if err != nil {
		tc.t.Fatalf("failed to create sharing for %s: %v", nodeID, err)
	}
	if err := sharing.Start(context.Background()); err != nil {
		tc.t.Fatalf("failed to start sharing for %s: %v", nodeID, err)
	}

	node := &TestNode{Transport: nt, Sharing: sharing, Details: details}
	tc.nodes[nodeID] = node
	return node
}

// Node returns the test node for the given node ID.
func (tc *TestCluster) Node(nodeID string) *TestNode {
	return tc.nodes[nodeID]
}

// Kill stops sharing on the node and disconnects it.
func (tc *TestCluster) Kill(nodeID string) {
	node, ok := tc.nodes[nodeID]
	if !ok {
		return
	}
	node.stop()
	delete(tc.nodes, nodeID)
}

// WaitForNodes waits until the given node reads exactly n healthy nodes.
func (tc *TestCluster) WaitForNodes(t *testing.T, nodeID string, n int, timeout time.Duration) []healthshare.NodeHealth {
	t.Helper()

	node := tc.nodes[nodeID]
	if node == nil {
		t.Fatalf("unknown node %s", nodeID)
	}

	var last []healthshare.NodeHealth
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		got, err := node.Sharing.SharedState().ReadAll(context.Background())
		if err == nil {
			last = got
			if len(got) == n {
				return got
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("node %s saw %d nodes, want %d", nodeID, len(last), n)
	return nil
}

// Stop stops all nodes.
func (tc *TestCluster) Stop() {
	for id, node := range tc.nodes {
		node.stop()
		delete(tc.nodes, id)
	}
}

func (n *TestNode) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n.Sharing.Stop(ctx)
	_ = n.Transport.Stop()
}

// StartTransport creates and starts a NATS transport that is stopped when
// the test ends.
func StartTransport(t *testing.T, url, clusterID, memberID string) *transport.NATS {
	t.Helper()
	return startTransport(t, transport.NATSConfig{
		ClusterID: clusterID,
		NATSURLs:  []string{url},
		MemberID:  memberID,
	})
}

// StartObserver creates and starts an observer transport.
func StartObserver(t *testing.T, url, clusterID string) *transport.NATS {
	t.Helper()
	return startTransport(t, transport.NATSConfig{
		ClusterID: clusterID,
		NATSURLs:  []string{url},
		Observer:  true,
	})
}

func startTransport(t *testing.T, cfg transport.NATSConfig) *transport.NATS {
	t.Helper()

	nt, err := transport.NewNATS(cfg)
	if err != nil {
		t.Fatalf("failed to create transport: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := nt.Start(ctx); err != nil {
		t.Fatalf("failed to start transport: %v", err)
	}

	t.Cleanup(func() {
		_ = nt.Stop()
	})
	return nt
}
