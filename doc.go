// Package healthshare shares node health across a cluster.
//
// Every node periodically publishes a self-assessed [NodeHealth] into a
// store replicated by the cluster transport, keyed by its member identity.
// Any node can then read the health of all live nodes: entries older than
// [StaleWindow] in cluster time, or published by nodes that are no longer
// members, are left out of the view.
//
// # Quick Start
//
//	t, err := transport.NewNATS(transport.NATSConfig{
//	    ClusterID: "my-cluster",
//	    NATSURLs:  []string{"nats://localhost:4222"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
//	sharing, err := healthshare.NewSharing(t, provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sharing.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sharing.Stop(ctx)
//
//	nodes, err := sharing.SharedState().ReadAll(ctx)
//
// # Components
//
//   - [SharedHealthState]: WriteMine, ClearMine and ReadAll over a [Transport]
//   - [Refresher]: publishes what a [NodeHealthProvider] reports, 1s after
//     start and then 10s after each publication
//   - [Sharing]: owns the refresh [Scheduler] and the start/stop lifecycle
//   - [Summarize] and [HealthHandler]: the worst status across live nodes,
//     served as JSON with 503 when the cluster is RED
//
// Refresh failures never stop the schedule. Errors wrapping
// [ErrClusterInactive] or [ErrMemberLeft] are logged at debug level, any
// other error at error level.
//
// # Sub-packages
//
//   - transport: NATS JetStream and in-memory transports
//   - probe: a NodeHealthProvider built from disk, memory and custom checks
//   - testutil: embedded NATS server and transport helpers for tests
package healthshare
