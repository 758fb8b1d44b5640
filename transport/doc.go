// Package transport provides healthshare.Transport implementations.
//
// NATS stores published health, membership and the cluster clock in
// JetStream key-value buckets and is what a deployed node uses:
//
//	nt, err := transport.NewNATS(transport.NATSConfig{
//	    ClusterID: "prod",
//	    NATSURLs:  []string{"nats://localhost:4222"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := nt.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer nt.Stop()
//
// MemoryHub is an in-process cluster with a controllable clock, for tests
// and single-process setups.
package transport
