// Package probe builds a node's own health from a set of named checks.
//
// A Provider runs every registered check on each call to Get and folds the
// results into a healthshare.NodeHealth: the worst status wins and every
// non-green check contributes a cause. A Provider satisfies
// healthshare.NodeHealthProvider, so it plugs straight into Sharing.
//
// # Usage
//
//	details, _ := healthshare.NewNodeDetails(healthshare.NodeDetailsParams{
//	    Type:      healthshare.NodeTypeApplication,
//	    Name:      "web-1",
//	    Host:      "10.0.0.5",
//	    Port:      9000,
//	    StartedAt: time.Now().UnixMilli(),
//	})
//
//	p := probe.NewProvider(details)
//	p.Register("disk", probe.DiskUsage("/var/lib/app", 80, 95))
//	p.Register("memory", probe.MemoryUsage(85, 95))
//	p.Register("nats", probe.Connected("NATS", nt.Connected))
//
// Checks built on gopsutil read host statistics; a failure to read them is
// reported as RED rather than returned as an error.
package probe
