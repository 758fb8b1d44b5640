package healthshare

import "fmt"

// CauseNoLiveNodes is the cause reported when a read returns no node at all.
const CauseNoLiveNodes = "no live nodes"

// Summary is the aggregate view of a cluster read.
type Summary struct {
	// Status is the worst status among the nodes, RED for an empty cluster.
	Status Status `json:"status"`

	// Causes is set when the summary status is not derived from a node.
	Causes []string `json:"causes,omitempty"`

	// Counts is the number of nodes per status.
	Counts map[Status]int `json:"counts"`

	// Nodes are the nodes the summary was computed from.
	Nodes []NodeHealth `json:"nodes"`
}

// Summarize aggregates the result of SharedHealthState.ReadAll.
func Summarize(nodes []NodeHealth) Summary {
	s := Summary{
		Status: StatusGreen,
		Counts: make(map[Status]int, len(allStatuses)),
		Nodes:  nodes,
	}
	for _, st := range allStatuses {
		s.Counts[st] = 0
	}

	if len(nodes) == 0 {
		s.Status = StatusRed
		s.Causes = []string{CauseNoLiveNodes}
		s.Nodes = []NodeHealth{}
		return s
	}

	for _, n := range nodes {
		s.Counts[n.Status()]++
		s.Status = s.Status.Worse(n.Status())
	}
	return s
}

// String returns a one-line human-readable summary.
func (s Summary) String() string {
	return fmt.Sprintf("%s (%d nodes: %d green, %d yellow, %d red)",
		s.Status, len(s.Nodes), s.Counts[StatusGreen], s.Counts[StatusYellow], s.Counts[StatusRed])
}
