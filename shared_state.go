package healthshare

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// StaleWindow is how old, in cluster time, a published entry may be before
// ReadAll leaves it out.
const StaleWindow = 30 * time.Second

// SharedHealthState publishes the local node health into the cluster-wide
// store and reads back the health of every live node.
type SharedHealthState struct {
	transport Transport
	logger    *slog.Logger
	metrics   *Metrics
}

// NewSharedHealthState binds a SharedHealthState to t.
func NewSharedHealthState(t Transport, opts ...Option) *SharedHealthState {
	o := applyOptions(opts)
	return &SharedHealthState{
		transport: t,
		logger:    o.logger.With("component", "shared-health-state", "member", t.LocalMember()),
		metrics:   o.metrics,
	}
}

// WriteMine stores h under the local member identity, stamped with the
// current cluster time. It replaces whatever this node published before.
func (s *SharedHealthState) WriteMine(ctx context.Context, h NodeHealth) error {
	if h.IsZero() {
		return fmt.Errorf("%w: node health is required", ErrInvalidNodeHealth)
	}

	now, err := s.transport.ClusterTime(ctx)
	if err != nil {
		return fmt.Errorf("read cluster time: %w", err)
	}

	entry := TimestampedNodeHealth{NodeHealth: h, Timestamp: now}
	if err := s.transport.PutHealth(ctx, s.transport.LocalMember(), entry); err != nil {
		return fmt.Errorf("publish node health: %w", err)
	}

	s.metrics.SetLocalStatus(h.Status(), now)
	s.logger.Debug("published node health", "status", h.Status(), "timestamp", now)
	return nil
}

// ClearMine removes the entry published by the local member, if any.
func (s *SharedHealthState) ClearMine(ctx context.Context) error {
	if err := s.transport.RemoveHealth(ctx, s.transport.LocalMember()); err != nil {
		return fmt.Errorf("remove node health: %w", err)
	}
	s.logger.Debug("cleared node health")
	return nil
}

// ReadAll returns the health of every node that is a live member and has
// published within StaleWindow. Entries failing either condition are left
// out silently. The result holds no structural duplicates and is sorted by
// node name, host, port and status.
func (s *SharedHealthState) ReadAll(ctx context.Context) ([]NodeHealth, error) {
	now, err := s.transport.ClusterTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cluster time: %w", err)
	}
	staleBefore := now - StaleWindow.Milliseconds()

	entries, err := s.transport.HealthEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read health entries: %w", err)
	}

	members, err := s.transport.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cluster members: %w", err)
	}
	live := make(map[MemberID]struct{}, len(members))
	for _, m := range members {
		live[m] = struct{}{}
	}

	seen := make(map[string]struct{}, len(entries))
	result := make([]NodeHealth, 0, len(entries))
	var stale, gone int
	for id, entry := range entries {
		if !entry.freshAfter(staleBefore) {
			stale++
			s.logger.Debug("ignoring stale health entry", "entry_member", id, "timestamp", entry.Timestamp, "stale_before", staleBefore)
			continue
		}
		if _, ok := live[id]; !ok {
			gone++
			s.logger.Debug("ignoring health entry of non-member", "entry_member", id)
			continue
		}
		k := entry.NodeHealth.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, entry.NodeHealth)
	}

	slices.SortFunc(result, compareNodeHealth)

	s.metrics.AddDropped(DropStale, stale)
	s.metrics.AddDropped(DropNotMember, gone)
	s.metrics.SetClusterNodes(result)
	return result, nil
}

func compareNodeHealth(a, b NodeHealth) int {
	da, db := a.Details(), b.Details()
	return cmp.Or(
		cmp.Compare(da.Name(), db.Name()),
		cmp.Compare(da.Host(), db.Host()),
		cmp.Compare(da.Port(), db.Port()),
		cmp.Compare(a.Status().severity(), b.Status().severity()),
		cmp.Compare(a.key(), b.key()),
	)
}
