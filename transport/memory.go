package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	healthshare "github.com/ozanturksever/go-healthshare"
)

// MemoryHub is an in-process cluster: a shared health map, a membership set
// and a logical clock. Values are stored JSON-encoded, the same wire form
// the NATS transport uses. The clock follows wall time until SetTime or
// Advance pins it.
type MemoryHub struct {
	mu      sync.Mutex
	pinned  bool
	now     int64
	last    int64
	members map[healthshare.MemberID]struct{}
	entries map[healthshare.MemberID][]byte
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		members: make(map[healthshare.MemberID]struct{}),
		entries: make(map[healthshare.MemberID][]byte),
	}
}

// Join adds id to the membership set and returns its transport.
func (h *MemoryHub) Join(id healthshare.MemberID) *Memory {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[id] = struct{}{}
	return &Memory{hub: h, id: id}
}

// Evict removes id from the membership set without touching its health
// entry, as happens when a member crashes.
func (h *MemoryHub) Evict(id healthshare.MemberID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members, id)
}

// SetTime pins the clock to ms. The clock never goes backwards, so a value
// below the last reading takes effect only once time catches up.
func (h *MemoryHub) SetTime(ms int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pinned = true
	h.now = ms
}

// Advance moves the clock forward by d, pinning it first if needed.
func (h *MemoryHub) Advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.pinned {
		h.pinned = true
		h.now = h.read()
	}
	h.now += d.Milliseconds()
}

// HasEntry returns true if a health entry is stored under id.
func (h *MemoryHub) HasEntry(id healthshare.MemberID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.entries[id]
	return ok
}

// read returns the current clock value. h.mu must be held.
func (h *MemoryHub) read() int64 {
	now := h.now
	if !h.pinned {
		now = time.Now().UnixMilli()
	}
	h.last = max(h.last, now)
	return h.last
}

// Memory is one member's view of a MemoryHub.
type Memory struct {
	hub  *MemoryHub
	id   healthshare.MemberID
	left bool // guarded by hub.mu
}

var _ healthshare.Transport = (*Memory)(nil)

// Leave removes the member from the cluster. Every later call fails with
// healthshare.ErrMemberLeft; the member's health entry stays until removed
// by someone else or never.
func (m *Memory) Leave() {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	m.left = true
	delete(m.hub.members, m.id)
}

// LocalMember implements healthshare.Transport.
func (m *Memory) LocalMember() healthshare.MemberID {
	return m.id
}

// ClusterTime implements healthshare.Transport.
func (m *Memory) ClusterTime(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	return m.hub.read(), nil
}

// Members implements healthshare.Transport.
func (m *Memory) Members(ctx context.Context) ([]healthshare.MemberID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	ids := make([]healthshare.MemberID, 0, len(m.hub.members))
	for id := range m.hub.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// PutHealth implements healthshare.Transport.
func (m *Memory) PutHealth(ctx context.Context, id healthshare.MemberID, v healthshare.TimestampedNodeHealth) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode node health: %w", err)
	}

	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.hub.entries[id] = data
	return nil
}

// RemoveHealth implements healthshare.Transport.
func (m *Memory) RemoveHealth(ctx context.Context, id healthshare.MemberID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	delete(m.hub.entries, id)
	return nil
}

// HealthEntries implements healthshare.Transport.
func (m *Memory) HealthEntries(ctx context.Context) (map[healthshare.MemberID]healthshare.TimestampedNodeHealth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.hub.mu.Lock()
	if err := m.check(); err != nil {
		m.hub.mu.Unlock()
		return nil, err
	}
	raw := make(map[healthshare.MemberID][]byte, len(m.hub.entries))
	for id, data := range m.hub.entries {
		raw[id] = data
	}
	m.hub.mu.Unlock()

	entries := make(map[healthshare.MemberID]healthshare.TimestampedNodeHealth, len(raw))
	for id, data := range raw {
		var v healthshare.TimestampedNodeHealth
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode node health of %s: %w", id, err)
		}
		entries[id] = v
	}
	return entries, nil
}

// check fails once the member left. hub.mu must be held.
func (m *Memory) check() error {
	if m.left {
		return fmt.Errorf("%s: %w", m.id, healthshare.ErrMemberLeft)
	}
	return nil
}
