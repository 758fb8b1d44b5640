package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	healthshare "github.com/ozanturksever/go-healthshare"
)

// memberRecord is the value a member heartbeats into the membership bucket.
type memberRecord struct {
	MemberID  string    `json:"member_id"`
	ClusterID string    `json:"cluster_id"`
	JoinedAt  time.Time `json:"joined_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// membership keeps the local member registered in the membership bucket.
// Entries expire through the bucket TTL once heartbeats stop.
type membership struct {
	kv        jetstream.KeyValue
	id        healthshare.MemberID
	clusterID string
	heartbeat time.Duration
	logger    *slog.Logger

	joinedAt time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newMembership(kv jetstream.KeyValue, cfg NATSConfig, id healthshare.MemberID, logger *slog.Logger) *membership {
	return &membership{
		kv:        kv,
		id:        id,
		clusterID: cfg.ClusterID,
		heartbeat: cfg.HeartbeatInterval,
		logger:    logger,
	}
}

// join registers the local member and starts heartbeating.
func (m *membership) join(ctx context.Context) error {
	if err := m.registerInitial(ctx); err != nil {
		return err
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go m.heartbeatLoop(hbCtx)

	m.logger.Info("joined cluster membership")
	return nil
}

// leave deregisters first so other members stop counting this one before
// heartbeats end.
func (m *membership) leave() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.kv.Delete(ctx, string(m.id)); err != nil {
		m.logger.Warn("failed to deregister member", "error", err)
	}

	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("left cluster membership")
}

// registerInitial uses Create so two processes configured with the same
// member ID cannot both join. A leftover entry whose heartbeats stopped is
// taken over.
func (m *membership) registerInitial(ctx context.Context) error {
	m.joinedAt = time.Now()

	data, err := m.record()
	if err != nil {
		return err
	}

	_, err = m.kv.Create(ctx, string(m.id), data)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrKeyExists) {
		return fmt.Errorf("register member: %w", err)
	}

	if m.present(ctx) {
		return ErrMemberAlreadyPresent
	}

	_, err = m.kv.Put(ctx, string(m.id), data)
	return err
}

// present returns true if the existing entry for the local ID was refreshed
// within two heartbeats.
func (m *membership) present(ctx context.Context) bool {
	entry, err := m.kv.Get(ctx, string(m.id))
	if err != nil {
		return false
	}

	var existing memberRecord
	if err := json.Unmarshal(entry.Value(), &existing); err != nil {
		return false
	}

	freshness := max(2*m.heartbeat, 5*time.Second)
	return time.Since(existing.LastSeen) < freshness
}

func (m *membership) register(ctx context.Context) error {
	data, err := m.record()
	if err != nil {
		return err
	}
	_, err = m.kv.Put(ctx, string(m.id), data)
	return err
}

func (m *membership) record() ([]byte, error) {
	return json.Marshal(memberRecord{
		MemberID:  string(m.id),
		ClusterID: m.clusterID,
		JoinedAt:  m.joinedAt,
		LastSeen:  time.Now(),
	})
}

func (m *membership) heartbeatLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			putCtx, cancel := context.WithTimeout(ctx, m.heartbeat)
			err := m.register(putCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				m.logger.Warn("membership heartbeat failed", "error", err)
			}
		}
	}
}

// members lists the identities currently present in the membership bucket.
func members(ctx context.Context, kv jetstream.KeyValue) ([]healthshare.MemberID, error) {
	keys, err := kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return []healthshare.MemberID{}, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]healthshare.MemberID, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, healthshare.MemberID(k))
	}
	return ids, nil
}
