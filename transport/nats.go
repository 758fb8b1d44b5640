package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	healthshare "github.com/ozanturksever/go-healthshare"
)

// Transport errors.
var (
	// ErrMemberAlreadyPresent indicates another live process already joined with the same member ID.
	ErrMemberAlreadyPresent = errors.New("member with the same ID is already present")
)

// NATS is a healthshare.Transport backed by NATS JetStream key-value
// buckets:
//
//   - <cluster>_health: member ID -> JSON TimestampedNodeHealth
//   - <cluster>_members: member ID -> heartbeat record, expiring after MemberTTL
//   - <cluster>_clock: scratch keys whose server-assigned timestamps are the
//     logical cluster time
type NATS struct {
	cfg    NATSConfig
	id     healthshare.MemberID
	logger *slog.Logger

	mu         sync.RWMutex
	running    bool
	nc         *nats.Conn
	health     jetstream.KeyValue
	members    jetstream.KeyValue
	clock      jetstream.KeyValue
	membership *membership

	// clockMu serialises clock reads; lastTime keeps the clock monotonic
	// across NATS server failovers.
	clockMu  sync.Mutex
	lastTime int64
}

var _ healthshare.Transport = (*NATS)(nil)

// NewNATS creates a NATS transport. The member identity is assigned here
// and stays the same for the lifetime of the value.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.applyDefaults()

	id := cfg.MemberID
	if id == "" {
		id = uuid.NewString()
	}

	return &NATS{
		cfg:    cfg,
		id:     healthshare.MemberID(id),
		logger: cfg.Logger.With("component", "transport", "cluster", cfg.ClusterID, "member", id),
	}, nil
}

// Start connects to NATS, opens the buckets and, unless the transport is an
// observer, joins the membership set.
func (t *NATS) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return healthshare.ErrAlreadyStarted
	}

	nc, err := t.connectNATS()
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return fmt.Errorf("create JetStream: %w", err)
	}

	if err := t.initBuckets(ctx, js); err != nil {
		nc.Close()
		return fmt.Errorf("init KV buckets: %w", err)
	}

	if !t.cfg.Observer {
		m := newMembership(t.members, t.cfg, t.id, t.logger)
		if err := m.join(ctx); err != nil {
			nc.Close()
			return fmt.Errorf("join membership: %w", err)
		}
		t.membership = m
	}

	t.nc = nc
	t.running = true
	t.logger.Info("transport started", "observer", t.cfg.Observer)
	return nil
}

// Stop leaves the membership set and closes the connection.
func (t *NATS) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return healthshare.ErrNotStarted
	}
	t.running = false

	if t.membership != nil {
		t.membership.leave()
		t.membership = nil
	}

	t.nc.Close()
	t.nc = nil

	t.logger.Info("transport stopped")
	return nil
}

// Connected returns true if the NATS connection is up.
func (t *NATS) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nc != nil && t.nc.IsConnected()
}

// LocalMember implements healthshare.Transport.
func (t *NATS) LocalMember() healthshare.MemberID {
	return t.id
}

// ClusterTime implements healthshare.Transport. It writes the local
// member's clock key and returns the timestamp the JetStream server stamped
// on it, so all members read the same clock regardless of local skew.
func (t *NATS) ClusterTime(ctx context.Context) (int64, error) {
	if err := t.active(); err != nil {
		return 0, err
	}

	t.clockMu.Lock()
	defer t.clockMu.Unlock()

	key := string(t.id)
	rev, err := t.clock.Put(ctx, key, nil)
	if err != nil {
		return 0, t.classify("write clock", err)
	}
	entry, err := t.clock.GetRevision(ctx, key, rev)
	if err != nil {
		return 0, t.classify("read clock", err)
	}

	now := entry.Created().UnixMilli()
	if now < t.lastTime {
		now = t.lastTime
	}
	t.lastTime = now
	return now, nil
}

// Members implements healthshare.Transport. The membership bucket is read on
// every call.
func (t *NATS) Members(ctx context.Context) ([]healthshare.MemberID, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	ids, err := members(ctx, t.members)
	if err != nil {
		return nil, t.classify("list members", err)
	}
	return ids, nil
}

// PutHealth implements healthshare.Transport.
func (t *NATS) PutHealth(ctx context.Context, id healthshare.MemberID, v healthshare.TimestampedNodeHealth) error {
	if err := t.active(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode node health: %w", err)
	}
	if _, err := t.health.Put(ctx, string(id), data); err != nil {
		return t.classify("put node health", err)
	}
	return nil
}

// RemoveHealth implements healthshare.Transport.
func (t *NATS) RemoveHealth(ctx context.Context, id healthshare.MemberID) error {
	if err := t.active(); err != nil {
		return err
	}
	if err := t.health.Delete(ctx, string(id)); err != nil {
		return t.classify("delete node health", err)
	}
	return nil
}

// HealthEntries implements healthshare.Transport. Entries that cannot be
// decoded are logged and skipped.
func (t *NATS) HealthEntries(ctx context.Context) (map[healthshare.MemberID]healthshare.TimestampedNodeHealth, error) {
	if err := t.active(); err != nil {
		return nil, err
	}

	keys, err := t.health.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return map[healthshare.MemberID]healthshare.TimestampedNodeHealth{}, nil
	}
	if err != nil {
		return nil, t.classify("list node health", err)
	}

	entries := make(map[healthshare.MemberID]healthshare.TimestampedNodeHealth, len(keys))
	for _, key := range keys {
		entry, err := t.health.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, t.classify("get node health", err)
		}

		var v healthshare.TimestampedNodeHealth
		if err := json.Unmarshal(entry.Value(), &v); err != nil {
			t.logger.Warn("skipping undecodable node health entry", "key", key, "error", err)
			continue
		}
		entries[healthshare.MemberID(key)] = v
	}
	return entries, nil
}

func (t *NATS) active() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.running {
		return fmt.Errorf("transport not started: %w", healthshare.ErrClusterInactive)
	}
	return nil
}

// classify marks errors caused by the cluster being unreachable as
// healthshare.ErrClusterInactive.
func (t *NATS) classify(op string, err error) error {
	if isUnreachable(err) || !t.Connected() {
		return fmt.Errorf("%s: %w: %w", op, healthshare.ErrClusterInactive, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnreachable(err error) bool {
	return errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionReconnecting) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (t *NATS) initBuckets(ctx context.Context, js jetstream.JetStream) error {
	health, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      t.cfg.HealthBucketName(),
		Description: fmt.Sprintf("Node health for cluster %s", t.cfg.ClusterID),
		History:     1,
		Replicas:    t.cfg.Replicas,
	})
	if err != nil {
		return fmt.Errorf("health bucket: %w", err)
	}

	members, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      t.cfg.MembersBucketName(),
		Description: fmt.Sprintf("Membership for cluster %s", t.cfg.ClusterID),
		TTL:         t.cfg.MemberTTL,
		History:     1,
		Replicas:    t.cfg.Replicas,
	})
	if err != nil {
		return fmt.Errorf("members bucket: %w", err)
	}

	clock, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      t.cfg.ClockBucketName(),
		Description: fmt.Sprintf("Cluster clock for cluster %s", t.cfg.ClusterID),
		TTL:         DefaultClockTTL,
		History:     1,
		Replicas:    t.cfg.Replicas,
	})
	if err != nil {
		return fmt.Errorf("clock bucket: %w", err)
	}

	t.health, t.members, t.clock = health, members, clock
	return nil
}

// connectNATS establishes a resilient NATS connection.
func (t *NATS) connectNATS() (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(fmt.Sprintf("healthshare-%s-%s", t.cfg.ClusterID, t.id)),
		nats.MaxReconnects(t.cfg.MaxReconnects),
		nats.ReconnectWait(t.cfg.ReconnectWait),
		nats.PingInterval(2 * time.Second),
		nats.MaxPingsOutstanding(2),

		nats.DisconnectErrHandler(t.handleDisconnect),
		nats.ReconnectHandler(t.handleReconnect),
		nats.ClosedHandler(t.handleClosed),
		nats.ErrorHandler(t.handleError),
	}

	if t.cfg.NATSCredentials != "" {
		opts = append(opts, nats.UserCredentials(t.cfg.NATSCredentials))
	}

	return nats.Connect(strings.Join(t.cfg.NATSURLs, ","), opts...)
}

func (t *NATS) handleDisconnect(_ *nats.Conn, err error) {
	if err != nil {
		t.logger.Warn("NATS disconnected", "error", err)
	}
}

func (t *NATS) handleReconnect(nc *nats.Conn) {
	t.logger.Info("NATS reconnected", "server", nc.ConnectedUrl())
}

func (t *NATS) handleClosed(_ *nats.Conn) {
	t.logger.Debug("NATS connection closed")
}

func (t *NATS) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	t.logger.Error("NATS async error", "error", err, "subject", subject)
}
