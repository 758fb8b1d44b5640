package transport

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

const (
	DefaultMemberTTL         = 30 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultReconnectWait     = 2 * time.Second
	DefaultMaxReconnects     = -1 // Unlimited
	DefaultReplicas          = 1
	DefaultClockTTL          = 5 * time.Minute
)

var clusterIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NATSConfig configures the NATS JetStream transport.
type NATSConfig struct {
	ClusterID       string
	NATSURLs        []string
	NATSCredentials string

	// MemberID overrides the random identity assigned at construction.
	MemberID string

	// Membership timing: a member that has not heartbeated for MemberTTL
	// drops out of the membership set.
	MemberTTL         time.Duration
	HeartbeatInterval time.Duration

	// Replicas is the JetStream replication factor of the KV buckets.
	Replicas int

	// Observer connects without joining the membership set. Observers
	// can read cluster health but should not publish any.
	Observer bool

	// Connection resilience configuration
	ReconnectWait time.Duration
	MaxReconnects int

	Logger *slog.Logger
}

func (c *NATSConfig) Validate() error {
	if c.ClusterID == "" {
		return fmt.Errorf("ClusterID is required")
	}
	if !clusterIDPattern.MatchString(c.ClusterID) {
		return fmt.Errorf("ClusterID may only contain letters, digits, '-' and '_'")
	}
	if len(c.NATSURLs) == 0 {
		return fmt.Errorf("at least one NATS URL is required")
	}
	if c.MemberID != "" && !clusterIDPattern.MatchString(c.MemberID) {
		return fmt.Errorf("MemberID may only contain letters, digits, '-' and '_'")
	}
	if c.MemberTTL < 0 || c.HeartbeatInterval < 0 {
		return fmt.Errorf("MemberTTL and HeartbeatInterval must not be negative")
	}
	if c.MemberTTL > 0 && c.HeartbeatInterval > 0 && c.HeartbeatInterval >= c.MemberTTL {
		return fmt.Errorf("HeartbeatInterval must be shorter than MemberTTL")
	}
	return nil
}

func (c *NATSConfig) applyDefaults() {
	if c.MemberTTL == 0 {
		c.MemberTTL = DefaultMemberTTL
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = min(DefaultHeartbeatInterval, c.MemberTTL/3)
	}
	if c.Replicas == 0 {
		c.Replicas = DefaultReplicas
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = DefaultReconnectWait
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = DefaultMaxReconnects
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// HealthBucketName returns the KV bucket holding published node health.
func (c *NATSConfig) HealthBucketName() string {
	return fmt.Sprintf("%s_health", c.ClusterID)
}

// MembersBucketName returns the KV bucket holding member heartbeats.
func (c *NATSConfig) MembersBucketName() string {
	return fmt.Sprintf("%s_members", c.ClusterID)
}

// ClockBucketName returns the KV bucket used to read server time.
func (c *NATSConfig) ClockBucketName() string {
	return fmt.Sprintf("%s_clock", c.ClusterID)
}
