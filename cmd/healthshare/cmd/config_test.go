package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthshare "github.com/ozanturksever/go-healthshare"
)

func TestDecodeConfig_Defaults(t *testing.T) {
	v := newViper()
	v.Set("cluster_id", "prod")

	cfg, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.ClusterID)
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATSURLs)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "APPLICATION", cfg.Node.Type)
	assert.Equal(t, 9090, cfg.Node.Port)
	assert.NotEmpty(t, cfg.Node.Name)
	assert.NotEmpty(t, cfg.Node.Host)
	assert.Equal(t, healthshare.DefaultInitialDelay, cfg.Refresh.InitialDelay)
	assert.Equal(t, healthshare.DefaultRefreshInterval, cfg.Refresh.Interval)
	assert.Equal(t, healthshare.DefaultShutdownTimeout, cfg.Refresh.ShutdownTimeout)
	assert.Equal(t, "/", cfg.Checks.DiskPath)
	assert.Equal(t, 0.0, cfg.Checks.CPURed)
}

func TestDecodeConfig_Environment(t *testing.T) {
	t.Setenv("HEALTHSHARE_CLUSTER_ID", "staging")
	t.Setenv("HEALTHSHARE_NATS_URLS", "nats://a:4222, nats://b:4222")
	t.Setenv("HEALTHSHARE_NODE_NAME", "search-7")
	t.Setenv("HEALTHSHARE_NODE_TYPE", "search")
	t.Setenv("HEALTHSHARE_REFRESH_INTERVAL", "3s")

	cfg, err := decodeConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.ClusterID)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATSURLs)
	assert.Equal(t, "search-7", cfg.Node.Name)
	assert.Equal(t, "SEARCH", cfg.Node.Type)
	assert.Equal(t, 3*time.Second, cfg.Refresh.Interval)
}

func TestDecodeConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthshare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cluster_id: prod
nats_urls:
  - nats://n1:4222
  - nats://n2:4222
listen: ":8181"
node:
  name: web-1
  host: 10.0.0.5
  port: 8080
refresh:
  interval: 5s
  initial_delay: 0s
checks:
  disk_path: /data
  cpu_yellow: 80
  cpu_red: 95
`), 0o644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"nats://n1:4222", "nats://n2:4222"}, cfg.NATSURLs)
	assert.Equal(t, ":8181", cfg.Listen)
	assert.Equal(t, "web-1", cfg.Node.Name)
	assert.Equal(t, "10.0.0.5", cfg.Node.Host)
	assert.Equal(t, 8080, cfg.Node.Port)
	assert.Equal(t, 5*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, time.Duration(0), cfg.Refresh.InitialDelay)
	assert.Equal(t, "/data", cfg.Checks.DiskPath)
	assert.Equal(t, 95.0, cfg.Checks.CPURed)

	d, err := cfg.NodeDetails(time.UnixMilli(1_700_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, "web-1 (APPLICATION 10.0.0.5:8080)", d.String())
	assert.Equal(t, int64(1_700_000_000_000), d.StartedAt())
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ClusterID: "prod",
			NATSURLs:  []string{"nats://localhost:4222"},
			LogLevel:  "info",
			LogFormat: "text",
			Node:      NodeConfig{Type: "APPLICATION", Name: "a", Host: "h", Port: 1},
			Refresh:   RefreshConfig{Interval: time.Second, ShutdownTimeout: time.Second},
			Checks:    ChecksConfig{DiskYellow: 80, DiskRed: 90},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing cluster", func(c *Config) { c.ClusterID = "" }, true},
		{"no urls", func(c *Config) { c.NATSURLs = nil }, true},
		{"bad node type", func(c *Config) { c.Node.Type = "CACHE" }, true},
		{"zero port", func(c *Config) { c.Node.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Node.Port = 70000 }, true},
		{"zero interval", func(c *Config) { c.Refresh.Interval = 0 }, true},
		{"interval beyond stale window", func(c *Config) { c.Refresh.Interval = 30 * time.Second }, true},
		{"negative delay", func(c *Config) { c.Refresh.InitialDelay = -time.Second }, true},
		{"yellow above red", func(c *Config) { c.Checks.DiskYellow = 95 }, true},
		{"red above 100", func(c *Config) { c.Checks.DiskRed = 120 }, true},
		{"disabled check", func(c *Config) { c.Checks = ChecksConfig{} }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigNATSConfig(t *testing.T) {
	cfg := Config{
		ClusterID: "prod",
		NATSURLs:  []string{"nats://a:4222"},
		NATSCreds: "/etc/creds",
		MemberID:  "web-1",
	}

	nc := cfg.NATSConfig(nil, true)
	assert.Equal(t, "prod", nc.ClusterID)
	assert.Equal(t, []string{"nats://a:4222"}, nc.NATSURLs)
	assert.Equal(t, "/etc/creds", nc.NATSCredentials)
	assert.Equal(t, "web-1", nc.MemberID)
	assert.True(t, nc.Observer)
	assert.NoError(t, nc.Validate())
}
