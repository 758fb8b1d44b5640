package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	healthshare "github.com/ozanturksever/go-healthshare"
	"github.com/ozanturksever/go-healthshare/transport"
)

// Config is the healthshare daemon configuration.
type Config struct {
	ClusterID string   `mapstructure:"cluster_id"`
	NATSURLs  []string `mapstructure:"nats_urls"`
	NATSCreds string   `mapstructure:"nats_creds"`
	MemberID  string   `mapstructure:"member_id"`
	LogLevel  string   `mapstructure:"log_level"`
	LogFormat string   `mapstructure:"log_format"`

	// Listen is the address serving /metrics, /cluster/health and /health.
	Listen string `mapstructure:"listen"`

	Node    NodeConfig    `mapstructure:"node"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Checks  ChecksConfig  `mapstructure:"checks"`
}

// NodeConfig describes the local node as published to the cluster.
type NodeConfig struct {
	Type string `mapstructure:"type"`
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RefreshConfig tunes the refresh schedule.
type RefreshConfig struct {
	InitialDelay    time.Duration `mapstructure:"initial_delay"`
	Interval        time.Duration `mapstructure:"interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ChecksConfig selects the host checks feeding local health. A zero
// threshold pair disables the check.
type ChecksConfig struct {
	DiskPath     string  `mapstructure:"disk_path"`
	DiskYellow   float64 `mapstructure:"disk_yellow"`
	DiskRed      float64 `mapstructure:"disk_red"`
	MemoryYellow float64 `mapstructure:"memory_yellow"`
	MemoryRed    float64 `mapstructure:"memory_red"`
	CPUYellow    float64 `mapstructure:"cpu_yellow"`
	CPURed       float64 `mapstructure:"cpu_red"`
}

func setDefaults(v *viper.Viper) {
	// Keys without a useful default are still registered so that Unmarshal
	// picks them up from the environment.
	v.SetDefault("cluster_id", "")
	v.SetDefault("nats_creds", "")
	v.SetDefault("member_id", "")
	v.SetDefault("node.name", "")
	v.SetDefault("node.host", "")

	v.SetDefault("nats_urls", []string{"nats://localhost:4222"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("listen", ":9090")

	v.SetDefault("node.type", string(healthshare.NodeTypeApplication))
	v.SetDefault("node.port", 9090)

	v.SetDefault("refresh.initial_delay", healthshare.DefaultInitialDelay)
	v.SetDefault("refresh.interval", healthshare.DefaultRefreshInterval)
	v.SetDefault("refresh.shutdown_timeout", healthshare.DefaultShutdownTimeout)

	v.SetDefault("checks.disk_path", "/")
	v.SetDefault("checks.disk_yellow", 85.0)
	v.SetDefault("checks.disk_red", 95.0)
	v.SetDefault("checks.memory_yellow", 90.0)
	v.SetDefault("checks.memory_red", 98.0)
	v.SetDefault("checks.cpu_yellow", 0.0)
	v.SetDefault("checks.cpu_red", 0.0)
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"nats":       "nats_urls",
		"cluster":    "cluster_id",
		"nats-creds": "nats_creds",
		"log-level":  "log_level",
		"member":     "member_id",
		"listen":     "listen",
		"node-type":  "node.type",
		"node-name":  "node.name",
		"node-host":  "node.host",
		"node-port":  "node.port",
		"interval":   "refresh.interval",
	}

	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// newViper returns a viper instance with defaults and environment lookup
// under the HEALTHSHARE_ prefix; nested keys use '_' in place of '.'.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("HEALTHSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads configuration for cmd from flags, the config file and the
// environment.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := newViper()

	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("healthshare")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/healthshare")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if verbose && v.ConfigFileUsed() != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}

	return decodeConfig(v)
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.NATSURLs = splitURLs(cfg.NATSURLs)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// splitURLs accepts both list values and a single comma-separated value as
// given on the command line or in HEALTHSHARE_NATS_URLS.
func splitURLs(in []string) []string {
	var out []string
	for _, s := range in {
		for _, u := range strings.Split(s, ",") {
			if u = strings.TrimSpace(u); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

// ApplyDefaults fills node identity fields from the host name.
func (c *Config) ApplyDefaults() {
	if c.Node.Name == "" || c.Node.Host == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "localhost"
		}
		if c.Node.Name == "" {
			c.Node.Name = hostname
		}
		if c.Node.Host == "" {
			c.Node.Host = hostname
		}
	}
	c.Node.Type = strings.ToUpper(strings.TrimSpace(c.Node.Type))
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ClusterID == "" {
		return fmt.Errorf("cluster_id is required: specify via --cluster flag, config file, or HEALTHSHARE_CLUSTER_ID environment variable")
	}
	if len(c.NATSURLs) == 0 {
		return fmt.Errorf("at least one NATS URL is required")
	}
	if !healthshare.NodeType(c.Node.Type).Valid() {
		return fmt.Errorf("node.type must be %s or %s", healthshare.NodeTypeApplication, healthshare.NodeTypeSearch)
	}
	if c.Node.Port <= 0 || c.Node.Port > 65535 {
		return fmt.Errorf("node.port must be between 1 and 65535")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	if c.Refresh.InitialDelay < 0 || c.Refresh.ShutdownTimeout < 0 {
		return fmt.Errorf("refresh durations must not be negative")
	}
	if c.Refresh.Interval >= healthshare.StaleWindow {
		return fmt.Errorf("refresh.interval must be shorter than %s or every entry goes stale", healthshare.StaleWindow)
	}
	if err := checkThresholds("disk", c.Checks.DiskYellow, c.Checks.DiskRed); err != nil {
		return err
	}
	if err := checkThresholds("memory", c.Checks.MemoryYellow, c.Checks.MemoryRed); err != nil {
		return err
	}
	if err := checkThresholds("cpu", c.Checks.CPUYellow, c.Checks.CPURed); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json")
	}
	return nil
}

func checkThresholds(name string, yellow, red float64) error {
	if yellow == 0 && red == 0 {
		return nil
	}
	if yellow <= 0 || red > 100 || yellow > red {
		return fmt.Errorf("checks: %s thresholds must satisfy 0 < yellow <= red <= 100", name)
	}
	return nil
}

// NATSConfig returns the transport configuration.
func (c *Config) NATSConfig(logger *slog.Logger, observer bool) transport.NATSConfig {
	return transport.NATSConfig{
		ClusterID:       c.ClusterID,
		NATSURLs:        c.NATSURLs,
		NATSCredentials: c.NATSCreds,
		MemberID:        c.MemberID,
		Observer:        observer,
		Logger:          logger,
	}
}

// NodeDetails returns the descriptor of the local node.
func (c *Config) NodeDetails(startedAt time.Time) (healthshare.NodeDetails, error) {
	return healthshare.NewNodeDetails(healthshare.NodeDetailsParams{
		Type:      healthshare.NodeType(c.Node.Type),
		Name:      c.Node.Name,
		Host:      c.Node.Host,
		Port:      c.Node.Port,
		StartedAt: startedAt.UnixMilli(),
	})
}

// Logger builds the process logger.
func (c *Config) Logger() *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
