// Package cmd provides the CLI commands for healthshare.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "healthshare",
	Short: "Share node health across a NATS cluster",
	Long: `healthshare keeps a cluster-wide view of node health in NATS JetStream:
  - every node periodically publishes its own GREEN/YELLOW/RED status
  - any node or observer reads the health of all live, fresh nodes
  - stale entries and entries of departed nodes are ignored

Configuration is read from flags, a YAML file and HEALTHSHARE_* environment
variables, in that order of precedence.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./healthshare.yaml or /etc/healthshare/healthshare.yaml)")
	rootCmd.PersistentFlags().StringP("nats", "n", "", "NATS server URLs, comma separated")
	rootCmd.PersistentFlags().StringP("cluster", "c", "", "Cluster ID")
	rootCmd.PersistentFlags().String("nats-creds", "", "NATS credentials file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
