package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	healthshare "github.com/ozanturksever/go-healthshare"
	"github.com/ozanturksever/go-healthshare/transport"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cluster health",
	Long: `Connect as an observer and print the health of every live node.

The observer does not join the cluster membership, so it never shows up in
its own output. The exit code is non-zero when the cluster is RED.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "Print the summary as JSON")
	statusCmd.Flags().Duration("timeout", 10*time.Second, "Time allowed to reach the cluster")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	nt, err := transport.NewNATS(cfg.NATSConfig(cfg.Logger(), true))
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}
	if err := nt.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}
	defer func() { _ = nt.Stop() }()

	state := healthshare.NewSharedHealthState(nt, healthshare.WithLogger(cfg.Logger()))
	nodes, err := state.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cluster health: %w", err)
	}
	summary := healthshare.Summarize(nodes)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		fmt.Printf("Cluster: %s\n", cfg.ClusterID)
		fmt.Printf("NATS: %s\n", strings.Join(cfg.NATSURLs, ","))
		fmt.Println()
		printSummary(os.Stdout, summary)
	}

	if summary.Status == healthshare.StatusRed {
		return fmt.Errorf("cluster is %s", summary.Status)
	}
	return nil
}

// printSummary writes summary as a table, one row per node.
func printSummary(out io.Writer, summary healthshare.Summary) {
	fmt.Fprintf(out, "Health: %s\n", summary)
	for _, c := range summary.Causes {
		fmt.Fprintf(out, "  %s\n", c)
	}
	if len(summary.Nodes) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nNAME\tTYPE\tADDRESS\tSTATUS\tUP SINCE\tCAUSES")
	for _, n := range summary.Nodes {
		d := n.Details()
		started := time.UnixMilli(d.StartedAt()).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "%s\t%s\t%s:%d\t%s\t%s\t%s\n",
			d.Name(), d.Type(), d.Host(), d.Port(), n.Status(), started, strings.Join(n.Causes(), "; "))
	}
	w.Flush()
}
