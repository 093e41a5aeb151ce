package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for arath
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arath",
		Short: "Periodic failure reporter for ARA playbook runs",
		Long: `arath reports the actionable results of Ansible playbook runs
recorded by ARA since the previous report.

Each run reads a checkpoint timestamp, fetches the playbook runs that finished
after it, resolves every result to its task and host, drops routine statuses
and prints the rest. The checkpoint only advances when the whole run succeeds,
so a failed run is retried over the same window next time.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .arath/config.yaml)")

	cmd.AddCommand(NewReportCommand())
	cmd.AddCommand(NewCheckpointCommand())

	return cmd
}
