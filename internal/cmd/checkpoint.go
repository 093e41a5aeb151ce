package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/arath/internal/checkpoint"
	"github.com/harrison/arath/internal/logger"
)

// NewCheckpointCommand creates the checkpoint command group
func NewCheckpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or move the report checkpoint",
		Long: `The checkpoint file holds the start time of the last successful report.
The next report covers playbook runs that ended after it.`,
	}

	cmd.PersistentFlags().String("checkpoint", "", "Checkpoint file (default: from config, then .arath.timestamp)")

	cmd.AddCommand(newCheckpointShowCommand())
	cmd.AddCommand(newCheckpointResetCommand())
	cmd.AddCommand(newCheckpointClearCommand())

	return cmd
}

func newCheckpointShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current checkpoint",
		Long: `Print the checkpoint timestamp in RFC 3339 form. A missing or unreadable
file prints the epoch, which is where the next report would start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), checkpoint.Format(store.Load()))
			return nil
		},
	}
}

func newCheckpointResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [timestamp]",
		Short: "Set the checkpoint to a timestamp (default: now)",
		Long: `Set the checkpoint so the next report starts after the given time.

Examples:
  arath checkpoint reset                          # Skip everything up to now
  arath checkpoint reset 2024-03-01T00:00:00Z     # Replay since March 1st`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := time.Now()
			if len(args) == 1 {
				parsed, err := checkpoint.Parse(args[0])
				if err != nil {
					return err
				}
				ts = parsed
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Acquire(); err != nil {
				return err
			}
			defer store.Release()

			if err := store.Save(ts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checkpoint set to %s\n", checkpoint.Format(ts))
			return nil
		},
	}
}

func newCheckpointClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the checkpoint so the next report starts from the epoch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Acquire(); err != nil {
				return err
			}
			defer store.Release()

			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checkpoint %s removed\n", store.Path())
			return nil
		},
	}
}

// openStore resolves the checkpoint path from --checkpoint, then config.
func openStore(cmd *cobra.Command) (*checkpoint.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	path := cfg.CheckpointPath
	if cmd.Flags().Changed("checkpoint") {
		path, _ = cmd.Flags().GetString("checkpoint")
	}
	if path == "" {
		return nil, fmt.Errorf("checkpoint path cannot be empty")
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	return checkpoint.NewStore(path, log), nil
}
