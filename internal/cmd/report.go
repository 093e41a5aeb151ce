package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/arath/internal/ara"
	"github.com/harrison/arath/internal/checkpoint"
	"github.com/harrison/arath/internal/config"
	"github.com/harrison/arath/internal/logger"
	"github.com/harrison/arath/internal/pipeline"
	"github.com/harrison/arath/internal/report"
)

// NewReportCommand creates the report command
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report actionable results since the last checkpoint",
		Long: `Report the results of every playbook run that finished after the
checkpoint timestamp, leaving out ignored statuses (ok and skipped by default).

The report is written to standard output and log lines to standard error.
On success the checkpoint is moved to the time this run started.

Configuration is loaded from .arath/config.yaml if present.
ARA_API_SERVER, ARA_API_USERNAME and ARA_API_PASSWORD override the file.
CLI flags override both.

Examples:
  arath report                                  # Query http://127.0.0.1:8000
  arath report --endpoint https://ara.example.org
  arath report --source offline --database ~/.ara/server/ansible.sqlite
  arath report --ignore ok --ignore skipped --ignore changed
  arath report --format markdown > report.md
  arath report --dry-run                        # Leave the checkpoint alone`,
		Args: cobra.NoArgs,
		RunE: reportCommand,
	}

	cmd.Flags().String("source", "", "Result source: http or offline")
	cmd.Flags().String("endpoint", "", "ARA API server URL")
	cmd.Flags().Duration("timeout", 0, "Timeout for each API request (e.g., 10s, 1m)")
	cmd.Flags().Int("limit", 0, "Page size requested from the API (0 = server default)")
	cmd.Flags().String("database", "", "ARA sqlite database for the offline source")
	cmd.Flags().String("checkpoint", "", "Checkpoint file (default: .arath.timestamp)")
	cmd.Flags().StringArray("ignore", nil, "Result status to leave out (repeatable, replaces the configured list)")
	cmd.Flags().Bool("report-all", false, "Report every status, ignoring nothing")
	cmd.Flags().String("format", "", "Report format: text, markdown or html")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn or error")
	cmd.Flags().String("log-dir", "", "Directory for per-run log files")
	cmd.Flags().Bool("dry-run", false, "Print the report without advancing the checkpoint")

	return cmd
}

// reportCommand implements the report command logic
func reportCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)

	overrides, err := reportFlagOverrides(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closeLog, err := buildLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	source, closeSource, err := openSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	out := cmd.OutOrStdout()
	reporter, err := report.NewReporter(cfg.Format, out, isTerminal(out))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := checkpoint.NewStore(cfg.CheckpointPath, log)
	orch := pipeline.NewOrchestrator(source, store, log)

	_, err = orch.Run(ctx, reporter, pipeline.RunOptions{
		Ignore: cfg.IgnoreStatuses,
		DryRun: cfg.DryRun,
	})
	if err != nil {
		log.LogError(fmt.Sprintf("report failed: %v", err))
		return fmt.Errorf("report failed: %w", err)
	}
	return nil
}

// loadConfig reads --config when given, otherwise .arath/config.yaml.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// reportFlagOverrides collects the flags the user actually set.
func reportFlagOverrides(cmd *cobra.Command) (config.FlagOverrides, error) {
	var o config.FlagOverrides
	flags := cmd.Flags()

	if flags.Changed("ignore") && flags.Changed("report-all") {
		return o, fmt.Errorf("cannot use --ignore and --report-all together")
	}

	if flags.Changed("source") {
		v, _ := flags.GetString("source")
		o.Source = &v
	}
	if flags.Changed("endpoint") {
		v, _ := flags.GetString("endpoint")
		o.Endpoint = &v
	}
	if flags.Changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		o.Timeout = &v
	}
	if flags.Changed("limit") {
		v, _ := flags.GetInt("limit")
		o.Limit = &v
	}
	if flags.Changed("database") {
		v, _ := flags.GetString("database")
		o.Database = &v
	}
	if flags.Changed("checkpoint") {
		v, _ := flags.GetString("checkpoint")
		o.CheckpointPath = &v
	}
	if flags.Changed("ignore") {
		v, _ := flags.GetStringArray("ignore")
		o.IgnoreStatuses = &v
	}
	if flags.Changed("report-all") {
		if all, _ := flags.GetBool("report-all"); all {
			none := []string{}
			o.IgnoreStatuses = &none
		}
	}
	if flags.Changed("format") {
		v, _ := flags.GetString("format")
		o.Format = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		o.LogLevel = &v
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		o.LogDir = &v
	}
	if flags.Changed("dry-run") {
		v, _ := flags.GetBool("dry-run")
		o.DryRun = &v
	}
	return o, nil
}

// buildLogger returns the console logger, fanned out to a per-run file when
// log_dir is set. The returned func closes the file logger.
func buildLogger(w io.Writer, cfg *config.Config) (*logger.MultiLogger, func(), error) {
	consoleLog := logger.NewConsoleLogger(w, cfg.LogLevel)
	if cfg.LogDir == "" {
		return logger.NewMultiLogger(consoleLog), func() {}, nil
	}

	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	consoleLog.LogDebug(fmt.Sprintf("logging to %s", fileLog.Path()))
	return logger.NewMultiLogger(consoleLog, fileLog), func() { fileLog.Close() }, nil
}

// openSource connects to the configured upstream.
func openSource(cfg *config.Config, log ara.Logger) (ara.Source, func(), error) {
	switch cfg.Source {
	case config.SourceOffline:
		dbPath, err := cfg.DatabasePath()
		if err != nil {
			return nil, nil, err
		}
		client, err := ara.NewOfflineClient(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open ARA database: %w", err)
		}
		return client, func() { client.Close() }, nil
	default:
		client, err := ara.NewHTTPClient(ara.HTTPOptions{
			Endpoint: cfg.Endpoint,
			Username: cfg.Username,
			Password: cfg.Password,
			Timeout:  cfg.Timeout,
			Limit:    cfg.Limit,
			Logger:   log,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create ARA client: %w", err)
		}
		return client, func() {}, nil
	}
}

// isTerminal reports whether w is a terminal, honouring NO_COLOR.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
