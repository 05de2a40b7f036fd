package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/config"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/exitcode"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/flow"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/logger"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
)

func main() {
	// Ensure environment variables are loaded
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load env vars", "error", err)
	}

	// Create a cancellable context (for graceful shutdown)
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)

	code := execute(ctx, os.Args[1:], nil)
	cancel()
	os.Exit(code)
}

// usageError marks invalid flags or arguments.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, runnerOpts []flow.Option) int {
	cmd := newRootCmd(runnerOpts)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitcode.Success
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)

	var ue *usageError
	if errors.As(err, &ue) {
		return exitcode.ConfigError
	}
	return exitcode.For(err)
}

type rootOptions struct {
	credsPath string
	configDir string
	logFormat string
	logLevel  string
	runID     string

	runnerOpts []flow.Option
	logger     *slog.Logger
	settings   *config.Settings
}

func newRootCmd(runnerOpts []flow.Option) *cobra.Command {
	opts := &rootOptions{runnerOpts: runnerOpts}

	credsDefault := os.Getenv("CREDS_PATH")
	if credsDefault == "" {
		credsDefault = config.DefaultCredentialsPath
	}

	cmd := &cobra.Command{
		Use:           "ingestion",
		Short:         "Ingest NHL DFS feeds into the raw data lake",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.credsPath, "creds", credsDefault, "path to the credentials YAML file")
	pf.StringVar(&opts.configDir, "config-dir", ".", "directory holding config.base.yaml and config.{APP_ENV}.yaml")
	pf.StringVar(&opts.logFormat, "log-format", logger.FormatJSON, "log format: json or text")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&opts.runID, "run-id", "", "run identifier (UUIDv7); generated when empty")

	cmd.AddCommand(
		newMSFCmd(opts, flow.DFSActualsName, "Ingest DFS actuals (salaries and fantasy points)"),
		newMSFCmd(opts, flow.DFSProjectionsName, "Ingest DFS projections"),
		newTeamStatsCmd(opts),
		newRunAllCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	log, err := logger.New(o.logFormat, o.logLevel)
	if err != nil {
		return &usageError{err: err}
	}
	o.logger = log
	slog.SetDefault(log)

	if o.runID != "" {
		if err := model.RunID(o.runID).Validate(); err != nil {
			return &usageError{err: err}
		}
	}

	settings, err := config.LoadSettings(o.configDir, os.Getenv("APP_ENV"))
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			return err
		}
		return &config.Error{Path: o.configDir, Err: err}
	}
	o.settings = settings
	return nil
}

func (o *rootOptions) runner() (*flow.Runner, error) {
	r, err := flow.NewRunner(o.settings, o.credsPath, o.logger, o.runnerOpts...)
	if err != nil {
		return nil, &config.Error{Path: o.configDir, Err: err}
	}
	return r, nil
}

func newMSFCmd(opts *rootOptions, name, short string) *cobra.Command {
	var date, season string
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				if _, err := model.ParseDate(date); err != nil {
					return &usageError{err: err}
				}
			}
			r, err := opts.runner()
			if err != nil {
				return err
			}

			p := flow.MSFParams{Date: date, Season: season, RunID: model.RunID(opts.runID)}
			if name == flow.DFSProjectionsName {
				_, err = r.DFSProjections(cmd.Context(), p)
			} else {
				_, err = r.DFSActuals(cmd.Context(), p)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "game date, YYYYMMDD or YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&season, "season", "", "season such as 2023-2024-regular or 2024-playoff (default current regular season)")
	return cmd
}

func newTeamStatsCmd(opts *rootOptions) *cobra.Command {
	var seasonYear, seasonType string
	cmd := &cobra.Command{
		Use:   flow.TeamStatsName,
		Short: "Ingest MoneyPuck team statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.runner()
			if err != nil {
				return err
			}
			_, err = r.TeamStats(cmd.Context(), flow.TeamStatsParams{
				SeasonYear: seasonYear,
				SeasonType: seasonType,
				RunID:      model.RunID(opts.runID),
			})
			return err
		},
	}
	cmd.Flags().StringVar(&seasonYear, "season-year", "", "season start year, e.g. 2024 (default current season)")
	cmd.Flags().StringVar(&seasonType, "season-type", string(model.Regular), "regular or playoffs")
	return cmd
}

func newRunAllCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-all",
		Short: "Run every flow once with default parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.runner()
			if err != nil {
				return err
			}
			return r.RunAll(cmd.Context(), model.RunID(opts.runID))
		},
	}
}
