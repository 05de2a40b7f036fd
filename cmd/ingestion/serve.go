package main

import (
	"context"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/api"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/config"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/flow"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/schedule"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run every flow on its cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.runner()
			if err != nil {
				return err
			}
			sched, err := newScheduler(opts.settings, r, opts)
			if err != nil {
				return err
			}

			var ln net.Listener
			if addr != "" {
				if ln, err = net.Listen("tcp", addr); err != nil {
					return &usageError{err: err}
				}
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return sched.Run(ctx) })
			if ln != nil {
				mux := http.NewServeMux()
				api.NewHandler(sched).RegisterRoutes(mux)
				g.Go(func() error { return api.Serve(ctx, ln, mux, opts.logger) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for /health and /schedule, e.g. :8080 (disabled when empty)")
	return cmd
}

func newScheduler(settings *config.Settings, r *flow.Runner, opts *rootOptions) (*schedule.Scheduler, error) {
	loc, err := settings.Location()
	if err != nil {
		return nil, &config.Error{Path: opts.configDir, Err: err}
	}

	sched := schedule.New(loc, opts.logger)
	for _, name := range flow.Names {
		name := name
		_, err := sched.Register(name, settings.CronFor(name), func(ctx context.Context, runID model.RunID) error {
			_, err := r.Run(ctx, name, runID)
			return err
		})
		if err != nil {
			return nil, &config.Error{Path: opts.configDir, Err: err}
		}
	}
	return sched, nil
}
