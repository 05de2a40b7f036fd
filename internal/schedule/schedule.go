// Package schedule runs flows on cron schedules in a fixed timezone.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
)

// Job is one scheduled flow invocation. Each run gets a fresh run ID.
type Job func(ctx context.Context, runID model.RunID) error

// Entry describes a registered job.
type Entry struct {
	Name string
	Spec string
	Next time.Time
}

// Scheduler registers jobs on standard five-field cron expressions. An
// invocation still running when its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu    sync.Mutex
	ctx   context.Context
	names map[cron.EntryID]string
	specs map[cron.EntryID]string
}

func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    context.Background(),
		names:  map[cron.EntryID]string{},
		specs:  map[cron.EntryID]string{},
	}
}

// Register schedules job under name.
func (s *Scheduler) Register(name, spec string, job Job) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() { s.invoke(name, job) })
	if err != nil {
		return 0, fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.mu.Lock()
	s.names[id] = name
	s.specs[id] = spec
	s.mu.Unlock()
	s.logger.Info("registered flow", "flow", name, "cron", spec)
	return id, nil
}

func (s *Scheduler) invoke(name string, job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	runID, err := model.NewRunID()
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled run failed", "flow", name, "error", err)
		return
	}
	logger := s.logger.With("flow", name, "run_id", runID)

	start := time.Now()
	logger.InfoContext(ctx, "scheduled run started")
	if err := job(ctx, runID); err != nil {
		logger.ErrorContext(ctx, "scheduled run failed", "duration", time.Since(start), "error", err)
		return
	}
	logger.InfoContext(ctx, "scheduled run finished", "duration", time.Since(start))
}

// Entries lists registered jobs with their next activation.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.cron.Entries() {
		out = append(out, Entry{Name: s.names[e.ID], Spec: s.specs[e.ID], Next: e.Next})
	}
	return out
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish. Jobs receive ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	for _, e := range s.Entries() {
		s.logger.InfoContext(ctx, "next run", "flow", e.Name, "at", e.Next)
	}

	<-ctx.Done()
	s.logger.InfoContext(ctx, "stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
