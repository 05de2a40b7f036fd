package schedule

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/model"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	return loc
}

func TestScheduler_Register(t *testing.T) {
	s := New(chicago(t), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	_, err := s.Register("dfs", "0 11 * 10-12,1-6 *", func(context.Context, model.RunID) error { return nil })
	require.NoError(t, err)

	_, err = s.Register("broken", "not a cron", func(context.Context, model.RunID) error { return nil })
	assert.Error(t, err)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "dfs", entries[0].Name)
	assert.Equal(t, "0 11 * 10-12,1-6 *", entries[0].Spec)
}

func TestSchedule_SeasonMonthsInChicago(t *testing.T) {
	loc := chicago(t)
	sched, err := cron.ParseStandard("0 11 * 10-12,1-6 *")
	require.NoError(t, err)

	// July is off-season; the next run is Oct 1 at 11:00 local time.
	next := sched.Next(time.Date(2024, 7, 15, 12, 0, 0, 0, loc))
	assert.True(t, next.Equal(time.Date(2024, 10, 1, 11, 0, 0, 0, loc)), "got %s", next)

	next = sched.Next(time.Date(2024, 11, 30, 10, 59, 0, 0, loc))
	assert.True(t, next.Equal(time.Date(2024, 11, 30, 11, 0, 0, 0, loc)), "got %s", next)
	assert.Equal(t, 17, next.UTC().Hour(), "11:00 CST is 17:00 UTC")
}

func TestScheduler_RunInvokesJobs(t *testing.T) {
	logs := &syncBuffer{}
	s := New(time.UTC, slog.New(slog.NewTextHandler(logs, nil)))

	var mu sync.Mutex
	var runIDs []model.RunID
	done := make(chan struct{}, 4)
	_, err := s.Register("every-second", "@every 1s", func(ctx context.Context, runID model.RunID) error {
		mu.Lock()
		runIDs = append(runIDs, runID)
		mu.Unlock()
		done <- struct{}{}
		return errors.New("upstream down")
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not invoked")
	}
	cancel()
	<-stopped

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, runIDs)
	assert.NoError(t, runIDs[0].Validate(), "each run gets a UUIDv7")
	assert.Contains(t, logs.String(), "scheduled run failed")
	assert.Contains(t, logs.String(), "upstream down")
}
