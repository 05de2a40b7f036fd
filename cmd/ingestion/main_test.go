package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/config"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/exitcode"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/flow"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/ingestion"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/storage"
)

const creds = `
msf:
  key: "test-key"
  password: "MYSPORTSFEEDS"
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
`

type stubStore struct {
	mu   sync.Mutex
	keys []string
}

func (s *stubStore) Put(ctx context.Context, bucket, key string, data []byte, opts storage.PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, bucket+"/"+key)
	return nil
}

type harness struct {
	dir   string
	hits  atomic.Int32
	store *stubStore
}

func newHarness(t *testing.T, credsDoc string, handler http.HandlerFunc) *harness {
	t.Helper()
	h := &harness{dir: t.TempDir(), store: &stubStore{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	base := fmt.Sprintf("fetch:\n  retry_delay: 1ms\nmsf:\n  base_url: %s/msf\nmoneypuck:\n  base_url: %s/mp\n", server.URL, server.URL)
	if err := os.WriteFile(filepath.Join(h.dir, "config.base.yaml"), []byte(base), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(h.dir, "creds.yml"), []byte(credsDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) run(args ...string) int {
	args = append(args,
		"--config-dir", h.dir,
		"--creds", filepath.Join(h.dir, "creds.yml"),
		"--log-level", "error",
	)
	open := func(ctx context.Context, cfg storage.MinIOConfig) (ingestion.ObjectStorage, error) {
		return h.store, nil
	}
	clock := func() time.Time { return time.Date(2023, 11, 30, 17, 0, 0, 0, time.UTC) }
	return execute(context.Background(), args, []flow.Option{flow.WithStoreOpener(open), flow.WithClock(clock)})
}

func jsonOK(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/mp/") {
		_, _ = w.Write([]byte("team,season\nBOS,2023\n"))
		return
	}
	_, _ = w.Write([]byte(`{"dfsEntries":[]}`))
}

func TestExecute_DFS(t *testing.T) {
	h := newHarness(t, creds, jsonOK)

	if code := h.run("dfs"); code != exitcode.Success {
		t.Fatalf("expected exit %d, got %d", exitcode.Success, code)
	}
	want := "raw-nhl-dfs/mysportsfeeds/dev/nhl_dfs/v=v2.1/date=2023-11-30/nhl_dfs_2023-11-30.json"
	if len(h.store.keys) != 1 || h.store.keys[0] != want {
		t.Fatalf("expected %s stored, got %v", want, h.store.keys)
	}
}

func TestExecute_RunAll(t *testing.T) {
	h := newHarness(t, creds, jsonOK)

	if code := h.run("run-all", "--run-id", "01890c24-905b-7122-b170-b60814e6ee06"); code != exitcode.Success {
		t.Fatalf("expected exit %d, got %d", exitcode.Success, code)
	}
	if len(h.store.keys) != 3 {
		t.Fatalf("expected 3 objects, got %v", h.store.keys)
	}
}

func TestExecute_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		creds    string
		handler  http.HandlerFunc
		args     []string
		want     int
		wantHits int32
	}{
		{
			name:    "missing credential",
			creds:   strings.Replace(creds, `  password: "MYSPORTSFEEDS"`, "", 1),
			handler: jsonOK,
			args:    []string{"projections"},
			want:    exitcode.ConfigError,
		},
		{
			name:    "invalid date",
			creds:   creds,
			handler: jsonOK,
			args:    []string{"dfs", "--date", "yesterday"},
			want:    exitcode.ConfigError,
		},
		{
			name:    "invalid run id",
			creds:   creds,
			handler: jsonOK,
			args:    []string{"dfs", "--run-id", "550e8400-e29b-41d4-a716-446655440000"},
			want:    exitcode.ConfigError,
		},
		{
			name:    "unknown flag",
			creds:   creds,
			handler: jsonOK,
			args:    []string{"dfs", "--bogus"},
			want:    exitcode.ConfigError,
		},
		{
			name:     "auth error",
			creds:    creds,
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			args:     []string{"dfs"},
			want:     exitcode.APIError,
			wantHits: 1,
		},
		{
			name:     "invalid payload",
			creds:    creds,
			handler:  func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) },
			args:     []string{"dfs", "--date", "20231130"},
			want:     exitcode.DataError,
			wantHits: 1,
		},
		{
			name:     "no content is success",
			creds:    creds,
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
			args:     []string{"teamstats", "--season-year", "2023"},
			want:     exitcode.Success,
			wantHits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.creds, tt.handler)
			if code := h.run(tt.args...); code != tt.want {
				t.Fatalf("expected exit %d, got %d", tt.want, code)
			}
			if got := h.hits.Load(); got != tt.wantHits {
				t.Fatalf("expected %d upstream hits, got %d", tt.wantHits, got)
			}
		})
	}
}

func TestNewScheduler_RegistersEveryFlow(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Schedule.Flows = map[string]string{flow.TeamStatsName: "0 6 * * 1"}
	opts := &rootOptions{settings: settings}

	r, err := flow.NewRunner(settings, "creds.yml", nil)
	if err != nil {
		t.Fatal(err)
	}
	sched, err := newScheduler(settings, r, opts)
	if err != nil {
		t.Fatal(err)
	}

	specs := map[string]string{}
	for _, e := range sched.Entries() {
		specs[e.Name] = e.Spec
	}
	want := map[string]string{
		flow.DFSActualsName:     "0 11 * 10-12,1-6 *",
		flow.DFSProjectionsName: "0 11 * 10-12,1-6 *",
		flow.TeamStatsName:      "0 6 * * 1",
	}
	for name, spec := range want {
		if specs[name] != spec {
			t.Errorf("flow %s: expected cron %q, got %q", name, spec, specs[name])
		}
	}
}
