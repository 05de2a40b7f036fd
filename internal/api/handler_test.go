package api_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/api"
	"github.com/kacper-wojtaszczyk/nhl-dfs-lake/internal/schedule"
)

type stubSchedule []schedule.Entry

func (s stubSchedule) Entries() []schedule.Entry { return s }

func TestHealthHandler(t *testing.T) {
	mux := http.NewServeMux()
	api.NewHandler(stubSchedule{}).RegisterRoutes(mux)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if body := w.Body.String(); body != "" {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestScheduleHandler(t *testing.T) {
	next := time.Date(2024, 10, 1, 16, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	api.NewHandler(stubSchedule{{Name: "dfs", Spec: "0 11 * 10-12,1-6 *", Next: next}}).RegisterRoutes(mux)

	req := httptest.NewRequest("GET", "/schedule", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var got []struct {
		Flow string    `json:"flow"`
		Cron string    `json:"cron"`
		Next time.Time `json:"next"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Flow != "dfs" || got[0].Cron != "0 11 * 10-12,1-6 *" || !got[0].Next.Equal(next) {
		t.Fatalf("unexpected schedule %+v", got)
	}
}

func TestScheduleHandler_RejectsPost(t *testing.T) {
	mux := http.NewServeMux()
	api.NewHandler(stubSchedule{}).RegisterRoutes(mux)

	req := httptest.NewRequest("POST", "/schedule", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", w.Code)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api.NewHandler(stubSchedule{}).RegisterRoutes(mux)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.Serve(ctx, ln, mux, nil) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
