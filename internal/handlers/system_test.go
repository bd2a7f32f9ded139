package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carpenike/helix/internal/metrics"
	"github.com/carpenike/helix/internal/scheduler"
)

type fakeMaintainer struct {
	status scheduler.Status
	runs   int
}

func (f *fakeMaintainer) Status() scheduler.Status { return f.status }

func (f *fakeMaintainer) RunOnce(context.Context) scheduler.Status {
	f.runs++
	f.status.ConversationsPruned = 3
	return f.status
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != "ok" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestMaintenance(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/maintenance", s.key, nil)
	expectStatus(t, rr, http.StatusNotFound)

	m := &fakeMaintainer{status: scheduler.Status{LastRun: testNow, IntervalHours: 24, RetentionDays: 7}}
	s.handler = NewRouter(Deps{DB: s.db, Sessions: testSessionManager(), Scheduler: m})

	rr = s.do(t, http.MethodGet, "/api/maintenance", s.key, nil)
	expectStatus(t, rr, http.StatusOK)
	var st scheduler.Status
	decodeBody(t, rr, &st)
	if !st.LastRun.Equal(testNow) || st.IntervalHours != 24 {
		t.Errorf("status = %+v", st)
	}

	rr = s.do(t, http.MethodPost, "/api/maintenance/run", s.key, nil)
	expectStatus(t, rr, http.StatusOK)
	decodeBody(t, rr, &st)
	if m.runs != 1 || st.ConversationsPruned != 3 {
		t.Errorf("runs = %d, status = %+v", m.runs, st)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	m := metrics.New()
	s.handler = NewRouter(Deps{DB: s.db, Sessions: testSessionManager(), Metrics: m})

	s.do(t, http.MethodGet, "/api/clients", s.key, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `helix_http_requests_total{method="GET",route="/api/clients",status="200"} 1`) {
		t.Errorf("request not counted:\n%s", rr.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/health", "", nil)
	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}
