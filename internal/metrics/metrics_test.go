package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", "200", time.Millisecond)
		m.ObserveChat("openai", "ok", time.Second)
		m.PlanExtracted()
		m.PlanAccepted(1, 2)
		m.CardFetch("hit")
		m.Pruned(3)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanAccepted(t *testing.T) {
	m := NewManager(prometheus.NewRegistry())
	m.PlanAccepted(2, 1)
	m.PlanAccepted(0, 0)

	body := scrape(t, m)
	assert.Contains(t, body, "helix_planning_plans_accepted_total 2")
	assert.Contains(t, body, "helix_planning_exercises_created_total 2")
	assert.Contains(t, body, "helix_planning_exercises_skipped_total 1")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveChat("anthropic", "ok", 2*time.Second)

	body := scrape(t, m)
	assert.True(t, strings.Contains(body, `helix_planning_chat_requests_total{outcome="ok",provider="anthropic"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func scrape(t *testing.T, m *Manager) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
