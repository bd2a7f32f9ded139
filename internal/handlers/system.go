package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/carpenike/helix/internal/scheduler"
)

// Maintainer is the background maintenance job.
type Maintainer interface {
	Status() scheduler.Status
	RunOnce(ctx context.Context) scheduler.Status
}

// System serves health and maintenance endpoints.
type System struct {
	DB        *sql.DB
	Scheduler Maintainer
}

// Health answers "ok" when the database responds.
func (h *System) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain")
	if err := h.DB.PingContext(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "database unavailable")
		return
	}
	fmt.Fprintln(w, "ok")
}

// Maintenance returns the result of the last maintenance run.
func (h *System) Maintenance(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusNotFound, "Manutenzione non attiva")
		return
	}
	writeJSON(w, http.StatusOK, h.Scheduler.Status())
}

// RunMaintenance runs maintenance now and returns its result.
func (h *System) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusNotFound, "Manutenzione non attiva")
		return
	}
	writeJSON(w, http.StatusOK, h.Scheduler.RunOnce(r.Context()))
}
