package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/helix/internal/middleware"
	"github.com/carpenike/helix/internal/models"
)

// maxBodyBytes caps request bodies decoded by decodeJSON.
const maxBodyBytes = 1 << 20

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; a failed write means the client left.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// reqLog is the request-scoped logger set up by the router.
func reqLog(r *http.Request) logrus.FieldLogger {
	return middleware.LoggerFromContext(r.Context())
}

// serverError logs err and sends a generic 500.
func serverError(w http.ResponseWriter, r *http.Request, what string, err error) {
	reqLog(r).WithError(err).WithField("path", r.URL.Path).Errorf("handlers: %s", what)
	writeError(w, http.StatusInternalServerError, "Errore interno del server")
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("handlers: decode body: %w", err)
	}
	return nil
}

// pathID parses the named chi URL parameter as a positive int64.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("handlers: invalid %s %q", name, chi.URLParam(r, name))
	}
	return id, nil
}

// queryID parses an optional positive int64 query parameter.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("handlers: invalid %s %q", name, raw)
	}
	return &id, nil
}

// coachID returns the id of the authenticated coach. Routes using it sit
// behind middleware.RequireCoach.
func coachID(r *http.Request) int64 {
	if u := middleware.UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return 0
}

// ownedClient loads a client and writes a 404 when it does not belong to the
// coach. ok is false when a response has been written.
func ownedClient(w http.ResponseWriter, r *http.Request, db models.DBTX, id int64) (*models.Client, bool) {
	c, err := models.GetCoachClient(r.Context(), db, coachID(r), id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Cliente non trovato")
		return nil, false
	}
	if err != nil {
		serverError(w, r, "load client", err)
		return nil, false
	}
	return c, true
}
