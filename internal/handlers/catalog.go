package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/carpenike/helix/internal/models"
)

// Catalog handles the coach's gyms and the exercise catalog.
type Catalog struct {
	DB *sql.DB
}

// ListGyms returns the coach's gyms.
func (h *Catalog) ListGyms(w http.ResponseWriter, r *http.Request) {
	gyms, err := models.ListGyms(r.Context(), h.DB, coachID(r))
	if err != nil {
		serverError(w, r, "list gyms", err)
		return
	}
	out := make([]gymView, 0, len(gyms))
	for _, g := range gyms {
		out = append(out, newGymView(g))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateGym adds a gym.
func (h *Catalog) CreateGym(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Address     string `json:"address"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Il nome della palestra è obbligatorio")
		return
	}
	g, err := models.CreateGym(r.Context(), h.DB, coachID(r), req.Name,
		strings.TrimSpace(req.Address), strings.TrimSpace(req.Description))
	if err != nil {
		serverError(w, r, "create gym", err)
		return
	}
	writeJSON(w, http.StatusCreated, newGymView(g))
}

// ListExercises returns the global catalog plus the coach's own exercises.
func (h *Catalog) ListExercises(w http.ResponseWriter, r *http.Request) {
	list, err := models.ListExercises(r.Context(), h.DB, coachID(r))
	if err != nil {
		serverError(w, r, "list exercises", err)
		return
	}
	out := make([]exerciseView, 0, len(list))
	for _, e := range list {
		out = append(out, newExerciseView(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateExercise adds a coach-owned exercise.
func (h *Catalog) CreateExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Il nome dell'esercizio è obbligatorio")
		return
	}
	uid := coachID(r)
	e, err := models.CreateExercise(r.Context(), h.DB, &uid, req.Name, strings.TrimSpace(req.Description))
	if errors.Is(err, models.ErrDuplicateExerciseName) {
		writeError(w, http.StatusConflict, "Esiste già un esercizio con questo nome")
		return
	}
	if err != nil {
		serverError(w, r, "create exercise", err)
		return
	}
	writeJSON(w, http.StatusCreated, newExerciseView(e))
}
