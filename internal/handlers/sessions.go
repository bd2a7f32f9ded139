package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/carpenike/helix/internal/models"
)

// TrainingSessions handles planned and completed training sessions.
type TrainingSessions struct {
	DB *sql.DB
}

// ListForClient returns a client's sessions, most recent first.
func (h *TrainingSessions) ListForClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID cliente non valido")
		return
	}
	if _, ok := ownedClient(w, r, h.DB, id); !ok {
		return
	}
	sessions, err := models.ListSessions(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "list sessions", err)
		return
	}
	out := make([]*sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionView(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns a session with its ordered exercises.
func (h *TrainingSessions) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	view, err := h.withExercises(r, s)
	if err != nil {
		serverError(w, r, "list session exercises", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Complete marks a session completed.
func (h *TrainingSessions) Complete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := models.CompleteSession(r.Context(), h.DB, s.ID); err != nil {
		serverError(w, r, "complete session", err)
		return
	}
	s.Status = models.SessionCompleted
	view, err := h.withExercises(r, s)
	if err != nil {
		serverError(w, r, "list session exercises", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// MarkExercise records whether one exercise of the session was done or
// skipped.
func (h *TrainingSessions) MarkExercise(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID esercizio non valido")
		return
	}
	var req struct {
		Completed bool `json:"completed"`
		Skipped   bool `json:"skipped"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	if req.Completed && req.Skipped {
		writeError(w, http.StatusBadRequest, "Un esercizio non può essere sia completato che saltato")
		return
	}

	items, err := models.ListSessionExercises(r.Context(), h.DB, s.ID)
	if err != nil {
		serverError(w, r, "list session exercises", err)
		return
	}
	var found *models.SessionExercise
	for _, it := range items {
		if it.ID == itemID {
			found = it
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, "Esercizio non trovato nella sessione")
		return
	}
	if err := models.MarkSessionExercise(r.Context(), h.DB, itemID, req.Completed, req.Skipped); err != nil {
		serverError(w, r, "mark session exercise", err)
		return
	}
	found.Completed, found.Skipped = req.Completed, req.Skipped
	writeJSON(w, http.StatusOK, newSessionExerciseView(found))
}

// ownedSession loads the {id} session and checks that its client belongs to
// the coach. ok is false when a response has been written.
func (h *TrainingSessions) ownedSession(w http.ResponseWriter, r *http.Request) (*models.TrainingSession, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID sessione non valido")
		return nil, false
	}
	s, err := models.GetSessionByID(r.Context(), h.DB, id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sessione non trovata")
		return nil, false
	}
	if err != nil {
		serverError(w, r, "load session", err)
		return nil, false
	}
	if _, err := models.GetCoachClient(r.Context(), h.DB, coachID(r), s.ClientID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sessione non trovata")
		} else {
			serverError(w, r, "load session client", err)
		}
		return nil, false
	}
	return s, true
}

func (h *TrainingSessions) withExercises(r *http.Request, s *models.TrainingSession) (*sessionView, error) {
	items, err := models.ListSessionExercises(r.Context(), h.DB, s.ID)
	if err != nil {
		return nil, err
	}
	view := newSessionView(s)
	view.Exercises = make([]*sessionExerciseView, 0, len(items))
	for _, it := range items {
		view.Exercises = append(view.Exercises, newSessionExerciseView(it))
	}
	return view, nil
}
