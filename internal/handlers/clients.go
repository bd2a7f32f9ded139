package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carpenike/helix/internal/clientcard"
	"github.com/carpenike/helix/internal/models"
)

// Clients handles the coach's client records and the markdown client card.
type Clients struct {
	DB  *sql.DB
	Now func() time.Time
}

func (h *Clients) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type clientRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	BirthDate     string `json:"birth_date"`
	AgeYears      *int64 `json:"age_years"`
	Gender        string `json:"gender"`
	PhysicalNotes string `json:"physical_notes"`
	Goal          string `json:"goal"`
}

// List returns the coach's clients.
func (h *Clients) List(w http.ResponseWriter, r *http.Request) {
	clients, err := models.ListClients(r.Context(), h.DB, coachID(r))
	if err != nil {
		serverError(w, r, "list clients", err)
		return
	}
	now := h.now()
	out := make([]clientView, 0, len(clients))
	for _, c := range clients {
		out = append(out, newClientView(c, now))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create adds a client for the coach.
func (h *Clients) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "Nome e cognome sono obbligatori")
		return
	}
	if req.Gender != "" && req.Gender != "male" && req.Gender != "female" {
		writeError(w, http.StatusBadRequest, "Genere non valido")
		return
	}
	if req.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", req.BirthDate); err != nil {
			writeError(w, http.StatusBadRequest, "Data di nascita non valida (YYYY-MM-DD)")
			return
		}
	}

	c, err := models.CreateClient(r.Context(), h.DB, models.ClientParams{
		UserID:        coachID(r),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		BirthDate:     req.BirthDate,
		AgeYears:      req.AgeYears,
		Gender:        req.Gender,
		PhysicalNotes: strings.TrimSpace(req.PhysicalNotes),
		Goal:          strings.TrimSpace(req.Goal),
	})
	if err != nil {
		serverError(w, r, "create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, newClientView(c, h.now()))
}

// Get returns one client with its goal history.
func (h *Clients) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID cliente non valido")
		return
	}
	c, ok := ownedClient(w, r, h.DB, id)
	if !ok {
		return
	}
	goals, err := models.ListGoalHistory(r.Context(), h.DB, c.ID)
	if err != nil {
		serverError(w, r, "list goal history", err)
		return
	}
	history := make([]goalView, 0, len(goals))
	for _, g := range goals {
		history = append(history, newGoalView(g))
	}
	writeJSON(w, http.StatusOK, struct {
		clientView
		GoalHistory []goalView `json:"goal_history"`
	}{newClientView(c, h.now()), history})
}

// SetGoal replaces the client's current goal, keeping the history.
func (h *Clients) SetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID cliente non valido")
		return
	}
	var req struct {
		Goal string `json:"goal"`
	}
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Goal) == "" {
		writeError(w, http.StatusBadRequest, "L'obiettivo è obbligatorio")
		return
	}
	if _, ok := ownedClient(w, r, h.DB, id); !ok {
		return
	}
	g, err := models.SetClientGoal(r.Context(), h.DB, id, strings.TrimSpace(req.Goal))
	if err != nil {
		serverError(w, r, "set client goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, newGoalView(g))
}

// UpdateNotes replaces the client's anamnesis.
func (h *Clients) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID cliente non valido")
		return
	}
	var req struct {
		PhysicalNotes string `json:"physical_notes"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	if _, ok := ownedClient(w, r, h.DB, id); !ok {
		return
	}
	if err := models.UpdatePhysicalNotes(r.Context(), h.DB, id, strings.TrimSpace(req.PhysicalNotes)); err != nil {
		serverError(w, r, "update physical notes", err)
		return
	}
	c, ok := ownedClient(w, r, h.DB, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newClientView(c, h.now()))
}

// Card renders the client card as markdown. hide_name and
// hide_gym_description query flags drop those parts.
func (h *Clients) Card(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID cliente non valido")
		return
	}
	c, ok := ownedClient(w, r, h.DB, id)
	if !ok {
		return
	}
	data, err := clientcard.Load(r.Context(), h.DB, c)
	if err != nil {
		serverError(w, r, "load client card", err)
		return
	}

	q := r.URL.Query()
	opts := clientcard.Options{
		HideName:           queryFlag(q.Get("hide_name")),
		HideGymDescription: queryFlag(q.Get("hide_gym_description")),
	}
	md := clientcard.Generate(data, opts, h.now())

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="scheda-cliente-%d.md"`, c.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

func queryFlag(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
