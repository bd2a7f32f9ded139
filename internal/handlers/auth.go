package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/carpenike/helix/internal/middleware"
	"github.com/carpenike/helix/internal/models"
)

// Auth holds dependencies for authentication handlers.
type Auth struct {
	DB       *sql.DB
	Sessions *scs.SessionManager
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and stores the coach id in a renewed session.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username e password sono obbligatori")
		return
	}

	user, err := models.Authenticate(r.Context(), a.DB, req.Username, req.Password)
	if errors.Is(err, models.ErrNotFound) {
		reqLog(r).WithField("username", req.Username).Info("handlers: login failed")
		writeError(w, http.StatusUnauthorized, "Username o password non validi")
		return
	}
	if err != nil {
		serverError(w, r, "authenticate", err)
		return
	}

	// Renew session token to prevent fixation.
	if err := a.Sessions.RenewToken(r.Context()); err != nil {
		serverError(w, r, "renew session", err)
		return
	}
	a.Sessions.Put(r.Context(), middleware.SessionUserKey, user.ID)

	writeJSON(w, http.StatusOK, newUserView(user))
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Destroy(r.Context()); err != nil {
		reqLog(r).WithError(err).Warn("handlers: destroy session")
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated coach.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserView(middleware.UserFromContext(r.Context())))
}
