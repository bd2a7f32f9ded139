package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	log "github.com/sirupsen/logrus"

	"github.com/carpenike/helix/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// SessionUserKey is the session key holding the logged-in coach id.
const SessionUserKey = "userID"

// RequireCoach authenticates API requests. A bearer token carrying a personal
// API key wins; otherwise the cookie session must hold a coach id. The
// session manager's LoadAndSave must run before this middleware.
// Unauthenticated requests get a 401 JSON error.
func RequireCoach(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, sm, db)
			if err != nil {
				if !errors.Is(err, models.ErrNotFound) {
					log.WithError(err).Error("middleware: authenticate request")
				}
				writeError(w, http.StatusUnauthorized, "Autenticazione richiesta")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func authenticate(r *http.Request, sm *scs.SessionManager, db *sql.DB) (*models.User, error) {
	if token, ok := bearerToken(r); ok {
		if !strings.HasPrefix(token, models.APIKeyPrefix) {
			return nil, models.ErrNotFound
		}
		return models.GetUserByAPIKey(r.Context(), db, token)
	}

	userID := sm.GetInt64(r.Context(), SessionUserKey)
	if userID == 0 {
		return nil, models.ErrNotFound
	}
	user, err := models.GetUserByID(r.Context(), db, userID)
	if errors.Is(err, models.ErrNotFound) {
		if derr := sm.Destroy(r.Context()); derr != nil {
			log.WithError(derr).Warn("middleware: destroy stale session")
		}
	}
	return user, err
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}

// WithUser returns a context carrying the authenticated coach.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns nil if no user is set (should not happen behind RequireCoach).
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userContextKey).(*models.User)
	return u
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
