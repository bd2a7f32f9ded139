// Package handlers exposes the JSON HTTP API.
package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/lumio"
	"github.com/carpenike/helix/internal/metrics"
	"github.com/carpenike/helix/internal/middleware"
	"github.com/carpenike/helix/internal/planning"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	DB          *sql.DB
	Sessions    *scs.SessionManager
	Planning    *planning.Service
	Providers   *llm.Registry
	Cards       *lumio.Fetcher
	Scheduler   Maintainer
	Metrics     *metrics.Manager
	Logger      logrus.FieldLogger
	LoginLimit  *middleware.RateLimiter
	CORSOrigins []string
	Now         func() time.Time
}

// NewRouter builds the HTTP handler for the whole API.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	auth := &Auth{DB: d.DB, Sessions: d.Sessions}
	chat := &AIChat{Providers: d.Providers, Metrics: d.Metrics}
	convs := &Conversations{Service: d.Planning}
	settings := &Settings{DB: d.DB}
	clients := &Clients{DB: d.DB, Now: d.Now}
	catalog := &Catalog{DB: d.DB}
	sessions := &TrainingSessions{DB: d.DB}
	cards := &Cards{Fetcher: d.Cards}
	system := &System{DB: d.DB, Scheduler: d.Scheduler}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(d.Logger, d.Metrics))
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:         300,
	}))

	r.Get("/health", system.Health)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Sessions.LoadAndSave)
		r.Use(middleware.RequireJSON)

		r.Group(func(r chi.Router) {
			if d.LoginLimit != nil {
				r.Use(d.LoginLimit.Limit)
			}
			r.Post("/login", auth.Login)
		})
		r.Post("/logout", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCoach(d.Sessions, d.DB))

			r.Get("/me", auth.Me)

			r.Post("/ai-chat", chat.Chat)
			r.Post("/lumio-card", cards.Fetch)

			r.Get("/conversations", convs.List)
			r.Post("/conversations", convs.Create)
			r.Get("/conversations/{id}", convs.Get)
			r.Post("/conversations/{id}/messages", convs.Send)
			r.Post("/conversations/{id}/accept", convs.Accept)

			r.Get("/settings/ai", settings.GetAI)
			r.Put("/settings/ai", settings.UpdateAI)
			r.Post("/settings/api-key", settings.IssueAPIKey)
			r.Delete("/settings/api-key", settings.RevokeAPIKey)

			r.Get("/clients", clients.List)
			r.Post("/clients", clients.Create)
			r.Get("/clients/{id}", clients.Get)
			r.Post("/clients/{id}/goal", clients.SetGoal)
			r.Put("/clients/{id}/notes", clients.UpdateNotes)
			r.Get("/clients/{id}/card", clients.Card)
			r.Get("/clients/{id}/sessions", sessions.ListForClient)

			r.Get("/gyms", catalog.ListGyms)
			r.Post("/gyms", catalog.CreateGym)
			r.Get("/exercises", catalog.ListExercises)
			r.Post("/exercises", catalog.CreateExercise)

			r.Get("/sessions/{id}", sessions.Get)
			r.Post("/sessions/{id}/complete", sessions.Complete)
			r.Patch("/sessions/{id}/exercises/{itemID}", sessions.MarkExercise)

			r.Get("/maintenance", system.Maintenance)
			r.Post("/maintenance/run", system.RunMaintenance)
		})
	})

	return r
}
