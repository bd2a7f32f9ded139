package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/carpenike/helix/internal/handlers"
	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/lumio"
	"github.com/carpenike/helix/internal/metrics"
	"github.com/carpenike/helix/internal/middleware"
	"github.com/carpenike/helix/internal/models"
	"github.com/carpenike/helix/internal/notify"
	"github.com/carpenike/helix/internal/planning"
	"github.com/carpenike/helix/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if n, err := models.CountUsers(ctx, db); err == nil && n == 0 {
		log.Warn("no coach accounts yet; create one with `helix create-coach`")
	}

	m := metrics.New()

	// Expired sessions are removed by the maintenance scheduler, so the
	// store's own cleanup goroutine is disabled.
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(db, 0)
	sessionManager.Lifetime = 30 * 24 * time.Hour
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.SecureCookies

	providers := llm.NewDefaultRegistry(llm.Endpoints{
		OpenAIBaseURL:    cfg.LLM.OpenAIBaseURL,
		AnthropicBaseURL: cfg.LLM.AnthropicBaseURL,
	}, cfg.LLM.Timeout)

	broadcaster := notify.NewBroadcaster([]string{cfg.Notify.URLs}, a.logger)
	if err := broadcaster.Validate(); err != nil {
		log.WithError(err).Warn("notifications disabled")
		broadcaster = nil
	}

	svc := planning.NewService(planning.NewSQLStore(db), providers)
	svc.Metrics = m
	svc.Log = a.logger
	if broadcaster.Enabled() {
		svc.Notifier = broadcaster
	}

	sched := scheduler.New(db, scheduler.Config{
		Interval:  cfg.Maintenance.Interval,
		Retention: cfg.Maintenance.Retention,
		Metrics:   m,
	})
	sched.Start()
	defer sched.Stop()

	loginLimit := middleware.NewRateLimiter(5, time.Minute, cfg.Server.TrustedProxies...)
	defer loginLimit.Stop()

	router := handlers.NewRouter(handlers.Deps{
		DB:        db,
		Sessions:  sessionManager,
		Planning:  svc,
		Providers: providers,
		Cards: lumio.NewFetcher(lumio.Options{
			CacheSizeMB: cfg.Lumio.CacheSizeMB,
			TTL:         cfg.Lumio.CacheTTL,
			UserAgent:   cfg.Lumio.UserAgent,
			Metrics:     m,
		}),
		Scheduler:   sched,
		Metrics:     m,
		Logger:      a.logger,
		LoginLimit:  loginLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Provider calls can take up to llm.timeout.
		WriteTimeout: cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Helix listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	broadcaster.Wait()
	return nil
}
