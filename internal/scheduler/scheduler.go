// Package scheduler runs periodic maintenance in the background.
package scheduler

import (
	"context"
	"database/sql"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/carpenike/helix/internal/metrics"
	"github.com/carpenike/helix/internal/models"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultInterval  = 24 * time.Hour
	DefaultRetention = 7 * 24 * time.Hour
)

// Config controls how often maintenance runs and what it removes.
type Config struct {
	Interval time.Duration
	// Retention is how long an empty conversation is kept.
	Retention time.Duration
	Metrics   *metrics.Manager
}

// Status holds the result of the last maintenance run.
type Status struct {
	LastRun             time.Time `json:"last_run"`
	NextRun             time.Time `json:"next_run"`
	ConversationsPruned int64     `json:"conversations_pruned"`
	SessionsExpired     int64     `json:"sessions_expired"`
	IntervalHours       float64   `json:"interval_hours"`
	RetentionDays       float64   `json:"retention_days"`
}

// Scheduler runs periodic maintenance tasks in the background.
type Scheduler struct {
	db        *sql.DB
	interval  time.Duration
	retention time.Duration
	metrics   *metrics.Manager
	now       func() time.Time

	stop chan struct{}
	done chan struct{}

	mu     sync.RWMutex
	status Status
}

// New creates a new Scheduler for the given database.
func New(db *sql.DB, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	return &Scheduler{
		db:        db,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		metrics:   cfg.Metrics,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins running maintenance tasks. It runs an initial pass immediately,
// then repeats at the configured interval. Call Stop to shut down gracefully.
func (s *Scheduler) Start() {
	go s.run()
	log.WithField("interval", s.interval).Info("scheduler: started")
}

// Stop signals the scheduler to shut down and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// Status returns the result of the last maintenance run.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Scheduler) run() {
	defer close(s.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stop:
			return
		}
	}
}

// RunOnce executes all maintenance tasks and records the status.
func (s *Scheduler) RunOnce(ctx context.Context) Status {
	log.Debug("scheduler: running maintenance")

	now := s.now()
	pruned := s.pruneEmptyConversations(ctx, now)
	expired := s.deleteExpiredSessions(ctx)

	st := Status{
		LastRun:             now,
		NextRun:             now.Add(s.interval),
		ConversationsPruned: pruned,
		SessionsExpired:     expired,
		IntervalHours:       s.interval.Hours(),
		RetentionDays:       s.retention.Hours() / 24,
	}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()

	log.WithFields(log.Fields{"conversations": pruned, "sessions": expired}).Info("scheduler: maintenance complete")
	return st
}

// pruneEmptyConversations removes conversations that never got a message
// and are older than the retention period.
func (s *Scheduler) pruneEmptyConversations(ctx context.Context, now time.Time) int64 {
	deleted, err := models.PruneEmptyConversations(ctx, s.db, now.Add(-s.retention))
	if err != nil {
		log.WithError(err).Error("scheduler: prune empty conversations")
		return 0
	}
	s.metrics.Pruned(deleted)
	return deleted
}

// deleteExpiredSessions removes expired login sessions.
func (s *Scheduler) deleteExpiredSessions(ctx context.Context) int64 {
	deleted, err := models.DeleteExpiredHTTPSessions(ctx, s.db)
	if err != nil {
		log.WithError(err).Error("scheduler: delete expired sessions")
		return 0
	}
	return deleted
}
