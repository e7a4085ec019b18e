// Package scheduler runs the background jobs of the bot. Currently that
// is the reaper that abandons sessions whose participant went quiet.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/dpx/internal/logging"
	"github.com/example/dpx/pkg/models"
)

// Defaults for the reaper
const (
	DefaultReapInterval = time.Minute
	DefaultStaleAfter   = 10 * time.Minute
)

// Config controls how often the reaper runs and when a session is stale
type Config struct {
	ReapInterval time.Duration `yaml:"reap_interval"`
	StaleAfter   time.Duration `yaml:"stale_after"`
}

// Notifier tells a participant their session was abandoned
type Notifier interface {
	NotifyAbandoned(ctx context.Context, p models.Participant, s models.Session) error
}

// SessionStore expires stale sessions
type SessionStore interface {
	ExpireStale(ctx context.Context, cutoff time.Time) ([]models.Session, error)
}

// ParticipantStore looks participants up by row id
type ParticipantStore interface {
	GetByID(ctx context.Context, id int64) (*models.Participant, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler    *gocron.Scheduler
	cfg          Config
	sessions     SessionStore
	participants ParticipantStore
	notifier     Notifier
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a new scheduler instance. notifier may be nil.
func New(cfg Config, sessions SessionStore, participants ParticipantStore, notifier Notifier, logger *slog.Logger) *Scheduler {
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:    s,
		cfg:          cfg,
		sessions:     sessions,
		participants: participants,
		notifier:     notifier,
		logger:       logging.OrDiscard(logger),
		now:          time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.cfg.ReapInterval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReapInterval)
		defer cancel()
		if _, err := s.Reap(ctx); err != nil {
			s.logger.Error("session reaper failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session reaper: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Reap abandons sessions idle for longer than StaleAfter and notifies
// their participants. It returns the number of sessions abandoned.
func (s *Scheduler) Reap(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.StaleAfter)
	expired, err := s.sessions.ExpireStale(ctx, cutoff)
	if err != nil {
		return len(expired), fmt.Errorf("failed to expire sessions: %w", err)
	}

	for _, sess := range expired {
		s.logger.Info("session abandoned", "session", sess.ID, "participant", sess.ParticipantID,
			"idle", s.now().Sub(sess.UpdatedAt).Round(time.Second))
		if s.notifier == nil {
			continue
		}
		p, err := s.participants.GetByID(ctx, sess.ParticipantID)
		if err != nil {
			s.logger.Warn("participant lookup failed", "session", sess.ID, "error", err)
			continue
		}
		if err := s.notifier.NotifyAbandoned(ctx, *p, sess); err != nil {
			s.logger.Warn("failed to notify participant", "session", sess.ID, "error", err)
		}
	}
	return len(expired), nil
}
