package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/pkg/models"
)

type fakeSessions struct {
	mu      sync.Mutex
	cutoffs []time.Time
	expired []models.Session
	err     error
}

func (f *fakeSessions) ExpireStale(ctx context.Context, cutoff time.Time) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	out := f.expired
	f.expired = nil
	return out, f.err
}

func (f *fakeSessions) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

type fakeParticipants map[int64]models.Participant

func (f fakeParticipants) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	p, ok := f[id]
	if !ok {
		return nil, apperrors.NotFound("participant")
	}
	return &p, nil
}

type fakeNotifier struct {
	notified []string
	err      error
}

func (f *fakeNotifier) NotifyAbandoned(ctx context.Context, p models.Participant, s models.Session) error {
	f.notified = append(f.notified, s.ID)
	return f.err
}

func TestReap(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := &fakeSessions{expired: []models.Session{
		{ID: "a", ParticipantID: 1, UpdatedAt: clock.Add(-time.Hour)},
		{ID: "b", ParticipantID: 2, UpdatedAt: clock.Add(-time.Hour)},
	}}
	notifier := &fakeNotifier{}
	s := New(Config{StaleAfter: 15 * time.Minute}, sessions, fakeParticipants{1: {ID: 1, ChatID: 10}}, notifier, nil)
	s.now = func() time.Time { return clock }

	n, err := s.Reap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []time.Time{clock.Add(-15 * time.Minute)}, sessions.cutoffs)
	// participant 2 is unknown and skipped
	assert.Equal(t, []string{"a"}, notifier.notified)
}

func TestReapNotifierErrorDoesNotFail(t *testing.T) {
	sessions := &fakeSessions{expired: []models.Session{{ID: "a", ParticipantID: 1}}}
	notifier := &fakeNotifier{err: errors.New("blocked by user")}
	s := New(Config{}, sessions, fakeParticipants{1: {ID: 1}}, notifier, nil)

	n, err := s.Reap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReapStoreError(t *testing.T) {
	s := New(Config{}, &fakeSessions{err: errors.New("db closed")}, fakeParticipants{}, nil, nil)
	_, err := s.Reap(context.Background())
	assert.ErrorContains(t, err, "db closed")
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(Config{}, &fakeSessions{}, fakeParticipants{}, nil, nil)
	assert.Equal(t, DefaultReapInterval, s.cfg.ReapInterval)
	assert.Equal(t, DefaultStaleAfter, s.cfg.StaleAfter)
}

func TestStartRunsReaper(t *testing.T) {
	sessions := &fakeSessions{}
	s := New(Config{ReapInterval: 20 * time.Millisecond}, sessions, fakeParticipants{}, nil, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return sessions.calls() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
