package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dpx/internal/task"
	"github.com/example/dpx/pkg/models"
)

func TestTrialRecordRoundTrip(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	p := createParticipant(t, 1)
	s, err := NewSessionRepository().Create(ctx, p.ID, 5)
	require.NoError(t, err)

	repo := NewTrialRepository()
	records := []task.Record{
		{Index: 0, Kind: task.KindCue, Stage: task.StageTest, Condition: task.AX, Stimulus: "cue1.png", KeyPress: task.NoResponse, RT: -1},
		{Index: 1, Kind: task.KindProbe, Stage: task.StageTest, Condition: task.AX, Stimulus: "probe3.png",
			KeyPress: 37, RT: 412 * time.Millisecond, Scored: true, Correct: true, CorrectResponse: 37},
	}
	for _, rec := range records {
		require.NoError(t, repo.RecordTrial(ctx, s.ID, rec))
	}

	stored, err := repo.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, int64(-1), stored[0].RT)
	assert.Equal(t, int64(412), stored[1].RT)
	assert.Equal(t, "AX", stored[1].Condition)

	back, err := repo.Records(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, records, back)

	session, err := NewSessionRepository().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "test", session.Stage)
	assert.False(t, session.UpdatedAt.Before(s.UpdatedAt))
}

func TestTrialRecordDuplicateIndex(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	p := createParticipant(t, 1)
	s, err := NewSessionRepository().Create(ctx, p.ID, 5)
	require.NoError(t, err)

	repo := NewTrialRepository()
	rec := task.Record{Index: 3, Kind: task.KindFixation, Stage: task.StagePractice, Stimulus: "+", KeyPress: task.NoResponse, RT: -1}
	require.NoError(t, repo.RecordTrial(ctx, s.ID, rec))
	assert.Error(t, repo.RecordTrial(ctx, s.ID, rec))

	stored, err := repo.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestTrialRecordPractice(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	p := createParticipant(t, 1)
	s, err := NewSessionRepository().Create(ctx, p.ID, 5)
	require.NoError(t, err)

	require.NoError(t, NewTrialRepository().RecordPractice(ctx, s.ID, 1, task.Accuracy{Correct: 6, Total: 10}))

	got, err := NewSessionRepository().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PracticeRepeats)
	assert.Equal(t, 6, got.PracticeCorrect)
}

func TestTrialRecordCompleted(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	p := createParticipant(t, 1)
	sessions := NewSessionRepository()
	s, err := sessions.Create(ctx, p.ID, 5)
	require.NoError(t, err)

	repo := NewTrialRepository()
	require.NoError(t, repo.RecordCompleted(ctx, s.ID))
	// the end screen is still recorded after completion
	require.NoError(t, repo.RecordTrial(ctx, s.ID, task.Record{Index: 0, Kind: task.KindEnd, Stage: task.StageTest, KeyPress: task.NoResponse, RT: -1}))

	expired, err := sessions.ExpireStale(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, expired)

	last, err := sessions.LastFinished(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, last.ID)
	assert.Equal(t, models.SessionFinished, last.Status)
}

func TestRecordConversionRT(t *testing.T) {
	rec := task.Record{Kind: task.KindProbe, RT: 1500 * time.Millisecond, KeyPress: 40}
	tr := FromRecord("s", rec)
	assert.Equal(t, int64(1500), tr.RT)
	assert.Equal(t, 40, tr.KeyPress)
	assert.Equal(t, rec, ToRecord(tr))

	timeout := FromRecord("s", task.Record{RT: -1, KeyPress: task.NoResponse})
	assert.Equal(t, int64(-1), timeout.RT)
	assert.Equal(t, time.Duration(-1), ToRecord(timeout).RT)
}
