// Package experiment drives a participant through the task: instructions,
// the accuracy-gated practice loop, the test blocks and the end screen.
// Presentation is delegated to a Presenter, one trial at a time.
package experiment

import (
	"context"
	"log/slog"

	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/internal/logging"
	"github.com/example/dpx/internal/task"
)

// Presenter shows a trial and returns the observed response. It must
// honour the trial's durations and return task.Timeout() when no
// accepted key arrives within the response window.
type Presenter interface {
	Present(ctx context.Context, t task.Trial) (task.Response, error)
}

// Recorder persists trial records and practice results as they happen.
// RecordCompleted is called once the last test trial is recorded, before
// the end screen, which may wait indefinitely.
type Recorder interface {
	RecordTrial(ctx context.Context, sessionID string, rec task.Record) error
	RecordPractice(ctx context.Context, sessionID string, repeat int, acc task.Accuracy) error
	RecordCompleted(ctx context.Context, sessionID string) error
}

// Result is the outcome of a completed run
type Result struct {
	SessionID        string
	PracticeRepeats  int
	PracticeAccuracy task.Accuracy
	Records          []task.Record
	Summary          task.Summary
}

// Runner executes the timeline for one session
type Runner struct {
	sessionID string
	builder   *task.Builder
	presenter Presenter
	recorder  Recorder
	logger    *slog.Logger

	session *task.Session
	records []task.Record
}

// NewRunner creates a runner. recorder may be nil.
func NewRunner(sessionID string, b *task.Builder, p Presenter, r Recorder, logger *slog.Logger) *Runner {
	return &Runner{
		sessionID: sessionID,
		builder:   b,
		presenter: p,
		recorder:  r,
		logger:    logging.OrDiscard(logger).With("session", sessionID),
		session:   task.NewSession(b.Config().Choices),
	}
}

// Session exposes the live session state
func (r *Runner) Session() *task.Session { return r.session }

// Run presents the whole task. Cancelling ctx between or during trials
// returns an ABORTED error wrapping ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.present(ctx, r.builder.Instructions()); err != nil {
		return nil, err
	}

	acc, err := r.practice(ctx)
	if err != nil {
		return nil, err
	}

	blocks, err := r.builder.TestBlocks()
	if err != nil {
		return nil, err
	}
	for n, block := range blocks {
		if err := r.present(ctx, r.builder.TestStart(n)); err != nil {
			return nil, err
		}
		for _, t := range block {
			if err := r.present(ctx, t); err != nil {
				return nil, err
			}
		}
		if n+1 < len(blocks) {
			if err := r.present(ctx, r.builder.Rest(n)); err != nil {
				return nil, err
			}
		}
	}

	if r.recorder != nil {
		if err := r.recorder.RecordCompleted(ctx, r.sessionID); err != nil {
			return nil, apperrors.Wrap(err, "failed to record completion")
		}
	}

	if err := r.present(ctx, r.builder.End()); err != nil {
		return nil, err
	}

	summary := task.Summarize(r.records, task.StageTest)
	r.logger.Info("session finished",
		"practice_repeats", r.session.PracticeRepeats,
		"practice_accuracy", acc.String(),
		"test_accuracy", summary.Accuracy.String())

	return &Result{
		SessionID:        r.sessionID,
		PracticeRepeats:  r.session.PracticeRepeats,
		PracticeAccuracy: acc,
		Records:          r.records,
		Summary:          summary,
	}, nil
}

// practice repeats freshly shuffled practice blocks until the policy is met
func (r *Runner) practice(ctx context.Context) (task.Accuracy, error) {
	policy := r.builder.Config().Practice
	for {
		trials, err := r.builder.PracticeTrials()
		if err != nil {
			return task.Accuracy{}, err
		}

		r.session.BeginPractice()
		for _, t := range trials {
			if err := r.present(ctx, t); err != nil {
				return task.Accuracy{}, err
			}
		}
		acc := r.session.EndPractice()
		repeats := r.session.PracticeRepeats

		r.logger.Info("practice block accuracy", "repeat", repeats, "accuracy", acc.String())
		if r.recorder != nil {
			if err := r.recorder.RecordPractice(ctx, r.sessionID, repeats, acc); err != nil {
				return task.Accuracy{}, apperrors.Wrap(err, "failed to record practice result")
			}
		}

		if policy.Done(repeats, acc) {
			return acc, nil
		}
	}
}

func (r *Runner) present(ctx context.Context, t task.Trial) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Aborted(err, "run aborted")
	}
	if t.Kind == task.KindFeedback {
		if o, ok := r.session.LastOutcome(); ok {
			t = t.WithFeedback(o)
		}
	}

	resp, err := r.presenter.Present(ctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return apperrors.Aborted(ctx.Err(), "run aborted")
		}
		return apperrors.Wrapf(err, "failed to present %s trial", t.Kind)
	}
	if !t.Accepts(resp.Key) {
		resp = task.Timeout()
	}

	rec := r.session.Complete(t, resp)
	r.records = append(r.records, rec)
	r.logger.Log(ctx, logging.LevelTrace, "trial complete",
		"index", rec.Index, "trial_id", rec.Kind, "condition", rec.Condition,
		"key", rec.KeyPress, "rt", rec.RT, "correct", rec.Correct)

	if r.recorder != nil {
		if err := r.recorder.RecordTrial(ctx, r.sessionID, rec); err != nil {
			return apperrors.Wrapf(err, "failed to record trial %d", rec.Index)
		}
	}
	return nil
}
