package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/dpx/internal/database"
	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/internal/excel"
	"github.com/example/dpx/internal/experiment"
	"github.com/example/dpx/internal/task"
	"github.com/example/dpx/pkg/models"
)

// simulatorTelegramID marks the participant that owns simulated sessions
const simulatorTelegramID = 0

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the task with a simulated participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			accuracy, _ := cmd.Flags().GetFloat64("accuracy")
			omission, _ := cmd.Flags().GetFloat64("omission")
			record, _ := cmd.Flags().GetBool("record")
			out, _ := cmd.Flags().GetString("out")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if cmd.Flags().Changed("seed") {
				cfg.Task.Seed, _ = cmd.Flags().GetInt64("seed")
			}
			if cfg.Task.Seed == 0 {
				cfg.Task.Seed = time.Now().UnixNano()
			}

			b, err := task.NewBuilder(cfg.Task)
			if err != nil {
				return err
			}
			sim := experiment.NewSimulator(cfg.Task.Choices, accuracy, uint64(cfg.Task.Seed))
			sim.Omission = omission

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			sessionID := fmt.Sprintf("sim-%d", cfg.Task.Seed)
			var recorder experiment.Recorder
			if record {
				if err := database.Connect(cfg.Database); err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer database.Close()

				session, err := simulatedSession(ctx, cfg.Task.Seed)
				if err != nil {
					return err
				}
				sessionID = session.ID
				recorder = database.NewTrialRepository()
			}

			res, runErr := experiment.NewRunner(sessionID, b, sim, recorder, logger).Run(ctx)
			if runErr != nil {
				if record {
					closeSimulatedSession(sessionID, runErr, logger)
				}
				return runErr
			}

			if out != "" {
				if err := excel.Export(out, res.Records); err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), struct {
					SessionID       string        `json:"session_id"`
					PracticeRepeats int           `json:"practice_repeats"`
					Summary         summaryOutput `json:"summary"`
				}{res.SessionID, res.PracticeRepeats, newSummaryOutput(res.Summary)})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Session: %s\n", res.SessionID)
			fmt.Fprintf(w, "Practice repeats: %d (%s)\n", res.PracticeRepeats, res.PracticeAccuracy)
			return printSummary(w, res.Summary, false)
		},
	}

	cmd.Flags().Float64("accuracy", 0.9, "Probability of a correct probe response")
	cmd.Flags().Float64("omission", 0.02, "Probability of missing a probe")
	cmd.Flags().Int64("seed", 0, "Random seed, 0 seeds from the clock")
	cmd.Flags().Bool("record", false, "Store the session in the database")
	cmd.Flags().StringP("out", "o", "", "Also export the records to .xlsx or .csv")
	return cmd
}

// closeSimulatedSession records why a simulated run stopped. A run that
// completed its test blocks is already finished and stays that way.
func closeSimulatedSession(sessionID string, runErr error, logger *slog.Logger) {
	status := models.SessionFailed
	if apperrors.Is(runErr, apperrors.CodeAborted) {
		status = models.SessionAbandoned
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.NewSessionRepository().Finish(ctx, sessionID, status); err != nil {
		logger.Debug("session not closed", "session", sessionID, "status", status, "error", err)
	}
}

// simulatedSession opens a session owned by the simulator participant
func simulatedSession(ctx context.Context, seed int64) (*models.Session, error) {
	p, err := database.NewParticipantRepository().GetOrCreate(ctx, &models.Participant{
		TelegramID: simulatorTelegramID,
		Username:   "simulator",
		FirstName:  "Simulator",
	})
	if err != nil {
		return nil, err
	}
	return database.NewSessionRepository().Create(ctx, p.ID, seed)
}
