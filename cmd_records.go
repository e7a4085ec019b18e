package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/example/dpx/internal/database"
	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/internal/excel"
	"github.com/example/dpx/internal/task"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a recorded session to .xlsx or .csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sessionID, _ := cmd.Flags().GetString("session")
			out, _ := cmd.Flags().GetString("out")

			if err := database.Connect(cfg.Database); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			records, err := sessionRecords(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			if err := excel.Export(out, records); err != nil {
				return err
			}
			logger.Info("session exported", "session", sessionID, "records", len(records), "path", out)
			return nil
		},
	}

	cmd.Flags().String("session", "", "Session id")
	cmd.Flags().StringP("out", "o", "dpx.xlsx", "Output file")
	cmd.MarkFlagRequired("session")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize a recorded session or an exported file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sessionID, _ := cmd.Flags().GetString("session")
			file, _ := cmd.Flags().GetString("file")
			stage, _ := cmd.Flags().GetString("stage")
			jsonOut, _ := cmd.Flags().GetBool("json")

			var records []task.Record
			switch {
			case file != "":
				res, err := excel.Import(file)
				if err != nil {
					return err
				}
				for _, e := range res.Errors {
					logger.Warn("skipped row", "error", e)
				}
				records = res.Records
			case sessionID != "":
				if err := database.Connect(cfg.Database); err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer database.Close()
				if records, err = sessionRecords(cmd.Context(), sessionID); err != nil {
					return err
				}
			default:
				return apperrors.ConfigInvalid("either --session or --file is required")
			}

			return printSummary(cmd.OutOrStdout(), task.Summarize(records, task.Stage(stage)), jsonOut)
		},
	}

	cmd.Flags().String("session", "", "Session id in the database")
	cmd.Flags().String("file", "", "Exported .xlsx or .csv file")
	cmd.Flags().String("stage", string(task.StageTest), "Stage to summarize, empty for all")
	return cmd
}

func sessionRecords(ctx context.Context, sessionID string) ([]task.Record, error) {
	records, err := database.NewTrialRepository().Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NotFound("trials for session " + sessionID)
	}
	return records, nil
}

type summaryOutput struct {
	task.Summary
	Correct  int      `json:"correct"`
	Total    int      `json:"total"`
	Accuracy *float64 `json:"accuracy"`
}

func newSummaryOutput(s task.Summary) summaryOutput {
	out := summaryOutput{Summary: s, Correct: s.Accuracy.Correct, Total: s.Accuracy.Total}
	if v, ok := s.Accuracy.Value(); ok {
		out.Accuracy = &v
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, s task.Summary, jsonOut bool) error {
	if jsonOut {
		return writeJSON(w, newSummaryOutput(s))
	}

	stage := string(s.Stage)
	if stage == "" {
		stage = "all"
	}
	fmt.Fprintf(w, "Stage: %s\n", stage)
	fmt.Fprintf(w, "Accuracy: %s\n", s.Accuracy)
	fmt.Fprintf(w, "%-4s %6s %8s %9s %9s %9s %8s\n", "cond", "trials", "correct", "omissions", "mean_rt", "median_rt", "sd_rt")
	for _, c := range s.Conditions {
		fmt.Fprintf(w, "%-4s %6d %8d %9d %9.1f %9.1f %8.1f\n",
			c.Condition, c.Trials, c.Correct, c.Omissions, c.MeanRT, c.MedianRT, c.SDRT)
	}
	if s.DPrimeDefined {
		fmt.Fprintf(w, "d' context: %.2f\n", s.DPrimeContext)
	}
	return nil
}
