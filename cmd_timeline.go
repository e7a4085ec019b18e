package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/dpx/internal/task"
	"github.com/example/dpx/internal/timeline"
)

func newTimelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Write the jsPsych timeline as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if cmd.Flags().Changed("seed") {
				cfg.Task.Seed, _ = cmd.Flags().GetInt64("seed")
			}
			if cmd.Flags().Changed("blocks") {
				cfg.Task.NumBlocks, _ = cmd.Flags().GetInt("blocks")
			}

			b, err := task.NewBuilder(cfg.Task)
			if err != nil {
				return err
			}
			exp, err := timeline.Build(b)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := timeline.Write(w, exp); err != nil {
				return err
			}
			logger.Info("timeline written", "nodes", len(exp.Timeline), "valid_cue", exp.ValidCue, "valid_probe", exp.ValidProbe)
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")
	cmd.Flags().Int64("seed", 0, "Random seed, 0 seeds from the clock")
	cmd.Flags().Int("blocks", 0, "Number of test blocks")
	return cmd
}
