package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/example/dpx/internal/bot"
	"github.com/example/dpx/internal/database"
	"github.com/example/dpx/internal/scheduler"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateBot(); err != nil {
				return err
			}
			logger.Info("starting dpx", "version", version, "database", cfg.Database.Driver, "telegram", cfg.Telegram.String())

			if err := database.Connect(cfg.Database); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
			if err != nil {
				return fmt.Errorf("failed to create bot: %w", err)
			}
			api.Debug = cfg.Telegram.Debug
			logger.Info("authorized on account", "username", api.Self.UserName)

			botCfg := bot.DefaultConfig()
			botCfg.PollTimeout = cfg.Telegram.PollTimeout
			botCfg.AdminIDs = cfg.Telegram.AdminIDs
			botCfg.ImageDir = cfg.Task.ImageDir
			botCfg.ExportDir = filepath.Join(cfg.Database.DataDir, "exports")

			b, err := bot.New(api, bot.NewRepository(), botCfg, cfg.Task, logger)
			if err != nil {
				return err
			}

			reaper := scheduler.New(cfg.Scheduler, database.NewSessionRepository(), database.NewParticipantRepository(), b, logger)
			if err := reaper.Start(); err != nil {
				return err
			}
			defer reaper.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := b.Start(ctx); err != nil {
				return err
			}
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return b.Stop(shutdownCtx)
		},
	}
}
