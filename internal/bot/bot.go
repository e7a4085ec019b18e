// Package bot runs the task over Telegram. Each chat gets at most one
// active session, presented trial by trial through a chatPresenter.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/dpx/internal/database"
	"github.com/example/dpx/internal/experiment"
	"github.com/example/dpx/internal/logging"
	"github.com/example/dpx/internal/task"
	"github.com/example/dpx/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// sender is the part of the Telegram API used to talk to chats
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// client adds long polling to sender. *tgbotapi.BotAPI implements it.
type client interface {
	sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Repository represents the data access the bot needs
type Repository interface {
	experiment.Recorder
	GetOrCreateParticipant(ctx context.Context, p *models.Participant) (*models.Participant, error)
	GetParticipant(ctx context.Context, telegramID int64) (*models.Participant, error)
	CreateSession(ctx context.Context, participantID, seed int64) (*models.Session, error)
	FinishSession(ctx context.Context, id, status string) error
	LastFinishedSession(ctx context.Context, participantID int64) (*models.Session, error)
	SessionRecords(ctx context.Context, sessionID string) ([]task.Record, error)
}

// defaultRepository implements Repository over the database package
type defaultRepository struct {
	*database.TrialRepository
	participants *database.ParticipantRepository
	sessions     *database.SessionRepository
}

// NewRepository returns the database backed repository
func NewRepository() Repository {
	return &defaultRepository{
		TrialRepository: database.NewTrialRepository(),
		participants:    database.NewParticipantRepository(),
		sessions:        database.NewSessionRepository(),
	}
}

func (r *defaultRepository) GetOrCreateParticipant(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	return r.participants.GetOrCreate(ctx, p)
}

func (r *defaultRepository) GetParticipant(ctx context.Context, telegramID int64) (*models.Participant, error) {
	return r.participants.GetByTelegramID(ctx, telegramID)
}

func (r *defaultRepository) CreateSession(ctx context.Context, participantID, seed int64) (*models.Session, error) {
	return r.sessions.Create(ctx, participantID, seed)
}

func (r *defaultRepository) FinishSession(ctx context.Context, id, status string) error {
	return r.sessions.Finish(ctx, id, status)
}

func (r *defaultRepository) LastFinishedSession(ctx context.Context, participantID int64) (*models.Session, error) {
	return r.sessions.LastFinished(ctx, participantID)
}

func (r *defaultRepository) SessionRecords(ctx context.Context, sessionID string) ([]task.Record, error) {
	return r.Records(ctx, sessionID)
}

// activeRun is the session running in a chat
type activeRun struct {
	sessionID string
	presenter *chatPresenter
	cancel    context.CancelFunc
	// status recorded when the run is cancelled
	abortStatus string
}

// Bot represents the Telegram bot application
type Bot struct {
	api     client
	repo    Repository
	config  BotConfig
	taskCfg task.Config
	logger  *slog.Logger

	mu   sync.Mutex
	runs map[int64]*activeRun
	wg   sync.WaitGroup
	// base is the parent context of every run
	base context.Context
}

// New creates a new bot instance
func New(api client, repo Repository, config BotConfig, taskCfg task.Config, logger *slog.Logger) (*Bot, error) {
	if err := taskCfg.Validate(); err != nil {
		return nil, err
	}
	if config.ImageDir == "" {
		config.ImageDir = taskCfg.ImageDir
	}
	return &Bot{
		api:     api,
		repo:    repo,
		config:  config,
		taskCfg: taskCfg,
		logger:  logging.OrDiscard(logger),
		runs:    make(map[int64]*activeRun),
		base:    context.Background(),
	}, nil
}

// Start polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.base = ctx
	b.mu.Unlock()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.PollTimeout
	updates := b.api.GetUpdatesChan(updateConfig)
	b.logger.Info("bot started, polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.HandleUpdate(ctx, update)
		}
	}
}

// Stop cancels every active run and waits for them to finish
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	for _, run := range b.runs {
		run.abortStatus = models.SessionAbandoned
		run.cancel()
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("bot stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sessions to stop: %w", ctx.Err())
	}
}

// NotifyAbandoned implements scheduler.Notifier. A run still attached to
// the expired session is cancelled.
func (b *Bot) NotifyAbandoned(ctx context.Context, p models.Participant, s models.Session) error {
	b.mu.Lock()
	if run, ok := b.runs[p.ChatID]; ok && run.sessionID == s.ID {
		run.abortStatus = models.SessionAbandoned
		run.cancel()
	}
	b.mu.Unlock()

	if p.ChatID == 0 {
		// simulated participants have no chat
		return nil
	}
	msg := tgbotapi.NewMessage(p.ChatID, "Your session was closed after a period of inactivity. Send /run to start again.")
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to notify participant %d: %w", p.TelegramID, err)
	}
	return nil
}

// HandleUpdate handles incoming updates from Telegram
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil:
		b.reply(update.Message.Chat.ID, "I don't understand. Use /help to see the commands.")
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.logger.Error("failed to handle update", "update", update.UpdateID, "error", err)
	}
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.config.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// runFor returns the run of a chat, if any
func (b *Bot) runFor(chatID int64) (*activeRun, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	run, ok := b.runs[chatID]
	return run, ok
}

// startRun registers a run for the chat and presents it in the background.
// It fails if the chat already has one.
func (b *Bot) startRun(ctx context.Context, chatID int64, p *models.Participant) (*models.Session, error) {
	b.mu.Lock()
	if _, busy := b.runs[chatID]; busy {
		b.mu.Unlock()
		return nil, errSessionActive
	}
	// reserve the chat while the session row is created
	reserved := &activeRun{cancel: func() {}}
	b.runs[chatID] = reserved
	base := b.base
	b.mu.Unlock()

	cfg := b.taskCfg
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	release := func() {
		b.mu.Lock()
		delete(b.runs, chatID)
		b.mu.Unlock()
	}

	builder, err := task.NewBuilder(cfg)
	if err != nil {
		release()
		return nil, err
	}
	sess, err := b.repo.CreateSession(ctx, p.ID, cfg.Seed)
	if err != nil {
		release()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(base)
	run := &activeRun{
		sessionID:   sess.ID,
		presenter:   newChatPresenter(b.api, chatID, b.config, cfg.Choices, b.logger),
		cancel:      cancel,
		abortStatus: models.SessionAbandoned,
	}
	b.mu.Lock()
	b.runs[chatID] = run
	b.mu.Unlock()

	runner := experiment.NewRunner(sess.ID, builder, run.presenter, b.repo, b.logger)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer release()
		defer cancel()
		res, err := runner.Run(runCtx)
		b.finishRun(chatID, run, res, err)
	}()
	return sess, nil
}

// finishRun closes the session row and tells the participant how it went
func (b *Bot) finishRun(chatID int64, run *activeRun, res *experiment.Result, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := models.SessionFinished
	switch {
	case err == nil:
		b.reply(chatID, "Thanks, the task is complete!\n\n"+formatSummary(res.Summary))
	case runAborted(err):
		b.mu.Lock()
		status = run.abortStatus
		b.mu.Unlock()
	default:
		status = models.SessionFailed
		b.logger.Error("session failed", "session", run.sessionID, "error", err)
		b.reply(chatID, "Something went wrong and the session was stopped. Send /run to try again.")
	}

	// a completed run closed its session before the end screen
	if status != models.SessionFinished {
		if err := b.repo.FinishSession(ctx, run.sessionID, status); err != nil {
			// completed, or already closed by the reaper
			b.logger.Debug("session not closed", "session", run.sessionID, "status", status, "error", err)
		}
	}
	b.logger.Info("session closed", "session", run.sessionID, "status", status)
}

// reply sends a plain text message, logging failures
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("failed to send message", "chat", chatID, "error", err)
	}
}
