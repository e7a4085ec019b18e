package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/internal/excel"
	"github.com/example/dpx/internal/task"
	"github.com/example/dpx/pkg/models"
)

// Constants for callback data
const (
	callbackRun   = "run"
	callbackStats = "stats"
)

var errSessionActive = errors.New("a session is already running in this chat")

const helpText = `Dot pattern expectancy task

Each trial shows a cue pattern, a fixation cross, then a probe pattern.
Press "Target pair" only when the target cue is followed by the target probe, otherwise press "Other". Respond quickly: slow answers count as misses.

Commands:
/start - Register and show the target pair rules
/run - Start a new session
/cancel - Stop the running session
/stats - Results of your last finished session
/export - Spreadsheet of your last finished session
/help - Show this message`

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}

	var err error
	switch message.Command() {
	case "start":
		err = b.handleStart(ctx, message)
	case "help":
		b.reply(message.Chat.ID, helpText)
	case "run":
		err = b.handleRun(ctx, message.Chat.ID, message.From)
	case "cancel":
		b.handleCancel(message.Chat.ID)
	case "stats":
		err = b.handleStats(ctx, message.Chat.ID, message.From.ID)
	case "export":
		err = b.handleExport(ctx, message)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /help to see the commands.")
	}
	return err
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	p, err := b.register(ctx, message.Chat.ID, message.From)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("Welcome, %s!\n\n%s", p.DisplayName(), helpText))
	msg.ReplyMarkup = createKeyboard(b.mainMenuButtons())
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send welcome: %w", err)
	}
	return nil
}

// register creates or refreshes the participant behind a Telegram user
func (b *Bot) register(ctx context.Context, chatID int64, from *tgbotapi.User) (*models.Participant, error) {
	p, err := b.repo.GetOrCreateParticipant(ctx, &models.Participant{
		TelegramID: from.ID,
		ChatID:     chatID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
		IsAdmin:    b.isAdmin(from.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}
	return p, nil
}

func (b *Bot) handleRun(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	p, err := b.register(ctx, chatID, from)
	if err != nil {
		return err
	}

	sess, err := b.startRun(ctx, chatID, p)
	if errors.Is(err, errSessionActive) {
		b.reply(chatID, "A session is already running. Send /cancel to stop it.")
		return nil
	}
	if err != nil {
		b.reply(chatID, "Could not start a session, please try again later.")
		return err
	}
	b.logger.Info("session started", "session", sess.ID, "participant", p.ID, "seed", sess.Seed)
	return nil
}

func (b *Bot) handleCancel(chatID int64) {
	b.mu.Lock()
	run, ok := b.runs[chatID]
	if ok {
		run.abortStatus = models.SessionAbandoned
		run.cancel()
	}
	b.mu.Unlock()

	if !ok {
		b.reply(chatID, "There is no running session.")
		return
	}
	b.reply(chatID, "Session cancelled.")
}

func (b *Bot) handleStats(ctx context.Context, chatID, telegramID int64) error {
	records, _, err := b.lastRecords(ctx, telegramID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		b.reply(chatID, "You have no finished sessions yet. Send /run to start one.")
		return nil
	}
	if err != nil {
		return err
	}
	b.reply(chatID, formatSummary(task.Summarize(records, task.StageTest)))
	return nil
}

// handleExport sends the last finished session as a spreadsheet. Admins
// may pass a Telegram user id to export someone else's session.
func (b *Bot) handleExport(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	telegramID := message.From.ID
	if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
		if !b.isAdmin(message.From.ID) {
			b.reply(chatID, "This command is only available for administrators.")
			return nil
		}
		if _, err := fmt.Sscan(arg, &telegramID); err != nil {
			b.reply(chatID, "Usage: /export [telegram user id]")
			return nil
		}
	}

	records, sess, err := b.lastRecords(ctx, telegramID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		b.reply(chatID, "No finished session to export.")
		return nil
	}
	if err != nil {
		return err
	}

	dir := b.config.ExportDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		b.reply(chatID, "Could not export the session, please try again later.")
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("dpx-%s.xlsx", sess.ID))
	if err := excel.Export(path, records); err != nil {
		b.reply(chatID, "Could not export the session, please try again later.")
		return err
	}
	defer os.Remove(path)

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("Session %s, %s", sess.ID[:8], sess.StartedAt.Format(time.DateTime))
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send export: %w", err)
	}
	return nil
}

// lastRecords loads the trials of a participant's last finished session
func (b *Bot) lastRecords(ctx context.Context, telegramID int64) ([]task.Record, *models.Session, error) {
	p, err := b.repo.GetParticipant(ctx, telegramID)
	if err != nil {
		return nil, nil, err
	}
	sess, err := b.repo.LastFinishedSession(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	records, err := b.repo.SessionRecords(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return records, sess, nil
}

// HandleCallback handles callback queries from buttons
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	// stop the client's loading indicator
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Debug("failed to answer callback", "error", err)
	}
	if callback.Message == nil || callback.From == nil {
		return nil
	}
	chatID := callback.Message.Chat.ID

	if seq, key, ok := parseResponseData(callback.Data); ok {
		run, active := b.runFor(chatID)
		if !active || run.presenter == nil {
			return nil
		}
		run.presenter.deliver(keyPress{seq: seq, key: key, at: time.Now()})
		return nil
	}

	switch callback.Data {
	case callbackRun:
		return b.handleRun(ctx, chatID, callback.From)
	case callbackStats:
		return b.handleStats(ctx, chatID, callback.From.ID)
	}
	return nil
}

// mainMenuButtons returns the buttons for the main menu
func (b *Bot) mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "Start session", CallbackData: callbackRun}},
		{{Text: "My results", CallbackData: callbackStats}},
	}
}

func runAborted(err error) bool {
	return apperrors.Is(err, apperrors.CodeAborted) || errors.Is(err, context.Canceled)
}

// formatSummary renders test-stage results for a chat message
func formatSummary(s task.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Accuracy: %s\n", s.Accuracy.String()))
	for _, c := range s.Conditions {
		if c.Trials == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %d/%d correct", c.Condition, c.Correct, c.Trials))
		if c.Correct > 0 {
			sb.WriteString(fmt.Sprintf(", mean RT %.0f ms", c.MeanRT))
		}
		if c.Omissions > 0 {
			sb.WriteString(fmt.Sprintf(", %d missed", c.Omissions))
		}
		sb.WriteString("\n")
	}
	if s.DPrimeDefined {
		sb.WriteString(fmt.Sprintf("d' context: %.2f\n", s.DPrimeContext))
	}
	return strings.TrimSpace(sb.String())
}
