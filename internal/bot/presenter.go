package bot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/dpx/internal/task"
)

// keyPress is a probe or end-screen button press routed from a callback
type keyPress struct {
	seq int
	key task.Key
	at  time.Time
}

// callback data of response buttons: resp:<seq>:<key>
const responsePrefix = "resp:"

func responseData(seq int, key task.Key) string {
	return fmt.Sprintf("%s%d:%d", responsePrefix, seq, key)
}

func parseResponseData(data string) (seq int, key task.Key, ok bool) {
	parts := strings.Split(strings.TrimPrefix(data, responsePrefix), ":")
	if !strings.HasPrefix(data, responsePrefix) || len(parts) != 2 {
		return 0, 0, false
	}
	s, err1 := strconv.Atoi(parts[0])
	k, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return s, task.Key(k), true
}

// chatPresenter shows trials in one Telegram chat. Each trial gets a
// sequence number so presses on buttons of earlier trials are ignored.
type chatPresenter struct {
	api     sender
	chatID  int64
	cfg     BotConfig
	choices task.Choices
	presses chan keyPress
	logger  *slog.Logger
	now     func() time.Time

	seq int

	// photo file ids returned by Telegram, keyed by image name, so each
	// image is uploaded once
	mu      sync.Mutex
	fileIDs map[string]string
}

func newChatPresenter(api sender, chatID int64, cfg BotConfig, choices task.Choices, logger *slog.Logger) *chatPresenter {
	return &chatPresenter{
		api:     api,
		chatID:  chatID,
		cfg:     cfg,
		choices: choices,
		presses: make(chan keyPress, 8),
		logger:  logger,
		now:     time.Now,
		fileIDs: make(map[string]string),
	}
}

// deliver hands a button press to the presenter without blocking the
// update loop. Presses beyond the buffer are dropped.
func (p *chatPresenter) deliver(kp keyPress) {
	select {
	case p.presses <- kp:
	default:
		p.logger.Debug("dropped key press", "chat", p.chatID, "seq", kp.seq)
	}
}

// Present implements experiment.Presenter
func (p *chatPresenter) Present(ctx context.Context, t task.Trial) (task.Response, error) {
	p.seq++
	seq := p.seq

	// drop presses for earlier trials
	for drained := false; !drained; {
		select {
		case <-p.presses:
		default:
			drained = true
		}
	}

	stim, controls, err := p.show(t, seq)
	if err != nil {
		return task.Response{}, err
	}
	shown := p.now()

	var stimC, windowC <-chan time.Time
	window := p.cfg.scale(t.ResponseWindow)
	if window > 0 {
		timer := time.NewTimer(window)
		defer timer.Stop()
		windowC = timer.C
	}
	if stim := p.cfg.scale(t.StimDuration); stim > 0 && (window == 0 || stim < window) {
		timer := time.NewTimer(stim)
		defer timer.Stop()
		stimC = timer.C
	}

	resp := task.Timeout()
	responded := false
wait:
	for {
		select {
		case <-ctx.Done():
			p.remove(stim)
			p.remove(controls)
			return task.Response{}, ctx.Err()
		case <-stimC:
			p.remove(stim)
			stim = nil
			stimC = nil
		case <-windowC:
			break wait
		case kp := <-p.presses:
			if kp.seq != seq || responded || !t.Accepts(kp.key) {
				continue
			}
			responded = true
			resp = task.Response{Key: kp.key, RT: kp.at.Sub(shown)}
			if t.ResponseEndsTrial {
				break wait
			}
		}
	}
	p.remove(stim)
	p.remove(controls)

	if gap := p.cfg.scale(t.PostTrialGap); gap > 0 {
		timer := time.NewTimer(gap)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return task.Response{}, ctx.Err()
		case <-timer.C:
		}
	}
	return resp, nil
}

// show sends the messages for a trial. stim ids are removed at stimulus
// offset, controls at the end of the response window.
func (p *chatPresenter) show(t task.Trial, seq int) (stim, controls []int, err error) {
	var markup interface{}
	if t.Responds() {
		markup = p.keyboard(t.Choices, seq)
	}

	if t.Image {
		id, err := p.sendPhoto(t.Stimulus, "")
		if err != nil {
			return nil, nil, err
		}
		stim = []int{id}
		if markup != nil {
			// the buttons outlive the image
			msg := tgbotapi.NewMessage(p.chatID, "Respond:")
			msg.ReplyMarkup = markup
			sent, err := p.api.Send(msg)
			if err != nil {
				p.remove(stim)
				return nil, nil, fmt.Errorf("failed to send response buttons: %w", err)
			}
			controls = []int{sent.MessageID}
		}
		return stim, controls, nil
	}

	if t.Stimulus != "" {
		msg := tgbotapi.NewMessage(p.chatID, t.Stimulus)
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		sent, err := p.api.Send(msg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to send %s message: %w", t.Kind, err)
		}
		stim = append(stim, sent.MessageID)
	}
	for _, name := range t.Attachments {
		id, err := p.sendPhoto(name, name)
		if err != nil {
			p.remove(stim)
			return nil, nil, err
		}
		stim = append(stim, id)
	}
	return stim, nil, nil
}

func (p *chatPresenter) sendPhoto(name, caption string) (int, error) {
	p.mu.Lock()
	fileID, cached := p.fileIDs[name]
	p.mu.Unlock()

	var file tgbotapi.RequestFileData = tgbotapi.FilePath(filepath.Join(p.cfg.ImageDir, name))
	if cached {
		file = tgbotapi.FileID(fileID)
	}
	photo := tgbotapi.NewPhoto(p.chatID, file)
	photo.Caption = caption

	sent, err := p.api.Send(photo)
	if err != nil {
		return 0, fmt.Errorf("failed to send image %s: %w", name, err)
	}
	if !cached && len(sent.Photo) > 0 {
		p.mu.Lock()
		p.fileIDs[name] = sent.Photo[len(sent.Photo)-1].FileID
		p.mu.Unlock()
	}
	return sent.MessageID, nil
}

func (p *chatPresenter) keyboard(keys []task.Key, seq int) tgbotapi.InlineKeyboardMarkup {
	row := make([]MenuButton, 0, len(keys))
	for _, k := range keys {
		row = append(row, MenuButton{Text: p.cfg.label(k, p.choices), CallbackData: responseData(seq, k)})
	}
	return createKeyboard([][]MenuButton{row})
}

// remove deletes shown messages. Failures are only logged.
func (p *chatPresenter) remove(ids []int) {
	for _, id := range ids {
		if _, err := p.api.Request(tgbotapi.NewDeleteMessage(p.chatID, id)); err != nil {
			p.logger.Debug("failed to delete message", "chat", p.chatID, "message", id, "error", err)
		}
	}
}
