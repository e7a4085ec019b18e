package bot

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeAPI records everything sent and can react to sent messages
type fakeAPI struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	onSend   func(c tgbotapi.Chattable, id int)
	updates  chan tgbotapi.Update
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.sent = append(f.sent, c)
	hook := f.onSend
	f.mu.Unlock()

	msg := tgbotapi.Message{MessageID: id}
	if _, ok := c.(tgbotapi.PhotoConfig); ok {
		msg.Photo = []tgbotapi.PhotoSize{{FileID: fmt.Sprintf("small-%d", id)}, {FileID: fmt.Sprintf("file-%d", id)}}
	}
	if hook != nil {
		hook(c, id)
	}
	return msg, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) setOnSend(hook func(c tgbotapi.Chattable, id int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSend = hook
}

// texts returns the text of every plain message sent
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) deleted() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d.MessageID)
		}
	}
	return out
}

func (f *fakeAPI) sentOfType(match func(tgbotapi.Chattable) bool) []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.Chattable
	for _, c := range f.sent {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

// buttons returns the callback data of an inline keyboard, if c has one
func buttons(c tgbotapi.Chattable) []string {
	m, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return nil
	}
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}
