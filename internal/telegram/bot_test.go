package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hisaab/internal/cache"
	"hisaab/internal/core"
	"hisaab/internal/log"
	"hisaab/internal/ratelimit"
)

type fakeAPI struct {
	mu           sync.Mutex
	sent         []tgbotapi.MessageConfig
	requests     []tgbotapi.Chattable
	rejectMarkup bool
	sendErr      error
	updates      chan tgbotapi.Update
	stopped      bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, fmt.Errorf("unexpected chattable %T", c)
	}
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	if f.rejectMarkup && m.ParseMode != "" {
		return tgbotapi.Message{}, &tgbotapi.Error{
			Code:    400,
			Message: "Bad Request: can't parse entities: can't find end of the entity starting at byte offset 3",
		}
	}
	f.sent = append(f.sent, m)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

type fakeRunner struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []string
}

func (r *fakeRunner) Run(_ context.Context, userID, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID+"|"+text)
	return r.reply, r.err
}

type fakeUsers struct {
	mu      sync.Mutex
	calls   int
	lastKey string
	name    string
	err     error
}

func (u *fakeUsers) GetOrCreateUser(_ context.Context, externalID, name string) (core.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.lastKey = externalID
	u.name = name
	if u.err != nil {
		return core.User{}, u.err
	}
	return core.User{ID: "user-" + externalID, ExternalID: externalID, Name: name}, nil
}

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: 1001},
		From: &tgbotapi.User{ID: 42, FirstName: "Ravi"},
	}}
}

func commandUpdate(cmd string) tgbotapi.Update {
	u := textUpdate(cmd)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return u
}

func newTestBot(cfg Config) (*Bot, *fakeAPI, *fakeRunner, *fakeUsers) {
	api := newFakeAPI()
	runner := &fakeRunner{reply: "✅ Sabji: ₹450 add ho gaya"}
	users := &fakeUsers{}
	return New(api, runner, users, cfg, nil), api, runner, users
}

func TestHandleUpdate_Expense(t *testing.T) {
	bot, api, runner, users := newTestBot(Config{})

	bot.HandleUpdate(context.Background(), textUpdate("sabji - 450"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "user-42|sabji me 450 rupaye kharch hua", runner.calls[0])
	assert.Equal(t, "42", users.lastKey)
	assert.Equal(t, "Ravi", users.name)

	require.Len(t, api.requests, 1)
	action, ok := api.requests[0].(tgbotapi.ChatActionConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ChatTyping, action.Action)

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(1001), msgs[0].ChatID)
	assert.Equal(t, "✅ Sabji: ₹450 add ho gaya", msgs[0].Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, msgs[0].ParseMode)
}

func TestHandleUpdate_Commands(t *testing.T) {
	bot, api, runner, users := newTestBot(Config{})

	bot.HandleUpdate(context.Background(), commandUpdate("/start"))
	bot.HandleUpdate(context.Background(), commandUpdate("/help"))
	bot.HandleUpdate(context.Background(), commandUpdate("/reset"))
	bot.HandleUpdate(context.Background(), textUpdate("/not a command"))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "🙏 Namaste Ravi!"))
	assert.Equal(t, helpText, msgs[1].Text)
	assert.Empty(t, runner.calls)
	assert.Zero(t, users.calls)
}

func TestHandleUpdate_Ignored(t *testing.T) {
	bot, api, runner, _ := newTestBot(Config{})

	bot.HandleUpdate(context.Background(), tgbotapi.Update{})
	bot.HandleUpdate(context.Background(), textUpdate(""))

	assert.Empty(t, api.messages())
	assert.Empty(t, runner.calls)
}

func TestHandleUpdate_AgentFailure(t *testing.T) {
	bot, api, runner, _ := newTestBot(Config{})
	runner.err = fmt.Errorf("tool get_remaining_cash: %w", core.ErrStoreUnavailable)

	bot.HandleUpdate(context.Background(), textUpdate("kitne paise bache?"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, apologyText, msgs[0].Text)
	assert.Empty(t, msgs[0].ParseMode)
}

func TestHandleUpdate_UserFailure(t *testing.T) {
	bot, api, runner, users := newTestBot(Config{})
	users.err = core.ErrStoreUnavailable

	bot.HandleUpdate(context.Background(), textUpdate("doodh 80"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, apologyText, msgs[0].Text)
	assert.Empty(t, runner.calls)
}

func TestHandleUpdate_MarkdownFallback(t *testing.T) {
	bot, api, runner, _ := newTestBot(Config{})
	api.rejectMarkup = true
	runner.reply = "pooja_saman me ₹350"

	bot.HandleUpdate(context.Background(), textUpdate("pooja saman 350"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "pooja_saman me ₹350", msgs[0].Text)
	assert.Empty(t, msgs[0].ParseMode)
}

func TestHandleUpdate_EmptyReply(t *testing.T) {
	bot, api, runner, _ := newTestBot(Config{})
	runner.reply = "  \n "

	bot.HandleUpdate(context.Background(), textUpdate("hmm"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, emptyReplyText, msgs[0].Text)
}

func TestHandleUpdate_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1})
	defer limiter.Stop()
	bot, api, runner, _ := newTestBot(Config{Limiter: limiter})

	bot.HandleUpdate(context.Background(), textUpdate("doodh 80"))
	bot.HandleUpdate(context.Background(), textUpdate("doodh 80"))

	assert.Len(t, runner.calls, 1)
	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, slowDownText, msgs[1].Text)
}

func TestHandleUpdate_UserCache(t *testing.T) {
	users := cache.NewLRUCache[string](10, time.Minute)
	bot, _, runner, store := newTestBot(Config{UserCache: users})

	bot.HandleUpdate(context.Background(), textUpdate("doodh 80"))
	bot.HandleUpdate(context.Background(), textUpdate("sabji 40"))

	assert.Equal(t, 1, store.calls)
	assert.Len(t, runner.calls, 2)
	id, ok := users.Get("42")
	assert.True(t, ok)
	assert.Equal(t, "user-42", id)
}

func TestSendReply_Chunks(t *testing.T) {
	bot, api, _, _ := newTestBot(Config{})

	long := strings.Repeat("a", MaxMessageLength) + strings.Repeat("b", 10)
	require.NoError(t, bot.sendReply(1, long))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Len(t, msgs[0].Text, MaxMessageLength)
	assert.Equal(t, strings.Repeat("b", 10), msgs[1].Text)
}

func TestSendReply_Error(t *testing.T) {
	bot, api, _, _ := newTestBot(Config{})
	api.sendErr = errors.New("network down")

	assert.Error(t, bot.sendReply(1, "hello"))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SplitMessage("hello", 10))
	assert.Equal(t, []string{"abc\n", "def"}, SplitMessage("abc\ndef", 5))
	assert.Equal(t, []string{"abcde", "fg"}, SplitMessage("abcdefg", 5))

	// Emoji outside the BMP take two code units.
	assert.Equal(t, []string{"💰💰", "💰"}, SplitMessage("💰💰💰", 4))
	assert.Nil(t, SplitMessage("", 10))
}

func TestRun_StopsOnCancel(t *testing.T) {
	bot, api, runner, _ := newTestBot(Config{MaxConcurrent: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- textUpdate("doodh 80")
	api.updates <- textUpdate("sabji 40")

	require.Eventually(t, func() bool { return len(api.messages()) == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	api.mu.Lock()
	assert.True(t, api.stopped)
	api.mu.Unlock()

	runner.mu.Lock()
	assert.Len(t, runner.calls, 2)
	runner.mu.Unlock()
}

func TestRun_ChannelClosed(t *testing.T) {
	bot, api, _, _ := newTestBot(Config{})
	close(api.updates)

	assert.NoError(t, bot.Run(context.Background()))
}

func TestHandleUpdate_LogsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf}).WithComponent(log.ComponentBot).Slog()

	api := newFakeAPI()
	runner := &fakeRunner{err: errors.New("model timeout")}
	bot := New(api, runner, &fakeUsers{}, Config{}, logger)

	bot.HandleUpdate(context.Background(), textUpdate("doodh 80"))

	out := buf.String()
	assert.Contains(t, out, "Agent run failed")
	assert.Equal(t, 1, strings.Count(out, "component="), out)
	assert.Contains(t, out, "component=bot")
}
