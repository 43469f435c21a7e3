// Package telegram relays chat messages between Telegram and the finance
// agent.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"hisaab/internal/cache"
	"hisaab/internal/core"
	"hisaab/internal/log"
	"hisaab/internal/ratelimit"
	"hisaab/internal/storage"
)

// MaxMessageLength is the Telegram limit for a single text message,
// measured in UTF-16 code units.
const MaxMessageLength = 4096

const defaultPollTimeout = 30

// BotAPI is the subset of *tgbotapi.BotAPI the bot uses.
type BotAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Runner answers one user message.
type Runner interface {
	Run(ctx context.Context, userID, text string) (string, error)
}

// Users resolves chat senders to stored users.
type Users interface {
	GetOrCreateUser(ctx context.Context, externalID, name string) (core.User, error)
}

type Config struct {
	MaxConcurrent int
	PollTimeout   int
	// Limiter and UserCache are optional.
	Limiter   *ratelimit.Limiter
	UserCache cache.Cache[string]
}

type Bot struct {
	api    BotAPI
	agent  Runner
	users  Users
	cfg    Config
	logger *slog.Logger
}

// New builds a bot. logger is used as is; callers tag it with the bot
// component.
func New(api BotAPI, agent Runner, users Users, cfg Config, logger *slog.Logger) *Bot {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:    api,
		agent:  agent,
		users:  users,
		cfg:    cfg,
		logger: logger,
	}
}

// Run long-polls for updates until ctx is canceled, then waits for the
// in-flight handlers to finish.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	var g errgroup.Group
	g.SetLimit(b.cfg.MaxConcurrent)

	// Handlers outlive the polling context so a shutdown does not cut a
	// reply in half.
	handlerCtx := context.WithoutCancel(ctx)

	b.logger.Info("Polling for updates", "max_concurrent", b.cfg.MaxConcurrent)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return g.Wait()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				b.HandleUpdate(handlerCtx, update)
				return nil
			})
		}
	}
}

// HandleUpdate processes a single update. Errors are logged and answered
// with an apology, never returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID

	if strings.HasPrefix(msg.Text, "/") {
		b.handleCommand(msg)
		return
	}

	externalID, name := sender(msg)
	logger := b.logger.With(log.FieldChatID, chatID, log.FieldExternalID, externalID)

	if !b.cfg.Limiter.Allow(externalID) {
		logger.Warn("Sender throttled")
		b.sendPlain(chatID, slowDownText)
		return
	}

	userID, err := b.resolveUser(ctx, externalID, name)
	if err != nil {
		logger.Error("Failed to resolve user", log.FieldError, err)
		b.sendPlain(chatID, apologyText)
		return
	}
	logger = logger.With(log.FieldUserID, userID)

	text := RewriteShorthand(msg.Text)

	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.Debug("Typing action failed", log.FieldError, err)
	}

	reply, err := b.agent.Run(ctx, userID, text)
	if err != nil {
		logger.Error("Agent run failed", log.FieldError, err)
		b.sendPlain(chatID, apologyText)
		return
	}

	if err := b.sendReply(chatID, reply); err != nil {
		logger.Error("Failed to send reply", log.FieldError, err)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		firstName := ""
		if msg.From != nil {
			firstName = msg.From.FirstName
		}
		b.sendPlain(msg.Chat.ID, welcomeText(firstName))
	case "help":
		b.sendPlain(msg.Chat.ID, helpText)
	}
}

func (b *Bot) resolveUser(ctx context.Context, externalID, name string) (string, error) {
	if b.cfg.UserCache != nil {
		if id, ok := b.cfg.UserCache.Get(externalID); ok {
			return id, nil
		}
	}

	user, err := b.users.GetOrCreateUser(ctx, externalID, name)
	if err != nil {
		return "", err
	}

	if b.cfg.UserCache != nil {
		b.cfg.UserCache.Set(externalID, user.ID)
	}
	return user.ID, nil
}

// sendReply relays agent output as Markdown, falling back to plain text for
// any chunk Telegram cannot parse.
func (b *Bot) sendReply(chatID int64, reply string) error {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = emptyReplyText
	}

	var errs []error
	for _, chunk := range SplitMessage(reply, MaxMessageLength) {
		m := tgbotapi.NewMessage(chatID, chunk)
		m.ParseMode = tgbotapi.ModeMarkdown

		_, err := b.api.Send(m)
		if err != nil && isParseError(err) {
			m.ParseMode = ""
			_, err = b.api.Send(m)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) sendPlain(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("Failed to send message", log.FieldChatID, chatID, log.FieldError, err)
	}
}

func isParseError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "can't parse entities")
}

func sender(msg *tgbotapi.Message) (externalID, name string) {
	if msg.From == nil {
		return strconv.FormatInt(msg.Chat.ID, 10), storage.DefaultUserName
	}
	name = msg.From.FirstName
	if name == "" {
		name = storage.DefaultUserName
	}
	return strconv.FormatInt(msg.From.ID, 10), name
}

// SplitMessage cuts text into chunks of at most limit UTF-16 code units,
// preferring to break after a newline.
func SplitMessage(text string, limit int) []string {
	if limit < 2 {
		panic(fmt.Sprintf("telegram: split limit %d too small", limit))
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		end, units, lastNewline := 0, 0, -1
		for end < len(runes) {
			w := 1
			if runes[end] > 0xFFFF {
				w = 2
			}
			if units+w > limit {
				break
			}
			units += w
			if runes[end] == '\n' {
				lastNewline = end
			}
			end++
		}
		if end < len(runes) && lastNewline > 0 {
			end = lastNewline + 1
		}
		chunks = append(chunks, string(runes[:end]))
		runes = runes[end:]
	}
	return chunks
}
