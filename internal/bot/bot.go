// Package bot runs the Telegram push channel. Members link a chat by
// messaging the bot, which answers with the chat id to paste into the
// portal profile; notifications are then mirrored to that chat.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"parish-portal/internal/config"
	"parish-portal/internal/model"
)

// Bot wraps the telebot instance.
type Bot struct {
	bot *tele.Bot
}

// New creates a Bot. offline skips the getMe call and polling, for tests.
func New(cfg config.TelegramConfig, offline bool) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Offline: offline,
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler failed")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{bot: teleBot}
	b.registerMiddleware()
	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(PrivateChatMiddleware())
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleChatID)
	b.bot.Handle("/chatid", b.handleChatID)
}

func (b *Bot) handleChatID(c tele.Context) error {
	return c.Send(LinkInstructions(c.Chat().ID))
}

// Push mirrors a notification to a linked chat.
func (b *Bot) Push(ctx context.Context, chatID int64, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.bot.Send(tele.ChatID(chatID), FormatNotification(n)); err != nil {
		return fmt.Errorf("failed to push to chat %d: %w", chatID, err)
	}
	return nil
}

// Start starts polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting Telegram bot...")
	b.bot.Start()
}

// Stop stops polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping Telegram bot...")
	b.bot.Stop()
}

// LinkInstructions is the reply to /start and /chatid.
func LinkInstructions(chatID int64) string {
	return fmt.Sprintf("Your chat id is %d.\nPaste it into your portal profile to receive notifications here.", chatID)
}

var typeIcons = map[model.NotificationType]string{
	model.NotifyInfo:    "ℹ️",
	model.NotifySuccess: "✅",
	model.NotifyWarning: "⚠️",
	model.NotifySystem:  "🔔",
}

// FormatNotification renders a notification as a plain-text message.
func FormatNotification(n *model.Notification) string {
	var sb strings.Builder
	if icon, ok := typeIcons[n.Type]; ok {
		sb.WriteString(icon)
		sb.WriteString(" ")
	}
	sb.WriteString(n.Title)
	if n.Message != "" {
		sb.WriteString("\n\n")
		sb.WriteString(n.Message)
	}
	return sb.String()
}
