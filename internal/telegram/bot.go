// Package telegram dispatches operator-facing alerts: startup/shutdown
// notices, errors, and the CRITICAL_SNIPE signal alert.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/dantezy/snipe-engine/internal/signals"
)

// Bot sends Telegram notifications. With no token it runs in disabled
// mode, logging messages instead of sending them — the engine's core
// loops never depend on Telegram being configured.
type Bot struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	disabled bool
	log      *zap.Logger
}

// NewBot creates a Bot. If token is empty, it returns a no-op bot.
func NewBot(token, chatID string, log *zap.Logger) (*Bot, error) {
	if token == "" {
		log.Info("telegram: no token provided, running in disabled mode")
		return &Bot{disabled: true, log: log}, nil
	}

	parsedChatID, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}

	log.Info("telegram: authorized", zap.String("username", api.Self.UserName))
	return &Bot{api: api, chatID: parsedChatID, log: log}, nil
}

// SendMessage sends a plain text message.
func (b *Bot) SendMessage(text string) error {
	return b.send(text, false)
}

// SendAlert sends a formatted alert with a bold title.
func (b *Bot) SendAlert(title, message string) error {
	formatted := fmt.Sprintf("*%s*\n\n%s", escapeMarkdown(title), message)
	return b.send(formatted, true)
}

// NotifyStarted announces the engine has come up.
func (b *Bot) NotifyStarted() error {
	return b.SendAlert("Engine Started", "Snipe engine is running")
}

// NotifyStopped announces a graceful shutdown.
func (b *Bot) NotifyStopped() error {
	return b.SendAlert("Engine Stopped", "Snipe engine has shut down")
}

// NotifyError reports an unrecoverable or noteworthy error.
func (b *Bot) NotifyError(err error) error {
	return b.SendAlert("Error", fmt.Sprintf("`%s`", err.Error()))
}

// NotifyCriticalSnipe implements signals.Notifier, sending the
// CRITICAL_SNIPE alert the Publisher dispatches asynchronously.
func (b *Bot) NotifyCriticalSnipe(_ context.Context, sig signals.Signal) error {
	return b.SendAlert("Critical Snipe Signal",
		fmt.Sprintf("Market: `%s`\nSide: `%s`\nMagnitude: `%.0f%%`\nType: `%s`\nTime: `%s`",
			sig.MarketID, sig.Side, sig.Magnitude*100, sig.Type, sig.Timestamp.Format("15:04:05 MST")))
}

func (b *Bot) send(text string, useMarkdown bool) error {
	if b.disabled {
		b.log.Info("telegram: (disabled)", zap.String("text", text))
		return nil
	}

	msg := tgbotapi.NewMessage(b.chatID, text)
	if useMarkdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("telegram: send failed", zap.Error(err))
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// escapeMarkdown escapes Telegram Markdown special characters.
func escapeMarkdown(text string) string {
	replacer := []string{
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
		"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
		"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
	}
	result := text
	for i := 0; i < len(replacer); i += 2 {
		result = replaceAll(result, replacer[i], replacer[i+1])
	}
	return result
}

// replaceAll replaces every occurrence of old with new in s.
func replaceAll(s, old, new string) string {
	var result []byte
	for i := 0; i < len(s); i++ {
		if i+len(old) <= len(s) && s[i:i+len(old)] == old {
			result = append(result, new...)
			i += len(old) - 1
		} else {
			result = append(result, s[i])
		}
	}
	return string(result)
}
