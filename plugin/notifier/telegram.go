// Package notifier delivers operational alerts to external channels.
package notifier

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/ai/budget"
)

// TelegramConfig holds configuration for the Telegram alert channel.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// TelegramNotifier sends budget alerts to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier creates a Telegram notifier. It validates the token
// against the Bot API.
func NewTelegramNotifier(config *TelegramConfig) (*TelegramNotifier, error) {
	if config.BotToken == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	if config.ChatID == 0 {
		return nil, errors.New("telegram: chat id is required")
	}
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Telegram bot")
	}
	return &TelegramNotifier{bot: bot, chatID: config.ChatID}, nil
}

// NotifyBudgetAlert implements budget.Notifier.
func (t *TelegramNotifier) NotifyBudgetAlert(ctx context.Context, alert budget.Alert) error {
	msg := tgbotapi.NewMessage(t.chatID, formatAlert(alert))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return errors.Wrapf(err, "failed to send budget alert for %s", alert.AgentID)
	}
	return nil
}

func formatAlert(alert budget.Alert) string {
	return fmt.Sprintf(
		"⚠️ *Alerta de presupuesto*\nAgente: `%s`\nConsumo: %d / %d tokens (%.0f%%)",
		alert.AgentID,
		alert.TokensUsed,
		alert.MaxTokens,
		alert.PercentUsed*100,
	)
}
