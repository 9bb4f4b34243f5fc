// Package telegram pushes trade events to a single chat. Delivery is
// best effort: a failed send is logged and dropped, the engine never
// blocks on Telegram.
package telegram

import (
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"supertrend_bot/pkg/logger"
)

type Notifier struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewNotifier(token string, chatID int64) (*Notifier, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Notifier{bot: b, chatID: chatID}, nil
}

func (n *Notifier) Sendf(format string, args ...any) {
	if _, err := n.bot.Send(tgbot.NewMessage(n.chatID, fmt.Sprintf(format, args...))); err != nil {
		logger.Error("telegram send failed: %v", err)
	}
}

// Noop stands in when no token is configured.
type Noop struct{}

func (Noop) Sendf(string, ...any) {}
