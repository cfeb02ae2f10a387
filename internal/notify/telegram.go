package notify

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// Reporter posts operational notices to staff.
type Reporter interface {
	Report(ctx context.Context, html string) error
}

// TelegramReporter sends reports to one chat through the Bot API.
type TelegramReporter struct {
	bot  *tele.Bot
	chat tele.ChatID
}

// NewTelegramReporter creates an offline bot: it only sends, it never polls.
func NewTelegramReporter(token string, chatID int64) (*TelegramReporter, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramReporter{bot: bot, chat: tele.ChatID(chatID)}, nil
}

func (r *TelegramReporter) Report(_ context.Context, html string) error {
	if _, err := r.bot.Send(r.chat, html, tele.ModeHTML); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
