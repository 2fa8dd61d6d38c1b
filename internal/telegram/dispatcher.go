// Package telegram: исходящий транспорт Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
)

const tokenKey = "TELEGRAM_BOT_TOKEN"

// Dispatcher отправляет сообщения в чаты Telegram. Без токена каждая отправка
// возвращает ConfigurationError, сервис при этом стартует.
type Dispatcher struct {
	bot *bot.Bot
}

// NewDispatcher создаёт клиента. apiURL нужен для тестов и локального Bot API server, пустой: api.telegram.org.
func NewDispatcher(token, apiURL string) (*Dispatcher, error) {
	if token == "" {
		return &Dispatcher{}, nil
	}
	opts := []bot.Option{bot.WithSkipGetMe()}
	if apiURL != "" {
		opts = append(opts, bot.WithServerURL(apiURL))
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram: new bot: %w", err)
	}
	return &Dispatcher{bot: b}, nil
}

// Configured: есть ли токен.
func (d *Dispatcher) Configured() bool {
	return d.bot != nil
}

func (d *Dispatcher) Send(ctx context.Context, to notify.ChannelIdentity, message string) error {
	if d.bot == nil {
		return &errs.ConfigurationError{Key: tokenKey}
	}
	if to.Address == "" {
		return errs.Validation("chat_id", "is required")
	}
	if message == "" {
		return errs.Validation("message", "is required")
	}
	_, err := d.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID(to.Address),
		Text:   message,
	})
	if err != nil {
		return &errs.DispatchError{Channel: string(model.ChannelTelegram), Err: err}
	}
	return nil
}

// chatID: числовой id уходит числом, @username: строкой.
func chatID(addr string) any {
	if id, err := strconv.ParseInt(addr, 10, 64); err == nil {
		return id
	}
	return addr
}
