// Package intake: приём входящих сообщений из внешних каналов: сообщение клиента
// продолжает его открытый тикет или открывает новый.
package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"go.uber.org/zap"
)

// InboundMessage: нормализованное сообщение канала.
type InboundMessage struct {
	ChatID         string
	ExternalUserID string
	DisplayName    string
	Text           string
}

// Result: тикет, к которому привязано сообщение.
type Result struct {
	TicketID string
	Created  bool
	// AckSent: подтверждение клиенту доставлено (best-effort).
	AckSent bool
}

type Adapter struct {
	channel model.Channel
	gw      repository.Gateway
	ack     notify.Dispatcher
	locker  Locker
	log     *zap.Logger
}

// NewAdapter: ack может быть nil, тогда подтверждение не отправляется; locker nil: in-process блокировка.
func NewAdapter(channel model.Channel, gw repository.Gateway, ack notify.Dispatcher, locker Locker, log *zap.Logger) *Adapter {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{channel: channel, gw: gw, ack: ack, locker: locker, log: log}
}

func (a *Adapter) Channel() model.Channel { return a.channel }

// Process проводит сообщение через find-or-create. Ошибка errs.ErrInvalidPayload: вина отправителя (400),
// любая другая: внутренняя (500). Сбой подтверждения ошибкой не считается.
func (a *Adapter) Process(ctx context.Context, msg InboundMessage) (*Result, error) {
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.Text == "" || msg.ChatID == "" || msg.ExternalUserID == "" {
		metrics.IntakeMessages.WithLabelValues(string(a.channel), "invalid").Inc()
		return nil, errs.ErrInvalidPayload
	}
	log := a.log.With(
		zap.String("channel", string(a.channel)),
		zap.String("chat_id", msg.ChatID),
		zap.String("client_id", msg.ExternalUserID))

	res, err := a.resolve(ctx, msg, log)
	if err != nil {
		metrics.IntakeMessages.WithLabelValues(string(a.channel), "failed").Inc()
		log.Error("intake failed", zap.Error(err))
		return nil, err
	}
	outcome := "continued"
	if res.Created {
		outcome = "created"
	}
	metrics.IntakeMessages.WithLabelValues(string(a.channel), outcome).Inc()

	res.AckSent = a.acknowledge(ctx, msg.ChatID, res.TicketID, log)
	return res, nil
}

// resolve: шаги find-or-create под блокировкой клиента, чтобы параллельные первые сообщения не открыли два тикета.
func (a *Adapter) resolve(ctx context.Context, msg InboundMessage, log *zap.Logger) (*Result, error) {
	unlock, err := a.locker.Lock(ctx, string(a.channel)+":"+msg.ExternalUserID)
	if err != nil {
		return nil, fmt.Errorf("lock client: %w", err)
	}
	defer unlock()

	existing, err := a.gw.FindOpenTicketByClient(ctx, a.channel, msg.ExternalUserID)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if existing != nil {
		if _, err := a.gw.AddComment(ctx, a.clientComment(existing.ID, msg)); err != nil {
			return nil, err
		}
		if err := a.gw.TouchTicket(ctx, existing.ID); err != nil {
			log.Warn("touch ticket", zap.String("ticket_id", existing.ID), zap.Error(err))
		}
		res.TicketID = existing.ID
	} else {
		clientID := msg.ExternalUserID
		created, err := a.gw.CreateTicket(ctx, &model.Ticket{
			Subject:     fmt.Sprintf("Message from %s on %s", displayName(msg.DisplayName), a.channel.Title()),
			Description: msg.Text,
			Status:      model.TicketStatusNew,
			Priority:    model.TicketPriorityMedium,
			Channel:     a.channel,
			ClientID:    &clientID,
			Tags:        []string{string(a.channel)},
		})
		if err != nil {
			return nil, err
		}
		res.TicketID, res.Created = created.ID, true
		log.Info("ticket opened from channel", zap.String("ticket_id", created.ID))

		// тикет без комментариев допустим
		if _, err := a.gw.AddComment(ctx, a.clientComment(created.ID, msg)); err != nil {
			log.Warn("first comment not stored", zap.String("ticket_id", created.ID), zap.Error(err))
		}
	}

	if err := a.gw.UpsertChatBinding(ctx, msg.ChatID, msg.ExternalUserID, msg.DisplayName, res.TicketID); err != nil {
		log.Warn("chat binding not stored", zap.String("ticket_id", res.TicketID), zap.Error(err))
	}
	return res, nil
}

func (a *Adapter) clientComment(ticketID string, msg InboundMessage) repository.CommentInput {
	return repository.CommentInput{
		TicketID:   ticketID,
		AuthorID:   msg.ExternalUserID,
		AuthorKind: model.AuthorClient,
		Content:    msg.Text,
		Internal:   false,
	}
}

func (a *Adapter) acknowledge(ctx context.Context, chatID, ticketID string, log *zap.Logger) bool {
	if a.ack == nil {
		return false
	}
	err := a.ack.Send(ctx, notify.ChannelIdentity{Channel: a.channel, Address: chatID}, AckText(ticketID))
	if err != nil {
		log.Warn("acknowledgement not sent", zap.String("ticket_id", ticketID), zap.Error(err))
		return false
	}
	return true
}

// AckText: ответ клиенту с коротким номером тикета.
func AckText(ticketID string) string {
	short := ticketID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("Ваше сообщение получено! Номер тикета: #%s. Мы ответим вам в ближайшее время.", short)
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unknown"
	}
	return name
}
