package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventTicketCreated = "ticket.created"
	EventTicketUpdated = "ticket.updated"
	EventCommentAdded  = "comment.added"
)

// TicketEventProducer: интерфейс для отправки событий тикета в Kafka (для подмены в тестах).
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{})
}

// Producer пишет события тикетов в топик Kafka (best-effort, не блокирует API).
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *zap.Logger
}

// NewProducer создаёт продюсер. Если brokers пустой или topic пустой: методы no-op.
func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{log: log}
	}
	return &Producer{
		topic: topic,
		log:   log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// ProduceTicketEvent отправляет событие; ключ сообщения: ticket_id, чтобы события одного тикета шли в одну партицию.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	msg := map[string]interface{}{"event": event, "occurred_at": time.Now().UTC()}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		p.log.Warn("kafka: marshal ticket event", zap.String("event", event), zap.Error(err))
		return
	}
	key, _ := payload["ticket_id"].(string)
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		p.log.Warn("kafka: write ticket event", zap.String("event", event), zap.String("ticket_id", key), zap.Error(err))
	}
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// TicketEventPayload: тело события тикета.
func TicketEventPayload(t *model.Ticket) map[string]interface{} {
	if t == nil {
		return nil
	}
	out := map[string]interface{}{
		"ticket_id": t.ID,
		"subject":   t.Subject,
		"status":    string(t.Status),
		"priority":  string(t.Priority),
		"channel":   string(t.Channel),
		"tags":      []string(t.Tags),
	}
	if t.ClientID != nil {
		out["client_id"] = *t.ClientID
	}
	if t.AssignedTo != nil {
		out["assigned_to"] = *t.AssignedTo
	}
	return out
}

// CommentEventPayload: тело события comment.added. Текст внутренних комментариев наружу не уходит.
func CommentEventPayload(c *model.TicketComment) map[string]interface{} {
	if c == nil {
		return nil
	}
	out := map[string]interface{}{
		"ticket_id":   c.TicketID,
		"comment_id":  c.ID,
		"author_id":   c.AuthorID,
		"author_type": string(c.AuthorKind),
		"is_internal": c.Internal,
	}
	if !c.Internal {
		out["content"] = c.Content
	}
	return out
}
