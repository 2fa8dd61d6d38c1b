package kafka

import (
	"context"
	"testing"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewProducer_DisabledIsNoop(t *testing.T) {
	p := NewProducer(nil, "topic", zap.NewNop())
	assert.False(t, p.Enabled())
	p.ProduceTicketEvent(context.Background(), EventTicketCreated, map[string]interface{}{"ticket_id": "x"})
	assert.NoError(t, p.Close())
}

func TestTicketEventPayload(t *testing.T) {
	client := "42"
	p := TicketEventPayload(&model.Ticket{
		ID: "abc", Subject: "s", Status: model.TicketStatusNew, Priority: model.TicketPriorityMedium,
		Channel: model.ChannelTelegram, ClientID: &client, Tags: []string{"telegram"},
	})
	assert.Equal(t, "abc", p["ticket_id"])
	assert.Equal(t, "new", p["status"])
	assert.Equal(t, "42", p["client_id"])
	assert.NotContains(t, p, "assigned_to")
	assert.Nil(t, TicketEventPayload(nil))
}

func TestCommentEventPayload_HidesInternalContent(t *testing.T) {
	p := CommentEventPayload(&model.TicketComment{ID: 1, TicketID: "abc", Content: "secret", Internal: true, AuthorKind: model.AuthorAgent})
	assert.NotContains(t, p, "content")

	p = CommentEventPayload(&model.TicketComment{ID: 2, TicketID: "abc", Content: "hello", AuthorKind: model.AuthorClient})
	assert.Equal(t, "hello", p["content"])
}
