package searchindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIndexTicket_PostsPayload(t *testing.T) {
	var got IndexTicketPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/index/ticket", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	client := "42"
	err := c.IndexTicket(context.Background(), &model.Ticket{
		ID: "t-1", Subject: "s", Description: "d", Status: model.TicketStatusNew,
		Priority: model.TicketPriorityHigh, Channel: model.ChannelTelegram, ClientID: &client,
	})
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.TicketID)
	assert.Equal(t, "42", got.ClientID)
	assert.Equal(t, "high", got.Priority)
}

func TestIndexTicket_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, zap.NewNop()).IndexTicket(context.Background(), &model.Ticket{ID: "t-1"})
	assert.Error(t, err)
}

func TestIndexTicket_DisabledIsNoop(t *testing.T) {
	c := NewClient("", zap.NewNop())
	assert.False(t, c.Enabled())
	assert.NoError(t, c.IndexTicket(context.Background(), &model.Ticket{ID: "t-1"}))
}
