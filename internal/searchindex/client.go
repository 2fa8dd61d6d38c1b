package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"go.uber.org/zap"
)

// Client отправляет тикеты в search-service для индексации (best-effort, не блокирует API).
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient возвращает клиент. Если baseURL пустой, вызовы IndexTicket: no-op.
func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		log: log,
	}
}

func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// IndexTicketPayload: тело POST /search/index/ticket.
type IndexTicketPayload struct {
	TicketID    string   `json:"ticket_id"`
	ClientID    string   `json:"client_id,omitempty"`
	AssignedTo  string   `json:"assigned_to,omitempty"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Channel     string   `json:"channel"`
	Tags        []string `json:"tags"`
}

func payloadFor(t *model.Ticket) IndexTicketPayload {
	p := IndexTicketPayload{
		TicketID:    t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Channel:     string(t.Channel),
		Tags:        []string(t.Tags),
	}
	if t.ClientID != nil {
		p.ClientID = *t.ClientID
	}
	if t.AssignedTo != nil {
		p.AssignedTo = *t.AssignedTo
	}
	return p
}

// IndexTicket отправляет тикет в search-service синхронно.
func (c *Client) IndexTicket(ctx context.Context, t *model.Ticket) error {
	if c.baseURL == "" {
		return nil
	}
	body, err := json.Marshal(payloadFor(t))
	if err != nil {
		return fmt.Errorf("searchindex: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/index/ticket", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("searchindex: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("searchindex: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("searchindex: status %d for ticket %s", resp.StatusCode, t.ID)
	}
	return nil
}

// IndexTicketAsync вызывает IndexTicket в отдельной горутине (не блокирует ответ API).
func (c *Client) IndexTicketAsync(t *model.Ticket) {
	if c.baseURL == "" || t == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.IndexTicket(ctx, t); err != nil {
			c.log.Warn("search indexing failed", zap.String("ticket_id", t.ID), zap.Error(err))
		}
	}()
}
