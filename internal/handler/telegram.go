package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot/models"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/intake"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"go.uber.org/zap"
)

// MessageProcessor: Channel Intake Adapter.
type MessageProcessor interface {
	Process(ctx context.Context, msg intake.InboundMessage) (*intake.Result, error)
}

// TelegramHandler: входящий webhook бота и ручная отправка сообщения в чат.
type TelegramHandler struct {
	intake MessageProcessor
	sender notify.Dispatcher
	log    *zap.Logger
}

func NewTelegramHandler(p MessageProcessor, sender notify.Dispatcher, log *zap.Logger) *TelegramHandler {
	return &TelegramHandler{intake: p, sender: sender, log: log}
}

// Webhook принимает Update от Telegram. Ответы текстовые: Bot API смотрит только на код.
func (h *TelegramHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusBadRequest, "Invalid JSON")
		return
	}
	in, ok, err := decodeUpdate(body)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !ok || strings.TrimSpace(in.Text) == "" {
		c.String(http.StatusBadRequest, "No message text")
		return
	}

	res, err := h.intake.Process(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, errs.ErrInvalidPayload) {
			c.String(http.StatusBadRequest, "No message text")
			return
		}
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	h.log.Debug("telegram message accepted",
		zap.String("ticket_id", res.TicketID),
		zap.Bool("created", res.Created),
		zap.Bool("ack_sent", res.AckSent))
	c.String(http.StatusOK, "OK")
}

// looseUpdate: тот же Update, но id чата и отправителя могут прийти строкой.
type looseUpdate struct {
	Message *struct {
		Chat struct {
			ID flexID `json:"id"`
		} `json:"chat"`
		From *struct {
			ID        flexID `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"from"`
		Text string `json:"text"`
	} `json:"message"`
}

// decodeUpdate разбирает тело webhook. ok == false: в апдейте нет сообщения.
func decodeUpdate(body []byte) (intake.InboundMessage, bool, error) {
	var update models.Update
	err := json.Unmarshal(body, &update)
	if err == nil {
		msg := update.Message
		if msg == nil {
			return intake.InboundMessage{}, false, nil
		}
		in := intake.InboundMessage{ChatID: strconv.FormatInt(msg.Chat.ID, 10), Text: msg.Text}
		if msg.From != nil {
			in.ExternalUserID = strconv.FormatInt(msg.From.ID, 10)
			in.DisplayName = displayName(msg.From.Username, msg.From.FirstName)
		}
		return in, true, nil
	}
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		return intake.InboundMessage{}, false, err
	}

	var loose looseUpdate
	if err := json.Unmarshal(body, &loose); err != nil {
		return intake.InboundMessage{}, false, err
	}
	msg := loose.Message
	if msg == nil {
		return intake.InboundMessage{}, false, nil
	}
	in := intake.InboundMessage{ChatID: string(msg.Chat.ID), Text: msg.Text}
	if msg.From != nil {
		in.ExternalUserID = string(msg.From.ID)
		in.DisplayName = displayName(msg.From.Username, msg.From.FirstName)
	}
	return in, true, nil
}

func displayName(username, firstName string) string {
	if username != "" {
		return username
	}
	return firstName
}

// flexID: id из JSON: число или строка (@channelusername).
type flexID string

func (r *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = flexID(n.String())
	return nil
}

type sendMessageRequest struct {
	ChatID  flexID `json:"chatId"`
	Message string `json:"message"`
}

func (h *TelegramHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		_ = c.Error(err)
		c.String(http.StatusBadRequest, "Missing chatId or message")
		return
	}
	if req.ChatID == "" || strings.TrimSpace(req.Message) == "" {
		c.String(http.StatusBadRequest, "Missing chatId or message")
		return
	}
	to := notify.ChannelIdentity{Channel: model.ChannelTelegram, Address: string(req.ChatID)}
	if err := h.sender.Send(c.Request.Context(), to, req.Message); err != nil {
		_ = c.Error(err)
		var cfgErr *errs.ConfigurationError
		if errors.As(err, &cfgErr) {
			c.String(http.StatusInternalServerError, "Bot token not configured")
			return
		}
		h.log.Warn("telegram send failed", zap.String("chat_id", string(req.ChatID)), zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to send message")
		return
	}
	c.String(http.StatusOK, "Message sent")
}
