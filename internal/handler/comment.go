package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/middleware"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

type addCommentRequest struct {
	Content  string `json:"content"`
	Internal bool   `json:"is_internal"`
	// Notify по умолчанию true: ответ агента уходит клиенту, если у канала есть диспетчер.
	Notify *bool `json:"notify"`
}

func (h *TicketHandler) ListComments(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	items, err := h.svc.ListComments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []model.TicketComment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": items})
}

func (h *TicketHandler) AddComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	notify := true
	if req.Notify != nil {
		notify = *req.Notify
	}
	comment, err := h.svc.AddComment(c.Request.Context(), service.AddCommentInput{
		TicketID: c.Param("id"),
		AuthorID: middleware.CallerID(c),
		Content:  req.Content,
		Internal: req.Internal,
		Notify:   notify,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
