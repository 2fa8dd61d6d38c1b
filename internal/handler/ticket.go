package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// TicketIndexer: best-effort индексация в search-service.
type TicketIndexer interface {
	IndexTicketAsync(t *model.Ticket)
}

type TicketHandler struct {
	svc    service.TicketServicer
	search TicketIndexer
}

func NewTicketHandler(svc service.TicketServicer, search TicketIndexer) *TicketHandler {
	return &TicketHandler{svc: svc, search: search}
}

func (h *TicketHandler) index(t *model.Ticket) {
	if h.search != nil && t != nil {
		h.search.IndexTicketAsync(t)
	}
}

type createTicketRequest struct {
	Subject       string     `json:"subject"`
	Description   string     `json:"description"`
	Status        string     `json:"status" binding:"omitempty,ticket_status"`
	Priority      string     `json:"priority" binding:"omitempty,ticket_priority"`
	Channel       string     `json:"channel" binding:"omitempty,ticket_channel"`
	AssignedTo    string     `json:"assigned_to"`
	AssignedGroup string     `json:"assigned_group"`
	ClientID      string     `json:"client_id"`
	CompanyID     string     `json:"company_id"`
	Tags          []string   `json:"tags"`
	DueDate       *time.Time `json:"due_date"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := service.CreateTicketInput{
		Subject:       req.Subject,
		Description:   req.Description,
		AssignedTo:    req.AssignedTo,
		AssignedGroup: req.AssignedGroup,
		ClientID:      req.ClientID,
		CompanyID:     req.CompanyID,
		Tags:          req.Tags,
		DueDate:       req.DueDate,
	}
	// значения уже проверены валидатором, Parse только нормализует алиасы
	if req.Status != "" {
		in.Status, _ = model.ParseTicketStatus(req.Status)
	}
	if req.Priority != "" {
		in.Priority, _ = model.ParseTicketPriority(req.Priority)
	}
	if req.Channel != "" {
		in.Channel, _ = model.ParseChannel(req.Channel)
	}
	t, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.index(t)
	c.JSON(http.StatusCreated, t)
}

func (h *TicketHandler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) List(c *gin.Context) {
	var f repository.TicketFilter
	if v := c.Query("status"); v != "" {
		st, ok := model.ParseTicketStatus(v)
		if !ok {
			writeError(c, errs.Validation("status", "unknown value "+v))
			return
		}
		f.Status = st
	}
	if v := c.Query("priority"); v != "" {
		p, ok := model.ParseTicketPriority(v)
		if !ok {
			writeError(c, errs.Validation("priority", "unknown value "+v))
			return
		}
		f.Priority = p
	}
	if v := c.Query("channel"); v != "" {
		ch, ok := model.ParseChannel(v)
		if !ok {
			writeError(c, errs.Validation("channel", "unknown value "+v))
			return
		}
		f.Channel = ch
	}
	f.AssignedTo = c.Query("assigned_to")
	f.ClientID = c.Query("client_id")

	limit := 0
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	items, total, err := h.svc.List(c.Request.Context(), f, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []model.Ticket{}
	}
	c.JSON(http.StatusOK, gin.H{
		"tickets": items,
		"total":   total,
	})
}

type updateTicketRequest struct {
	Subject        *string    `json:"subject,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Tags           *[]string  `json:"tags,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CompanyID      *string    `json:"company_id,omitempty"`
	AssignedGroup  *string    `json:"assigned_group,omitempty"`
	RelatedTickets *[]string  `json:"related_tickets,omitempty"`
}

func (h *TicketHandler) Update(c *gin.Context) {
	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), service.UpdateTicketInput{
		Subject:        req.Subject,
		Description:    req.Description,
		Tags:           req.Tags,
		DueDate:        req.DueDate,
		CompanyID:      req.CompanyID,
		AssignedGroup:  req.AssignedGroup,
		RelatedTickets: req.RelatedTickets,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.index(t)
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required,ticket_status"`
}

func (h *TicketHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, _ := model.ParseTicketStatus(req.Status)
	t, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		writeError(c, err)
		return
	}
	h.index(t)
	c.JSON(http.StatusOK, t)
}

type setPriorityRequest struct {
	Priority string `json:"priority" binding:"required,ticket_priority"`
}

func (h *TicketHandler) SetPriority(c *gin.Context) {
	var req setPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	priority, _ := model.ParseTicketPriority(req.Priority)
	t, err := h.svc.SetPriority(c.Request.Context(), c.Param("id"), priority)
	if err != nil {
		writeError(c, err)
		return
	}
	h.index(t)
	c.JSON(http.StatusOK, t)
}

type assignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// Assign: пустой assignee_id снимает назначение.
func (h *TicketHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.svc.Assign(c.Request.Context(), c.Param("id"), req.AssigneeID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.index(t)
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Detail(c *gin.Context) {
	d, err := h.svc.LoadDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *TicketHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
