// Package repository: типизированный доступ к таблицам tickets, ticket_comments, telegram_chats.
// Кэша нет: каждый вызов: отдельный запрос к базе.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gateway: контракт хранилища, от которого зависят сервис тикетов и intake.
type Gateway interface {
	CreateTicket(ctx context.Context, t *model.Ticket) (*model.Ticket, error)
	GetTicket(ctx context.Context, id string) (*model.Ticket, error)
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	ListTicketsFiltered(ctx context.Context, f TicketFilter, limit, offset int) ([]model.Ticket, int64, error)
	UpdateTicket(ctx context.Context, id string, patch map[string]interface{}) (*model.Ticket, error)
	DeleteTicket(ctx context.Context, id string) error
	TouchTicket(ctx context.Context, id string) error

	AddComment(ctx context.Context, in CommentInput) (*model.TicketComment, error)
	ListComments(ctx context.Context, ticketID string) ([]model.TicketComment, error)
	SetCommentNotifyStatus(ctx context.Context, commentID uint64, status model.NotifyStatus, detail string) error

	FindOpenTicketByClient(ctx context.Context, channel model.Channel, clientID string) (*model.Ticket, error)
	UpsertChatBinding(ctx context.Context, chatID, externalUserID, username, ticketID string) error
	ResolveChatBindingByTicket(ctx context.Context, ticketID string) (*model.ChatBinding, error)

	Stats(ctx context.Context) (*model.TicketStats, error)
	EnsureInstallation(ctx context.Context, version string) (*model.Installation, error)
}

// TicketFilter: необязательные фильтры списка; пустое поле не фильтрует.
type TicketFilter struct {
	Status     model.TicketStatus
	Priority   model.TicketPriority
	Channel    model.Channel
	AssignedTo string
	ClientID   string
}

// CommentInput: данные нового комментария.
type CommentInput struct {
	TicketID     string
	AuthorID     string
	AuthorKind   model.AuthorKind
	Content      string
	Internal     bool
	NotifyStatus model.NotifyStatus
}

type GormGateway struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db, now: time.Now}
}

func (g *GormGateway) CreateTicket(ctx context.Context, t *model.Ticket) (*model.Ticket, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.RelatedTickets == nil {
		t.RelatedTickets = []string{}
	}
	if err := g.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, errs.Persistence("create ticket", err)
	}
	return t, nil
}

func (g *GormGateway) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	var t model.Ticket
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Persistence("get ticket", err)
	}
	return &t, nil
}

func (g *GormGateway) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	items, _, err := g.ListTicketsFiltered(ctx, TicketFilter{}, 0, 0)
	return items, err
}

func (g *GormGateway) ListTicketsFiltered(ctx context.Context, f TicketFilter, limit, offset int) ([]model.Ticket, int64, error) {
	var items []model.Ticket
	var total int64
	tx := g.db.WithContext(ctx).Model(&model.Ticket{})
	if f.Status != "" {
		tx = tx.Where("status = ?", string(f.Status))
	}
	if f.Priority != "" {
		tx = tx.Where("priority = ?", string(f.Priority))
	}
	if f.Channel != "" {
		tx = tx.Where("channel = ?", string(f.Channel))
	}
	if f.AssignedTo != "" {
		tx = tx.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.ClientID != "" {
		tx = tx.Where("client_id = ?", f.ClientID)
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, errs.Persistence("count tickets", err)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	if err := tx.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, errs.Persistence("list tickets", err)
	}
	return items, total, nil
}

func (g *GormGateway) UpdateTicket(ctx context.Context, id string, patch map[string]interface{}) (*model.Ticket, error) {
	res := g.db.WithContext(ctx).Model(&model.Ticket{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, errs.Persistence("update ticket", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.Persistence("update ticket", errs.ErrTicketNotFound)
	}
	t, err := g.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errs.Persistence("update ticket", errs.ErrTicketNotFound)
	}
	return t, nil
}

func (g *GormGateway) DeleteTicket(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", id).Delete(&model.ChatBinding{}).Error; err != nil {
			return errs.Persistence("delete chat bindings", err)
		}
		if err := tx.Where("ticket_id = ?", id).Delete(&model.TicketComment{}).Error; err != nil {
			return errs.Persistence("delete comments", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.Ticket{})
		if res.Error != nil {
			return errs.Persistence("delete ticket", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.Persistence("delete ticket", errs.ErrTicketNotFound)
		}
		return nil
	})
}

func (g *GormGateway) TouchTicket(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Model(&model.Ticket{}).Where("id = ?", id).Update("updated_at", g.now())
	if res.Error != nil {
		return errs.Persistence("touch ticket", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.Persistence("touch ticket", errs.ErrTicketNotFound)
	}
	return nil
}

func (g *GormGateway) AddComment(ctx context.Context, in CommentInput) (*model.TicketComment, error) {
	status := in.NotifyStatus
	if status == "" {
		status = model.NotifyNone
	}
	c := &model.TicketComment{
		TicketID:     in.TicketID,
		AuthorID:     in.AuthorID,
		AuthorKind:   in.AuthorKind,
		Content:      in.Content,
		Internal:     in.Internal,
		NotifyStatus: status,
	}
	if err := g.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, errs.Persistence("add comment", err)
	}
	return c, nil
}

func (g *GormGateway) ListComments(ctx context.Context, ticketID string) ([]model.TicketComment, error) {
	var items []model.TicketComment
	if err := g.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, errs.Persistence("list comments", err)
	}
	return items, nil
}

func (g *GormGateway) SetCommentNotifyStatus(ctx context.Context, commentID uint64, status model.NotifyStatus, detail string) error {
	err := g.db.WithContext(ctx).Model(&model.TicketComment{}).
		Where("id = ?", commentID).
		Updates(map[string]interface{}{"notify_status": string(status), "notify_error": detail}).Error
	return errs.Persistence("set comment notify status", err)
}

// FindOpenTicketByClient возвращает самый свежий тикет клиента в open-scope статусе (new/open) или nil.
func (g *GormGateway) FindOpenTicketByClient(ctx context.Context, channel model.Channel, clientID string) (*model.Ticket, error) {
	scope := model.OpenScopeStatuses()
	statuses := make([]string, len(scope))
	for i, s := range scope {
		statuses[i] = string(s)
	}
	var items []model.Ticket
	if err := g.db.WithContext(ctx).
		Where("channel = ? AND client_id = ? AND status IN ?", string(channel), clientID, statuses).
		Order("created_at DESC").
		Limit(1).
		Find(&items).Error; err != nil {
		return nil, errs.Persistence("find open ticket", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (g *GormGateway) UpsertChatBinding(ctx context.Context, chatID, externalUserID, username, ticketID string) error {
	now := g.now()
	b := &model.ChatBinding{
		ChatID:    chatID,
		UserID:    externalUserID,
		Username:  username,
		TicketID:  ticketID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "username", "ticket_id", "updated_at"}),
	}).Create(b).Error
	return errs.Persistence("upsert chat binding", err)
}

func (g *GormGateway) ResolveChatBindingByTicket(ctx context.Context, ticketID string) (*model.ChatBinding, error) {
	var items []model.ChatBinding
	if err := g.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("updated_at DESC").
		Limit(1).
		Find(&items).Error; err != nil {
		return nil, errs.Persistence("resolve chat binding", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// EnsureInstallation: явная проверка инициализации при старте процесса.
func (g *GormGateway) EnsureInstallation(ctx context.Context, version string) (*model.Installation, error) {
	var inst model.Installation
	err := g.db.WithContext(ctx).Order("id ASC").First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := g.now()
		inst = model.Installation{Version: version, InitializedAt: now, UpdatedAt: now}
		if err := g.db.WithContext(ctx).Create(&inst).Error; err != nil {
			return nil, errs.Persistence("create installation", err)
		}
		return &inst, nil
	}
	if err != nil {
		return nil, errs.Persistence("get installation", err)
	}
	if inst.Version != version {
		inst.Version = version
		if err := g.db.WithContext(ctx).Model(&inst).Update("version", version).Error; err != nil {
			return nil, errs.Persistence("update installation", err)
		}
	}
	return &inst, nil
}
