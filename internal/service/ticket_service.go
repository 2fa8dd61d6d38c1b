package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const notifyStatusTimeout = 5 * time.Second

var errShuttingDown = errors.New("service is shutting down")

// TicketServicer: интерфейс для хендлеров (Dependency Inversion).
type TicketServicer interface {
	Create(ctx context.Context, in CreateTicketInput) (*model.Ticket, error)
	Get(ctx context.Context, id string) (*model.Ticket, error)
	List(ctx context.Context, f repository.TicketFilter, limit, offset int) ([]model.Ticket, int64, error)
	Update(ctx context.Context, id string, in UpdateTicketInput) (*model.Ticket, error)
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status model.TicketStatus) (*model.Ticket, error)
	SetPriority(ctx context.Context, id string, priority model.TicketPriority) (*model.Ticket, error)
	Assign(ctx context.Context, id, assigneeID string) (*model.Ticket, error)
	AddComment(ctx context.Context, in AddCommentInput) (*model.TicketComment, error)
	ListComments(ctx context.Context, ticketID string) ([]model.TicketComment, error)
	LoadDetail(ctx context.Context, id string) (*TicketDetail, error)
	Stats(ctx context.Context) (*model.TicketStats, error)
}

// Notifier: диспетчер уведомлений, который знает, какие каналы он обслуживает.
type Notifier interface {
	notify.Dispatcher
	Supports(ch model.Channel) bool
}

// Deps: зависимости сервиса тикетов.
type Deps struct {
	Gateway         repository.Gateway
	Notifier        Notifier
	Events          kafka.TicketEventProducer
	Log             *zap.Logger
	DispatchTimeout time.Duration
}

type TicketService struct {
	gw              repository.Gateway
	notifier        Notifier
	events          kafka.TicketEventProducer
	log             *zap.Logger
	dispatchTimeout time.Duration
	now             func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewTicketService(d Deps) *TicketService {
	timeout := d.DispatchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &TicketService{
		gw:              d.Gateway,
		notifier:        d.Notifier,
		events:          d.Events,
		log:             log,
		dispatchTimeout: timeout,
		now:             time.Now,
	}
}

// CreateTicketInput: поля формы создания. Пустые enum-поля получают значения по умолчанию.
type CreateTicketInput struct {
	Subject       string
	Description   string
	Status        model.TicketStatus
	Priority      model.TicketPriority
	Channel       model.Channel
	AssignedTo    string
	AssignedGroup string
	ClientID      string
	CompanyID     string
	Tags          []string
	DueDate       *time.Time
}

// UpdateTicketInput: частичное обновление; nil означает «не менять».
type UpdateTicketInput struct {
	Subject        *string
	Description    *string
	Tags           *[]string
	DueDate        *time.Time
	CompanyID      *string
	AssignedGroup  *string
	RelatedTickets *[]string
}

type AddCommentInput struct {
	TicketID string
	AuthorID string
	Content  string
	Internal bool
	Notify   bool
}

func opErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &errs.TicketOperationError{Op: op, TicketID: id, Err: err}
}

func (s *TicketService) Create(ctx context.Context, in CreateTicketInput) (*model.Ticket, error) {
	subject := strings.TrimSpace(in.Subject)
	description := strings.TrimSpace(in.Description)
	if subject == "" {
		return nil, opErr("create", "", errs.Validation("subject", "is required"))
	}
	if description == "" {
		return nil, opErr("create", "", errs.Validation("description", "is required"))
	}
	t := &model.Ticket{
		Subject:        subject,
		Description:    description,
		Status:         model.TicketStatusNew,
		Priority:       model.TicketPriorityMedium,
		Channel:        model.ChannelWeb,
		AssignedTo:     optional(in.AssignedTo),
		AssignedGroup:  optional(in.AssignedGroup),
		ClientID:       optional(in.ClientID),
		CompanyID:      optional(in.CompanyID),
		Tags:           uniqueTags(in.Tags),
		RelatedTickets: []string{},
		DueDate:        in.DueDate,
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, opErr("create", "", errs.Validation("status", "unknown value "+string(in.Status)))
		}
		t.Status = in.Status
	}
	if in.Priority != "" {
		if !in.Priority.Valid() {
			return nil, opErr("create", "", errs.Validation("priority", "unknown value "+string(in.Priority)))
		}
		t.Priority = in.Priority
	}
	if in.Channel != "" {
		if !in.Channel.Valid() {
			return nil, opErr("create", "", errs.Validation("channel", "unknown value "+string(in.Channel)))
		}
		t.Channel = in.Channel
	}
	now := s.now()
	stampTerminal(t, t.Status, now, nil)

	created, err := s.gw.CreateTicket(ctx, t)
	if err != nil {
		return nil, opErr("create", "", err)
	}
	s.log.Info("ticket created",
		zap.String("ticket_id", created.ID),
		zap.String("channel", string(created.Channel)),
		zap.String("status", string(created.Status)))
	s.publish(kafka.EventTicketCreated, kafka.TicketEventPayload(created))
	return created, nil
}

func (s *TicketService) Get(ctx context.Context, id string) (*model.Ticket, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, opErr("get", id, err)
	}
	return t, nil
}

// checkID: id тикета всегда uuid, с чужим id в базу не ходим.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errs.ErrTicketNotFound
	}
	return nil
}

func (s *TicketService) load(ctx context.Context, id string) (*model.Ticket, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	t, err := s.gw.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errs.ErrTicketNotFound
	}
	return t, nil
}

func (s *TicketService) List(ctx context.Context, f repository.TicketFilter, limit, offset int) ([]model.Ticket, int64, error) {
	items, total, err := s.gw.ListTicketsFiltered(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, opErr("list", "", err)
	}
	return items, total, nil
}

func (s *TicketService) Update(ctx context.Context, id string, in UpdateTicketInput) (*model.Ticket, error) {
	changes := make(map[string]interface{})
	if in.Subject != nil {
		v := strings.TrimSpace(*in.Subject)
		if v == "" {
			return nil, opErr("update", id, errs.Validation("subject", "must not be empty"))
		}
		changes["subject"] = v
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		if v == "" {
			return nil, opErr("update", id, errs.Validation("description", "must not be empty"))
		}
		changes["description"] = v
	}
	if in.Tags != nil {
		changes["tags"] = datatypes.JSONSlice[string](uniqueTags(*in.Tags))
	}
	if in.RelatedTickets != nil {
		changes["related_tickets"] = datatypes.JSONSlice[string](uniqueTags(*in.RelatedTickets))
	}
	if in.DueDate != nil {
		changes["due_date"] = *in.DueDate
	}
	if in.CompanyID != nil {
		changes["company_id"] = optional(*in.CompanyID)
	}
	if in.AssignedGroup != nil {
		changes["assigned_group"] = optional(*in.AssignedGroup)
	}
	if len(changes) == 0 {
		return nil, opErr("update", id, errs.Validation("body", "no changes provided"))
	}
	return s.apply(ctx, "update", id, changes)
}

func (s *TicketService) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return opErr("delete", id, err)
	}
	if err := s.gw.DeleteTicket(ctx, id); err != nil {
		return opErr("delete", id, err)
	}
	s.log.Info("ticket deleted", zap.String("ticket_id", id))
	return nil
}

// SetStatus разрешает любой переход. Переход в resolved/closed проставляет resolved_at/closed_at,
// если они ещё пусты; остальные переходы ранее проставленные отметки не трогают.
func (s *TicketService) SetStatus(ctx context.Context, id string, status model.TicketStatus) (*model.Ticket, error) {
	if !status.Valid() {
		return nil, opErr("set status", id, errs.Validation("status", "unknown value "+string(status)))
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, opErr("set status", id, err)
	}
	changes := map[string]interface{}{"status": string(status)}
	stampTerminal(current, status, s.now(), changes)

	t, err := s.apply(ctx, "set status", id, changes)
	if err != nil {
		return nil, err
	}
	metrics.TicketTransitions.WithLabelValues(string(status)).Inc()
	s.log.Info("ticket status changed",
		zap.String("ticket_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)))
	return t, nil
}

func (s *TicketService) SetPriority(ctx context.Context, id string, priority model.TicketPriority) (*model.Ticket, error) {
	if !priority.Valid() {
		return nil, opErr("set priority", id, errs.Validation("priority", "unknown value "+string(priority)))
	}
	return s.apply(ctx, "set priority", id, map[string]interface{}{"priority": string(priority)})
}

// Assign заменяет исполнителя; пустой assigneeID снимает назначение.
func (s *TicketService) Assign(ctx context.Context, id, assigneeID string) (*model.Ticket, error) {
	return s.apply(ctx, "assign", id, map[string]interface{}{"assigned_to": optional(strings.TrimSpace(assigneeID))})
}

func (s *TicketService) apply(ctx context.Context, op, id string, changes map[string]interface{}) (*model.Ticket, error) {
	if err := checkID(id); err != nil {
		return nil, opErr(op, id, err)
	}
	t, err := s.gw.UpdateTicket(ctx, id, changes)
	if err != nil {
		return nil, opErr(op, id, err)
	}
	s.publish(kafka.EventTicketUpdated, kafka.TicketEventPayload(t))
	return t, nil
}

// AddComment пишет комментарий агента. Запись комментария: основной эффект; уведомление в канал
// уходит асинхронно и его неудача только логируется и фиксируется в notify_status.
func (s *TicketService) AddComment(ctx context.Context, in AddCommentInput) (*model.TicketComment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, opErr("add comment", in.TicketID, errs.Validation("content", "is required"))
	}
	if strings.TrimSpace(in.AuthorID) == "" {
		return nil, opErr("add comment", in.TicketID, errs.Validation("author_id", "is required"))
	}
	t, err := s.load(ctx, in.TicketID)
	if err != nil {
		return nil, opErr("add comment", in.TicketID, err)
	}

	status := model.NotifyNone
	if !in.Internal && in.Notify {
		status = model.NotifyPending
		if s.notifier == nil || !s.notifier.Supports(t.Channel) {
			status = model.NotifySkipped
		}
	}

	c, err := s.gw.AddComment(ctx, repository.CommentInput{
		TicketID:     t.ID,
		AuthorID:     in.AuthorID,
		AuthorKind:   model.AuthorAgent,
		Content:      content,
		Internal:     in.Internal,
		NotifyStatus: status,
	})
	if err != nil {
		return nil, opErr("add comment", in.TicketID, err)
	}
	if err := s.gw.TouchTicket(ctx, t.ID); err != nil {
		s.log.Warn("touch ticket after comment", zap.String("ticket_id", t.ID), zap.Error(err))
	}
	s.publish(kafka.EventCommentAdded, kafka.CommentEventPayload(c))

	switch status {
	case model.NotifyPending:
		s.dispatchAsync(t, c)
	case model.NotifySkipped:
		s.log.Debug("no dispatcher for ticket channel",
			zap.String("ticket_id", t.ID), zap.String("channel", string(t.Channel)))
	}
	return c, nil
}

func (s *TicketService) ListComments(ctx context.Context, ticketID string) ([]model.TicketComment, error) {
	if err := checkID(ticketID); err != nil {
		return nil, opErr("list comments", ticketID, err)
	}
	items, err := s.gw.ListComments(ctx, ticketID)
	if err != nil {
		return nil, opErr("list comments", ticketID, err)
	}
	return items, nil
}

func (s *TicketService) Stats(ctx context.Context) (*model.TicketStats, error) {
	st, err := s.gw.Stats(ctx)
	if err != nil {
		return nil, opErr("stats", "", err)
	}
	return st, nil
}

// dispatchAsync разрешает адрес через chat binding и отправляет комментарий. Без ретраев.
func (s *TicketService) dispatchAsync(t *model.Ticket, c *model.TicketComment) {
	log := s.log.With(
		zap.String("ticket_id", t.ID),
		zap.Uint64("comment_id", c.ID),
		zap.String("channel", string(t.Channel)))
	if !s.track() {
		log.Warn("comment notification dropped: service is shutting down")
		s.storeNotifyStatus(log, c.ID, model.NotifyFailed, errShuttingDown.Error())
		return
	}
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		err := s.dispatch(ctx, t, c)
		cancel()

		status, detail := model.NotifySent, ""
		if err != nil {
			status, detail = model.NotifyFailed, err.Error()
			log.Warn("comment notification failed", zap.Error(err))
		} else {
			log.Info("comment notification sent")
		}
		s.storeNotifyStatus(log, c.ID, status, detail)
	}()
}

// storeNotifyStatus пишет исход отправки на собственном контексте, не на контексте отправки.
func (s *TicketService) storeNotifyStatus(log *zap.Logger, commentID uint64, status model.NotifyStatus, detail string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyStatusTimeout)
	defer cancel()
	if err := s.gw.SetCommentNotifyStatus(ctx, commentID, status, detail); err != nil {
		log.Warn("store notify status", zap.Error(err))
	}
}

func (s *TicketService) dispatch(ctx context.Context, t *model.Ticket, c *model.TicketComment) error {
	binding, err := s.gw.ResolveChatBindingByTicket(ctx, t.ID)
	if err != nil {
		return err
	}
	if binding == nil {
		return &errs.DispatchError{Channel: string(t.Channel), Err: errs.ErrNoChatBinding}
	}
	return s.notifier.Send(ctx, notify.ChannelIdentity{Channel: t.Channel, Address: binding.ChatID}, c.Content)
}

// track регистрирует фоновую задачу; false после Shutdown.
func (s *TicketService) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Wait блокируется до завершения фоновых уведомлений и событий.
func (s *TicketService) Wait() {
	s.inflight.Wait()
}

// Shutdown перестаёт принимать фоновые задачи и дожидается запущенных.
func (s *TicketService) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
}

func (s *TicketService) publish(event string, payload map[string]interface{}) {
	if s.events == nil || payload == nil {
		return
	}
	// Fire-and-forget: событие должно уйти даже при отмене запроса, но с таймаутом
	if !s.track() {
		s.log.Warn("event dropped: service is shutting down", zap.String("event", event))
		return
	}
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.events.ProduceTicketEvent(ctx, event, payload)
	}()
}

// stampTerminal проставляет resolved_at/closed_at один раз. changes == nil: правка самого тикета (создание).
func stampTerminal(t *model.Ticket, status model.TicketStatus, now time.Time, changes map[string]interface{}) {
	if status.IsResolvedClass() && t.ResolvedAt == nil {
		if changes != nil {
			changes["resolved_at"] = now
		} else {
			t.ResolvedAt = &now
		}
	}
	if status.IsClosedClass() && t.ClosedAt == nil {
		if changes != nil {
			changes["closed_at"] = now
		} else {
			t.ClosedAt = &now
		}
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func uniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
