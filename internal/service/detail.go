package service

import (
	"context"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"golang.org/x/sync/errgroup"
)

// TicketDetail: всё, что нужно экрану детального просмотра тикета.
type TicketDetail struct {
	Ticket     *model.Ticket          `json:"ticket"`
	Comments   []model.TicketComment  `json:"comments"`
	Statuses   []model.TicketStatus   `json:"statuses"`
	Priorities []model.TicketPriority `json:"priorities"`
	// NotifyAvailable: у канала тикета есть диспетчер исходящих сообщений.
	NotifyAvailable bool `json:"notify_available"`
	// NotifyDefault: начальное значение флага «отправить клиенту» в форме комментария.
	NotifyDefault bool `json:"notify_default"`
}

// LoadDetail читает тикет и его комментарии параллельно.
func (s *TicketService) LoadDetail(ctx context.Context, id string) (*TicketDetail, error) {
	if err := checkID(id); err != nil {
		return nil, opErr("load detail", id, err)
	}
	var (
		ticket   *model.Ticket
		comments []model.TicketComment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.gw.GetTicket(gctx, id)
		ticket = t
		return err
	})
	g.Go(func() error {
		c, err := s.gw.ListComments(gctx, id)
		comments = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, opErr("load detail", id, err)
	}
	if ticket == nil {
		return nil, opErr("load detail", id, errs.ErrTicketNotFound)
	}
	if comments == nil {
		comments = []model.TicketComment{}
	}
	available := s.notifier != nil && s.notifier.Supports(ticket.Channel)
	return &TicketDetail{
		Ticket:          ticket,
		Comments:        comments,
		Statuses:        model.TicketStatuses,
		Priorities:      model.TicketPriorities,
		NotifyAvailable: available,
		NotifyDefault:   available && ticket.Channel == model.ChannelTelegram,
	}, nil
}
