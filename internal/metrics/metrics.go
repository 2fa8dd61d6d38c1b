package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IntakeMessages: входящие сообщения каналов по исходу (continued, created, invalid, failed).
	IntakeMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Name:      "intake_messages_total",
		Help:      "Inbound channel messages by outcome.",
	}, []string{"channel", "outcome"})

	// Dispatches: исходящие уведомления по исходу (sent, failed).
	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Name:      "dispatch_total",
		Help:      "Outbound channel notifications by outcome.",
	}, []string{"channel", "outcome"})

	TicketTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Name:      "ticket_status_transitions_total",
		Help:      "Ticket status changes by target status.",
	}, []string{"status"})
)
