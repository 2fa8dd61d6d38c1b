package model

import "strings"

type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusWaitingInternal TicketStatus = "waiting_internal"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusReopened        TicketStatus = "reopened"
)

// TicketStatuses в порядке workflow.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaitingCustomer,
	TicketStatusWaitingInternal,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusReopened,
}

var statusAliases = map[string]TicketStatus{
	"pending": TicketStatusInProgress,
	"solved":  TicketStatusResolved,
}

// ParseTicketStatus нормализует значение (регистр, legacy-алиасы pending/solved).
func ParseTicketStatus(s string) (TicketStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := statusAliases[v]; ok {
		return alias, true
	}
	st := TicketStatus(v)
	return st, st.Valid()
}

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingCustomer,
		TicketStatusWaitingInternal, TicketStatusResolved, TicketStatusClosed, TicketStatusReopened:
		return true
	}
	return false
}

// IsOpenScope: статусы, в которых входящее сообщение клиента продолжает тикет.
func (s TicketStatus) IsOpenScope() bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen:
		return true
	}
	return false
}

func (s TicketStatus) IsResolvedClass() bool { return s == TicketStatusResolved }

func (s TicketStatus) IsClosedClass() bool { return s == TicketStatusClosed }

// OpenScopeStatuses: для фильтра в запросах.
func OpenScopeStatuses() []TicketStatus {
	out := make([]TicketStatus, 0, 2)
	for _, s := range TicketStatuses {
		if s.IsOpenScope() {
			out = append(out, s)
		}
	}
	return out
}

type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

func ParseTicketPriority(s string) (TicketPriority, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "urgent" {
		return TicketPriorityCritical, true
	}
	p := TicketPriority(v)
	return p, p.Rank() > 0
}

// Rank: порядок серьёзности, 0 для неизвестного значения.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityLow:
		return 1
	case TicketPriorityMedium:
		return 2
	case TicketPriorityHigh:
		return 3
	case TicketPriorityCritical:
		return 4
	}
	return 0
}

func (p TicketPriority) Valid() bool { return p.Rank() > 0 }

type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelEmail    Channel = "email"
	ChannelPhone    Channel = "phone"
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelVK       Channel = "vk"
)

var Channels = []Channel{ChannelWeb, ChannelEmail, ChannelPhone, ChannelTelegram, ChannelWhatsApp, ChannelVK}

func ParseChannel(s string) (Channel, bool) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelEmail, ChannelPhone, ChannelTelegram, ChannelWhatsApp, ChannelVK:
		return true
	}
	return false
}

// Title: имя канала для текста, который видит человек.
func (c Channel) Title() string {
	switch c {
	case ChannelWeb:
		return "Web"
	case ChannelEmail:
		return "Email"
	case ChannelPhone:
		return "Phone"
	case ChannelTelegram:
		return "Telegram"
	case ChannelWhatsApp:
		return "WhatsApp"
	case ChannelVK:
		return "VK"
	}
	return string(c)
}

type AuthorKind string

const (
	AuthorAgent  AuthorKind = "agent"
	AuthorClient AuthorKind = "client"
	AuthorSystem AuthorKind = "system"
)

func (k AuthorKind) Valid() bool {
	switch k {
	case AuthorAgent, AuthorClient, AuthorSystem:
		return true
	}
	return false
}

// NotifyStatus: судьба исходящего уведомления по комментарию.
type NotifyStatus string

const (
	NotifyNone    NotifyStatus = "none"
	NotifyPending NotifyStatus = "pending"
	NotifySent    NotifyStatus = "sent"
	NotifyFailed  NotifyStatus = "failed"
	NotifySkipped NotifyStatus = "skipped"
)
