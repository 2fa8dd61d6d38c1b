package model

import (
	"time"

	"gorm.io/datatypes"
)

// Ticket: единица работы поддержки. ResolvedAt/ClosedAt проставляются один раз и не сбрасываются.
type Ticket struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	Subject     string         `gorm:"type:varchar(255);not null" json:"subject"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Status      TicketStatus   `gorm:"type:varchar(32);index;not null" json:"status"`
	Priority    TicketPriority `gorm:"type:varchar(32);index;not null" json:"priority"`
	Channel     Channel        `gorm:"type:varchar(32);index;not null" json:"channel"`

	AssignedTo    *string `gorm:"type:varchar(64);index" json:"assigned_to,omitempty"`
	AssignedGroup *string `gorm:"type:varchar(64)" json:"assigned_group,omitempty"`
	ClientID      *string `gorm:"type:varchar(64);index" json:"client_id,omitempty"`
	CompanyID     *string `gorm:"type:varchar(64);index" json:"company_id,omitempty"`

	Tags           datatypes.JSONSlice[string] `json:"tags"`
	RelatedTickets datatypes.JSONSlice[string] `json:"related_tickets"`

	DueDate    *time.Time `json:"due_date,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShortID: первые 8 символов id, так тикет показывается клиенту.
func (t *Ticket) ShortID() string {
	if len(t.ID) <= 8 {
		return t.ID
	}
	return t.ID[:8]
}

// TicketComment: append-only сообщение в треде тикета.
type TicketComment struct {
	ID         uint64     `gorm:"primaryKey" json:"id"`
	TicketID   string     `gorm:"type:uuid;index;not null" json:"ticket_id"`
	AuthorID   string     `gorm:"type:varchar(64);not null" json:"author_id"`
	AuthorKind AuthorKind `gorm:"column:author_type;type:varchar(16);not null" json:"author_type"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Internal   bool       `gorm:"column:is_internal;not null;default:false" json:"is_internal"`

	NotifyStatus NotifyStatus `gorm:"type:varchar(16);not null;default:'none'" json:"notify_status"`
	NotifyError  string       `gorm:"type:text" json:"notify_error,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// ChatBinding связывает внешний чат с пользователем канала и последним тикетом.
// Одна запись на chat_id, последняя запись побеждает.
type ChatBinding struct {
	ChatID    string    `gorm:"type:varchar(64);primaryKey" json:"chat_id"`
	UserID    string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	Username  string    `gorm:"type:varchar(255)" json:"username"`
	TicketID  string    `gorm:"type:uuid;index;not null" json:"ticket_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChatBinding) TableName() string { return "telegram_chats" }

// Installation: persisted-запись инициализации (вместо флагов setup в браузере).
type Installation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Version       string    `gorm:"type:varchar(32)" json:"version"`
	InitializedAt time.Time `json:"initialized_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StatusCount: строка агрегата для статистики.
type StatusCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// TicketStats: счётчики по статусу и каналу.
type TicketStats struct {
	Total     int64         `json:"total"`
	ByStatus  []StatusCount `json:"by_status"`
	ByChannel []StatusCount `json:"by_channel"`
}
