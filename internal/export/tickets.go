// Package export: выгрузка тикетов в xlsx.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/xuri/excelize/v2"
)

const sheet = "Tickets"

var headers = []interface{}{
	"ID", "Тема", "Статус", "Приоритет", "Канал", "Клиент", "Исполнитель",
	"Теги", "Создан", "Обновлён", "Решён", "Закрыт",
}

// Tickets пишет xlsx-книгу с одной строкой на тикет.
func Tickets(w io.Writer, tickets []model.Ticket) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "L1", style); err != nil {
		return fmt.Errorf("export: style: %w", err)
	}

	for i := range tickets {
		row := Row(&tickets[i])
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "B", 50)
	_ = f.SetColWidth(sheet, "I", "L", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

// Row: значения ячеек для тикета в порядке headers.
func Row(t *model.Ticket) []interface{} {
	return []interface{}{
		t.ID,
		t.Subject,
		string(t.Status),
		string(t.Priority),
		t.Channel.Title(),
		deref(t.ClientID),
		deref(t.AssignedTo),
		strings.Join(t.Tags, ", "),
		formatTime(&t.CreatedAt),
		formatTime(&t.UpdatedAt),
		formatTime(t.ResolvedAt),
		formatTime(t.ClosedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
