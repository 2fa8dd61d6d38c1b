package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTickets_WritesHeaderAndRows(t *testing.T) {
	client := "42"
	resolved := time.Date(2026, 2, 3, 4, 5, 0, 0, time.UTC)
	tickets := []model.Ticket{
		{ID: "a-1", Subject: "Help", Status: model.TicketStatusResolved, Priority: model.TicketPriorityHigh,
			Channel: model.ChannelTelegram, ClientID: &client, Tags: []string{"telegram", "vip"}, ResolvedAt: &resolved},
		{ID: "a-2", Subject: "Printer", Status: model.TicketStatusNew, Priority: model.TicketPriorityLow, Channel: model.ChannelWeb},
	}

	var buf bytes.Buffer
	require.NoError(t, Tickets(&buf, tickets))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "a-1", rows[1][0])
	assert.Equal(t, "Telegram", rows[1][4])
	assert.Equal(t, "42", rows[1][5])
	assert.Equal(t, "telegram, vip", rows[1][7])
	assert.Equal(t, "2026-02-03 04:05", rows[1][10])
	assert.Equal(t, "Printer", rows[2][1])
}

func TestRow_EmptyOptionalFields(t *testing.T) {
	row := Row(&model.Ticket{ID: "x", Channel: model.ChannelEmail})
	require.Len(t, row, len(headers))
	assert.Equal(t, "", row[5])
	assert.Equal(t, "", row[6])
	assert.Equal(t, "", row[10])
}
