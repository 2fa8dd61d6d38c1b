package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

type groupRow struct {
	Name  string
	Total int64
}

// Stats считает тикеты по статусу и каналу. SQL собирается squirrel'ом с плейсхолдерами "?",
// gorm сам переводит их в синтаксис диалекта.
func (g *GormGateway) Stats(ctx context.Context) (*model.TicketStats, error) {
	out := &model.TicketStats{ByStatus: []model.StatusCount{}, ByChannel: []model.StatusCount{}}

	q, args, err := sq.Select("COUNT(*)").From("tickets").ToSql()
	if err != nil {
		return nil, errs.Persistence("stats", err)
	}
	if err := g.db.WithContext(ctx).Raw(q, args...).Scan(&out.Total).Error; err != nil {
		return nil, errs.Persistence("stats total", err)
	}

	for _, col := range []string{"status", "channel"} {
		q, args, err := sq.Select(col+" AS name", "COUNT(*) AS total").
			From("tickets").
			GroupBy(col).
			OrderBy(col).
			ToSql()
		if err != nil {
			return nil, errs.Persistence("stats", err)
		}
		var rows []groupRow
		if err := g.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
			return nil, errs.Persistence("stats by "+col, err)
		}
		counts := make([]model.StatusCount, 0, len(rows))
		for _, r := range rows {
			counts = append(counts, model.StatusCount{Key: r.Name, Count: r.Total})
		}
		if col == "status" {
			out.ByStatus = counts
		} else {
			out.ByChannel = counts
		}
	}
	return out, nil
}
