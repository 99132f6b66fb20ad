package store

import (
	"fmt"
	"strings"

	"shopfloor/internal/models"
)

// ListFilter narrows ListTasks. Zero values disable a filter.
type ListFilter struct {
	AssignedTo string
	Statuses   []models.TaskStatus
	// Month and Year match against created_at in UTC.
	Month int
	Year  int
	Limit int
}

type listQueryBuilder struct {
	filter ListFilter
	query  string
	args   []any
	where  []string
}

func buildListQuery(filter ListFilter) (string, []any) {
	builder := &listQueryBuilder{filter: filter}
	builder.query = "SELECT " + taskColumns + " FROM tasks"
	builder.appendAssignee()
	builder.appendStatuses()
	builder.appendPeriod()
	if len(builder.where) > 0 {
		builder.query += " WHERE " + strings.Join(builder.where, " AND ")
	}
	builder.query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		builder.query += " LIMIT ?"
		builder.args = append(builder.args, filter.Limit)
	}
	return builder.query, builder.args
}

func (b *listQueryBuilder) appendAssignee() {
	if b.filter.AssignedTo == "" {
		return
	}
	b.where = append(b.where, "assigned_to = ?")
	b.args = append(b.args, b.filter.AssignedTo)
}

func (b *listQueryBuilder) appendStatuses() {
	if len(b.filter.Statuses) == 0 {
		return
	}
	b.where = append(b.where, fmt.Sprintf("status IN (%s)", placeholders(len(b.filter.Statuses))))
	for _, status := range b.filter.Statuses {
		b.args = append(b.args, string(status))
	}
}

// appendPeriod relies on created_at being stored in timeLayout, so the year
// and month sit at known offsets.
func (b *listQueryBuilder) appendPeriod() {
	if b.filter.Year > 0 {
		b.where = append(b.where, "substr(created_at, 1, 4) = ?")
		b.args = append(b.args, fmt.Sprintf("%04d", b.filter.Year))
	}
	if b.filter.Month > 0 {
		b.where = append(b.where, "substr(created_at, 6, 2) = ?")
		b.args = append(b.args, fmt.Sprintf("%02d", b.filter.Month))
	}
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}
