package postgres

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hongminglow/farmconnect/internal/storage"
	"github.com/jackc/pgx/v5"
)

var comparators = map[storage.Op]string{
	storage.OpEq:    "=",
	storage.OpNeq:   "<>",
	storage.OpGt:    ">",
	storage.OpGte:   ">=",
	storage.OpLt:    "<",
	storage.OpLte:   "<=",
	storage.OpILike: "ILIKE",
}

// builder accumulates positional arguments while rendering SQL.
type builder struct {
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (b *builder) filter(f storage.Filter) string {
	col := ident(f.Column)
	switch {
	case f.Op == storage.OpIn:
		return fmt.Sprintf("%s = ANY(%s)", col, b.arg(f.Value))
	case f.Value == nil && f.Op == storage.OpEq:
		return col + " IS NULL"
	case f.Value == nil && f.Op == storage.OpNeq:
		return col + " IS NOT NULL"
	}
	return fmt.Sprintf("%s %s %s", col, comparators[f.Op], b.arg(f.Value))
}

func (b *builder) conjunction(filters []storage.Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, b.filter(f))
	}
	return strings.Join(parts, " AND ")
}

func (b *builder) where(filters []storage.Filter, anys []storage.AnyOf) string {
	var parts []string
	if len(filters) > 0 {
		parts = append(parts, b.conjunction(filters))
	}
	for _, disj := range anys {
		groups := make([]string, 0, len(disj))
		for _, group := range disj {
			if len(group) == 0 {
				groups = append(groups, "TRUE")
				continue
			}
			groups = append(groups, "("+b.conjunction(group)+")")
		}
		if len(groups) == 0 {
			parts = append(parts, "FALSE")
			continue
		}
		parts = append(parts, "("+strings.Join(groups, " OR ")+")")
	}
	if len(parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func projection(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		quoted = append(quoted, ident(c))
	}
	return strings.Join(quoted, ", ")
}

func buildSelect(q *storage.Query) (string, []any) {
	var b builder
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", projection(q.Columns), ident(q.Table))
	sb.WriteString(b.where(q.Filters, q.Any))
	if len(q.Orders) > 0 {
		keys := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			keys = append(keys, ident(o.Column)+" "+dir)
		}
		sb.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}
	switch {
	case q.Empty:
		sb.WriteString(" LIMIT 0")
	case q.Limit > 0:
		sb.WriteString(" LIMIT " + b.arg(q.Limit))
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET " + b.arg(q.Offset))
	}
	return sb.String(), b.args
}

func buildCount(q *storage.Query) (string, []any) {
	var b builder
	sql := "SELECT count(*) FROM " + ident(q.Table) + b.where(q.Filters, q.Any)
	return sql, b.args
}

// sortedColumns keeps generated SQL stable for a given row.
func sortedColumns(row storage.Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func buildInsert(table string, row storage.Row) (string, []any) {
	var b builder
	cols := sortedColumns(row)
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", ident(table)), nil
	}
	names := make([]string, 0, len(cols))
	values := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, ident(c))
		values = append(values, b.arg(row[c]))
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(table), strings.Join(names, ", "), strings.Join(values, ", "))
	return sql, b.args
}

func buildUpdate(table string, patch storage.Row, filters []storage.Filter) (string, []any) {
	var b builder
	cols := sortedColumns(patch)
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		sets = append(sets, ident(c)+" = "+b.arg(patch[c]))
	}
	sql := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *",
		ident(table), strings.Join(sets, ", "), b.where(filters, nil))
	return sql, b.args
}

func buildDelete(table string, filters []storage.Filter) (string, []any) {
	var b builder
	return "DELETE FROM " + ident(table) + b.where(filters, nil), b.args
}
