package storage

import (
	"fmt"
	"math"
)

// Row is one table row keyed by column name.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Op is a filter comparison.
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpILike Op = "ilike"
	OpIn    Op = "in"
)

// Filter restricts rows by comparing a column with a value.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func (f Filter) String() string {
	return fmt.Sprintf("%s.%s.%v", f.Column, f.Op, f.Value)
}

// Eq matches rows whose column equals value. A nil value matches NULL.
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// Neq matches rows whose column differs from value.
func Neq(column string, value any) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }

// Gte matches rows whose column is at least value.
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }

// Lte matches rows whose column is at most value.
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// ILike matches rows whose column matches a case-insensitive SQL LIKE pattern.
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: OpILike, Value: pattern}
}

// In matches rows whose column is one of values.
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// And groups filters that must all hold.
func And(filters ...Filter) []Filter { return filters }

// AnyOf is a disjunction of filter groups: at least one group must fully hold.
type AnyOf [][]Filter

// Order sorts by one column.
type Order struct {
	Column string
	Desc   bool
}

// Query is a table read: column projection, filters, ordering and range.
// Filters and every AnyOf are combined with AND.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Any     []AnyOf
	Orders  []Order
	Offset  int
	Limit   int
	Count   bool
	// Empty marks a range that selects no rows. Count still reports the total.
	Empty bool
}

// From starts a query on table selecting all columns.
func From(table string) *Query {
	return &Query{Table: table}
}

// Select restricts the projected columns.
func (q *Query) Select(columns ...string) *Query {
	q.Columns = append(q.Columns, columns...)
	return q
}

// Eq adds an equality filter.
func (q *Query) Eq(column string, value any) *Query {
	return q.Where(Eq(column, value))
}

// Where adds filters.
func (q *Query) Where(filters ...Filter) *Query {
	q.Filters = append(q.Filters, filters...)
	return q
}

// Or adds a disjunction of filter groups.
func (q *Query) Or(groups ...[]Filter) *Query {
	q.Any = append(q.Any, AnyOf(groups))
	return q
}

// Order appends a sort key.
func (q *Query) Order(column string, ascending bool) *Query {
	q.Orders = append(q.Orders, Order{Column: column, Desc: !ascending})
	return q
}

// Range selects rows from..to inclusive, counted from zero.
func (q *Query) Range(from, to int) *Query {
	if from < 0 {
		from = 0
	}
	q.Offset = from
	q.Limit = to - from + 1
	q.Empty = q.Limit <= 0
	if q.Empty {
		q.Limit = 0
	}
	return q
}

// Take limits the result to n rows.
func (q *Query) Take(n int) *Query {
	q.Limit = n
	return q
}

// WithCount asks for the total number of matching rows regardless of range.
func (q *Query) WithCount() *Query {
	q.Count = true
	return q
}

// Clone returns a deep enough copy of q to append filters safely.
func (q *Query) Clone() *Query {
	out := *q
	out.Columns = append([]string(nil), q.Columns...)
	out.Filters = append([]Filter(nil), q.Filters...)
	out.Any = append([]AnyOf(nil), q.Any...)
	out.Orders = append([]Order(nil), q.Orders...)
	return &out
}

// PageRange converts a one-based page number into an inclusive row range.
func PageRange(page, pageSize int) (from, to int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if last := (math.MaxInt-pageSize)/pageSize + 1; page > last {
		page = last
	}
	from = (page - 1) * pageSize
	return from, from + pageSize - 1
}

// Result is the outcome of a Select. Count is the total number of matching
// rows when the query asked for it, otherwise len(Rows).
type Result struct {
	Rows  []Row
	Count int
}
