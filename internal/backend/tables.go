package backend

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/farmconnect/internal/apperr"
	"github.com/hongminglow/farmconnect/internal/metrics"
	"github.com/hongminglow/farmconnect/internal/storage"
)

// Tables is the generic table surface of the backend client.
type Tables interface {
	Select(ctx context.Context, q *storage.Query) (storage.Result, error)
	Insert(ctx context.Context, table string, row storage.Row) (storage.Row, error)
	Update(ctx context.Context, table string, patch storage.Row, filters ...storage.Filter) ([]storage.Row, error)
	Delete(ctx context.Context, table string, filters ...storage.Filter) (int64, error)
}

// Ensure Client satisfies the Tables interface at compile time.
var _ Tables = (*Client)(nil)

// Select reads rows visible to the current session.
func (c *Client) Select(ctx context.Context, q *storage.Query) (storage.Result, error) {
	start := time.Now()
	res, err := c.selectRows(ctx, q)
	metrics.ObserveBackend("select", q.Table, start, err)
	return res, err
}

func (c *Client) selectRows(ctx context.Context, q *storage.Query) (storage.Result, error) {
	p, err := policyFor("select", q.Table)
	if err != nil {
		return storage.Result{}, err
	}
	scoped := q.Clone()
	if err := p.read(c.uid(), scoped); err != nil {
		return storage.Result{}, denied("select", q.Table, err)
	}
	res, err := c.tables.Select(ctx, scoped)
	if err != nil {
		return storage.Result{}, queryError("select", q.Table, err)
	}
	return res, nil
}

// Insert writes a row on behalf of the current session and returns it as stored.
func (c *Client) Insert(ctx context.Context, table string, row storage.Row) (storage.Row, error) {
	start := time.Now()
	out, err := c.insert(ctx, table, row)
	metrics.ObserveBackend("insert", table, start, err)
	return out, err
}

func (c *Client) insert(ctx context.Context, table string, row storage.Row) (storage.Row, error) {
	p, err := policyFor("insert", table)
	if err != nil {
		return nil, err
	}
	if err := p.insert(ctx, c, c.uid(), row); err != nil {
		return nil, denied("insert", table, err)
	}
	out, err := c.tables.Insert(ctx, table, row)
	if err != nil {
		return nil, queryError("insert", table, err)
	}
	return out, nil
}

// Update patches the rows matching filters that the current session may
// modify. Rows outside the policy are silently left alone, so an empty
// result means nothing matched.
func (c *Client) Update(ctx context.Context, table string, patch storage.Row, filters ...storage.Filter) ([]storage.Row, error) {
	start := time.Now()
	out, err := c.update(ctx, table, patch, filters)
	metrics.ObserveBackend("update", table, start, err)
	return out, err
}

func (c *Client) update(ctx context.Context, table string, patch storage.Row, filters []storage.Filter) ([]storage.Row, error) {
	p, err := policyFor("update", table)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, queryError("update", table, storage.ErrUnfiltered)
	}
	scope, err := p.update(c.uid(), patch)
	if err != nil {
		return nil, denied("update", table, err)
	}
	out, err := c.tables.Update(ctx, table, patch, append(append([]storage.Filter(nil), filters...), scope...))
	if err != nil {
		return nil, queryError("update", table, err)
	}
	return out, nil
}

// Delete removes the rows matching filters that the current session owns.
func (c *Client) Delete(ctx context.Context, table string, filters ...storage.Filter) (int64, error) {
	start := time.Now()
	n, err := c.delete(ctx, table, filters)
	metrics.ObserveBackend("delete", table, start, err)
	return n, err
}

func (c *Client) delete(ctx context.Context, table string, filters []storage.Filter) (int64, error) {
	p, err := policyFor("delete", table)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, queryError("delete", table, storage.ErrUnfiltered)
	}
	scope, err := p.delete(c.uid())
	if err != nil {
		return 0, denied("delete", table, err)
	}
	n, err := c.tables.Delete(ctx, table, append(append([]storage.Filter(nil), filters...), scope...))
	if err != nil {
		return 0, queryError("delete", table, err)
	}
	return n, nil
}

func denied(op, table string, err error) error {
	var qe *apperr.QueryError
	if errors.As(err, &qe) {
		return qe
	}
	return &apperr.QueryError{Op: op, Table: table, Code: apperr.CodePolicy, Err: err}
}

func queryError(op, table string, err error) error {
	code := apperr.CodeStore
	switch {
	case errors.Is(err, storage.ErrNotFound):
		code = apperr.CodeNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		code = apperr.CodeConflict
	case errors.Is(err, storage.ErrConstraint):
		code = apperr.CodeConstraint
	case errors.Is(err, storage.ErrUnknownTable),
		errors.Is(err, storage.ErrUnknownColumn),
		errors.Is(err, storage.ErrReadOnlyColumn),
		errors.Is(err, storage.ErrUnfiltered):
		code = apperr.CodeInvalid
	}
	return &apperr.QueryError{Op: op, Table: table, Code: code, Err: err}
}
