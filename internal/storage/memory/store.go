// Package memory is an in-process implementation of the backend store. It
// mirrors the Postgres store closely enough for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store keeps identities and table rows in memory.
type Store struct {
	mu         sync.RWMutex
	identities map[string]models.Identity
	tables     map[string][]storage.Row
	now        func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		identities: make(map[string]models.Identity),
		tables:     make(map[string][]storage.Row),
		now:        time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Seed inserts rows as-is, bypassing assigned-column checks. Missing keys
// and timestamps are filled in.
func (s *Store) Seed(table string, rows ...storage.Row) error {
	t, err := storage.Lookup(table)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		row = row.Clone()
		s.fill(t, row)
		s.tables[table] = append(s.tables[table], row)
	}
	return nil
}

// CreateIdentity registers a new identity. Emails are unique case-insensitively.
func (s *Store) CreateIdentity(_ context.Context, email, passwordHash string) (models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.identities {
		if strings.EqualFold(id.Email, email) {
			return models.Identity{}, storage.ErrAlreadyExists
		}
	}
	identity := models.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	s.identities[identity.ID] = identity
	return identity, nil
}

// FindIdentityByEmail fetches an identity by email.
func (s *Store) FindIdentityByEmail(_ context.Context, email string) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.identities {
		if strings.EqualFold(id.Email, email) {
			return id, nil
		}
	}
	return models.Identity{}, storage.ErrNotFound
}

// FindIdentityByID fetches an identity by id.
func (s *Store) FindIdentityByID(_ context.Context, id string) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return models.Identity{}, storage.ErrNotFound
	}
	return identity, nil
}

// Select returns the rows matching q.
func (s *Store) Select(_ context.Context, q *storage.Query) (storage.Result, error) {
	t, err := storage.Lookup(q.Table)
	if err != nil {
		return storage.Result{}, err
	}
	if err := t.CheckQuery(q); err != nil {
		return storage.Result{}, err
	}

	s.mu.RLock()
	var matched []storage.Row
	for _, row := range s.tables[q.Table] {
		if matchQuery(row, q) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()

	sortRows(matched, q.Orders)
	total := len(matched)
	if q.Empty {
		matched = nil
	}
	matched = window(matched, q.Offset, q.Limit)

	out := make([]storage.Row, 0, len(matched))
	for _, row := range matched {
		out = append(out, project(row, q.Columns))
	}
	if !q.Count {
		total = len(out)
	}
	return storage.Result{Rows: out, Count: total}, nil
}

// Insert adds a row and returns it with assigned columns filled.
func (s *Store) Insert(_ context.Context, table string, row storage.Row) (storage.Row, error) {
	t, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := t.CheckWrite(row); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	row = row.Clone()
	s.fill(t, row)
	if err := s.checkRefs(t, row); err != nil {
		return nil, err
	}
	for _, existing := range s.tables[table] {
		if existing[t.Key] == row[t.Key] {
			return nil, storage.ErrAlreadyExists
		}
	}
	s.tables[table] = append(s.tables[table], row)
	return row.Clone(), nil
}

// Update applies patch to every row matching filters and returns them.
func (s *Store) Update(_ context.Context, table string, patch storage.Row, filters []storage.Filter) ([]storage.Row, error) {
	t, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, storage.ErrUnfiltered
	}
	if err := t.CheckWrite(patch); err != nil {
		return nil, err
	}
	if err := t.CheckFilters(filters); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRefs(t, patch); err != nil {
		return nil, err
	}
	var updated []storage.Row
	for _, row := range s.tables[table] {
		if !matchAll(row, filters) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		updated = append(updated, row.Clone())
	}
	return updated, nil
}

// Delete removes every row matching filters.
func (s *Store) Delete(_ context.Context, table string, filters []storage.Filter) (int64, error) {
	t, err := storage.Lookup(table)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, storage.ErrUnfiltered
	}
	if err := t.CheckFilters(filters); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tables[table][:0]
	var removed int64
	for _, row := range s.tables[table] {
		if matchAll(row, filters) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return removed, nil
}

func (s *Store) fill(t storage.Table, row storage.Row) {
	for _, c := range t.Assigned {
		if _, ok := row[c]; ok {
			continue
		}
		switch c {
		case "id":
			row[c] = uuid.NewString()
		case "created_at", "updated_at":
			row[c] = s.now().UTC()
		}
	}
	for c, v := range t.Defaults {
		if _, ok := row[c]; !ok {
			row[c] = v
		}
	}
	for _, c := range t.Columns {
		if _, ok := row[c]; !ok {
			row[c] = nil
		}
	}
}

// checkRefs must run with s.mu held.
func (s *Store) checkRefs(t storage.Table, row storage.Row) error {
	for column, target := range t.Refs {
		value, ok := row[column]
		if !ok || value == nil {
			continue
		}
		key := storage.Schema[target].Key
		found := false
		for _, r := range s.tables[target] {
			if r[key] == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s.%s references missing %s", storage.ErrConstraint, t.Name, column, target)
		}
	}
	return nil
}

func project(row storage.Row, columns []string) storage.Row {
	if len(columns) == 0 {
		return row.Clone()
	}
	out := make(storage.Row, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}
	return out
}

func window(rows []storage.Row, offset, limit int) []storage.Row {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func sortRows(rows []storage.Row, orders []storage.Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			a, b := rows[i][o.Column], rows[j][o.Column]
			// NULLs sort last ascending and first descending, as in Postgres.
			switch {
			case a == nil && b == nil:
				continue
			case a == nil:
				return o.Desc
			case b == nil:
				return !o.Desc
			}
			c, ok := compare(a, b)
			if !ok || c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
