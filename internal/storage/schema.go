package storage

import "fmt"

// Table names.
const (
	TableProfiles     = "profiles"
	TableProducts     = "products"
	TableMarketPrices = "market_prices"
	TableMessages     = "messages"
	TablePriceAlerts  = "price_alerts"
	TableSignupOutbox = "signup_outbox"
)

// Table describes the columns of one table.
type Table struct {
	Name    string
	Key     string
	Columns []string
	// Assigned columns are filled by the store and rejected on write.
	Assigned []string
	// Defaults fill columns omitted from an insert.
	Defaults map[string]any
	// Refs maps a column to the table whose key it references.
	Refs map[string]string
}

// Schema lists every table reachable through a TableStore.
var Schema = map[string]Table{
	TableProfiles: {
		Name:     TableProfiles,
		Key:      "id",
		Columns:  []string{"id", "email", "full_name", "user_type", "location", "avatar_url", "phone", "created_at"},
		Assigned: []string{"created_at"},
	},
	TableProducts: {
		Name:     TableProducts,
		Key:      "id",
		Columns:  []string{"id", "name", "description", "category", "price", "quantity", "unit", "farmer_id", "image_url", "location", "created_at"},
		Assigned: []string{"id", "created_at"},
		Refs:     map[string]string{"farmer_id": TableProfiles},
	},
	TableMarketPrices: {
		Name:     TableMarketPrices,
		Key:      "id",
		Columns:  []string{"id", "product", "price", "market", "location", "updated_at"},
		Assigned: []string{"id", "updated_at"},
	},
	TableMessages: {
		Name:     TableMessages,
		Key:      "id",
		Columns:  []string{"id", "sender_id", "receiver_id", "content", "created_at", "read"},
		Assigned: []string{"id", "created_at"},
		Defaults: map[string]any{"read": false},
		Refs:     map[string]string{"sender_id": TableProfiles, "receiver_id": TableProfiles},
	},
	TablePriceAlerts: {
		Name:     TablePriceAlerts,
		Key:      "id",
		Columns:  []string{"id", "product", "min_price", "max_price", "user_id", "created_at", "active"},
		Assigned: []string{"id", "created_at"},
		Defaults: map[string]any{"active": true},
		Refs:     map[string]string{"user_id": TableProfiles},
	},
	TableSignupOutbox: {
		Name:     TableSignupOutbox,
		Key:      "identity_id",
		Columns:  []string{"identity_id", "email", "payload", "error", "created_at", "resolved_at"},
		Assigned: []string{"created_at"},
	},
}

// Lookup returns the schema of a table.
func Lookup(name string) (Table, error) {
	t, ok := Schema[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// Has reports whether column belongs to t.
func (t Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// IsAssigned reports whether the store fills column.
func (t Table) IsAssigned(column string) bool {
	for _, c := range t.Assigned {
		if c == column {
			return true
		}
	}
	return false
}

// CheckQuery validates every column q mentions.
func (t Table) CheckQuery(q *Query) error {
	for _, c := range q.Columns {
		if err := t.checkColumn(c); err != nil {
			return err
		}
	}
	if err := t.CheckFilters(q.Filters); err != nil {
		return err
	}
	for _, disj := range q.Any {
		for _, group := range disj {
			if err := t.CheckFilters(group); err != nil {
				return err
			}
		}
	}
	for _, o := range q.Orders {
		if err := t.checkColumn(o.Column); err != nil {
			return err
		}
	}
	return nil
}

// CheckFilters validates filter columns and operators.
func (t Table) CheckFilters(filters []Filter) error {
	for _, f := range filters {
		if err := t.checkColumn(f.Column); err != nil {
			return err
		}
		switch f.Op {
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		case OpILike:
			if _, ok := f.Value.(string); !ok {
				return fmt.Errorf("ilike on %s needs a string pattern", f.Column)
			}
		case OpIn:
			if _, ok := f.Value.([]string); !ok {
				return fmt.Errorf("in on %s needs a string list", f.Column)
			}
		default:
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	return nil
}

// CheckWrite validates the columns of an insert row or update patch.
func (t Table) CheckWrite(row Row) error {
	for c := range row {
		if err := t.checkColumn(c); err != nil {
			return err
		}
		if t.IsAssigned(c) {
			return fmt.Errorf("%w: %s.%s", ErrReadOnlyColumn, t.Name, c)
		}
	}
	return nil
}

func (t Table) checkColumn(column string) error {
	if !t.Has(column) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, column)
	}
	return nil
}
