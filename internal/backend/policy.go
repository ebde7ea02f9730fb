package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

var (
	errAnonymous = errors.New("sign-in required")
	errForbidden = errors.New("operation not permitted on this table")
)

// policy is the row-level authorization applied to one table. read and
// update/delete narrow the query to the caller's rows; insert vets the row.
type policy struct {
	read   func(uid string, q *storage.Query) error
	insert func(ctx context.Context, c *Client, uid string, row storage.Row) error
	update func(uid string, patch storage.Row) ([]storage.Filter, error)
	delete func(uid string) ([]storage.Filter, error)
}

var policies = map[string]policy{
	storage.TableProfiles: {
		read: signedIn,
		insert: func(_ context.Context, c *Client, uid string, row storage.Row) error {
			if uid == "" {
				return errAnonymous
			}
			if row["id"] != uid {
				return errors.New("profile id must match the signed-in identity")
			}
			if sess := c.Current(); sess != nil && row["email"] != sess.User.Email {
				return errors.New("profile email must match the signed-in identity")
			}
			return nil
		},
		update: owned("id", "id", "email", "user_type"),
		delete: denyDelete,
	},
	storage.TableProducts: {
		read: public,
		insert: func(ctx context.Context, c *Client, uid string, row storage.Row) error {
			if uid == "" {
				return errAnonymous
			}
			if row["farmer_id"] != uid {
				return errors.New("products must be listed under the signed-in farmer")
			}
			return c.requireUserType(ctx, uid, models.Farmer)
		},
		update: owned("farmer_id", "farmer_id"),
		delete: ownedDelete("farmer_id"),
	},
	storage.TableMarketPrices: {
		read:   public,
		insert: denyInsert,
		update: denyUpdate,
		delete: denyDelete,
	},
	storage.TableMessages: {
		read: func(uid string, q *storage.Query) error {
			if uid == "" {
				return errAnonymous
			}
			q.Or(storage.And(storage.Eq("sender_id", uid)), storage.And(storage.Eq("receiver_id", uid)))
			return nil
		},
		insert: func(_ context.Context, _ *Client, uid string, row storage.Row) error {
			if uid == "" {
				return errAnonymous
			}
			if row["sender_id"] != uid {
				return errors.New("messages must be sent as the signed-in identity")
			}
			if read, ok := row["read"]; ok && read != false {
				return errors.New("new messages start unread")
			}
			return nil
		},
		update: func(uid string, patch storage.Row) ([]storage.Filter, error) {
			if uid == "" {
				return nil, errAnonymous
			}
			for column := range patch {
				if column != "read" {
					return nil, fmt.Errorf("messages are append-only: %s cannot change", column)
				}
			}
			return []storage.Filter{storage.Eq("receiver_id", uid)}, nil
		},
		delete: denyDelete,
	},
	storage.TablePriceAlerts: {
		read: func(uid string, q *storage.Query) error {
			if uid == "" {
				return errAnonymous
			}
			q.Eq("user_id", uid)
			return nil
		},
		insert: func(_ context.Context, _ *Client, uid string, row storage.Row) error {
			if uid == "" {
				return errAnonymous
			}
			if row["user_id"] != uid {
				return errors.New("alerts must belong to the signed-in identity")
			}
			return nil
		},
		update: owned("user_id", "user_id"),
		delete: ownedDelete("user_id"),
	},
	storage.TableSignupOutbox: {
		read:   func(string, *storage.Query) error { return errForbidden },
		insert: denyInsert,
		update: denyUpdate,
		delete: denyDelete,
	},
}

func policyFor(op, table string) (policy, error) {
	p, ok := policies[table]
	if !ok {
		return policy{}, queryError(op, table, fmt.Errorf("%w: %q", storage.ErrUnknownTable, table))
	}
	return p, nil
}

func public(string, *storage.Query) error { return nil }

func signedIn(uid string, _ *storage.Query) error {
	if uid == "" {
		return errAnonymous
	}
	return nil
}

func denyInsert(context.Context, *Client, string, storage.Row) error { return errForbidden }

func denyUpdate(string, storage.Row) ([]storage.Filter, error) { return nil, errForbidden }

func denyDelete(string) ([]storage.Filter, error) { return nil, errForbidden }

// owned scopes updates to rows whose ownerColumn is the caller and rejects
// patches touching any immutable column.
func owned(ownerColumn string, immutable ...string) func(string, storage.Row) ([]storage.Filter, error) {
	return func(uid string, patch storage.Row) ([]storage.Filter, error) {
		if uid == "" {
			return nil, errAnonymous
		}
		for _, column := range immutable {
			if _, ok := patch[column]; ok {
				return nil, fmt.Errorf("%s cannot be changed", column)
			}
		}
		return []storage.Filter{storage.Eq(ownerColumn, uid)}, nil
	}
}

func ownedDelete(ownerColumn string) func(string) ([]storage.Filter, error) {
	return func(uid string) ([]storage.Filter, error) {
		if uid == "" {
			return nil, errAnonymous
		}
		return []storage.Filter{storage.Eq(ownerColumn, uid)}, nil
	}
}

func (c *Client) requireUserType(ctx context.Context, uid string, want models.UserType) error {
	res, err := c.tables.Select(ctx, storage.From(storage.TableProfiles).Select("user_type").Eq("id", uid).Take(1))
	if err != nil {
		return queryError("select", storage.TableProfiles, err)
	}
	if len(res.Rows) == 0 {
		return errors.New("no profile for the signed-in identity")
	}
	if got, _ := res.Rows[0]["user_type"].(string); models.UserType(got) != want {
		return fmt.Errorf("only %ss may do this", want)
	}
	return nil
}
