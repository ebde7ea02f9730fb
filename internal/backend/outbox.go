package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hongminglow/farmconnect/internal/metrics"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

// OrphanedIdentity is an identity whose profile row failed to persist.
type OrphanedIdentity struct {
	IdentityID string               `json:"identity_id"`
	Email      string               `json:"email"`
	Fields     models.ProfileFields `json:"fields"`
	Error      string               `json:"error"`
	CreatedAt  time.Time            `json:"created_at"`
	ResolvedAt *time.Time           `json:"resolved_at,omitempty"`
}

// RecordOrphanedIdentity writes the sign-up outbox entry for an identity
// whose profile insert failed. Recording twice keeps the first entry.
func (c *Client) RecordOrphanedIdentity(ctx context.Context, identity models.Identity, fields models.ProfileFields, cause error) error {
	start := time.Now()
	err := c.recordOrphan(ctx, identity, fields, cause)
	metrics.ObserveBackend("insert", storage.TableSignupOutbox, start, err)
	return err
}

func (c *Client) recordOrphan(ctx context.Context, identity models.Identity, fields models.ProfileFields, cause error) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode profile fields: %w", err)
	}
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	_, err = c.tables.Insert(ctx, storage.TableSignupOutbox, storage.Row{
		"identity_id": identity.ID,
		"email":       identity.Email,
		"payload":     string(payload),
		"error":       reason,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return queryError("insert", storage.TableSignupOutbox, err)
	}
	return nil
}

// ResolveOrphanedIdentity marks the outbox entry for identityID as resolved.
// Resolving an identity with no entry is not an error.
func (c *Client) ResolveOrphanedIdentity(ctx context.Context, identityID string) error {
	start := time.Now()
	_, err := c.tables.Update(ctx, storage.TableSignupOutbox,
		storage.Row{"resolved_at": c.now().UTC()},
		[]storage.Filter{storage.Eq("identity_id", identityID), storage.Eq("resolved_at", nil)})
	if err != nil {
		err = queryError("update", storage.TableSignupOutbox, err)
	}
	metrics.ObserveBackend("update", storage.TableSignupOutbox, start, err)
	return err
}

// OrphanedIdentities lists unresolved outbox entries, oldest first.
func (c *Client) OrphanedIdentities(ctx context.Context) ([]OrphanedIdentity, error) {
	q := storage.From(storage.TableSignupOutbox).Eq("resolved_at", nil).Order("created_at", true)
	res, err := c.tables.Select(ctx, q)
	if err != nil {
		return nil, queryError("select", storage.TableSignupOutbox, err)
	}
	out := make([]OrphanedIdentity, 0, len(res.Rows))
	for _, row := range res.Rows {
		entry := OrphanedIdentity{
			IdentityID: fmt.Sprint(row["identity_id"]),
			Email:      fmt.Sprint(row["email"]),
			Error:      fmt.Sprint(row["error"]),
		}
		if created, ok := row["created_at"].(time.Time); ok {
			entry.CreatedAt = created
		}
		if payload, ok := row["payload"].(string); ok {
			if err := json.Unmarshal([]byte(payload), &entry.Fields); err != nil {
				c.logger.Warn("decode outbox payload", "identity_id", entry.IdentityID, "error", err)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
