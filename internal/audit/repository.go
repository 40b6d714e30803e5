package audit

import (
	"context"
	"errors"
	"time"

	"invoice-desk/internal/storage"
)

// Repository writes audit logs.
type Repository struct {
	db    storage.DBTX
	actor string
}

// NewRepository constructs an audit repository; actor is stamped on entries without one.
func NewRepository(db storage.DBTX, actor string) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db, actor: actor}
}

// Log writes an audit entry.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.Actor == "" {
		entry.Actor = r.actor
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}
	var metadata any
	if len(entry.Metadata) > 0 {
		metadata = string(entry.Metadata)
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_logs (
	id, actor, action, resource_type, resource_id, metadata, payload_digest, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, entry.ID, entry.Actor, entry.Action, entry.ResourceType, entry.ResourceID,
		metadata, entry.PayloadDigest, entry.CreatedAt)
	return err
}
