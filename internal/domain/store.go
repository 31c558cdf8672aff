package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TransactionStore persists the off-chain stake transaction log.
type TransactionStore interface {
	// List returns every record in source order (created_at, then id).
	List(ctx context.Context) ([]TransactionRecord, error)
	Insert(ctx context.Context, rec TransactionRecord) (TransactionRecord, error)
	// LinkPositions records the last pairing (hash -> position id) for audit.
	LinkPositions(ctx context.Context, links map[string]string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
