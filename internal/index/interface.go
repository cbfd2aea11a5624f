package index

import "context"

// Store is the external index the pipeline writes to. UpsertBatch reports a
// per-record outcome: rejected records never discard accepted siblings.
type Store interface {
	// WaitReady blocks until the store answers or the context expires.
	WaitReady(ctx context.Context) error
	UpsertBatch(ctx context.Context, records []Record) ([]Outcome, error)
	Close() error
}
