package index

import (
	"fmt"
	"time"
)

// Record is one segment joined with its video metadata and embedding vector,
// the unit written to the store. SegmentID is the upsert key: writing the
// same ID twice overwrites instead of duplicating.
type Record struct {
	SegmentID     string
	VideoID       string
	VideoPath     string
	Title         string
	Description   string
	Text          string
	Start         time.Duration
	End           time.Duration
	SequenceIndex int
	Vector        []float32
}

// Outcome is the per-record result of a batch upsert.
type Outcome struct {
	SegmentID string
	Accepted  bool
	Reason    string
}

// UpsertError is a transport-level batch failure: none of the batch's
// records can be assumed committed.
type UpsertError struct {
	Batch int
	Err   error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert batch %d: %v", e.Batch, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}
