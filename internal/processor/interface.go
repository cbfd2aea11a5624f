package processor

import (
	"context"

	"github.com/nguyentantai21042004/transcript-flow/internal/manifest"
)

// Processor drives the per-video pipeline: parse, segment, resolve, embed,
// upsert. One entry's failure never stops the run.
type Processor interface {
	Run(ctx context.Context, entries []manifest.Entry) Summary
	ProcessEntry(ctx context.Context, entry manifest.Entry) EntryResult
}
