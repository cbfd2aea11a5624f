package manifest

import (
	"github.com/nguyentantai21042004/transcript-flow/internal/index"
	"github.com/nguyentantai21042004/transcript-flow/internal/segment"
)

// Resolver joins segments with per-video metadata and locates files on disk.
type Resolver interface {
	// Entries returns the manifest in file order.
	Entries() []Entry
	// EntryFor finds the entry for a video filename, comparing
	// case-insensitively.
	EntryFor(video string) (Entry, error)
	// LocateTranscript resolves an entry's transcript to an existing file,
	// matching filenames case-insensitively.
	LocateTranscript(entry Entry) (string, error)
	// Attach joins segments with the entry's metadata into index-record
	// precursors. Purely additive: segment identity is untouched.
	Attach(entry Entry, segments []segment.Segment) []index.Record
}
