package tracker

import "context"

// Tracker remembers the content checksum of the last indexed transcript per
// video, so unchanged transcripts are not re-embedded on the next run.
// Idempotent IDs already make re-indexing harmless; the tracker just saves
// the embedding calls.
type Tracker interface {
	// Indexed reports whether the video was already indexed with this checksum.
	Indexed(ctx context.Context, videoID, checksum string) (bool, error)
	// Mark records the checksum after a successful upsert.
	Mark(ctx context.Context, videoID, checksum string) error
	Close() error
}
