package probe

import "context"

// Prober reports a video file's duration so segment boundaries can be
// reconciled with the source media.
type Prober interface {
	Duration(ctx context.Context, videoPath string) (DurationResult, error)
}

// DurationResult carries the probed duration; Known is false when the media
// could not be analyzed (probing is best-effort).
type DurationResult struct {
	Known   bool
	Seconds float64
}
