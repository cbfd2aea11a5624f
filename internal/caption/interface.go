package caption

import "context"

// Parser turns raw timed-caption text (WebVTT or SRT) into ordered cues.
type Parser interface {
	Parse(ctx context.Context, raw string) ([]Cue, error)
}
