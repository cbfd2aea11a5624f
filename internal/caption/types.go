package caption

import (
	"fmt"
	"time"
)

// Cue is a single timed caption unit in file (playback) order.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// MalformedCaptionError reports a cue block that cannot be recovered:
// a missing or unparseable time range, or no text after a valid one.
type MalformedCaptionError struct {
	Line   int
	Reason string
}

func (e *MalformedCaptionError) Error() string {
	return fmt.Sprintf("malformed caption at line %d: %s", e.Line, e.Reason)
}
