package segment

import "time"

// Segment is the unit of retrieval: one or more consecutive cues merged into
// a searchable span. ID is deterministic for a given (video, position) so
// re-running the pipeline overwrites rather than duplicates index records.
type Segment struct {
	ID            string
	VideoID       string
	Start         time.Duration
	End           time.Duration
	Text          string
	SequenceIndex int
}

// Config holds the segmentation thresholds. Both are tunable; the defaults
// carry no meaning beyond being reasonable.
type Config struct {
	MaxSegmentChars int
	MaxSilenceGap   time.Duration
}
