package processor

// State is where a manifest entry is in its pipeline.
type State string

const (
	StatePending    State = "PENDING"
	StateParsing    State = "PARSING"
	StateSegmenting State = "SEGMENTING"
	StateResolving  State = "RESOLVING"
	StateEmbedding  State = "EMBEDDING"
	StateUpserting  State = "UPSERTING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// EntryResult is the terminal outcome for one manifest entry.
type EntryResult struct {
	VideoID string
	State   State
	// Reason explains a FAILED state; empty otherwise.
	Reason string

	SegmentsIndexed int
	// SegmentsSkipped counts segments dropped after exhausting embedding
	// retries.
	SegmentsSkipped int
	// SegmentsRejected counts records the store refused inside otherwise
	// successful batches.
	SegmentsRejected int

	// BatchesCommitted of BatchesTotal records the partial-commit extent
	// when upserting fails mid-video.
	BatchesCommitted int
	BatchesTotal     int

	// SkippedUnchanged marks a video whose transcript checksum matched the
	// tracker, so nothing was re-embedded.
	SkippedUnchanged bool
}

// Summary aggregates a whole run.
type Summary struct {
	TotalVideos     int
	Succeeded       int
	Failed          int
	SegmentsIndexed int
	SegmentsSkipped int
	Results         []EntryResult
}

// Ok reports whether every entry reached DONE.
func (s Summary) Ok() bool {
	return s.Failed == 0
}
