package segment

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/transcript-flow/internal/caption"
)

// Namespace for deterministic segment IDs. Never change this: IDs are the
// upsert keys in the index, so a new namespace would re-create every record.
var idNamespace = uuid.MustParse("9e3b7a64-52c1-45d8-8f5e-2a6f0d41c7b3")

type implBuilder struct {
	cfg Config
}

// New creates a Builder with the given thresholds.
func New(cfg Config) Builder {
	return &implBuilder{cfg: cfg}
}

// Build accumulates consecutive cues into segments, closing the current
// accumulation when its text reaches MaxSegmentChars or the silence between
// two cues exceeds MaxSilenceGap. Cue boundaries are atomic: a single cue
// longer than MaxSegmentChars still yields exactly one segment.
func (b *implBuilder) Build(videoID string, cues []caption.Cue) []Segment {
	if len(cues) == 0 {
		return nil
	}

	var segments []Segment
	var texts []string
	var chars int
	start := cues[0].Start
	end := cues[0].End

	flush := func() {
		if len(texts) == 0 {
			return
		}
		seq := len(segments)
		segments = append(segments, Segment{
			ID:            ID(videoID, seq),
			VideoID:       videoID,
			Start:         start,
			End:           end,
			Text:          strings.Join(texts, " "),
			SequenceIndex: seq,
		})
		texts = nil
		chars = 0
	}

	for i, cue := range cues {
		if len(texts) > 0 {
			// Silence is measured between consecutive cues' boundary times:
			// from the previous cue's end to this cue's end. That way a long
			// cue that is mostly quiet breaks the segment just like real
			// silence between cues does.
			if cue.End-cues[i-1].End > b.cfg.MaxSilenceGap {
				flush()
			}
		}
		if len(texts) == 0 {
			start = cue.Start
		}

		if len(texts) > 0 {
			chars++ // joining space
		}
		texts = append(texts, cue.Text)
		chars += len(cue.Text)
		end = cue.End

		if chars >= b.cfg.MaxSegmentChars {
			flush()
		}
	}

	// The trailing accumulation is always closed, even below threshold.
	flush()

	return segments
}

// ID derives the deterministic segment identifier for a video position.
func ID(videoID string, sequenceIndex int) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s#%d", videoID, sequenceIndex))).String()
}
