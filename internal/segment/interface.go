package segment

import "github.com/nguyentantai21042004/transcript-flow/internal/caption"

// Builder merges ordered cues into retrieval-sized segments.
type Builder interface {
	Build(videoID string, cues []caption.Cue) []Segment
}
