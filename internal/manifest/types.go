package manifest

import "fmt"

// Entry maps one video to its transcript and descriptive metadata. Entries
// are loaded once at startup and never mutated during a run.
type Entry struct {
	VideoPath      string `json:"video_path"`
	TranscriptPath string `json:"transcript_path"`
	Title          string `json:"title"`
	Description    string `json:"description"`
}

// MetadataNotFoundError means the manifest has no entry for a video. Fatal
// for that video only, never for the run.
type MetadataNotFoundError struct {
	Video string
}

func (e *MetadataNotFoundError) Error() string {
	return fmt.Sprintf("no manifest entry for video %q", e.Video)
}

// TranscriptNotFoundError means no transcript file could be located for an
// entry, even case-insensitively.
type TranscriptNotFoundError struct {
	Video string
}

func (e *TranscriptNotFoundError) Error() string {
	return fmt.Sprintf("no transcript found for video %q", e.Video)
}
