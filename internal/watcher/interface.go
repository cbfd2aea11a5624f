package watcher

import "context"

// Watcher monitors the transcripts directory and reprocesses the matching
// manifest entry when a caption file appears or changes.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler reprocesses the video paired with a transcript file.
type EventHandler func(ctx context.Context, transcriptPath string) error
