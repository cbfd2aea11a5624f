package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nguyentantai21042004/transcript-flow/internal/caption"
	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/embedding"
	"github.com/nguyentantai21042004/transcript-flow/internal/index"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
	"github.com/nguyentantai21042004/transcript-flow/internal/manifest"
	"github.com/nguyentantai21042004/transcript-flow/internal/probe"
	"github.com/nguyentantai21042004/transcript-flow/internal/processor"
	"github.com/nguyentantai21042004/transcript-flow/internal/segment"
	"github.com/nguyentantai21042004/transcript-flow/internal/tracker"
	"github.com/nguyentantai21042004/transcript-flow/internal/watcher"
	"github.com/nguyentantai21042004/transcript-flow/pkg/executor"
)

func main() {
	var (
		configPath   = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		manifestPath = flag.String("manifest", "", "Override the manifest path from the configuration")
		watchMode    = flag.Bool("watch", false, "Stay resident and reindex when transcripts change")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *manifestPath != "" {
		cfg.Paths.Manifest = *manifestPath
	}

	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "========================================")
	log.Info(ctx, "Transcript Indexing Pipeline")
	log.Info(ctx, "========================================")
	log.Info(ctx, "Manifest: %s", cfg.Paths.Manifest)
	log.Info(ctx, "Index backend: %s (batch size %d)", cfg.Index.Backend, cfg.Index.BatchSize)
	log.Info(ctx, "Embedding provider: %s (%s)", cfg.Embedding.Provider, cfg.Embedding.Model)
	log.Info(ctx, "Max concurrent videos: %d", cfg.Performance.MaxConcurrent)

	entries, err := manifest.Load(cfg.Paths.Manifest)
	if err != nil {
		log.Error(ctx, "Failed to load manifest: %v", err)
		os.Exit(1)
	}
	log.Info(ctx, "Loaded %d manifest entries", len(entries))

	resolver := manifest.New(entries, cfg.Paths.Videos, cfg.Paths.Transcripts)

	gateway, err := embedding.New(cfg.Embedding, log)
	if err != nil {
		log.Error(ctx, "Failed to create embedding gateway: %v", err)
		os.Exit(1)
	}

	store, err := index.New(cfg.Index, cfg.Embedding.Dimensions, log)
	if err != nil {
		log.Error(ctx, "Failed to create index store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	readyCtx, cancelReady := context.WithTimeout(ctx, 30*time.Second)
	if err := store.WaitReady(readyCtx); err != nil {
		cancelReady()
		log.Error(ctx, "Index store unreachable: %v", err)
		os.Exit(1)
	}
	cancelReady()
	log.Info(ctx, "Index store is ready")

	track, err := tracker.New(ctx, cfg.Tracker, log)
	if err != nil {
		log.Error(ctx, "Failed to connect tracker: %v", err)
		os.Exit(1)
	}
	defer track.Close()

	proc := processor.New(
		cfg,
		caption.New(log),
		segment.New(segment.Config{
			MaxSegmentChars: cfg.Segmenter.MaxSegmentChars,
			MaxSilenceGap:   cfg.Segmenter.MaxSilenceGap.Std(),
		}),
		resolver,
		gateway,
		store,
		track,
		probe.New(cfg.Probe, executor.New(), log),
		log,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info(ctx, "Shutdown signal received")
		cancel()
	}()

	summary := proc.Run(runCtx, entries)
	printSummary(summary)

	if *watchMode && runCtx.Err() == nil {
		runWatch(runCtx, cfg, resolver, proc, log)
	}

	if !summary.Ok() {
		os.Exit(1)
	}
}

// runWatch blocks until cancelled, reindexing videos whose transcript files
// change on disk.
func runWatch(ctx context.Context, cfg *config.Config, resolver manifest.Resolver, proc processor.Processor, log logger.Logger) {
	handler := func(ctx context.Context, transcriptPath string) error {
		entry, err := entryForTranscript(resolver, transcriptPath)
		if err != nil {
			return err
		}
		result := proc.ProcessEntry(ctx, entry)
		if result.State == processor.StateFailed {
			return fmt.Errorf("reindex %s: %s", result.VideoID, result.Reason)
		}
		return nil
	}

	w, err := watcher.New(cfg.Paths.Transcripts, handler, log, cfg.Performance.MaxConcurrent)
	if err != nil {
		log.Error(ctx, "Failed to create watcher: %v", err)
		return
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil && err != context.Canceled {
		log.Error(ctx, "Watcher stopped: %v", err)
	}
}

// entryForTranscript maps a transcript filename back to its manifest entry
// by stem, comparing case-insensitively.
func entryForTranscript(resolver manifest.Resolver, transcriptPath string) (manifest.Entry, error) {
	name := filepath.Base(transcriptPath)
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))

	for _, entry := range resolver.Entries() {
		video := filepath.Base(entry.VideoPath)
		videoStem := strings.ToLower(strings.TrimSuffix(video, filepath.Ext(video)))
		if strings.HasPrefix(stem, videoStem) {
			return entry, nil
		}
	}
	return manifest.Entry{}, fmt.Errorf("no manifest entry matches transcript %s", name)
}

func printSummary(s processor.Summary) {
	fmt.Println("========================================")
	fmt.Println("Run summary")
	fmt.Println("========================================")
	fmt.Printf("Videos:   %d total, %d succeeded, %d failed\n", s.TotalVideos, s.Succeeded, s.Failed)
	fmt.Printf("Segments: %d indexed, %d skipped\n", s.SegmentsIndexed, s.SegmentsSkipped)
	for _, r := range s.Results {
		line := fmt.Sprintf("  [%s] %s", r.State, r.VideoID)
		switch {
		case r.State == processor.StateFailed:
			line += " — " + r.Reason
		case r.SkippedUnchanged:
			line += " — unchanged, skipped"
		default:
			line += fmt.Sprintf(" — %d indexed", r.SegmentsIndexed)
			if r.SegmentsSkipped > 0 {
				line += fmt.Sprintf(", %d skipped", r.SegmentsSkipped)
			}
			if r.SegmentsRejected > 0 {
				line += fmt.Sprintf(", %d rejected (partial success)", r.SegmentsRejected)
			}
		}
		fmt.Println(line)
	}
}
