package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/transcript-flow/internal/caption"
	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/index"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
	"github.com/nguyentantai21042004/transcript-flow/internal/manifest"
	"github.com/nguyentantai21042004/transcript-flow/internal/probe"
	"github.com/nguyentantai21042004/transcript-flow/internal/segment"
	"github.com/nguyentantai21042004/transcript-flow/internal/tracker"
)

const sampleVTT = `WEBVTT

00:00:00.000 --> 00:00:02.000
Hello and welcome.

00:00:02.000 --> 00:00:04.000
Today we talk about Jupiter.

00:00:12.000 --> 00:00:14.000
The great red spot is a storm.
`

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	// failing maps text substrings to permanent failure.
	failing string
	failAll bool
}

func (g *fakeGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.failAll || (g.failing != "" && strings.Contains(text, g.failing)) {
		return nil, errors.New("embedding unavailable")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	upserted  map[string]int
	batches   []int
	rejectIDs map[string]bool
	failAfter int // batches to accept before transport errors; -1 = never fail
}

func newFakeStore() *fakeStore {
	return &fakeStore{upserted: map[string]int{}, rejectIDs: map[string]bool{}, failAfter: -1}
}

func (s *fakeStore) WaitReady(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                        { return nil }

func (s *fakeStore) UpsertBatch(ctx context.Context, records []index.Record) ([]index.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAfter >= 0 && len(s.batches) >= s.failAfter {
		return nil, errors.New("store unreachable")
	}

	s.batches = append(s.batches, len(records))
	outcomes := make([]index.Outcome, len(records))
	for i, rec := range records {
		if s.rejectIDs[rec.SegmentID] {
			outcomes[i] = index.Outcome{SegmentID: rec.SegmentID, Accepted: false, Reason: "mapper_parsing_exception"}
			continue
		}
		s.upserted[rec.SegmentID]++
		outcomes[i] = index.Outcome{SegmentID: rec.SegmentID, Accepted: true}
	}
	return outcomes, nil
}

type fixture struct {
	cfg      *config.Config
	entries  []manifest.Entry
	resolver manifest.Resolver
	gateway  *fakeGateway
	store    *fakeStore
}

// newFixture lays out transcript files on disk and wires a processor with
// fake embedding and store collaborators.
func newFixture(t *testing.T, transcripts map[string]string) *fixture {
	t.Helper()

	transcriptsDir := t.TempDir()
	var entries []manifest.Entry
	for video, content := range transcripts {
		stem := strings.TrimSuffix(video, filepath.Ext(video))
		if content != "" {
			path := filepath.Join(transcriptsDir, stem+".vtt")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
		}
		entries = append(entries, manifest.Entry{
			VideoPath:      video,
			TranscriptPath: stem + ".vtt",
			Title:          strings.ToUpper(stem[:1]) + stem[1:],
			Description:    "about " + stem,
		})
	}

	cfg := &config.Config{}
	cfg.Paths.Videos = t.TempDir()
	cfg.Paths.Transcripts = transcriptsDir
	cfg.Segmenter.MaxSegmentChars = 60
	cfg.Segmenter.MaxSilenceGap = config.Duration(5 * time.Second)
	cfg.Embedding.MaxConcurrent = 2
	cfg.Embedding.Retry.MaxAttempts = 2
	cfg.Embedding.Retry.BaseDelay = config.Duration(time.Millisecond)
	cfg.Index.BatchSize = 2
	cfg.Performance.MaxConcurrent = 2

	return &fixture{
		cfg:      cfg,
		entries:  entries,
		resolver: manifest.New(entries, cfg.Paths.Videos, transcriptsDir),
		gateway:  &fakeGateway{},
		store:    newFakeStore(),
	}
}

func (f *fixture) processor(t *testing.T) Processor {
	t.Helper()
	log := logger.New("error")
	track, err := tracker.New(context.Background(), config.TrackerConfig{}, log)
	if err != nil {
		t.Fatal(err)
	}
	return New(
		f.cfg,
		caption.New(log),
		segment.New(segment.Config{
			MaxSegmentChars: f.cfg.Segmenter.MaxSegmentChars,
			MaxSilenceGap:   f.cfg.Segmenter.MaxSilenceGap.Std(),
		}),
		f.resolver,
		f.gateway,
		f.store,
		track,
		probe.New(config.ProbeConfig{}, nil, log),
		log,
	)
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t, map[string]string{
		"intro.mp4":   sampleVTT,
		"jupiter.mp4": sampleVTT,
	})

	summary := f.processor(t).Run(context.Background(), f.entries)

	if !summary.Ok() {
		t.Fatalf("run failed: %+v", summary.Results)
	}
	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Errorf("succeeded=%d failed=%d", summary.Succeeded, summary.Failed)
	}
	if summary.SegmentsIndexed == 0 {
		t.Error("no segments indexed")
	}
	for _, r := range summary.Results {
		if r.State != StateDone {
			t.Errorf("[%s] state = %s, want DONE", r.VideoID, r.State)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})
	proc := f.processor(t)

	first := proc.Run(context.Background(), f.entries)
	countAfterFirst := len(f.store.upserted)

	second := proc.Run(context.Background(), f.entries)

	if first.SegmentsIndexed != second.SegmentsIndexed {
		t.Errorf("indexed %d then %d segments", first.SegmentsIndexed, second.SegmentsIndexed)
	}
	if len(f.store.upserted) != countAfterFirst {
		t.Errorf("re-run grew the index from %d to %d distinct IDs", countAfterFirst, len(f.store.upserted))
	}
	for id, times := range f.store.upserted {
		if times != 2 {
			t.Errorf("record %s upserted %d times, want 2 overwrites", id, times)
		}
	}
}

func TestMissingTranscriptFailsOnlyThatEntry(t *testing.T) {
	f := newFixture(t, map[string]string{
		"present.mp4": sampleVTT,
		"ghost.mp4":   "", // manifest entry without a file on disk
	})

	summary := f.processor(t).Run(context.Background(), f.entries)

	if summary.Failed != 1 || summary.Succeeded != 1 {
		t.Fatalf("succeeded=%d failed=%d, want 1/1", summary.Succeeded, summary.Failed)
	}

	for _, r := range summary.Results {
		switch r.VideoID {
		case "ghost.mp4":
			if r.State != StateFailed {
				t.Errorf("ghost state = %s, want FAILED", r.State)
			}
			if !strings.Contains(r.Reason, "no transcript found") {
				t.Errorf("ghost reason = %q", r.Reason)
			}
		case "present.mp4":
			if r.State != StateDone {
				t.Errorf("present state = %s, want DONE", r.State)
			}
		}
	}
}

func TestCaseInsensitiveTranscriptMatch(t *testing.T) {
	f := newFixture(t, map[string]string{"Lecture.mp4": sampleVTT})
	// The manifest declares lowercase paths; the file on disk is "Lecture.vtt".
	f.entries[0].VideoPath = "lecture.mp4"
	f.entries[0].TranscriptPath = "lecture.vtt"
	f.resolver = manifest.New(f.entries, f.cfg.Paths.Videos, f.cfg.Paths.Transcripts)

	result := f.processor(t).ProcessEntry(context.Background(), f.entries[0])
	if result.State != StateDone {
		t.Errorf("state = %s (%s), want DONE", result.State, result.Reason)
	}
}

func TestEmptyTranscriptIsWarningNotFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"silent.mp4": "WEBVTT\n"})

	result := f.processor(t).ProcessEntry(context.Background(), f.entries[0])

	if result.State != StateDone {
		t.Errorf("state = %s, want DONE", result.State)
	}
	if result.SegmentsIndexed != 0 {
		t.Errorf("indexed %d segments from an empty transcript", result.SegmentsIndexed)
	}
}

func TestEmbeddingFailuresSkipSegments(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})
	f.gateway.failing = "red spot"

	result := f.processor(t).ProcessEntry(context.Background(), f.entries[0])

	if result.State != StateDone {
		t.Fatalf("state = %s (%s), want DONE", result.State, result.Reason)
	}
	if result.SegmentsSkipped != 1 {
		t.Errorf("skipped = %d, want 1", result.SegmentsSkipped)
	}
	if result.SegmentsIndexed == 0 {
		t.Error("surviving segments should still be indexed")
	}
}

func TestAllEmbeddingsFailingFailsEntry(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})
	f.gateway.failAll = true

	result := f.processor(t).ProcessEntry(context.Background(), f.entries[0])

	if result.State != StateFailed {
		t.Errorf("state = %s, want FAILED", result.State)
	}
}

func TestEmbeddingRetries(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})
	f.gateway.failAll = true
	f.cfg.Embedding.Retry.MaxAttempts = 3

	f.processor(t).ProcessEntry(context.Background(), f.entries[0])

	f.gateway.mu.Lock()
	calls := f.gateway.calls
	f.gateway.mu.Unlock()
	if calls == 0 || calls%3 != 0 {
		t.Errorf("calls = %d, want 3 attempts per segment", calls)
	}
}

func TestPartialBatchRejection(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})

	// Compute the ID the builder will assign the first segment, reject it.
	f.store.rejectIDs[segment.ID("intro.mp4", 0)] = true

	result := f.processor(t).ProcessEntry(context.Background(), f.entries[0])

	if result.State != StateDone {
		t.Fatalf("state = %s (%s), want DONE with partial success", result.State, result.Reason)
	}
	if result.SegmentsRejected != 1 {
		t.Errorf("rejected = %d, want 1", result.SegmentsRejected)
	}
	if result.SegmentsIndexed != 1 {
		t.Errorf("indexed = %d, want the accepted sibling", result.SegmentsIndexed)
	}
}

func TestUpsertTransportFailureRecordsPartialCommit(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})
	f.cfg.Index.BatchSize = 1 // two segments, two batches
	f.store.failAfter = 1     // accept one batch, then go dark

	result := f.processor(t).ProcessEntry(context.Background(), f.entries[0])

	if result.State != StateFailed {
		t.Fatalf("state = %s, want FAILED", result.State)
	}
	if result.BatchesCommitted != 1 {
		t.Errorf("BatchesCommitted = %d, want 1", result.BatchesCommitted)
	}
	if !strings.Contains(result.Reason, "1/2 batches committed") {
		t.Errorf("reason = %q, want the partial-commit extent", result.Reason)
	}
}

func TestBatchSizeRespected(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})
	f.cfg.Index.BatchSize = 2

	f.processor(t).ProcessEntry(context.Background(), f.entries[0])

	for i, size := range f.store.batches {
		if size > 2 {
			t.Errorf("batch %d has %d records, want <= 2", i, size)
		}
	}
}

func TestMetadataAttachedToRecords(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})

	captured := &capturingStore{fakeStore: newFakeStore()}

	proc := New(
		f.cfg,
		caption.New(logger.New("error")),
		segment.New(segment.Config{MaxSegmentChars: 60, MaxSilenceGap: 5 * time.Second}),
		f.resolver,
		f.gateway,
		captured,
		mustTracker(t),
		probe.New(config.ProbeConfig{}, nil, logger.New("error")),
		logger.New("error"),
	)

	proc.ProcessEntry(context.Background(), f.entries[0])

	if len(captured.records) == 0 {
		t.Fatal("no records reached the store")
	}
	for _, rec := range captured.records {
		if rec.Title != "Intro" || rec.Description != "about intro" {
			t.Errorf("record %s missing metadata: title=%q desc=%q", rec.SegmentID, rec.Title, rec.Description)
		}
		if len(rec.Vector) == 0 {
			t.Errorf("record %s has no vector", rec.SegmentID)
		}
	}
}

type capturingStore struct {
	*fakeStore
	records []index.Record
}

func (s *capturingStore) UpsertBatch(ctx context.Context, records []index.Record) ([]index.Outcome, error) {
	s.records = append(s.records, records...)
	return s.fakeStore.UpsertBatch(ctx, records)
}

func mustTracker(t *testing.T) tracker.Tracker {
	t.Helper()
	track, err := tracker.New(context.Background(), config.TrackerConfig{}, logger.New("error"))
	if err != nil {
		t.Fatal(err)
	}
	return track
}

func TestRunCancellation(t *testing.T) {
	f := newFixture(t, map[string]string{"intro.mp4": sampleVTT})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := f.processor(t).Run(ctx, f.entries)

	if summary.Ok() {
		t.Error("cancelled run should not report success")
	}
	for _, r := range summary.Results {
		if r.State == StateFailed && !strings.Contains(r.Reason, "cancelled") {
			// Entries may also fail mid-flight from the dead context; both
			// are acceptable as long as the failure is recorded.
			if r.Reason == "" {
				t.Errorf("[%s] failed without a reason", r.VideoID)
			}
		}
	}
}

func TestProbeClampsFinalSegment(t *testing.T) {
	segments := []segment.Segment{
		{Start: 0, End: 4 * time.Second},
		{Start: 4 * time.Second, End: 22 * time.Second},
	}
	clampToDuration(segments, 21.5)

	if segments[1].End != 21500*time.Millisecond {
		t.Errorf("final segment end = %v, want clamped to 21.5s", segments[1].End)
	}
	if segments[0].End != 4*time.Second {
		t.Errorf("earlier segment end = %v, should be untouched", segments[0].End)
	}
}

func TestSummaryOk(t *testing.T) {
	if (Summary{TotalVideos: 3, Succeeded: 2, Failed: 1}).Ok() {
		t.Error("summary with failures should not be Ok")
	}
	if !(Summary{TotalVideos: 2, Succeeded: 2}).Ok() {
		t.Error("clean summary should be Ok")
	}
}
