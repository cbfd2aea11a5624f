package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nguyentantai21042004/transcript-flow/internal/index"
	"github.com/nguyentantai21042004/transcript-flow/internal/manifest"
)

// Run processes every manifest entry through a bounded worker pool. Entries
// share no state, so the only coordination is the result slot per entry.
func (p *implProcessor) Run(ctx context.Context, entries []manifest.Entry) Summary {
	results := make([]EntryResult, len(entries))

	sem := newSemaphore(p.cfg.Performance.MaxConcurrent)
	var wg sync.WaitGroup

	for i, entry := range entries {
		if err := sem.acquire(ctx); err != nil {
			// Run cancelled: everything not yet dispatched fails with the
			// cancellation recorded, nothing in flight is interrupted here.
			for j := i; j < len(entries); j++ {
				results[j] = EntryResult{
					VideoID: filepath.Base(entries[j].VideoPath),
					State:   StateFailed,
					Reason:  fmt.Sprintf("run cancelled: %v", err),
				}
			}
			break
		}

		wg.Add(1)
		go func(slot int, entry manifest.Entry) {
			defer wg.Done()
			defer sem.release()
			results[slot] = p.ProcessEntry(ctx, entry)
		}(i, entry)
	}

	wg.Wait()

	summary := Summary{TotalVideos: len(entries), Results: results}
	for _, r := range results {
		switch r.State {
		case StateDone:
			summary.Succeeded++
		default:
			summary.Failed++
		}
		summary.SegmentsIndexed += r.SegmentsIndexed
		summary.SegmentsSkipped += r.SegmentsSkipped
	}

	return summary
}

// ProcessEntry walks one video through the pipeline states. Any fatal error
// records the reason and returns FAILED; the caller moves on to the next
// entry regardless.
func (p *implProcessor) ProcessEntry(ctx context.Context, entry manifest.Entry) EntryResult {
	videoID := filepath.Base(entry.VideoPath)
	res := EntryResult{VideoID: videoID, State: StatePending}

	fail := func(stage string, err error) EntryResult {
		res.State = StateFailed
		res.Reason = fmt.Sprintf("%s: %v", stage, err)
		p.logger.Error(ctx, "[%s] %s failed: %v", videoID, stage, err)
		return res
	}

	p.logger.Info(ctx, "[%s] processing started", videoID)

	// PARSING
	res.State = StateParsing
	transcriptPath, err := p.resolver.LocateTranscript(entry)
	if err != nil {
		return fail("locate transcript", err)
	}

	raw, err := os.ReadFile(transcriptPath)
	if err != nil {
		return fail("read transcript", err)
	}

	checksum := contentChecksum(raw)
	if indexed, err := p.tracker.Indexed(ctx, videoID, checksum); err != nil {
		p.logger.Warn(ctx, "[%s] tracker lookup failed, treating as new: %v", videoID, err)
	} else if indexed {
		p.logger.Info(ctx, "[%s] transcript unchanged since last run, skipping", videoID)
		res.State = StateDone
		res.SkippedUnchanged = true
		return res
	}

	cues, err := p.parser.Parse(ctx, string(raw))
	if err != nil {
		return fail("parse transcript", err)
	}
	if len(cues) == 0 {
		p.logger.Warn(ctx, "[%s] transcript %s has no cues, nothing to index", videoID, transcriptPath)
		res.State = StateDone
		return res
	}

	// SEGMENTING
	res.State = StateSegmenting
	segments := p.builder.Build(videoID, cues)
	p.logger.Debug(ctx, "[%s] built %d segments from %d cues", videoID, len(segments), len(cues))

	if dur, err := p.prober.Duration(ctx, p.videoPath(entry)); err == nil && dur.Known {
		clampToDuration(segments, dur.Seconds)
	}

	// RESOLVING
	res.State = StateResolving
	if _, err := p.resolver.EntryFor(videoID); err != nil {
		return fail("resolve metadata", err)
	}
	records := p.resolver.Attach(entry, segments)

	// EMBEDDING
	res.State = StateEmbedding
	embedded, skipped := p.embedRecords(ctx, videoID, records)
	res.SegmentsSkipped = skipped
	if len(embedded) == 0 {
		return fail("embed segments", fmt.Errorf("all %d segments failed embedding", len(records)))
	}

	// UPSERTING
	res.State = StateUpserting
	res.BatchesTotal = (len(embedded) + p.cfg.Index.BatchSize - 1) / p.cfg.Index.BatchSize

	for start := 0; start < len(embedded); start += p.cfg.Index.BatchSize {
		stop := min(start+p.cfg.Index.BatchSize, len(embedded))
		batch := embedded[start:stop]

		outcomes, err := p.store.UpsertBatch(ctx, batch)
		if err != nil {
			uerr := &index.UpsertError{Batch: res.BatchesCommitted + 1, Err: err}
			res.State = StateFailed
			res.Reason = fmt.Sprintf("%v (%d/%d batches committed)", uerr, res.BatchesCommitted, res.BatchesTotal)
			p.logger.Error(ctx, "[%s] %s", videoID, res.Reason)
			return res
		}

		for _, out := range outcomes {
			if out.Accepted {
				res.SegmentsIndexed++
			} else {
				res.SegmentsRejected++
				p.logger.Warn(ctx, "[%s] record %s rejected: %s", videoID, out.SegmentID, out.Reason)
			}
		}
		res.BatchesCommitted++
	}

	// Only remember fully clean runs so rejected records are retried next time.
	if res.SegmentsRejected == 0 && res.SegmentsSkipped == 0 {
		if err := p.tracker.Mark(ctx, videoID, checksum); err != nil {
			p.logger.Warn(ctx, "[%s] tracker update failed: %v", videoID, err)
		}
	}

	res.State = StateDone
	p.logger.Info(ctx, "[%s] done: %d indexed, %d skipped, %d rejected",
		videoID, res.SegmentsIndexed, res.SegmentsSkipped, res.SegmentsRejected)
	return res
}

func (p *implProcessor) videoPath(entry manifest.Entry) string {
	if filepath.IsAbs(entry.VideoPath) {
		return entry.VideoPath
	}
	return filepath.Join(p.cfg.Paths.Videos, filepath.Base(entry.VideoPath))
}

func contentChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
