package processor

import (
	"context"
	"sync"

	"github.com/nguyentantai21042004/transcript-flow/internal/index"
)

// embedRecords fills in the vector of every record, issuing embedding calls
// concurrently up to the configured limit. Results are slotted by position,
// so completion order never changes record order or identity. A record whose
// retries are exhausted is dropped and counted as skipped.
func (p *implProcessor) embedRecords(ctx context.Context, videoID string, records []index.Record) ([]index.Record, int) {
	vectors := make([][]float32, len(records))

	sem := newSemaphore(p.cfg.Embedding.MaxConcurrent)
	var wg sync.WaitGroup

	for i := range records {
		if err := sem.acquire(ctx); err != nil {
			break
		}
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			defer sem.release()

			text := records[slot].Text
			err := p.policy.Do(ctx, func(ctx context.Context) error {
				vec, err := p.gateway.Embed(ctx, text)
				if err != nil {
					return err
				}
				vectors[slot] = vec
				return nil
			})
			if err != nil {
				p.logger.Error(ctx, "[%s] segment %d embedding failed after retries: %v",
					videoID, records[slot].SequenceIndex, err)
			}
		}(i)
	}

	wg.Wait()

	embedded := make([]index.Record, 0, len(records))
	skipped := 0
	for i, rec := range records {
		if vectors[i] == nil {
			skipped++
			continue
		}
		rec.Vector = vectors[i]
		embedded = append(embedded, rec)
	}

	return embedded, skipped
}
