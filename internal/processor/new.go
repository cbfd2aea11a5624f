package processor

import (
	"time"

	"github.com/nguyentantai21042004/transcript-flow/internal/caption"
	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/embedding"
	"github.com/nguyentantai21042004/transcript-flow/internal/index"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
	"github.com/nguyentantai21042004/transcript-flow/internal/manifest"
	"github.com/nguyentantai21042004/transcript-flow/internal/probe"
	"github.com/nguyentantai21042004/transcript-flow/internal/segment"
	"github.com/nguyentantai21042004/transcript-flow/internal/tracker"
	"github.com/nguyentantai21042004/transcript-flow/pkg/retry"
)

type implProcessor struct {
	cfg      *config.Config
	parser   caption.Parser
	builder  segment.Builder
	resolver manifest.Resolver
	gateway  embedding.Gateway
	store    index.Store
	tracker  tracker.Tracker
	prober   probe.Prober
	policy   retry.Policy
	logger   logger.Logger
}

// New wires a Processor from its collaborators.
func New(
	cfg *config.Config,
	parser caption.Parser,
	builder segment.Builder,
	resolver manifest.Resolver,
	gateway embedding.Gateway,
	store index.Store,
	track tracker.Tracker,
	prober probe.Prober,
	log logger.Logger,
) Processor {
	return &implProcessor{
		cfg:      cfg,
		parser:   parser,
		builder:  builder,
		resolver: resolver,
		gateway:  gateway,
		store:    store,
		tracker:  track,
		prober:   prober,
		policy: retry.Policy{
			MaxAttempts: cfg.Embedding.Retry.MaxAttempts,
			BaseDelay:   cfg.Embedding.Retry.BaseDelay.Std(),
			MaxDelay:    cfg.Embedding.Retry.MaxDelay.Std(),
			Jitter:      0.2,
		},
		logger: log,
	}
}

// clampToDuration shortens the final segment when the probed video is
// shorter than the transcript claims. Auto-generated captions sometimes
// overrun the container by a few hundred milliseconds.
func clampToDuration(segments []segment.Segment, videoSeconds float64) {
	limit := time.Duration(videoSeconds * float64(time.Second))
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].End <= limit {
			break
		}
		if segments[i].Start < limit {
			segments[i].End = limit
		}
	}
}
