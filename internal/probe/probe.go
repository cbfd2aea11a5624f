package probe

import (
	"context"
	"strconv"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
	"github.com/nguyentantai21042004/transcript-flow/pkg/executor"
)

type implProber struct {
	ffprobePath string
	executor    executor.Executor
	logger      logger.Logger
}

// New creates a Prober backed by ffprobe, or a disabled one when probing is
// off in the configuration.
func New(cfg config.ProbeConfig, exec executor.Executor, log logger.Logger) Prober {
	if !cfg.Enabled {
		return disabledProber{}
	}
	return &implProber{ffprobePath: cfg.FFprobePath, executor: exec, logger: log}
}

// Duration asks ffprobe for the container duration. Failures are reported as
// unknown duration, never as pipeline errors: the transcript timeline is
// still usable without the video.
func (p *implProber) Duration(ctx context.Context, videoPath string) (DurationResult, error) {
	out, err := p.executor.Execute(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		p.logger.Warn(ctx, "ffprobe failed for %s: %v", videoPath, err)
		return DurationResult{}, nil
	}

	seconds, err := strconv.ParseFloat(out, 64)
	if err != nil || seconds <= 0 {
		p.logger.Warn(ctx, "ffprobe returned unusable duration %q for %s", out, videoPath)
		return DurationResult{}, nil
	}

	return DurationResult{Known: true, Seconds: seconds}, nil
}

type disabledProber struct{}

func (disabledProber) Duration(ctx context.Context, videoPath string) (DurationResult, error) {
	return DurationResult{}, nil
}
