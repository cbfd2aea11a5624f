package embedding

import (
	"fmt"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

// New creates the Gateway selected by the embedding configuration.
func New(cfg config.EmbeddingConfig, log logger.Logger) (Gateway, error) {
	switch cfg.Provider {
	case "gemini":
		return newGemini(cfg, log), nil
	case "openai":
		return newOpenAI(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
