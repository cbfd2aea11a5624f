package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

type geminiGateway struct {
	apiKeys    []string
	model      string
	dimensions int
	logger     logger.Logger

	mu         sync.Mutex
	currentKey int
}

func newGemini(cfg config.EmbeddingConfig, log logger.Logger) Gateway {
	return &geminiGateway{
		apiKeys:    cfg.APIKeys,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     log,
	}
}

// Embed calls Gemini's embedding model. Keys are rotated on quota errors so
// a rate-limited key does not stall the whole run.
func (g *geminiGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	attempts := len(g.apiKeys)
	var lastErr error

	for range attempts {
		key := g.currentKeyValue()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			g.rotateKey(ctx)
			continue
		}

		dims := int32(g.dimensions)
		result, err := client.Models.EmbedContent(ctx, g.model,
			genai.Text(text),
			&genai.EmbedContentConfig{OutputDimensionality: &dims},
		)
		if err != nil {
			if isQuotaError(err) {
				g.rotateKey(ctx)
				lastErr = err
				continue
			}
			return nil, &ServiceError{Provider: "gemini", Err: err}
		}

		if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
			return nil, &ServiceError{Provider: "gemini", Err: fmt.Errorf("empty embedding response")}
		}

		return result.Embeddings[0].Values, nil
	}

	return nil, &ServiceError{Provider: "gemini", Err: fmt.Errorf("all API keys exhausted: %w", lastErr)}
}

func (g *geminiGateway) currentKeyValue() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apiKeys[g.currentKey]
}

func (g *geminiGateway) rotateKey(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
	g.logger.Warn(ctx, "Rotating Gemini API key, now using key %d", g.currentKey+1)
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
