package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

const openAIEmbeddingsURL = "https://api.openai.com/v1/embeddings"

type openAIGateway struct {
	apiKey string
	model  string
	url    string
	client *http.Client
	logger logger.Logger
}

func newOpenAI(cfg config.EmbeddingConfig, log logger.Logger) Gateway {
	return &openAIGateway{
		apiKey: cfg.APIKeys[0],
		model:  cfg.Model,
		url:    openAIEmbeddingsURL,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log,
	}
}

func (g *openAIGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model": g.model,
		"input": text,
	})
	if err != nil {
		return nil, &ServiceError{Provider: "openai", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ServiceError{Provider: "openai", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ServiceError{Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ServiceError{Provider: "openai", Err: fmt.Errorf("status %s: %s", resp.Status, msg)}
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ServiceError{Provider: "openai", Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, &ServiceError{Provider: "openai", Err: fmt.Errorf("no embeddings returned")}
	}

	return result.Data[0].Embedding, nil
}
