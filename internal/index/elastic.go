package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

type elasticStore struct {
	cfg    config.ElasticsearchConfig
	dims   int
	client *http.Client
	logger logger.Logger
}

// NewElastic creates a Store backed by Elasticsearch's bulk API.
func NewElastic(cfg config.ElasticsearchConfig, dims int, log logger.Logger) Store {
	return &elasticStore{
		cfg:    cfg,
		dims:   dims,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log,
	}
}

type esDocument struct {
	VideoID       string    `json:"video_id"`
	VideoPath     string    `json:"video_path"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Text          string    `json:"text"`
	StartSeconds  float64   `json:"start_time"`
	EndSeconds    float64   `json:"end_time"`
	SequenceIndex int       `json:"sequence_index"`
	Vector        []float32 `json:"vector"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// WaitReady pings the cluster until it answers, then makes sure the index
// exists with a dense_vector mapping for the embedding field.
func (s *elasticStore) WaitReady(ctx context.Context) error {
	var lastErr error
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
		if err != nil {
			return fmt.Errorf("build ping request: %w", err)
		}
		s.authorize(req)

		resp, err := s.client.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return s.ensureIndex(ctx)
			}
			lastErr = fmt.Errorf("ping returned %s", resp.Status)
		} else {
			lastErr = err
		}

		s.logger.Warn(ctx, "Waiting for Elasticsearch at %s: %v", s.cfg.URL, lastErr)
		select {
		case <-ctx.Done():
			return fmt.Errorf("elasticsearch not ready: %w", lastErr)
		case <-time.After(2 * time.Second):
		}
	}
}

func (s *elasticStore) ensureIndex(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.URL, "/"), s.cfg.Index)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("build exists request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"video_id":       map[string]string{"type": "keyword"},
				"video_path":     map[string]string{"type": "keyword"},
				"title":          map[string]string{"type": "text"},
				"description":    map[string]string{"type": "text"},
				"text":           map[string]string{"type": "text"},
				"start_time":     map[string]string{"type": "double"},
				"end_time":       map[string]string{"type": "double"},
				"sequence_index": map[string]string{"type": "integer"},
				"vector": map[string]interface{}{
					"type": "dense_vector",
					"dims": s.dims,
				},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create-index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err = s.client.Do(req)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("create index failed: %s: %s", resp.Status, msg)
	}

	s.logger.Info(ctx, "Created index %s (%d dims)", s.cfg.Index, s.dims)
	return nil
}

// UpsertBatch writes all records in a single _bulk request addressed by
// segment ID. Rejections come back per item, so partial failures surface
// exactly which records were refused.
func (s *elasticStore) UpsertBatch(ctx context.Context, records []Record) ([]Outcome, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		action := map[string]interface{}{
			"index": map[string]string{"_index": s.cfg.Index, "_id": rec.SegmentID},
		}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("encode bulk action: %w", err)
		}
		doc := esDocument{
			VideoID:       rec.VideoID,
			VideoPath:     rec.VideoPath,
			Title:         rec.Title,
			Description:   rec.Description,
			Text:          rec.Text,
			StartSeconds:  rec.Start.Seconds(),
			EndSeconds:    rec.End.Seconds(),
			SequenceIndex: rec.SequenceIndex,
			Vector:        rec.Vector,
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode bulk document: %w", err)
		}
	}

	url := fmt.Sprintf("%s/_bulk", strings.TrimRight(s.cfg.URL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send bulk request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bulk request failed: %s: %s", resp.Status, msg)
	}

	var bulk esBulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&bulk); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	if len(bulk.Items) != len(records) {
		return nil, fmt.Errorf("bulk response has %d items for %d records", len(bulk.Items), len(records))
	}

	outcomes := make([]Outcome, len(records))
	for i, item := range bulk.Items {
		out := Outcome{SegmentID: records[i].SegmentID, Accepted: item.Index.Status < 300}
		if item.Index.Error != nil {
			out.Reason = fmt.Sprintf("%s: %s", item.Index.Error.Type, item.Index.Error.Reason)
		} else if !out.Accepted {
			out.Reason = fmt.Sprintf("status %d", item.Index.Status)
		}
		outcomes[i] = out
	}

	return outcomes, nil
}

func (s *elasticStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *elasticStore) authorize(req *http.Request) {
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}
}
