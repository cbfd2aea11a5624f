package index

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

func testRecords(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			SegmentID:     fmt.Sprintf("seg-%d", i),
			VideoID:       "intro.mp4",
			Text:          "some words",
			Start:         time.Duration(i) * time.Second,
			End:           time.Duration(i+1) * time.Second,
			SequenceIndex: i,
			Vector:        []float32{0.1, 0.2},
		}
	}
	return records
}

func TestUpsertBatchPartialFailure(t *testing.T) {
	var gotIDs []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_bulk" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		// Collect the _id of every action line.
		scanner := bufio.NewScanner(r.Body)
		lineNo := 0
		for scanner.Scan() {
			if lineNo%2 == 0 {
				var action struct {
					Index struct {
						ID string `json:"_id"`
					} `json:"index"`
				}
				if err := json.Unmarshal(scanner.Bytes(), &action); err != nil {
					t.Fatalf("bad action line: %v", err)
				}
				gotIDs = append(gotIDs, action.Index.ID)
			}
			lineNo++
		}

		// Reject records 1 and 3, accept the rest.
		var items []string
		for i, id := range gotIDs {
			if i == 1 || i == 3 {
				items = append(items, fmt.Sprintf(
					`{"index":{"_id":%q,"status":429,"error":{"type":"circuit_breaking_exception","reason":"too much load"}}}`, id))
			} else {
				items = append(items, fmt.Sprintf(`{"index":{"_id":%q,"status":201}}`, id))
			}
		}
		fmt.Fprintf(w, `{"errors":true,"items":[%s]}`, strings.Join(items, ","))
	}))
	defer srv.Close()

	store := NewElastic(config.ElasticsearchConfig{URL: srv.URL, Index: "videos"}, 2, logger.New("error"))

	outcomes, err := store.UpsertBatch(context.Background(), testRecords(5))
	if err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}
	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(outcomes))
	}

	rejected := 0
	for i, out := range outcomes {
		if i == 1 || i == 3 {
			if out.Accepted {
				t.Errorf("record %d should be rejected", i)
			}
			if !strings.Contains(out.Reason, "circuit_breaking_exception") {
				t.Errorf("record %d reason = %q", i, out.Reason)
			}
			rejected++
		} else if !out.Accepted {
			t.Errorf("record %d should be accepted", i)
		}
	}
	if rejected != 2 {
		t.Errorf("rejected %d records, want 2", rejected)
	}
}

func TestUpsertBatchAddressesBySegmentID(t *testing.T) {
	var gotFirstID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scanner := bufio.NewScanner(r.Body)
		if scanner.Scan() {
			var action struct {
				Index struct {
					ID    string `json:"_id"`
					Index string `json:"_index"`
				} `json:"index"`
			}
			json.Unmarshal(scanner.Bytes(), &action)
			gotFirstID = action.Index.ID
			if action.Index.Index != "videos" {
				t.Errorf("_index = %q, want videos", action.Index.Index)
			}
		}
		fmt.Fprint(w, `{"errors":false,"items":[{"index":{"_id":"seg-0","status":200}}]}`)
	}))
	defer srv.Close()

	store := NewElastic(config.ElasticsearchConfig{URL: srv.URL, Index: "videos"}, 2, logger.New("error"))

	outcomes, err := store.UpsertBatch(context.Background(), testRecords(1))
	if err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}
	if gotFirstID != "seg-0" {
		t.Errorf("bulk action _id = %q, want seg-0", gotFirstID)
	}
	if !outcomes[0].Accepted {
		t.Error("record should be accepted")
	}
}

func TestUpsertBatchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewElastic(config.ElasticsearchConfig{URL: srv.URL, Index: "videos"}, 2, logger.New("error"))

	if _, err := store.UpsertBatch(context.Background(), testRecords(2)); err == nil {
		t.Error("UpsertBatch() should fail on non-2xx responses")
	}
}

func TestUpsertBatchEmpty(t *testing.T) {
	store := NewElastic(config.ElasticsearchConfig{URL: "http://localhost:0", Index: "videos"}, 2, logger.New("error"))
	outcomes, err := store.UpsertBatch(context.Background(), nil)
	if err != nil || outcomes != nil {
		t.Errorf("empty batch should be a no-op, got %v, %v", outcomes, err)
	}
}

func TestWaitReadyCreatesIndex(t *testing.T) {
	created := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/":
			fmt.Fprint(w, `{"tagline":"You Know, for Search"}`)
		case r.Method == http.MethodHead && r.URL.Path == "/videos":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/videos":
			created = true
			fmt.Fprint(w, `{"acknowledged":true}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	store := NewElastic(config.ElasticsearchConfig{URL: srv.URL, Index: "videos"}, 768, logger.New("error"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if !created {
		t.Error("WaitReady() should create the missing index")
	}
}
