package index

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

type cassandraStore struct {
	cfg     config.CassandraConfig
	session *gocql.Session
	logger  logger.Logger
}

// NewCassandra creates a Store backed by a Cassandra table keyed by
// segment_id, so inserts are natural upserts.
func NewCassandra(cfg config.CassandraConfig, log logger.Logger) (Store, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to cassandra: %w", err)
	}

	return &cassandraStore{cfg: cfg, session: session, logger: log}, nil
}

func (s *cassandraStore) WaitReady(ctx context.Context) error {
	// The session is established in the constructor; verify it still answers.
	if err := s.session.Query("SELECT now() FROM system.local").WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("cassandra not ready: %w", err)
	}
	return nil
}

// UpsertBatch inserts records one by one so each gets its own outcome.
// Cassandra logged batches give no per-statement results, and the records
// are independent rows anyway.
func (s *cassandraStore) UpsertBatch(ctx context.Context, records []Record) ([]Outcome, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			segment_id, video_id, video_path, title, description,
			text, start_time, end_time, sequence_index, vector, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.cfg.Table)

	outcomes := make([]Outcome, 0, len(records))
	failures := 0
	for _, rec := range records {
		err := s.session.Query(query,
			rec.SegmentID, rec.VideoID, rec.VideoPath, rec.Title, rec.Description,
			rec.Text, rec.Start.Seconds(), rec.End.Seconds(), rec.SequenceIndex,
			rec.Vector, time.Now(),
		).WithContext(ctx).Exec()

		out := Outcome{SegmentID: rec.SegmentID, Accepted: err == nil}
		if err != nil {
			out.Reason = err.Error()
			failures++
		}
		outcomes = append(outcomes, out)
	}

	// All inserts failing usually means the store is gone, not bad records.
	if failures == len(records) && len(records) > 0 {
		return outcomes, fmt.Errorf("all %d inserts failed: %s", failures, outcomes[0].Reason)
	}

	return outcomes, nil
}

func (s *cassandraStore) Close() error {
	s.session.Close()
	return nil
}
