package index

import (
	"fmt"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

// New creates the Store selected by the index configuration.
func New(cfg config.IndexConfig, dims int, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "elasticsearch":
		return NewElastic(cfg.Elasticsearch, dims, log), nil
	case "cassandra":
		return NewCassandra(cfg.Cassandra, log)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}
