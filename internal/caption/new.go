package caption

import (
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

type implParser struct {
	logger logger.Logger
}

// New creates a Parser instance.
func New(log logger.Logger) Parser {
	return &implParser{logger: log}
}
