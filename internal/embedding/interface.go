package embedding

import "context"

// Gateway turns text into a fixed-length vector. Implementations are thin
// adapters over external model services and do not retry.
type Gateway interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
