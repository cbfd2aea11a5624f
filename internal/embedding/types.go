package embedding

import "fmt"

// ServiceError wraps any failure from the embedding provider: auth errors,
// rate limits, malformed input. Retrying is the caller's decision.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service (%s): %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
