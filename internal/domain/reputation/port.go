package reputation

import "context"

// Backend port: one remote reputation source. Implementations are picked
// once at construction (real HTTP client or local simulation).
type Backend interface {
	Name() string
	Check(ctx context.Context, rawURL string) (ServiceResult, error)
}
