package detect

import "context"

// Fetcher retrieves the raw document of a source.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (string, error)
}

// FetchFunc adapts an ordinary function to the Fetcher interface.
type FetchFunc func(ctx context.Context, source string) (string, error)

// Fetch calls f(ctx, source).
func (f FetchFunc) Fetch(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}
