package llm

import "context"

// Request is a single-turn chat completion: one system instruction and one
// user message.
type Request struct {
	System string
	User   string
}

// Client produces a completion for a request. Implementations must honor the
// context for cancellation.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
