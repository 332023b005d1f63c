// Package llm abstracts the generative language capability behind a
// small completion interface. The reformulator and SQL generator share
// one client with different prompt contracts; deterministic components
// never touch it, which keeps them unit-testable with a scripted stub.
package llm

import "context"

// Client is the generative capability interface.
type Client interface {
	// Complete sends a system instruction and user prompt and returns
	// the model's text response. Implementations must respect context
	// cancellation and deadlines.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
