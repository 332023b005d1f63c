package llm

import "context"

// Call records one completion request made against a ScriptedClient.
type Call struct {
	SystemPrompt string
	UserPrompt   string
}

// ScriptedClient is a Client that replays canned responses, for tests.
// Responses are consumed in order; the last one repeats once exhausted.
type ScriptedClient struct {
	Responses []string
	Err       error

	Calls []Call
	next  int
}

// Complete returns the next scripted response.
func (c *ScriptedClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.Calls = append(c.Calls, Call{SystemPrompt: systemPrompt, UserPrompt: userPrompt})

	if c.Err != nil {
		return "", c.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(c.Responses) == 0 {
		return "", nil
	}

	resp := c.Responses[c.next]
	if c.next < len(c.Responses)-1 {
		c.next++
	}
	return resp, nil
}
