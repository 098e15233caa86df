package dialogue

import "github.com/lattice-voice/callcore/types"

// Context is the dialogue manager's view into conversation history: an
// optional system prompt (always surfaced at position 0 of the API-bound
// view) plus a chronological message list, and generation parameters.
type Context struct {
	SystemPrompt string
	Messages     []types.Message
	MaxTokens    int
	Temperature  float32
}

// NewContext creates a Context with the given system prompt and budget.
func NewContext(systemPrompt string, maxTokens int, temperature float32) *Context {
	return &Context{SystemPrompt: systemPrompt, MaxTokens: maxTokens, Temperature: temperature}
}

// Append adds a message to the end of the history.
func (c *Context) Append(m types.Message) {
	c.Messages = append(c.Messages, m)
}

// APIMessages returns the full message list the LLM facade should see: the
// system prompt (if any) at position 0, then history in chronological order.
func (c *Context) APIMessages() []types.Message {
	if c.SystemPrompt == "" {
		return append([]types.Message{}, c.Messages...)
	}
	out := make([]types.Message, 0, len(c.Messages)+1)
	out = append(out, types.NewSystemMessage(c.SystemPrompt))
	out = append(out, c.Messages...)
	return out
}

// ReplaceWithSummary discards the working message history and replaces it
// with a single system message, used after summarization.
func (c *Context) ReplaceWithSummary(summary string) {
	c.Messages = []types.Message{types.NewSystemMessage("Previous conversation summary: " + summary)}
}
