// Package dialogue owns per-call conversation state: the LLM facade used to
// generate responses, and the manager that drives turn processing, context
// truncation, and summarization, grounded on
// original_source/src/conversation/dialogue_manager.py.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lattice-voice/callcore/providers"
	"github.com/lattice-voice/callcore/resilience"
	"github.com/lattice-voice/callcore/tokenizer"
	"github.com/lattice-voice/callcore/types"
)

// FallbackKind names the circumstance a FallbackResponse is synthesized for.
type FallbackKind string

const (
	FallbackAPIError        FallbackKind = "api_error"
	FallbackRateLimit       FallbackKind = "rate_limit"
	FallbackTimeout         FallbackKind = "timeout"
	FallbackContextOverflow FallbackKind = "context_overflow"
	FallbackGeneral         FallbackKind = "general"
)

var fallbackText = map[FallbackKind]string{
	FallbackAPIError:        "I'm having trouble reaching my systems right now. Could you say that again?",
	FallbackRateLimit:       "I'm a little overloaded at the moment. Give me just a second and try again.",
	FallbackTimeout:         "Sorry, that took longer than expected. Could you repeat that?",
	FallbackContextOverflow: "We've covered a lot of ground. Could you remind me what you'd like to focus on?",
	FallbackGeneral:         "I'm sorry, I didn't quite catch that. Could you say it again?",
}

// TokenUsage reports prompt/completion/total token counts for one generation.
type TokenUsage struct {
	Prompt     int
	Completion int
	Total      int
}

// GenerateResult is the outcome of one LLM facade Generate call.
type GenerateResult struct {
	Text         string
	Usage        TokenUsage
	FinishReason string
	ResponseTime time.Duration
}

// Chunk is one piece of a streamed LLM response.
type Chunk struct {
	Text         string
	Delta        string
	FinishReason string
}

// Facade is the narrow, vendor-agnostic LLM contract the dialogue manager
// and turn pipeline consume. Concrete vendors implement providers.Provider;
// Facade wraps one in a resilience.Client and adds context-budget
// operations that have no per-vendor variation.
type Facade struct {
	provider  providers.Provider
	client    *resilience.Client
	estimator tokenizer.Estimator
}

// NewFacade builds a Facade around a vendor provider.
func NewFacade(provider providers.Provider, client *resilience.Client, estimator tokenizer.Estimator) *Facade {
	if estimator == nil {
		estimator = tokenizer.NewCharEstimator()
	}
	return &Facade{provider: provider, client: client, estimator: estimator}
}

// Generate produces one completion for the given message context.
func (f *Facade) Generate(ctx context.Context, system string, messages []types.Message) (GenerateResult, error) {
	start := time.Now()

	resp, err := resilience.Execute(ctx, f.client, "", func(ctx context.Context) (providers.ChatResponse, error) {
		return f.provider.Chat(ctx, providers.ChatRequest{System: system, Messages: messages})
	})
	if err != nil {
		return GenerateResult{}, err
	}

	usage := TokenUsage{}
	if resp.CostInfo != nil {
		usage.Prompt = resp.CostInfo.InputTokens
		usage.Completion = resp.CostInfo.OutputTokens
		usage.Total = resp.CostInfo.InputTokens + resp.CostInfo.OutputTokens
	}

	return GenerateResult{
		Text:         resp.Content,
		Usage:        usage,
		FinishReason: resp.FinishReason,
		ResponseTime: time.Since(start),
	}, nil
}

// Stream produces a channel of incremental chunks. If the underlying vendor
// stream fails before completion, Stream falls back to Generate and yields
// the whole result as a single chunk.
func (f *Facade) Stream(ctx context.Context, system string, messages []types.Message) (<-chan Chunk, error) {
	out := make(chan Chunk, 1)

	vendorChan, err := f.provider.ChatStream(ctx, providers.ChatRequest{System: system, Messages: messages})
	if err != nil {
		return f.streamFallback(ctx, system, messages, out), nil
	}

	go func() {
		defer close(out)
		var lastGood providers.StreamChunk
		sawChunk := false

		for sc := range vendorChan {
			if sc.Error != nil {
				f.emitFallbackOntoChannel(ctx, system, messages, out)
				return
			}
			sawChunk = true
			lastGood = sc
			out <- Chunk{Text: sc.Content, Delta: sc.Delta, FinishReason: derefOr(sc.FinishReason, "")}
		}

		if !sawChunk {
			f.emitFallbackOntoChannel(ctx, system, messages, out)
			return
		}
		_ = lastGood
	}()

	return out, nil
}

func (f *Facade) streamFallback(ctx context.Context, system string, messages []types.Message, out chan Chunk) <-chan Chunk {
	go func() {
		defer close(out)
		f.emitFallbackOntoChannel(ctx, system, messages, out)
	}()
	return out
}

func (f *Facade) emitFallbackOntoChannel(ctx context.Context, system string, messages []types.Message, out chan Chunk) {
	result, err := f.Generate(ctx, system, messages)
	if err != nil {
		out <- Chunk{Text: f.FallbackResponse(FallbackAPIError), FinishReason: "error"}
		return
	}
	out <- Chunk{Text: result.Text, Delta: result.Text, FinishReason: result.FinishReason}
}

func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// EstimateTokens approximates the token count for a piece of text.
func (f *Facade) EstimateTokens(text string) int {
	return f.estimator.EstimateTokens(text)
}

// ComputeContextTokens sums per-message token estimates, including a fixed
// per-message overhead for role/formatting tokens.
func (f *Facade) ComputeContextTokens(messages []types.Message) int {
	const perMessageOverhead = 4
	total := 0
	for _, m := range messages {
		total += f.EstimateTokens(m.Content) + perMessageOverhead
	}
	return total
}

// TruncateContext keeps all system messages and the most-recent
// user/assistant messages that fit within budget tokens. If older messages
// are dropped, a synthetic system note recording the count is inserted.
func (f *Facade) TruncateContext(messages []types.Message, budget int) []types.Message {
	var systemMsgs, rest []types.Message
	for _, m := range messages {
		if m.Role == "system" {
			systemMsgs = append(systemMsgs, m)
		} else {
			rest = append(rest, m)
		}
	}

	used := f.ComputeContextTokens(systemMsgs)

	kept := make([]types.Message, 0, len(rest))
	for i := len(rest) - 1; i >= 0; i-- {
		cost := f.EstimateTokens(rest[i].Content) + 4
		if used+cost > budget && len(kept) > 0 {
			break
		}
		used += cost
		kept = append([]types.Message{rest[i]}, kept...)
	}

	dropped := len(rest) - len(kept)
	out := make([]types.Message, 0, len(systemMsgs)+1+len(kept))
	out = append(out, systemMsgs...)
	if dropped > 0 {
		out = append(out, types.NewSystemMessage(fmt.Sprintf("%d earlier messages condensed", dropped)))
	}
	out = append(out, kept...)
	return out
}

// FallbackResponse returns deterministic, domain-appropriate apology text
// for the given circumstance. No tokens are consumed.
func (f *Facade) FallbackResponse(kind FallbackKind) string {
	if text, ok := fallbackText[kind]; ok {
		return text
	}
	return fallbackText[FallbackGeneral]
}

// summaryPrompt builds the "User: ...\nAssistant: ..." block fed to the LLM
// during summarization.
func summaryPrompt(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("User: ")
		b.WriteString(t.UserText)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.AssistantText)
		b.WriteString("\n")
	}
	return b.String()
}
