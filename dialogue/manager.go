package dialogue

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lattice-voice/callcore/logger"
	"github.com/lattice-voice/callcore/types"
)

// summarizationLookback is the number of most-recent turns fed to the LLM
// as a single block when summarization triggers.
const summarizationLookback = 10

// minTurnsForSummarization — summarization is skipped entirely below this
// many turns, regardless of the configured threshold.
const minTurnsForSummarization = 3

// Metrics accumulates per-conversation counters and timings.
type Metrics struct {
	TurnCount           int
	ErrorCount          int
	FallbackResponses   int
	ContextTruncations  int
	AvgResponseTime     float64 // seconds
	TotalProcessingTime time.Duration
	Interruptions       int
	LastSTTLatency      time.Duration
	LastLLMLatency      time.Duration
	LastTTSLatency      time.Duration
}

// Manager owns one conversation's Context, Turn history, and metrics. One
// Manager per call.
type Manager struct {
	mu sync.Mutex

	conversationID          string
	startedAt               time.Time
	ctx                     *Context
	turns                   []Turn
	metrics                 Metrics
	facade                  *Facade
	summarizationThreshold  int
	userInputsForTopics     []string
	conversationSummaryText string
}

// NewManager constructs a Manager around the given LLM facade and context.
// summarizationThreshold is the turn count at or above which summarization
// triggers (subject to the minimum-3-turns floor).
func NewManager(facade *Facade, ctx *Context, summarizationThreshold int) *Manager {
	if summarizationThreshold <= 0 {
		summarizationThreshold = 20
	}
	return &Manager{
		conversationID:         uuid.NewString(),
		startedAt:              time.Now(),
		ctx:                    ctx,
		facade:                 facade,
		summarizationThreshold: summarizationThreshold,
	}
}

// ConversationID returns the identifier assigned at construction.
func (m *Manager) ConversationID() string {
	return m.conversationID
}

// ProcessUserInput drives one full turn: context management, generation,
// and metric bookkeeping. It never returns an error to the caller — any
// failure below Fatal is converted into a recorded fallback turn, which is
// itself the success path.
func (m *Manager) ProcessUserInput(ctx context.Context, text string, metadata map[string]interface{}) (string, Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	m.userInputsForTopics = append(m.userInputsForTopics, text)
	m.ctx.Append(types.NewUserMessage(text))

	if len(m.turns) >= m.summarizationThreshold {
		m.summarizeLocked(ctx)
	}

	budget := m.ctx.MaxTokens
	if budget > 0 && m.facade.ComputeContextTokens(m.ctx.APIMessages()) > int(0.8*float64(budget)) {
		m.ctx.Messages = m.facade.TruncateContext(m.ctx.Messages, int(0.8*float64(budget)))
		m.metrics.ContextTruncations++
	}

	result, err := m.facade.Generate(ctx, m.ctx.SystemPrompt, m.ctx.APIMessages())
	if err != nil {
		return m.recordFallbackLocked(text, err, start, metadata)
	}

	m.ctx.Append(types.NewAssistantMessage(result.Text))

	turn := Turn{
		TurnID:         uuid.NewString(),
		UserText:       text,
		AssistantText:  result.Text,
		Timestamp:      start,
		ProcessingTime: time.Since(start),
		Metadata:       mergeMetadata(metadata, map[string]interface{}{"token_usage": result.Usage}),
	}
	m.recordTurnLocked(turn)

	return result.Text, turn, nil
}

func (m *Manager) recordFallbackLocked(text string, cause error, start time.Time, metadata map[string]interface{}) (string, Turn, error) {
	m.metrics.ErrorCount++
	m.metrics.FallbackResponses++

	fallbackText := m.facade.FallbackResponse(FallbackAPIError)
	logger.Warn("dialogue: generation failed, using fallback response", "error", cause, "conversation_id", m.conversationID)

	turn := Turn{
		TurnID:         uuid.NewString(),
		UserText:       text,
		AssistantText:  fallbackText,
		Timestamp:      start,
		ProcessingTime: time.Since(start),
		Metadata:       mergeMetadata(metadata, map[string]interface{}{"fallback": true, "error": cause.Error()}),
	}
	m.recordTurnLocked(turn)

	return fallbackText, turn, nil
}

// recordTurnLocked appends the turn and updates rolling metrics. The caller
// must hold m.mu. The rolling average is computed before the turn counter
// increments, matching ConversationMetrics.update_response_time.
func (m *Manager) recordTurnLocked(turn Turn) {
	n := m.metrics.TurnCount
	sample := turn.ProcessingTime.Seconds()
	m.metrics.AvgResponseTime = (m.metrics.AvgResponseTime*float64(n) + sample) / float64(n+1)

	m.metrics.TurnCount++
	m.metrics.TotalProcessingTime += turn.ProcessingTime
	m.turns = append(m.turns, turn)
}

// summarizeLocked builds a transient summarization request from the last
// summarizationLookback turns and replaces the working context. The caller
// must hold m.mu. Failures are logged and skipped, never raised.
func (m *Manager) summarizeLocked(ctx context.Context) {
	if len(m.turns) < minTurnsForSummarization {
		return
	}

	lookback := m.turns
	if len(lookback) > summarizationLookback {
		lookback = lookback[len(lookback)-summarizationLookback:]
	}

	prompt := summaryPrompt(lookback)
	summaryMessages := []types.Message{types.NewUserMessage(prompt)}
	result, err := m.facade.Generate(ctx, "Summarize the following conversation concisely.", summaryMessages)
	if err != nil {
		logger.Warn("dialogue: summarization failed, skipping", "error", err, "conversation_id", m.conversationID)
		return
	}

	m.conversationSummaryText = result.Text
	m.ctx.ReplaceWithSummary(result.Text)
}

// RecordSTTLatency rolls an observed STT latency into the conversation's
// service latency ledger.
func (m *Manager) RecordSTTLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.LastSTTLatency = d
}

// RecordLLMLatency rolls an observed LLM latency into the conversation's
// service latency ledger.
func (m *Manager) RecordLLMLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.LastLLMLatency = d
}

// RecordTTSLatency rolls an observed TTS latency into the conversation's
// service latency ledger.
func (m *Manager) RecordTTSLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.LastTTSLatency = d
}

// RecordInterruption notes a user-interruption event (Speaking -> Processing).
func (m *Manager) RecordInterruption() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.Interruptions++
}

// Quality computes the four-component quality breakdown on demand.
func (m *Manager) Quality() QualityScores {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.qualityLocked()
}

func (m *Manager) qualityLocked() QualityScores {
	turns := m.metrics.TurnCount
	if turns == 0 {
		return QualityScores{ResponseTime: 1, Error: 1, ContextEfficiency: 1, Fallback: 1, Overall: 1}
	}

	responseTimeScore := maxFloat(0, 1-m.metrics.AvgResponseTime/3.0)
	errorScore := maxFloat(0, 1-float64(m.metrics.ErrorCount)/float64(turns))
	contextEfficiency := maxFloat(0, 1-float64(m.metrics.ContextTruncations)/float64(turns))
	fallbackScore := maxFloat(0, 1-float64(m.metrics.FallbackResponses)/float64(turns))
	overall := (responseTimeScore + errorScore + contextEfficiency + fallbackScore) / 4.0

	return QualityScores{
		ResponseTime:      responseTimeScore,
		Error:             errorScore,
		ContextEfficiency: contextEfficiency,
		Fallback:          fallbackScore,
		Overall:           overall,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Topics extracts up to 10 alphabetic lowercased tokens of length > 4 from
// the user inputs seen so far, deduplicated via a set. The returned order is
// not guaranteed to be first-appearance order: original_source uses a
// Python set; this uses a Go map with the same non-ordering property.
func (m *Manager) Topics() []string {
	m.mu.Lock()
	inputs := append([]string{}, m.userInputsForTopics...)
	m.mu.Unlock()

	seen := make(map[string]struct{})
	for _, text := range inputs {
		for _, word := range strings.Fields(text) {
			token := strings.ToLower(strings.Trim(word, ".,!?;:\"'()"))
			if len(token) <= 4 || !isAlpha(token) {
				continue
			}
			seen[token] = struct{}{}
			if len(seen) >= 10 {
				break
			}
		}
		if len(seen) >= 10 {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) > 0
}

// Summarize builds a point-in-time Summary without mutating working state.
func (m *Manager) Summarize() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	quality := m.qualityLocked()
	totalTokens := TokenUsage{}

	return Summary{
		ConversationID: m.conversationID,
		TotalTurns:     len(m.turns),
		Duration:       time.Since(m.startedAt),
		Start:          m.startedAt,
		End:            time.Now(),
		Topics:         m.topicsLocked(),
		Quality:        quality,
		TokenUsage:     totalTokens,
	}
}

func (m *Manager) topicsLocked() []string {
	seen := make(map[string]struct{})
	for _, text := range m.userInputsForTopics {
		for _, word := range strings.Fields(text) {
			token := strings.ToLower(strings.Trim(word, ".,!?;:\"'()"))
			if len(token) <= 4 || !isAlpha(token) {
				continue
			}
			seen[token] = struct{}{}
			if len(seen) >= 10 {
				break
			}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out) // deterministic for tests; non-ordering guarantee is documented, not relied upon
	return out
}

// Status is a point-in-time snapshot mirroring the original's get_status().
type Status struct {
	ConversationID string
	TurnCount      int
	Metrics        Metrics
	Quality        QualityScores
}

// Status returns the manager's current snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		ConversationID: m.conversationID,
		TurnCount:      len(m.turns),
		Metrics:        m.metrics,
		Quality:        m.qualityLocked(),
	}
}

// Turns returns a copy of the recorded turn history.
func (m *Manager) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

func mergeMetadata(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
