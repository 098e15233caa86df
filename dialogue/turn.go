package dialogue

import "time"

// Turn is one listen-process-speak cycle's conversational record.
type Turn struct {
	TurnID         string
	UserText       string
	AssistantText  string
	Timestamp      time.Time
	ProcessingTime time.Duration
	Metadata       map[string]interface{}
}

// QualityScores are the dialogue manager's four-component quality breakdown,
// each in [0, 1].
type QualityScores struct {
	ResponseTime      float64
	Error             float64
	ContextEfficiency float64
	Fallback          float64
	Overall           float64
}

// Summary is produced on summarization or call end.
type Summary struct {
	ConversationID string
	TotalTurns     int
	Duration       time.Duration
	Start          time.Time
	End            time.Time
	Topics         []string
	Quality        QualityScores
	TokenUsage     TokenUsage
}
