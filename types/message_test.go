package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessage_JSONMarshaling(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	msg := Message{
		Role:      "assistant",
		Content:   "Hello, world!",
		Timestamp: now,
		LatencyMs: 150,
		Meta: map[string]interface{}{
			"model": "gpt-4",
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if decoded.Role != msg.Role {
		t.Errorf("Role mismatch: got %q, want %q", decoded.Role, msg.Role)
	}
	if decoded.Content != msg.Content {
		t.Errorf("Content mismatch: got %q, want %q", decoded.Content, msg.Content)
	}
	if !decoded.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp mismatch: got %v, want %v", decoded.Timestamp, msg.Timestamp)
	}
	if decoded.LatencyMs != msg.LatencyMs {
		t.Errorf("LatencyMs mismatch: got %d, want %d", decoded.LatencyMs, msg.LatencyMs)
	}
}

func TestMessage_WithCostInfo(t *testing.T) {
	msg := Message{
		Role:    "assistant",
		Content: "answer",
		CostInfo: &CostInfo{
			InputTokens:  10,
			OutputTokens: 20,
			TotalCost:    0.0015,
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if decoded.CostInfo == nil {
		t.Fatal("Expected CostInfo to be present")
	}
	if decoded.CostInfo.InputTokens != 10 || decoded.CostInfo.OutputTokens != 20 {
		t.Errorf("CostInfo token mismatch: %+v", decoded.CostInfo)
	}
}

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")
	if msg.Role != "user" {
		t.Errorf("Role = %q, want user", msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want hello", msg.Content)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("hi there")
	if msg.Role != "assistant" {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
}

func TestNewSystemMessage(t *testing.T) {
	msg := NewSystemMessage("you are a helpful agent")
	if msg.Role != "system" {
		t.Errorf("Role = %q, want system", msg.Role)
	}
}
