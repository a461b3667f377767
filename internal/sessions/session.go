// Package sessions persists conversation history: one directory per session
// holding metadata, the full-fidelity turn log, and compaction snapshots.
package sessions

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// TokenUsage tracks cumulative token consumption for a session.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Session holds metadata about a conversation session.
type Session struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Status      SessionStatus `json:"status"`
	Model       string        `json:"model,omitempty"`
	TurnCount   int           `json:"turn_count"`
	TokenUsage  TokenUsage    `json:"token_usage"`
	Compactions int           `json:"compactions"`
}

// ToolCallRecord is the persisted form of one tool invocation request.
type ToolCallRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Turn is a single conversation turn, serializable to JSONL. It keeps
// everything the wire message carried, including reasoning traces and tool
// call structure, so a session can be replayed without loss even after the
// in-memory context has been compacted.
type Turn struct {
	Role             string           `json:"role"`
	Content          string           `json:"content"`
	ReasoningContent string           `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCallRecord `json:"tool_calls,omitempty"`
	ToolCallID       string           `json:"tool_call_id,omitempty"`
	Ts               time.Time        `json:"ts"`
}

// CompactionSnapshot records one compaction pass so the transcript shows
// what was replaced and by which summary.
type CompactionSnapshot struct {
	At            time.Time `json:"at"`
	Summary       string    `json:"summary"`
	ReplacedTurns int       `json:"replaced_turns"`
	Focus         string    `json:"focus,omitempty"`
	Manual        bool      `json:"manual"`
}

// ToSchemaMessage converts a stored Turn back to a wire message.
func (t Turn) ToSchemaMessage() *schema.Message {
	msg := &schema.Message{
		Role:             schema.RoleType(t.Role),
		Content:          t.Content,
		ReasoningContent: t.ReasoningContent,
		ToolCallID:       t.ToolCallID,
	}
	for _, tc := range t.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
			ID: tc.ID,
			Function: schema.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return msg
}

// NewTurnFromSchema converts a wire message to its persisted form.
func NewTurnFromSchema(msg *schema.Message) Turn {
	t := Turn{
		Role:             string(msg.Role),
		Content:          msg.Content,
		ReasoningContent: msg.ReasoningContent,
		ToolCallID:       msg.ToolCallID,
		Ts:               time.Now().UTC(),
	}
	for _, tc := range msg.ToolCalls {
		t.ToolCalls = append(t.ToolCalls, ToolCallRecord{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return t
}
