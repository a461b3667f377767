package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// SummarizeFunc performs a non-streaming LLM call for summarization.
type SummarizeFunc func(ctx context.Context, prompt string) (string, error)

// CompactorConfig configures context compaction behavior.
type CompactorConfig struct {
	ContextWindow int     // total token budget
	Threshold     float64 // trigger ratio (default 0.80)
	PreserveRatio float64 // recent messages budget ratio (default 0.25)
	CharsPerToken int     // heuristic (default 4)
	KeepToolTail  int     // recent tool results spared from redaction (default 3)
}

// CompactResult holds the output of a compaction pass.
type CompactResult struct {
	Messages []*schema.Message
	Summary  string
	Replaced int // messages folded into the summary
	Redacted int // older tool outputs elided in place
}

// Compactor keeps a long conversation inside the model's context window.
// It works on the in-memory message list only; the session's turn log is
// never rewritten.
type Compactor struct {
	contextWindow int
	threshold     float64
	preserveRatio float64
	charsPerToken int
	keepToolTail  int
}

// NewCompactor creates a Compactor with sensible defaults for zero values.
func NewCompactor(cfg CompactorConfig) *Compactor {
	c := &Compactor{
		contextWindow: cfg.ContextWindow,
		threshold:     cfg.Threshold,
		preserveRatio: cfg.PreserveRatio,
		charsPerToken: cfg.CharsPerToken,
		keepToolTail:  cfg.KeepToolTail,
	}
	if c.threshold == 0 {
		c.threshold = 0.80
	}
	if c.preserveRatio == 0 {
		c.preserveRatio = 0.25
	}
	if c.charsPerToken == 0 {
		c.charsPerToken = 4
	}
	if c.keepToolTail == 0 {
		c.keepToolTail = 3
	}
	return c
}

// EstimateTokens returns a heuristic token count for a slice of messages.
func (c *Compactor) EstimateTokens(messages []*schema.Message) int {
	total := 0
	for _, msg := range messages {
		// Content tokens + per-message overhead for role and formatting.
		total += len(msg.Content)/c.charsPerToken + 4
	}
	return total
}

// NeedsCompaction reports whether estimated usage exceeds the threshold.
func (c *Compactor) NeedsCompaction(systemPromptTokens int, messages []*schema.Message) bool {
	if c.contextWindow <= 0 {
		return false
	}
	used := systemPromptTokens + c.EstimateTokens(messages)
	limit := int(float64(c.contextWindow) * c.threshold)
	return used > limit
}

// RedactOldToolResults elides the content of tool-result messages older
// than the most recent keepToolTail of them. This is the cheap first stage:
// stale command output is usually the bulk of a long context.
func (c *Compactor) RedactOldToolResults(messages []*schema.Message) int {
	var toolIdx []int
	for i, msg := range messages {
		if msg.Role == schema.Tool {
			toolIdx = append(toolIdx, i)
		}
	}
	if len(toolIdx) <= c.keepToolTail {
		return 0
	}
	redacted := 0
	for _, i := range toolIdx[:len(toolIdx)-c.keepToolTail] {
		msg := messages[i]
		if len(msg.Content) <= 200 || strings.HasPrefix(msg.Content, "[elided") {
			continue
		}
		messages[i] = &schema.Message{
			Role:       schema.Tool,
			ToolCallID: msg.ToolCallID,
			Content:    fmt.Sprintf("[elided tool output, %d bytes]", len(msg.Content)),
		}
		redacted++
	}
	return redacted
}

// Compact summarizes older messages and replaces them with a summary
// exchange, keeping recent messages verbatim. The last message is never
// summarized away, so an unanswered user turn always survives. If the
// summarize call fails, older messages are truncated instead so the run can
// continue.
func (c *Compactor) Compact(ctx context.Context, messages []*schema.Message, focus string, summarize SummarizeFunc) (*CompactResult, error) {
	redacted := c.RedactOldToolResults(messages)

	preserveBudget := int(float64(c.contextWindow) * c.preserveRatio)
	splitIdx := c.findSplitIndex(messages, preserveBudget)
	if splitIdx == 0 {
		return &CompactResult{Messages: messages, Redacted: redacted}, nil
	}

	oldMessages := messages[:splitIdx]
	recentMessages := messages[splitIdx:]

	summary, err := summarize(ctx, c.buildSummarizePrompt(oldMessages, focus))
	if err != nil {
		slog.Error("summarization failed, falling back to truncation", "error", err)
		return &CompactResult{
			Messages: recentMessages,
			Replaced: len(oldMessages),
			Redacted: redacted,
		}, nil
	}

	summaryMsg := &schema.Message{
		Role:    schema.User,
		Content: fmt.Sprintf("[Previous conversation summary]\n\n%s", summary),
	}
	ackMsg := &schema.Message{
		Role:    schema.Assistant,
		Content: "Understood. Continuing from the summarized state.",
	}

	result := &CompactResult{
		Messages: append([]*schema.Message{summaryMsg, ackMsg}, recentMessages...),
		Summary:  summary,
		Replaced: len(oldMessages),
		Redacted: redacted,
	}

	slog.Info("context compaction complete",
		"replaced", len(oldMessages),
		"preserved", len(recentMessages),
		"redacted", redacted,
		"summary_length", len(summary),
	)
	return result, nil
}

// findSplitIndex returns the boundary between messages to summarize and
// messages to keep. Recent messages fit within preserveBudget tokens; the
// final message is always kept.
func (c *Compactor) findSplitIndex(messages []*schema.Message, preserveBudget int) int {
	if len(messages) <= 1 {
		return 0
	}
	tokens := 0
	for i := len(messages) - 1; i >= 0; i-- {
		msgTokens := len(messages[i].Content)/c.charsPerToken + 4
		if tokens+msgTokens > preserveBudget && i < len(messages)-1 {
			return i + 1
		}
		tokens += msgTokens
	}
	// Everything fits in the preserve budget yet compaction was triggered:
	// fold the older half.
	return len(messages) / 2
}

func (c *Compactor) buildSummarizePrompt(oldMessages []*schema.Message, focus string) string {
	var sb strings.Builder
	sb.WriteString("You are summarizing a conversation between a user and an AI assistant.\n\n")
	sb.WriteString("## Messages\n\n")
	for _, msg := range oldMessages {
		sb.WriteString(fmt.Sprintf("[%s]: %s\n\n", msg.Role, msg.Content))
	}
	sb.WriteString("## Instructions\n\n")
	sb.WriteString("Summarize the conversation above.\n")
	sb.WriteString("Preserve: key decisions, technical details, file paths, task state, user preferences.\n")
	if focus != "" {
		sb.WriteString(fmt.Sprintf("Pay particular attention to: %s\n", focus))
	}
	sb.WriteString("Keep under 2000 words.\n")
	return sb.String()
}
