// Package agent implements the tool-call loop: the bounded conversation
// between one agent process, its model backend, and its toolset.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/anuris-ai/anuris/internal/background"
	"github.com/anuris-ai/anuris/internal/events"
	"github.com/anuris-ai/anuris/internal/sessions"
	"github.com/anuris-ai/anuris/internal/tools"
)

// DefaultMaxRounds bounds one Run when the config does not say otherwise.
const DefaultMaxRounds = 16

// Options configures an Engine.
type Options struct {
	Model        model.ToolCallingChatModel
	Registry     *tools.Registry
	SystemPrompt string
	MaxRounds    int
	Compactor    *Compactor
	Summarize    SummarizeFunc
	Sessions     *sessions.Store
	SessionID    string
	Background   *background.Manager
	Bus          *events.Bus
	Source       string // identity name used on published events
	Logger       *slog.Logger
}

// Engine drives one agent conversation. Each Run consumes user input and
// loops through generate/execute rounds until the model answers in plain
// text or the round budget runs out.
type Engine struct {
	model        model.ToolCallingChatModel
	registry     *tools.Registry
	systemPrompt string
	maxRounds    int
	compactor    *Compactor
	summarize    SummarizeFunc
	sessions     *sessions.Store
	sessionID    string
	background   *background.Manager
	bus          *events.Bus
	source       string
	log          *slog.Logger

	messages    []*schema.Message
	interrupted atomic.Bool
}

// NewEngine builds an engine and binds the registry's tools to the model.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("new engine: model is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("new engine: registry is required")
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Source == "" {
		opts.Source = "agent"
	}

	bound := opts.Model
	infos, err := opts.Registry.Infos(context.Background())
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if len(infos) > 0 {
		bound, err = opts.Model.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("new engine: bind tools: %w", err)
		}
	}

	return &Engine{
		model:        bound,
		registry:     opts.Registry,
		systemPrompt: opts.SystemPrompt,
		maxRounds:    opts.MaxRounds,
		compactor:    opts.Compactor,
		summarize:    opts.Summarize,
		sessions:     opts.Sessions,
		sessionID:    opts.SessionID,
		background:   opts.Background,
		bus:          opts.Bus,
		source:       opts.Source,
		log:          opts.Logger,
	}, nil
}

// Interrupt stops the run at the next round boundary. The round in flight
// finishes so no tool result is lost.
func (e *Engine) Interrupt() { e.interrupted.Store(true) }

// Messages returns the current in-memory context.
func (e *Engine) Messages() []*schema.Message {
	return append([]*schema.Message(nil), e.messages...)
}

// Seed installs a starting context without running. Used by subagents.
func (e *Engine) Seed(messages []*schema.Message) {
	e.messages = append([]*schema.Message(nil), messages...)
}

// Run feeds user input into the conversation and loops until the model
// produces a final text answer. On budget exhaustion it returns
// ErrRoundBudgetExceeded; on interruption it returns the partial output
// together with ErrInterrupted.
func (e *Engine) Run(ctx context.Context, userInput string) (string, error) {
	e.interrupted.Store(false)
	e.append(&schema.Message{Role: schema.User, Content: userInput})

	var lastText string
	for round := 1; round <= e.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return lastText, fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		if e.interrupted.Load() {
			return lastText, ErrInterrupted
		}

		e.publish(events.RoundStarted(e.source, round, e.maxRounds))
		e.injectBackgroundUpdates()
		if err := e.maybeCompact(ctx); err != nil {
			return lastText, err
		}

		input := make([]*schema.Message, 0, len(e.messages)+1)
		if e.systemPrompt != "" {
			input = append(input, &schema.Message{Role: schema.System, Content: e.systemPrompt})
		}
		input = append(input, e.messages...)

		resp, err := e.model.Generate(ctx, input)
		if err != nil {
			return lastText, fmt.Errorf("generate (round %d): %w", round, err)
		}
		e.recordUsage(resp)
		e.append(resp)

		if resp.Content != "" {
			lastText = resp.Content
		}
		if len(resp.ToolCalls) == 0 {
			e.publish(events.AssistantReply(e.source, len(resp.Content)))
			return resp.Content, nil
		}

		e.log.Debug("executing tool calls", "round", round, "count", len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			e.append(e.runTool(ctx, tc))
		}
	}
	return lastText, fmt.Errorf("%w: no final answer after %d rounds", ErrRoundBudgetExceeded, e.maxRounds)
}

// runTool executes one tool call and always produces a tool-result turn.
// Failures, including calls to tools that do not exist, are reported to the
// model rather than aborting the run.
func (e *Engine) runTool(ctx context.Context, tc schema.ToolCall) *schema.Message {
	name := tc.Function.Name
	e.publish(events.ToolCall(e.source, name, tc.Function.Arguments))
	out, err := e.registry.Invoke(ctx, name, tc.Function.Arguments)
	if err != nil {
		e.log.Warn("tool call failed", "tool", name, "error", err)
		out = fmt.Sprintf("error: %v", err)
	}
	e.publish(events.ToolResult(e.source, name, err != nil))
	return &schema.Message{
		Role:       schema.Tool,
		Content:    out,
		ToolCallID: tc.ID,
	}
}

// injectBackgroundUpdates surfaces jobs finished since the last round as a
// single update turn. Each completion is reported exactly once.
func (e *Engine) injectBackgroundUpdates() {
	if e.background == nil {
		return
	}
	finished := e.background.Drain()
	if len(finished) == 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString("[background update]\n")
	for _, job := range finished {
		e.publish(events.JobFinished(job.ID, job.Command, job.ExitCode))
		fmt.Fprintf(&sb, "%s [%s] exit=%d: %s\n", job.ID, job.Status, job.ExitCode, job.Command)
		if job.Output != "" {
			sb.WriteString(job.Output)
			if !strings.HasSuffix(job.Output, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	e.append(&schema.Message{Role: schema.User, Content: strings.TrimRight(sb.String(), "\n")})
}

// maybeCompact shrinks the in-memory context when it outgrows the window.
// The session turn log keeps everything; only the model-facing copy shrinks.
func (e *Engine) maybeCompact(ctx context.Context) error {
	if e.compactor == nil || e.summarize == nil {
		return nil
	}
	systemTokens := len(e.systemPrompt) / 4
	if !e.compactor.NeedsCompaction(systemTokens, e.messages) {
		return nil
	}
	return e.compact(ctx, "", false)
}

// CompactNow forces a compaction pass regardless of pressure, optionally
// focusing the summary.
func (e *Engine) CompactNow(ctx context.Context, focus string) error {
	if e.compactor == nil || e.summarize == nil {
		return fmt.Errorf("compaction not configured")
	}
	return e.compact(ctx, focus, true)
}

func (e *Engine) compact(ctx context.Context, focus string, manual bool) error {
	res, err := e.compactor.Compact(ctx, e.messages, focus, e.summarize)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	e.messages = res.Messages
	if res.Replaced == 0 && res.Redacted == 0 {
		return nil
	}
	if res.Replaced > 0 {
		e.publish(events.Compaction(e.source, res.Replaced, manual))
	}
	if e.sessions != nil && e.sessionID != "" && res.Replaced > 0 {
		snap := sessions.CompactionSnapshot{
			Summary:       res.Summary,
			ReplacedTurns: res.Replaced,
			Focus:         focus,
			Manual:        manual,
		}
		if err := e.sessions.RecordCompaction(e.sessionID, snap); err != nil {
			e.log.Warn("compaction snapshot not recorded", "error", err)
		}
	}
	return nil
}

// append adds a turn to the in-memory context and the session log.
func (e *Engine) append(msg *schema.Message) {
	e.messages = append(e.messages, msg)
	if e.sessions == nil || e.sessionID == "" {
		return
	}
	if err := e.sessions.AppendTurn(e.sessionID, sessions.NewTurnFromSchema(msg)); err != nil {
		e.log.Warn("turn not persisted", "error", err)
	}
}

func (e *Engine) recordUsage(resp *schema.Message) {
	if e.sessions == nil || e.sessionID == "" {
		return
	}
	meta := resp.ResponseMeta
	if meta == nil || meta.Usage == nil {
		return
	}
	if err := e.sessions.AddUsage(e.sessionID, meta.Usage.PromptTokens, meta.Usage.CompletionTokens); err != nil {
		e.log.Warn("usage not persisted", "error", err)
	}
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
