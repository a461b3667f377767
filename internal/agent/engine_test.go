package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/anuris-ai/anuris/internal/background"
	"github.com/anuris-ai/anuris/internal/sessions"
	"github.com/anuris-ai/anuris/internal/tools"
)

// scriptedModel replays canned responses and records every Generate input.
type scriptedModel struct {
	responses []*schema.Message
	calls     int
	inputs    [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.inputs = append(m.inputs, input)
	if m.calls >= len(m.responses) {
		return nil, fmt.Errorf("script exhausted after %d calls", m.calls)
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not scripted")
}

func (m *scriptedModel) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// loopingModel always requests the same tool call.
type loopingModel struct{ calls int }

func (m *loopingModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	m.calls++
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: fmt.Sprintf("call-%d", m.calls), Function: schema.FunctionCall{Name: "echo", Arguments: `{"text":"again"}`}},
		},
	}, nil
}

func (m *loopingModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not scripted")
}

func (m *loopingModel) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// echoTool returns its input and optionally fires a hook per invocation.
type echoTool struct {
	onRun func()
}

func (t *echoTool) Spec() *tools.Spec {
	return &tools.Spec{
		Name:        "echo",
		Description: "echo the text back",
		Parameters: map[string]tools.ParamSpec{
			"text": {Type: "string", Required: true},
		},
	}
}

func (t *echoTool) Info(context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *echoTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	if t.onRun != nil {
		t.onRun()
	}
	var input struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", err
	}
	return "echo: " + input.Text, nil
}

func newTestEngine(t *testing.T, m model.ToolCallingChatModel, opts Options) *Engine {
	t.Helper()
	if opts.Registry == nil {
		reg, err := tools.NewRegistry(&echoTool{})
		if err != nil {
			t.Fatalf("registry: %v", err)
		}
		opts.Registry = reg
	}
	opts.Model = m
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func TestRunFinalAnswerWithoutTools(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{Role: schema.Assistant, Content: "all done"},
	}}
	e := newTestEngine(t, m, Options{SystemPrompt: "be brief"})

	out, err := e.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "all done" {
		t.Fatalf("unexpected answer: %q", out)
	}
	// System prompt leads the model input, then the user turn.
	in := m.inputs[0]
	if in[0].Role != schema.System || in[0].Content != "be brief" {
		t.Fatalf("system prompt missing: %+v", in[0])
	}
	if in[1].Role != schema.User || in[1].Content != "hello" {
		t.Fatalf("user turn missing: %+v", in[1])
	}
}

func TestRunExecutesToolCallsInOrder(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{
			Role:             schema.Assistant,
			ReasoningContent: "need two echoes",
			ToolCalls: []schema.ToolCall{
				{ID: "c1", Function: schema.FunctionCall{Name: "echo", Arguments: `{"text":"one"}`}},
				{ID: "c2", Function: schema.FunctionCall{Name: "echo", Arguments: `{"text":"two"}`}},
			},
		},
		{Role: schema.Assistant, Content: "finished"},
	}}
	e := newTestEngine(t, m, Options{})

	out, err := e.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "finished" {
		t.Fatalf("unexpected answer: %q", out)
	}

	msgs := e.Messages()
	// user, assistant(tool calls), tool, tool, assistant(final)
	if len(msgs) != 5 {
		t.Fatalf("unexpected context length %d: %+v", len(msgs), msgs)
	}
	if msgs[1].ReasoningContent != "need two echoes" {
		t.Fatalf("reasoning dropped from assistant turn: %+v", msgs[1])
	}
	if msgs[2].ToolCallID != "c1" || msgs[2].Content != "echo: one" {
		t.Fatalf("first tool result wrong: %+v", msgs[2])
	}
	if msgs[3].ToolCallID != "c2" || msgs[3].Content != "echo: two" {
		t.Fatalf("second tool result wrong: %+v", msgs[3])
	}
}

func TestRunUnknownToolContinues(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{ID: "c1", Function: schema.FunctionCall{Name: "teleport", Arguments: `{}`}},
			},
		},
		{Role: schema.Assistant, Content: "recovered"},
	}}
	e := newTestEngine(t, m, Options{})

	out, err := e.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "recovered" {
		t.Fatalf("unexpected answer: %q", out)
	}
	msgs := e.Messages()
	toolMsg := msgs[2]
	if toolMsg.Role != schema.Tool || !strings.Contains(toolMsg.Content, "unsupported tool") {
		t.Fatalf("unknown tool not reported to model: %+v", toolMsg)
	}
}

func TestRunBudgetExhaustion(t *testing.T) {
	e := newTestEngine(t, &loopingModel{}, Options{MaxRounds: 1})

	_, err := e.Run(context.Background(), "go")
	if !errors.Is(err, ErrRoundBudgetExceeded) {
		t.Fatalf("want ErrRoundBudgetExceeded, got %v", err)
	}
	// One generate round, with its tool result recorded before stopping.
	msgs := e.Messages()
	if msgs[len(msgs)-1].Role != schema.Tool {
		t.Fatalf("tool result of last round lost: %+v", msgs[len(msgs)-1])
	}
}

func TestInterruptStopsAtRoundBoundary(t *testing.T) {
	var e *Engine
	echo := &echoTool{onRun: func() { e.Interrupt() }}
	reg, err := tools.NewRegistry(echo)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	m := &scriptedModel{responses: []*schema.Message{
		{
			Role:    schema.Assistant,
			Content: "working on it",
			ToolCalls: []schema.ToolCall{
				{ID: "c1", Function: schema.FunctionCall{Name: "echo", Arguments: `{"text":"x"}`}},
			},
		},
	}}
	e = newTestEngine(t, m, Options{Registry: reg})

	out, err := e.Run(context.Background(), "go")
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("want ErrInterrupted, got %v", err)
	}
	if out != "working on it" {
		t.Fatalf("partial output lost: %q", out)
	}
	// The in-flight round completed: its tool result is in the context.
	msgs := e.Messages()
	if msgs[len(msgs)-1].Role != schema.Tool {
		t.Fatalf("in-flight tool result dropped: %+v", msgs[len(msgs)-1])
	}
}

func TestBackgroundUpdatesSurfaceOnce(t *testing.T) {
	mgr := background.NewManager(t.TempDir())
	id, err := mgr.Run("echo done", 0)
	if err != nil {
		t.Fatalf("background run: %v", err)
	}
	mgr.Wait()

	m := &scriptedModel{responses: []*schema.Message{
		{Role: schema.Assistant, Content: "noted"},
		{Role: schema.Assistant, Content: "noted again"},
	}}
	e := newTestEngine(t, m, Options{Background: mgr})

	if _, err := e.Run(context.Background(), "anything new?"); err != nil {
		t.Fatalf("run: %v", err)
	}
	found := false
	for _, msg := range m.inputs[0] {
		if strings.Contains(msg.Content, "[background update]") && strings.Contains(msg.Content, id) {
			found = true
		}
	}
	if !found {
		t.Fatalf("finished job not surfaced: %+v", m.inputs[0])
	}

	// Second run: the same completion must not be reported again.
	if _, err := e.Run(context.Background(), "and now?"); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, msg := range m.inputs[1][len(m.inputs[0]):] {
		if strings.Contains(msg.Content, "[background update]") {
			t.Fatalf("background update surfaced twice: %+v", msg)
		}
	}
}

func TestTurnsPersistToSession(t *testing.T) {
	store := sessions.NewStore(t.TempDir())
	sess, err := store.Create("test", "scripted")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	m := &scriptedModel{responses: []*schema.Message{
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{ID: "c1", Function: schema.FunctionCall{Name: "echo", Arguments: `{"text":"hi"}`}},
			},
		},
		{Role: schema.Assistant, Content: "done"},
	}}
	e := newTestEngine(t, m, Options{Sessions: store, SessionID: sess.ID})

	if _, err := e.Run(context.Background(), "go"); err != nil {
		t.Fatalf("run: %v", err)
	}
	turns, err := store.LoadTurns(sess.ID)
	if err != nil {
		t.Fatalf("load turns: %v", err)
	}
	// user, assistant, tool, assistant
	if len(turns) != 4 {
		t.Fatalf("want 4 turns, got %d", len(turns))
	}
	if len(turns[1].ToolCalls) != 1 || turns[1].ToolCalls[0].Name != "echo" {
		t.Fatalf("tool call not persisted: %+v", turns[1])
	}
}

func TestSubagentRounds(t *testing.T) {
	cases := map[int]int{16: 8, 10: 5, 6: 4, 2: 4}
	for parent, want := range cases {
		if got := SubagentRounds(parent); got != want {
			t.Fatalf("SubagentRounds(%d) = %d, want %d", parent, got, want)
		}
	}
}

func TestSubagentRunsWithFreshContext(t *testing.T) {
	m := &scriptedModel{responses: []*schema.Message{
		{Role: schema.Assistant, Content: "child answer"},
	}}
	parent := newTestEngine(t, m, Options{MaxRounds: 16})
	parent.Seed([]*schema.Message{
		{Role: schema.User, Content: "parent secret"},
	})

	run := parent.SubagentFunc()
	out, err := run(context.Background(), "builder", "do the thing")
	if err != nil {
		t.Fatalf("subagent: %v", err)
	}
	if out != "child answer" {
		t.Fatalf("unexpected answer: %q", out)
	}
	for _, msg := range m.inputs[0] {
		if strings.Contains(msg.Content, "parent secret") {
			t.Fatalf("parent context leaked into subagent: %+v", msg)
		}
	}
	if _, err := run(context.Background(), "wizard", "x"); err == nil {
		t.Fatal("unknown subagent type accepted")
	}
}
