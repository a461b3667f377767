package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// SubagentFunc runs a one-shot subagent with a fresh context and returns its
// final answer. The agent layer injects it so this package never depends on
// the loop.
type SubagentFunc func(ctx context.Context, agentType, prompt string) (string, error)

// SubagentTool delegates a self-contained piece of work to a subagent.
type SubagentTool struct {
	run SubagentFunc
}

func NewSubagentTool(run SubagentFunc) *SubagentTool {
	return &SubagentTool{run: run}
}

func (t *SubagentTool) Spec() *Spec {
	return &Spec{
		Name:        "subagent",
		Description: "Delegate a self-contained task to a subagent with a fresh context. Returns only its final answer.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"agent_type": {
				Type:        "string",
				Description: "Capability class of the subagent",
				Required:    true,
				Enum:        []string{"builder", "explorer"},
			},
			"prompt": {
				Type:        "string",
				Description: "Complete task description. The subagent sees nothing else of this conversation.",
				Required:    true,
			},
		},
	}
}

func (t *SubagentTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *SubagentTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		AgentType string `json:"agent_type"`
		Prompt    string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("subagent: parse input: %w", err)
	}
	if input.Prompt == "" {
		return "", fmt.Errorf("subagent: prompt is required")
	}
	out, err := t.run(ctx, input.AgentType, input.Prompt)
	if err != nil {
		return "", fmt.Errorf("subagent: %w", err)
	}
	return out, nil
}

var _ Tool = (*SubagentTool)(nil)
