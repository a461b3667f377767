package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/anuris-ai/anuris/internal/shell"
)

const (
	defaultBashTimeout = 2 * time.Minute
	maxBashTimeout     = 10 * time.Minute
)

// BashTool runs a shell command in the workspace and returns its combined
// output and exit code.
type BashTool struct {
	workspace string
	timeout   time.Duration
}

// NewBashTool creates a bash tool rooted at workspace. A zero timeout uses
// the default.
func NewBashTool(workspace string, timeout time.Duration) *BashTool {
	if timeout <= 0 {
		timeout = defaultBashTimeout
	}
	return &BashTool{workspace: workspace, timeout: timeout}
}

func (t *BashTool) Spec() *Spec {
	return &Spec{
		Name:        "bash",
		Description: "Run a shell command in the workspace. Returns combined stdout/stderr and the exit code.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"command": {
				Type:        "string",
				Description: "The shell command to run",
				Required:    true,
			},
			"timeout": {
				Type:        "integer",
				Description: "Timeout in seconds (default 120, max 600)",
			},
		},
	}
}

func (t *BashTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

type bashInput struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

func (t *BashTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input bashInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("bash: parse input: %w", err)
	}
	if input.Command == "" {
		return "", fmt.Errorf("bash: command is required")
	}

	timeout := t.timeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout) * time.Second
		if timeout > maxBashTimeout {
			timeout = maxBashTimeout
		}
	}

	res, err := shell.Run(ctx, input.Command, t.workspace, timeout)
	if err != nil {
		return "", fmt.Errorf("bash: %w", err)
	}
	if res.TimedOut {
		return fmt.Sprintf("command timed out after %s\n%s", timeout, res.Output), nil
	}
	if res.ExitCode != 0 {
		return fmt.Sprintf("exit code %d\n%s", res.ExitCode, res.Output), nil
	}
	return res.Output, nil
}

var _ Tool = (*BashTool)(nil)
