package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/anuris-ai/anuris/internal/background"
)

// BackgroundRunTool starts a long-running command without blocking the
// conversation.
type BackgroundRunTool struct {
	mgr *background.Manager
}

func NewBackgroundRunTool(mgr *background.Manager) *BackgroundRunTool {
	return &BackgroundRunTool{mgr: mgr}
}

func (t *BackgroundRunTool) Spec() *Spec {
	return &Spec{
		Name:        "background_run",
		Description: "Start a shell command in the background and return its job id immediately. Completion is reported at the start of a later round.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"command": {
				Type:        "string",
				Description: "The shell command to run",
				Required:    true,
			},
			"timeout": {
				Type:        "integer",
				Description: "Timeout in seconds (default 300)",
			},
		},
	}
}

func (t *BackgroundRunTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *BackgroundRunTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Command string `json:"command"`
		Timeout int    `json:"timeout"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("background_run: parse input: %w", err)
	}
	id, err := t.mgr.Run(input.Command, time.Duration(input.Timeout)*time.Second)
	if err != nil {
		return "", fmt.Errorf("background_run: %w", err)
	}
	return fmt.Sprintf("started %s", id), nil
}

// BackgroundCheckTool polls one job or lists all of them.
type BackgroundCheckTool struct {
	mgr *background.Manager
}

func NewBackgroundCheckTool(mgr *background.Manager) *BackgroundCheckTool {
	return &BackgroundCheckTool{mgr: mgr}
}

func (t *BackgroundCheckTool) Spec() *Spec {
	return &Spec{
		Name:        "background_check",
		Description: "Check a background job's status and output. Omit the id to list all jobs.",
		Parameters: map[string]ParamSpec{
			"id": {
				Type:        "string",
				Description: "Job id from background_run",
			},
		},
	}
}

func (t *BackgroundCheckTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *BackgroundCheckTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("background_check: parse input: %w", err)
	}
	if input.ID == "" {
		jobs := t.mgr.List()
		if len(jobs) == 0 {
			return "no background jobs", nil
		}
		return background.Render(jobs), nil
	}
	job, err := t.mgr.Check(input.ID)
	if err != nil {
		return "", fmt.Errorf("background_check: %w", err)
	}
	return background.Render([]*background.Job{job}), nil
}

var (
	_ Tool = (*BackgroundRunTool)(nil)
	_ Tool = (*BackgroundCheckTool)(nil)
)
