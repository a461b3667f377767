package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/anuris-ai/anuris/internal/tasks"
)

// TaskCreateTool adds a task to the shared board.
type TaskCreateTool struct {
	store *tasks.Store
}

func NewTaskCreateTool(store *tasks.Store) *TaskCreateTool {
	return &TaskCreateTool{store: store}
}

func (t *TaskCreateTool) Spec() *Spec {
	return &Spec{
		Name:        "task_create",
		Description: "Create a task on the shared board. Dependencies must name existing task ids.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"subject": {
				Type:        "string",
				Description: "Short task title",
				Required:    true,
			},
			"description": {
				Type:        "string",
				Description: "Longer task description",
			},
			"depends_on": {
				Type:        "array",
				Description: "Ids of tasks that must be done first",
			},
		},
	}
}

func (t *TaskCreateTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TaskCreateTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Subject     string   `json:"subject"`
		Description string   `json:"description"`
		DependsOn   []string `json:"depends_on"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("task_create: parse input: %w", err)
	}
	var created *tasks.Task
	err := tasks.WithRetry(func() error {
		var err error
		created, err = t.store.Create(input.Subject, input.Description, input.DependsOn)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("task_create: %w", err)
	}
	return created.Render(), nil
}

// TaskGetTool reads a single task.
type TaskGetTool struct {
	store *tasks.Store
}

func NewTaskGetTool(store *tasks.Store) *TaskGetTool {
	return &TaskGetTool{store: store}
}

func (t *TaskGetTool) Spec() *Spec {
	return &Spec{
		Name:        "task_get",
		Description: "Get one task from the shared board by id.",
		Parameters: map[string]ParamSpec{
			"id": {
				Type:        "string",
				Description: "Task id",
				Required:    true,
			},
		},
	}
}

func (t *TaskGetTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TaskGetTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("task_get: parse input: %w", err)
	}
	var got *tasks.Task
	err := tasks.WithRetry(func() error {
		var err error
		got, err = t.store.Get(input.ID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("task_get: %w", err)
	}
	out := got.Render()
	if got.Description != "" {
		out += "\n" + got.Description
	}
	return out, nil
}

// TaskListTool lists tasks, optionally filtered.
type TaskListTool struct {
	store *tasks.Store
}

func NewTaskListTool(store *tasks.Store) *TaskListTool {
	return &TaskListTool{store: store}
}

func (t *TaskListTool) Spec() *Spec {
	return &Spec{
		Name:        "task_list",
		Description: "List tasks on the shared board in creation order.",
		Parameters: map[string]ParamSpec{
			"status": {
				Type:        "string",
				Description: "Filter by status",
				Enum:        []string{"pending", "in_progress", "blocked", "done", "cancelled"},
			},
			"owner": {
				Type:        "string",
				Description: "Filter by owner",
			},
		},
	}
}

func (t *TaskListTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TaskListTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Status string `json:"status"`
		Owner  string `json:"owner"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("task_list: parse input: %w", err)
	}
	var list []*tasks.Task
	err := tasks.WithRetry(func() error {
		var err error
		list, err = t.store.List(tasks.ListFilter{
			Status: tasks.Status(input.Status),
			Owner:  input.Owner,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("task_list: %w", err)
	}
	if len(list) == 0 {
		return "no tasks", nil
	}
	var lines []string
	for _, task := range list {
		lines = append(lines, task.Render())
	}
	return strings.Join(lines, "\n"), nil
}

// TaskUpdateTool changes a task's status, owner, or dependencies.
type TaskUpdateTool struct {
	store *tasks.Store
}

func NewTaskUpdateTool(store *tasks.Store) *TaskUpdateTool {
	return &TaskUpdateTool{store: store}
}

func (t *TaskUpdateTool) Spec() *Spec {
	return &Spec{
		Name:        "task_update",
		Description: "Update a task. Moving to in_progress or done fails while dependencies are unmet.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"id": {
				Type:        "string",
				Description: "Task id",
				Required:    true,
			},
			"status": {
				Type:        "string",
				Description: "New status",
				Enum:        []string{"pending", "in_progress", "done", "cancelled"},
			},
			"owner": {
				Type:        "string",
				Description: "New owner, empty string to release",
			},
			"add_deps": {
				Type:        "array",
				Description: "Task ids to add as dependencies",
			},
		},
	}
}

func (t *TaskUpdateTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TaskUpdateTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		ID      string   `json:"id"`
		Status  string   `json:"status"`
		Owner   *string  `json:"owner"`
		AddDeps []string `json:"add_deps"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("task_update: parse input: %w", err)
	}
	var updated *tasks.Task
	err := tasks.WithRetry(func() error {
		var err error
		updated, err = t.store.Update(input.ID, tasks.Update{
			Status:  tasks.Status(input.Status),
			Owner:   input.Owner,
			AddDeps: input.AddDeps,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("task_update: %w", err)
	}
	return updated.Render(), nil
}

// TaskClaimTool claims a task for the calling agent.
type TaskClaimTool struct {
	store *tasks.Store
	owner string
}

func NewTaskClaimTool(store *tasks.Store, owner string) *TaskClaimTool {
	return &TaskClaimTool{store: store, owner: owner}
}

func (t *TaskClaimTool) Spec() *Spec {
	return &Spec{
		Name:        "task_claim",
		Description: "Claim an unowned task. Fails if another agent already owns it or its dependencies are unmet.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"id": {
				Type:        "string",
				Description: "Task id",
				Required:    true,
			},
		},
	}
}

func (t *TaskClaimTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TaskClaimTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("task_claim: parse input: %w", err)
	}
	var claimed *tasks.Task
	err := tasks.WithRetry(func() error {
		var err error
		claimed, err = t.store.Claim(input.ID, t.owner)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("task_claim: %w", err)
	}
	return claimed.Render(), nil
}

var (
	_ Tool = (*TaskCreateTool)(nil)
	_ Tool = (*TaskGetTool)(nil)
	_ Tool = (*TaskListTool)(nil)
	_ Tool = (*TaskUpdateTool)(nil)
	_ Tool = (*TaskClaimTool)(nil)
)
