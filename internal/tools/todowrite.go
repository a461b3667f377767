package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/anuris-ai/anuris/internal/todo"
)

// TodoWriteTool replaces the session's todo board wholesale.
type TodoWriteTool struct {
	board *todo.Board
}

func NewTodoWriteTool(board *todo.Board) *TodoWriteTool {
	return &TodoWriteTool{board: board}
}

func (t *TodoWriteTool) Spec() *Spec {
	return &Spec{
		Name:        "todo_write",
		Description: "Replace the todo list with a new plan. At most one item may be in_progress. Send the full list every time.",
		Parameters: map[string]ParamSpec{
			"items": {
				Type:        "array",
				Description: `Plan items, each {"text": string, "status": "pending"|"in_progress"|"done"}`,
				Required:    true,
			},
		},
	}
}

func (t *TodoWriteTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TodoWriteTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Items []todo.Item `json:"items"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("todo_write: parse input: %w", err)
	}
	if err := t.board.Replace(input.Items); err != nil {
		return "", fmt.Errorf("todo_write: %w", err)
	}
	return t.board.Render(), nil
}

var _ Tool = (*TodoWriteTool)(nil)
