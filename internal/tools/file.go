package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

const maxReadBytes = 256 * 1024

// resolveInWorkspace joins rel onto the workspace root and rejects paths
// that escape it.
func resolveInWorkspace(workspace, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("path is required")
	}
	abs := rel
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(workspace, rel)
	}
	abs = filepath.Clean(abs)
	root := filepath.Clean(workspace)
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return abs, nil
}

// ReadFileTool returns file contents, size-capped.
type ReadFileTool struct {
	workspace string
}

func NewReadFileTool(workspace string) *ReadFileTool {
	return &ReadFileTool{workspace: workspace}
}

func (t *ReadFileTool) Spec() *Spec {
	return &Spec{
		Name:        "read_file",
		Description: "Read a file from the workspace. Paths are relative to the workspace root.",
		Parameters: map[string]ParamSpec{
			"path": {
				Type:        "string",
				Description: "Path of the file to read",
				Required:    true,
			},
		},
	}
}

func (t *ReadFileTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *ReadFileTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("read_file: parse input: %w", err)
	}
	abs, err := resolveInWorkspace(t.workspace, input.Path)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	if len(data) > maxReadBytes {
		return string(data[:maxReadBytes]) + "\n[truncated]", nil
	}
	return string(data), nil
}

// WriteFileTool creates or overwrites a file.
type WriteFileTool struct {
	workspace string
}

func NewWriteFileTool(workspace string) *WriteFileTool {
	return &WriteFileTool{workspace: workspace}
}

func (t *WriteFileTool) Spec() *Spec {
	return &Spec{
		Name:        "write_file",
		Description: "Create or overwrite a file in the workspace with the given content.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"path": {
				Type:        "string",
				Description: "Path of the file to write",
				Required:    true,
			},
			"content": {
				Type:        "string",
				Description: "Full file content",
				Required:    true,
			},
		},
	}
}

func (t *WriteFileTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *WriteFileTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("write_file: parse input: %w", err)
	}
	abs, err := resolveInWorkspace(t.workspace, input.Path)
	if err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	if err := os.WriteFile(abs, []byte(input.Content), 0o644); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(input.Content), input.Path), nil
}

// EditFileTool replaces an exact substring in a file.
type EditFileTool struct {
	workspace string
}

func NewEditFileTool(workspace string) *EditFileTool {
	return &EditFileTool{workspace: workspace}
}

func (t *EditFileTool) Spec() *Spec {
	return &Spec{
		Name:        "edit_file",
		Description: "Replace an exact substring in a file. The old text must appear exactly once.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"path": {
				Type:        "string",
				Description: "Path of the file to edit",
				Required:    true,
			},
			"old_text": {
				Type:        "string",
				Description: "Exact text to replace",
				Required:    true,
			},
			"new_text": {
				Type:        "string",
				Description: "Replacement text",
				Required:    true,
			},
		},
	}
}

func (t *EditFileTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *EditFileTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Path    string `json:"path"`
		OldText string `json:"old_text"`
		NewText string `json:"new_text"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("edit_file: parse input: %w", err)
	}
	if input.OldText == "" {
		return "", fmt.Errorf("edit_file: old_text is required")
	}
	abs, err := resolveInWorkspace(t.workspace, input.Path)
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	content := string(data)
	switch n := strings.Count(content, input.OldText); n {
	case 0:
		return "", fmt.Errorf("edit_file: old_text not found in %s", input.Path)
	case 1:
	default:
		return "", fmt.Errorf("edit_file: old_text appears %d times in %s, must be unique", n, input.Path)
	}
	content = strings.Replace(content, input.OldText, input.NewText, 1)
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	return fmt.Sprintf("edited %s", input.Path), nil
}

// GlobTool lists workspace files matching a pattern.
type GlobTool struct {
	workspace string
}

func NewGlobTool(workspace string) *GlobTool {
	return &GlobTool{workspace: workspace}
}

func (t *GlobTool) Spec() *Spec {
	return &Spec{
		Name:        "glob",
		Description: "List workspace files matching a glob pattern, ** supported.",
		Parameters: map[string]ParamSpec{
			"pattern": {
				Type:        "string",
				Description: "Glob pattern relative to the workspace root, e.g. internal/**/*.go",
				Required:    true,
			},
		},
	}
}

func (t *GlobTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *GlobTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Pattern string `json:"pattern"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("glob: parse input: %w", err)
	}
	if input.Pattern == "" {
		return "", fmt.Errorf("glob: pattern is required")
	}
	matches, err := doublestar.Glob(os.DirFS(t.workspace), input.Pattern)
	if err != nil {
		return "", fmt.Errorf("glob: %w", err)
	}
	if len(matches) == 0 {
		return "no matches", nil
	}
	return strings.Join(matches, "\n"), nil
}

var (
	_ Tool = (*ReadFileTool)(nil)
	_ Tool = (*WriteFileTool)(nil)
	_ Tool = (*EditFileTool)(nil)
	_ Tool = (*GlobTool)(nil)
)
