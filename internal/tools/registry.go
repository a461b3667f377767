package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// ErrUnsupportedTool is returned when a tool call names a tool the registry
// does not hold. The loop reports it to the model as a tool-result error and
// keeps going.
var ErrUnsupportedTool = errors.New("unsupported tool")

// Tool pairs an invokable with its spec so the registry can filter by
// capability without round-tripping through ToolInfo.
type Tool interface {
	tool.InvokableTool
	Spec() *Spec
}

// Registry is a fixed dispatch table from tool name to implementation.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools. Duplicate names are a
// programming error.
func NewRegistry(ts ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		name := t.Spec().Name
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		r.tools[name] = t
	}
	return r, nil
}

// ReadOnly returns a registry holding only the non-mutating tools.
func (r *Registry) ReadOnly() *Registry {
	out := &Registry{tools: make(map[string]Tool)}
	for name, t := range r.tools {
		if !t.Spec().Mutating {
			out.tools[name] = t
		}
	}
	return out
}

// Without returns a registry with the named tools removed.
func (r *Registry) Without(names ...string) *Registry {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := &Registry{tools: make(map[string]Tool)}
	for name, t := range r.tools {
		if !drop[name] {
			out.tools[name] = t
		}
	}
	return out
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Infos returns the model-facing tool schemas in name order.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	var out []*schema.ToolInfo
	for _, name := range r.Names() {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool %q info: %w", name, err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Invoke dispatches one tool call. An unknown name yields
// ErrUnsupportedTool; tool-level failures come back as the tool's own
// error.
func (r *Registry) Invoke(ctx context.Context, name, argumentsInJSON string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedTool, name)
	}
	return t.InvokableRun(ctx, argumentsInJSON)
}
