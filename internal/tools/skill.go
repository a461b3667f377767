package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/anuris-ai/anuris/internal/skills"
)

// SkillTool loads a skill's full instructions into the conversation.
type SkillTool struct {
	loader *skills.Loader
}

func NewSkillTool(loader *skills.Loader) *SkillTool {
	return &SkillTool{loader: loader}
}

func (t *SkillTool) Spec() *Spec {
	return &Spec{
		Name:        "skill",
		Description: "Load the full instructions of a named skill. Only descriptions are visible until a skill is loaded.",
		Parameters: map[string]ParamSpec{
			"name": {
				Type:        "string",
				Description: "Skill name or alias",
				Required:    true,
			},
		},
	}
}

func (t *SkillTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *SkillTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("skill: parse input: %w", err)
	}
	body, err := t.loader.Load(input.Name)
	if err != nil {
		return "", fmt.Errorf("skill: %w", err)
	}
	return body, nil
}

var _ Tool = (*SkillTool)(nil)
