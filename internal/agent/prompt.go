package agent

import (
	"fmt"
	"strings"

	"github.com/anuris-ai/anuris/internal/team"
	"github.com/anuris-ai/anuris/internal/todo"
)

const basePrompt = `You are a capable software agent working inside a project workspace.
Work in small steps, use your tools, and report concrete results.
Keep the todo list current as you make progress.`

// PromptContext holds the dynamic layers of the system prompt.
type PromptContext struct {
	CustomInstructions string
	Identity           string
	AgentType          team.AgentType
	SkillDescriptions  string
	TodoBoard          *todo.Board
}

// ComposeSystemPrompt builds the full system prompt from its layers. Empty
// layers are skipped.
func ComposeSystemPrompt(pctx PromptContext) string {
	sections := []string{basePrompt}

	if pctx.Identity != "" {
		sections = append(sections, fmt.Sprintf("## Identity\n\nYou are %q, a %s agent. Use this name when claiming tasks and messaging teammates.", pctx.Identity, pctx.AgentType))
	}
	if pctx.CustomInstructions != "" {
		sections = append(sections, "## Additional Instructions\n\n"+pctx.CustomInstructions)
	}
	if pctx.SkillDescriptions != "" {
		sections = append(sections, "## Skills\n\nLoad a skill with the skill tool before relying on it.\n\n"+pctx.SkillDescriptions)
	}
	if pctx.TodoBoard != nil {
		if rendered := pctx.TodoBoard.Render(); rendered != "(no todos)" {
			sections = append(sections, "## Current Plan\n\n"+rendered)
		}
	}
	return strings.Join(sections, "\n\n")
}
