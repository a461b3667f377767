package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/anuris-ai/anuris/internal/team"
	"github.com/anuris-ai/anuris/internal/tools"
)

// minSubagentRounds is the floor for a subagent's budget so even a deeply
// nested delegate can do useful work.
const minSubagentRounds = 4

// SubagentRounds derives a child budget from the parent's.
func SubagentRounds(parentRounds int) int {
	half := parentRounds / 2
	if half < minSubagentRounds {
		return minSubagentRounds
	}
	return half
}

// SubagentFunc returns a tools.SubagentFunc that runs a one-shot child
// engine: fresh context, a toolset restricted to the requested capability
// class, and half the parent's round budget. The subagent cannot spawn
// further subagents or teammates.
func (e *Engine) SubagentFunc() tools.SubagentFunc {
	return func(ctx context.Context, agentType, prompt string) (string, error) {
		reg, err := restrictRegistry(e.registry, team.AgentType(agentType))
		if err != nil {
			return "", err
		}
		child, err := NewEngine(Options{
			Model:        e.model,
			Registry:     reg,
			SystemPrompt: e.systemPrompt,
			MaxRounds:    SubagentRounds(e.maxRounds),
			Compactor:    e.compactor,
			Summarize:    e.summarize,
			Background:   e.background,
			Bus:          e.bus,
			Source:       e.source + "/subagent",
			Logger:       e.log,
		})
		if err != nil {
			return "", err
		}
		out, err := child.Run(ctx, prompt)
		if err != nil {
			// Budget exhaustion is a result, not a failure: the parent
			// decides what to do with the partial answer.
			if errors.Is(err, ErrRoundBudgetExceeded) {
				return fmt.Sprintf("subagent ran out of rounds; last output:\n%s", out), nil
			}
			return "", err
		}
		return out, nil
	}
}

// restrictRegistry narrows the parent's toolset to the child's capability
// class. Subagents never get delegation or team tools.
func restrictRegistry(parent *tools.Registry, agentType team.AgentType) (*tools.Registry, error) {
	base := parent.Without(
		"subagent",
		"team_spawn", "team_send", "team_broadcast", "team_read_inbox", "team_list",
		"shutdown_request", "shutdown_decide",
		"plan_submit", "plan_decide",
	)
	switch agentType {
	case team.AgentBuilder:
		return base, nil
	case team.AgentExplorer:
		return base.ReadOnly(), nil
	default:
		return nil, fmt.Errorf("unknown subagent type %q", agentType)
	}
}
