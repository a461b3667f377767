package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/anuris-ai/anuris/internal/team"
)

// Identity names the agent invoking team tools and carries its capability
// class for spawn gating.
type Identity struct {
	Name string
	Type team.AgentType
}

// TeamSpawnTool creates a new teammate.
type TeamSpawnTool struct {
	coord *team.Coordinator
	self  Identity
}

func NewTeamSpawnTool(coord *team.Coordinator, self Identity) *TeamSpawnTool {
	return &TeamSpawnTool{coord: coord, self: self}
}

func (t *TeamSpawnTool) Spec() *Spec {
	return &Spec{
		Name:        "team_spawn",
		Description: "Spawn a named teammate with its own context. Builders do the work, explorers only read.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"name": {
				Type:        "string",
				Description: "Unique teammate name",
				Required:    true,
			},
			"agent_type": {
				Type:        "string",
				Description: "Capability class of the new teammate",
				Required:    true,
				Enum:        []string{"builder", "explorer"},
			},
			"prompt": {
				Type:        "string",
				Description: "Initial instructions for the teammate",
				Required:    true,
			},
		},
	}
}

func (t *TeamSpawnTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TeamSpawnTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Name      string `json:"name"`
		AgentType string `json:"agent_type"`
		Prompt    string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("team_spawn: parse input: %w", err)
	}
	rec, err := t.coord.Spawn(ctx, t.self.Name, t.self.Type, input.Name, team.AgentType(input.AgentType), input.Prompt)
	if err != nil {
		return "", fmt.Errorf("team_spawn: %w", err)
	}
	return fmt.Sprintf("spawned %s (%s)", rec.Name, rec.AgentType), nil
}

// TeamSendTool delivers a direct message to one teammate.
type TeamSendTool struct {
	coord *team.Coordinator
	self  Identity
}

func NewTeamSendTool(coord *team.Coordinator, self Identity) *TeamSendTool {
	return &TeamSendTool{coord: coord, self: self}
}

func (t *TeamSendTool) Spec() *Spec {
	return &Spec{
		Name:        "team_send",
		Description: "Send a message to a teammate's inbox. They see it next time they read their inbox.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"to": {
				Type:        "string",
				Description: "Recipient teammate name",
				Required:    true,
			},
			"body": {
				Type:        "string",
				Description: "Message text",
				Required:    true,
			},
		},
	}
}

func (t *TeamSendTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TeamSendTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		To   string `json:"to"`
		Body string `json:"body"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("team_send: parse input: %w", err)
	}
	msg, err := t.coord.Send(t.self.Name, input.To, input.Body)
	if err != nil {
		return "", fmt.Errorf("team_send: %w", err)
	}
	return fmt.Sprintf("delivered %s to %s", msg.ID, msg.To), nil
}

// TeamBroadcastTool messages every active teammate except the sender.
type TeamBroadcastTool struct {
	coord *team.Coordinator
	self  Identity
}

func NewTeamBroadcastTool(coord *team.Coordinator, self Identity) *TeamBroadcastTool {
	return &TeamBroadcastTool{coord: coord, self: self}
}

func (t *TeamBroadcastTool) Spec() *Spec {
	return &Spec{
		Name:        "team_broadcast",
		Description: "Send a message to every active teammate.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"body": {
				Type:        "string",
				Description: "Message text",
				Required:    true,
			},
		},
	}
}

func (t *TeamBroadcastTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TeamBroadcastTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("team_broadcast: parse input: %w", err)
	}
	n, err := t.coord.Broadcast(t.self.Name, input.Body)
	if err != nil {
		return "", fmt.Errorf("team_broadcast: %w", err)
	}
	return fmt.Sprintf("delivered to %d teammates", n), nil
}

// TeamReadInboxTool drains the caller's inbox.
type TeamReadInboxTool struct {
	coord *team.Coordinator
	self  Identity
}

func NewTeamReadInboxTool(coord *team.Coordinator, self Identity) *TeamReadInboxTool {
	return &TeamReadInboxTool{coord: coord, self: self}
}

func (t *TeamReadInboxTool) Spec() *Spec {
	return &Spec{
		Name:        "team_read_inbox",
		Description: "Read and consume all new messages in your inbox. Each message is delivered once.",
		Parameters:  map[string]ParamSpec{},
	}
}

func (t *TeamReadInboxTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TeamReadInboxTool) InvokableRun(_ context.Context, _ string, _ ...tool.Option) (string, error) {
	msgs, err := t.coord.ReadInbox(t.self.Name)
	if err != nil {
		return "", fmt.Errorf("team_read_inbox: %w", err)
	}
	if len(msgs) == 0 {
		return "no new messages", nil
	}
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", m.Type, m.From, m.Body)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// TeamListTool shows the roster.
type TeamListTool struct {
	coord *team.Coordinator
}

func NewTeamListTool(coord *team.Coordinator) *TeamListTool {
	return &TeamListTool{coord: coord}
}

func (t *TeamListTool) Spec() *Spec {
	return &Spec{
		Name:        "team_list",
		Description: "List all teammates and their status, including ones that have shut down.",
		Parameters:  map[string]ParamSpec{},
	}
}

func (t *TeamListTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *TeamListTool) InvokableRun(_ context.Context, _ string, _ ...tool.Option) (string, error) {
	recs, err := t.coord.Roster.List()
	if err != nil {
		return "", fmt.Errorf("team_list: %w", err)
	}
	if len(recs) == 0 {
		return "no teammates", nil
	}
	var sb strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&sb, "%s (%s) %s\n", r.Name, r.AgentType, r.Status)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// ShutdownRequestTool asks a teammate to wind down.
type ShutdownRequestTool struct {
	coord *team.Coordinator
	self  Identity
}

func NewShutdownRequestTool(coord *team.Coordinator, self Identity) *ShutdownRequestTool {
	return &ShutdownRequestTool{coord: coord, self: self}
}

func (t *ShutdownRequestTool) Spec() *Spec {
	return &Spec{
		Name:        "shutdown_request",
		Description: "Request that a teammate shut down. The request must be confirmed or denied before it takes effect.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"target": {
				Type:        "string",
				Description: "Teammate to shut down",
				Required:    true,
			},
			"reason": {
				Type:        "string",
				Description: "Why this teammate should stop",
			},
		},
	}
}

func (t *ShutdownRequestTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *ShutdownRequestTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Target string `json:"target"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("shutdown_request: parse input: %w", err)
	}
	req, err := t.coord.RequestShutdown(t.self.Name, input.Target, input.Reason)
	if err != nil {
		return "", fmt.Errorf("shutdown_request: %w", err)
	}
	return fmt.Sprintf("%s: shutdown of %s requested", req.ID, req.Target), nil
}

// ShutdownDecideTool confirms or denies a pending shutdown request.
type ShutdownDecideTool struct {
	coord *team.Coordinator
}

func NewShutdownDecideTool(coord *team.Coordinator) *ShutdownDecideTool {
	return &ShutdownDecideTool{coord: coord}
}

func (t *ShutdownDecideTool) Spec() *Spec {
	return &Spec{
		Name:        "shutdown_decide",
		Description: "Confirm or deny a pending shutdown request. A request can be decided only once.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"id": {
				Type:        "string",
				Description: "Shutdown request id",
				Required:    true,
			},
			"confirm": {
				Type:        "boolean",
				Description: "true to confirm, false to deny",
				Required:    true,
			},
		},
	}
}

func (t *ShutdownDecideTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *ShutdownDecideTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		ID      string `json:"id"`
		Confirm bool   `json:"confirm"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("shutdown_decide: parse input: %w", err)
	}
	req, err := t.coord.DecideShutdown(input.ID, input.Confirm)
	if err != nil {
		return "", fmt.Errorf("shutdown_decide: %w", err)
	}
	return fmt.Sprintf("%s: %s", req.ID, req.Status), nil
}

// PlanSubmitTool submits a plan for approval.
type PlanSubmitTool struct {
	coord *team.Coordinator
	self  Identity
}

func NewPlanSubmitTool(coord *team.Coordinator, self Identity) *PlanSubmitTool {
	return &PlanSubmitTool{coord: coord, self: self}
}

func (t *PlanSubmitTool) Spec() *Spec {
	return &Spec{
		Name:        "plan_submit",
		Description: "Submit a plan for approval before starting significant work.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"plan": {
				Type:        "string",
				Description: "The plan text",
				Required:    true,
			},
		},
	}
}

func (t *PlanSubmitTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *PlanSubmitTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Plan string `json:"plan"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("plan_submit: parse input: %w", err)
	}
	req, err := t.coord.Governance.SubmitPlan(t.self.Name, input.Plan)
	if err != nil {
		return "", fmt.Errorf("plan_submit: %w", err)
	}
	return fmt.Sprintf("%s: plan submitted", req.ID), nil
}

// PlanDecideTool approves or rejects a submitted plan.
type PlanDecideTool struct {
	coord *team.Coordinator
}

func NewPlanDecideTool(coord *team.Coordinator) *PlanDecideTool {
	return &PlanDecideTool{coord: coord}
}

func (t *PlanDecideTool) Spec() *Spec {
	return &Spec{
		Name:        "plan_decide",
		Description: "Approve or reject a submitted plan. A plan can be decided only once.",
		Mutating:    true,
		Parameters: map[string]ParamSpec{
			"id": {
				Type:        "string",
				Description: "Plan request id",
				Required:    true,
			},
			"approve": {
				Type:        "boolean",
				Description: "true to approve, false to reject",
				Required:    true,
			},
			"reason": {
				Type:        "string",
				Description: "Rationale for the decision",
			},
		},
	}
}

func (t *PlanDecideTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.Spec().ToolInfo(), nil
}

func (t *PlanDecideTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		ID      string `json:"id"`
		Approve bool   `json:"approve"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("plan_decide: parse input: %w", err)
	}
	req, err := t.coord.Governance.DecidePlan(input.ID, input.Approve, input.Reason)
	if err != nil {
		return "", fmt.Errorf("plan_decide: %w", err)
	}
	return fmt.Sprintf("%s: %s", req.ID, req.Status), nil
}

var (
	_ Tool = (*TeamSpawnTool)(nil)
	_ Tool = (*TeamSendTool)(nil)
	_ Tool = (*TeamBroadcastTool)(nil)
	_ Tool = (*TeamReadInboxTool)(nil)
	_ Tool = (*TeamListTool)(nil)
	_ Tool = (*ShutdownRequestTool)(nil)
	_ Tool = (*ShutdownDecideTool)(nil)
	_ Tool = (*PlanSubmitTool)(nil)
	_ Tool = (*PlanDecideTool)(nil)
)
