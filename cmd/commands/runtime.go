package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/schema"
	"github.com/urfave/cli/v3"

	"github.com/anuris-ai/anuris/internal/agent"
	"github.com/anuris-ai/anuris/internal/background"
	"github.com/anuris-ai/anuris/internal/config"
	"github.com/anuris-ai/anuris/internal/events"
	"github.com/anuris-ai/anuris/internal/models"
	"github.com/anuris-ai/anuris/internal/sessions"
	"github.com/anuris-ai/anuris/internal/skills"
	"github.com/anuris-ai/anuris/internal/tasks"
	"github.com/anuris-ai/anuris/internal/team"
	"github.com/anuris-ai/anuris/internal/todo"
	"github.com/anuris-ai/anuris/internal/tools"
)

// runtime bundles the stores and services a command needs. Everything is
// rooted in one workspace; two processes on the same workspace share state
// through the file stores.
type runtime struct {
	root     string
	cfg      *config.Config
	models   *models.Registry
	tasks    *tasks.Store
	sessions *sessions.Store
	coord    *team.Coordinator
	jobs     *background.Manager
	skills   *skills.Loader
	bus      *events.Bus
	log      *slog.Logger
}

func newRuntime(cmd *cli.Command) (*runtime, error) {
	root := workspaceRoot(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	skillDirs := cfg.Skills.Dirs
	if len(skillDirs) == 0 {
		skillDirs = config.SkillDirs(root)
	}
	loader := skills.NewLoader(skillDirs...)
	if _, err := loader.Discover(); err != nil {
		return nil, fmt.Errorf("discover skills: %w", err)
	}

	log := slog.Default()
	taskStore := tasks.NewStore(config.TasksDir(root))
	coord := team.NewCoordinator(config.TeamDir(root), taskStore, log)

	bus := events.NewBus(256)
	coord.SetBus(bus)
	bus.Subscribe(func(ev events.Event) {
		log.Debug("event", "type", ev.Type, "source", ev.Source, "payload", ev.Payload)
	})

	return &runtime{
		root:     root,
		cfg:      cfg,
		models:   models.NewRegistry(cfg.Models),
		tasks:    taskStore,
		sessions: sessions.NewStore(config.SessionsDir(root)),
		coord:    coord,
		jobs:     background.NewManager(root),
		skills:   loader,
		bus:      bus,
		log:      log,
	}, nil
}

// buildRegistry assembles the toolset for one agent identity. Team and task
// tools act under that identity, so teammates get their own registry, and
// classes that may not mutate workspace files lose the write tools.
func (rt *runtime) buildRegistry(self tools.Identity, subFn tools.SubagentFunc, board *todo.Board) (*tools.Registry, error) {
	reg, err := tools.NewRegistry(
		tools.NewBashTool(rt.root, rt.cfg.Agent.ToolTimeout.Duration()),
		tools.NewReadFileTool(rt.root),
		tools.NewWriteFileTool(rt.root),
		tools.NewEditFileTool(rt.root),
		tools.NewGlobTool(rt.root),
		tools.NewTodoWriteTool(board),
		tools.NewSkillTool(rt.skills),
		tools.NewTaskCreateTool(rt.tasks),
		tools.NewTaskGetTool(rt.tasks),
		tools.NewTaskListTool(rt.tasks),
		tools.NewTaskUpdateTool(rt.tasks),
		tools.NewTaskClaimTool(rt.tasks, self.Name),
		tools.NewBackgroundRunTool(rt.jobs),
		tools.NewBackgroundCheckTool(rt.jobs),
		tools.NewTeamSpawnTool(rt.coord, self),
		tools.NewTeamSendTool(rt.coord, self),
		tools.NewTeamBroadcastTool(rt.coord, self),
		tools.NewTeamReadInboxTool(rt.coord, self),
		tools.NewTeamListTool(rt.coord),
		tools.NewShutdownRequestTool(rt.coord, self),
		tools.NewShutdownDecideTool(rt.coord),
		tools.NewPlanSubmitTool(rt.coord, self),
		tools.NewPlanDecideTool(rt.coord),
		tools.NewSubagentTool(subFn),
	)
	if err != nil {
		return nil, err
	}
	if !team.CanWrite(self.Type) {
		reg = reg.Without("write_file", "edit_file")
	}
	return reg, nil
}

// buildEngine wires a full engine for one identity. sessionID may be empty
// when the conversation should not be persisted.
func (rt *runtime) buildEngine(ctx context.Context, self tools.Identity, sessionID string) (*agent.Engine, error) {
	mdl, err := rt.models.Default(ctx)
	if err != nil {
		return nil, err
	}

	board := todo.NewBoard()

	// The subagent tool needs the engine and the engine needs the
	// registry, so the hook is bound after construction.
	var subFn tools.SubagentFunc
	registry, err := rt.buildRegistry(self, func(ctx context.Context, agentType, prompt string) (string, error) {
		if subFn == nil {
			return "", fmt.Errorf("subagent hook not bound")
		}
		return subFn(ctx, agentType, prompt)
	}, board)
	if err != nil {
		return nil, err
	}

	prompt := agent.ComposeSystemPrompt(agent.PromptContext{
		CustomInstructions: rt.cfg.Agent.SystemPrompt,
		Identity:           self.Name,
		AgentType:          self.Type,
		SkillDescriptions:  rt.skills.Descriptions(),
		TodoBoard:          board,
	})

	summarize := func(ctx context.Context, p string) (string, error) {
		resp, err := mdl.Generate(ctx, []*schema.Message{schema.UserMessage(p)})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}

	eng, err := agent.NewEngine(agent.Options{
		Model:        mdl,
		Registry:     registry,
		SystemPrompt: prompt,
		MaxRounds:    rt.cfg.Agent.MaxRounds,
		Compactor: agent.NewCompactor(agent.CompactorConfig{
			ContextWindow: rt.cfg.Agent.ContextWindow,
			Threshold:     rt.cfg.Agent.CompactThreshold,
		}),
		Summarize:  summarize,
		Sessions:   rt.sessions,
		SessionID:  sessionID,
		Background: rt.jobs,
		Bus:        rt.bus,
		Source:     self.Name,
		Logger:     rt.log,
	})
	if err != nil {
		return nil, err
	}
	subFn = eng.SubagentFunc()
	return eng, nil
}

// installRunner makes Spawn execute teammates in-process: each teammate
// gets its own engine, toolset bound to its own identity, and session.
func (rt *runtime) installRunner() {
	rt.coord.SetRunner(func(ctx context.Context, rec *team.TeammateRecord, prompt string) error {
		sess, err := rt.sessions.Create("teammate: "+rec.Name, rt.models.DefaultName())
		if err != nil {
			return fmt.Errorf("create teammate session: %w", err)
		}
		eng, err := rt.buildEngine(ctx, tools.Identity{Name: rec.Name, Type: rec.AgentType}, sess.ID)
		if err != nil {
			return err
		}
		_, err = eng.Run(ctx, prompt)
		return err
	})
}
