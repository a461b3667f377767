package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/urfave/cli/v3"

	"github.com/anuris-ai/anuris/internal/agent"
	"github.com/anuris-ai/anuris/internal/background"
	"github.com/anuris-ai/anuris/internal/team"
	"github.com/anuris-ai/anuris/internal/tools"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Run the lead agent on a prompt",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "Resume an existing session",
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		return fmt.Errorf("usage: anuris ask <prompt>")
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	rt.installRunner()

	lead := tools.Identity{Name: rt.cfg.Team.Name, Type: team.AgentLead}
	if err := ensureLead(rt, lead.Name); err != nil {
		return err
	}

	sessionID := cmd.String("session")
	var seed bool
	if sessionID == "" {
		sess, err := rt.sessions.Create(sessionTitle(prompt), rt.models.DefaultName())
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sessionID = sess.ID
		fmt.Printf("session: %s\n", sessionID)
	} else {
		seed = true
	}

	eng, err := rt.buildEngine(ctx, lead, sessionID)
	if err != nil {
		return err
	}
	if seed {
		turns, err := rt.sessions.LoadTurns(sessionID)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		msgs := make([]*schema.Message, 0, len(turns))
		for _, t := range turns {
			msgs = append(msgs, t.ToSchemaMessage())
		}
		eng.Seed(msgs)
	}

	answer, err := eng.Run(ctx, prompt)
	switch {
	case errors.Is(err, agent.ErrInterrupted):
		fmt.Println("\n[interrupted]")
	case errors.Is(err, agent.ErrRoundBudgetExceeded):
		fmt.Println("\n[round budget exceeded]")
	case err != nil:
		return err
	}
	if answer != "" {
		fmt.Println(answer)
	}

	rt.coord.Wait()
	var running []*background.Job
	for _, j := range rt.jobs.List() {
		if j.Status == background.StatusRunning {
			running = append(running, j)
		}
	}
	if len(running) > 0 {
		fmt.Println("\nbackground jobs still running:")
		fmt.Println(background.Render(running))
	}
	return nil
}

// ensureLead registers the lead on the roster on first use so teammates can
// message it by name.
func ensureLead(rt *runtime, name string) error {
	if _, err := rt.coord.Roster.Get(name); err == nil {
		return rt.coord.Roster.Touch(name)
	}
	_, err := rt.coord.Roster.Register(name, team.AgentLead)
	return err
}

func sessionTitle(prompt string) string {
	const max = 60
	if len(prompt) <= max {
		return prompt
	}
	return prompt[:max] + "..."
}
