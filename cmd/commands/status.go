package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/anuris-ai/anuris/internal/tasks"
	"github.com/anuris-ai/anuris/internal/team"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show workspace state at a glance",
		Action: func(_ context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("Workspace: %s\n", rt.root)
			fmt.Printf("Model: %s\n", rt.models.DefaultName())

			all, err := rt.tasks.List(tasks.ListFilter{})
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			var open, done int
			for _, t := range all {
				switch t.Status {
				case tasks.StatusDone, tasks.StatusCancelled:
					done++
				default:
					open++
				}
			}
			fmt.Printf("Tasks: %d open, %d closed\n", open, done)

			active, err := rt.coord.Roster.Active()
			if err != nil {
				return fmt.Errorf("list teammates: %w", err)
			}
			fmt.Printf("Teammates: %d active\n", len(active))

			plans, err := rt.coord.Governance.ListPlans(team.PlanSubmitted)
			if err != nil {
				return fmt.Errorf("list plans: %w", err)
			}
			if len(plans) > 0 {
				fmt.Printf("Plans awaiting decision: %d\n", len(plans))
			}

			shutdowns, err := rt.coord.Governance.ListShutdowns(team.ShutdownRequested)
			if err != nil {
				return fmt.Errorf("list shutdowns: %w", err)
			}
			if len(shutdowns) > 0 {
				fmt.Printf("Shutdowns awaiting confirmation: %d\n", len(shutdowns))
			}

			sess, err := rt.sessions.List()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			fmt.Printf("Sessions: %d\n", len(sess))
			return nil
		},
	}
}
