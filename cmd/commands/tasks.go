package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/anuris-ai/anuris/internal/tasks"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Inspect and edit the shared task board",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Filter by status"},
					&cli.StringFlag{Name: "owner", Usage: "Filter by owner"},
				},
				Action: runTasksList,
			},
			{
				Name:      "show",
				Usage:     "Show task details",
				ArgsUsage: "<task_id>",
				Action:    runTasksShow,
			},
			{
				Name:      "add",
				Usage:     "Create a task",
				ArgsUsage: "<subject>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringSliceFlag{Name: "after", Usage: "Task ids this task depends on"},
				},
				Action: runTasksAdd,
			},
			{
				Name:      "done",
				Usage:     "Mark a task done",
				ArgsUsage: "<task_id>",
				Action:    runTasksDone,
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a task",
				ArgsUsage: "<task_id>",
				Action:    runTasksCancel,
			},
			{
				Name:  "claim",
				Usage: "Claim the oldest unblocked unowned task",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Claimant name", Required: true},
					&cli.StringFlag{Name: "notify", Usage: "Teammate to notify of the claim"},
				},
				Action: runTasksClaim,
			},
			{
				Name:      "rm",
				Usage:     "Delete a task",
				ArgsUsage: "<task_id>",
				Action:    runTasksRemove,
			},
		},
		DefaultCommand: "list",
	}
}

func runTasksList(_ context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	list, err := rt.tasks.List(tasks.ListFilter{
		Status: tasks.Status(cmd.String("status")),
		Owner:  cmd.String("owner"),
	})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	fmt.Println(tasks.Render(list))
	return nil
}

func runTasksShow(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: anuris tasks show <task_id>")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	t, err := rt.tasks.Get(id)
	if err != nil {
		return err
	}
	fmt.Printf("ID: %s\n", t.ID)
	fmt.Printf("Subject: %s\n", t.Subject)
	fmt.Printf("Status: %s\n", t.Status)
	if t.Owner != "" {
		fmt.Printf("Owner: %s\n", t.Owner)
	}
	if len(t.DependsOn) > 0 {
		fmt.Printf("Depends on: %s\n", strings.Join(t.DependsOn, ", "))
	}
	if t.Description != "" {
		fmt.Printf("\n%s\n", t.Description)
	}
	return nil
}

func runTasksAdd(_ context.Context, cmd *cli.Command) error {
	subject := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if subject == "" {
		return fmt.Errorf("usage: anuris tasks add <subject>")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	t, err := rt.tasks.Create(subject, cmd.String("description"), cmd.StringSlice("after"))
	if err != nil {
		return err
	}
	fmt.Printf("created %s\n", t.ID)
	return nil
}

func runTasksDone(_ context.Context, cmd *cli.Command) error {
	return setTaskStatus(cmd, tasks.StatusDone)
}

func runTasksCancel(_ context.Context, cmd *cli.Command) error {
	return setTaskStatus(cmd, tasks.StatusCancelled)
}

func runTasksClaim(_ context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	claimed, err := rt.coord.ClaimNext(cmd.String("owner"), cmd.String("notify"))
	if err != nil {
		return err
	}
	if claimed == nil {
		fmt.Println("nothing to claim")
		return nil
	}
	fmt.Printf("claimed %s: %s\n", claimed.ID, claimed.Subject)
	return nil
}

func runTasksRemove(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: anuris tasks rm <task_id>")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	return tasks.WithRetry(func() error {
		return rt.tasks.Delete(id)
	})
}

func setTaskStatus(cmd *cli.Command, status tasks.Status) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("task id required")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	return tasks.WithRetry(func() error {
		_, err := rt.tasks.Update(id, tasks.Update{Status: status})
		return err
	})
}
