package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cloudwego/eino/schema"
	"github.com/urfave/cli/v3"

	"github.com/anuris-ai/anuris/internal/team"
	"github.com/anuris-ai/anuris/internal/tools"
)

// NewSessionsCommand returns the sessions subcommand.
func NewSessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Inspect persisted sessions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all sessions",
				Action: runSessionsList,
			},
			{
				Name:      "show",
				Usage:     "Show the turns of a session",
				ArgsUsage: "<session_id>",
				Action:    runSessionsShow,
			},
			{
				Name:      "close",
				Usage:     "Mark a session closed",
				ArgsUsage: "<session_id>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()
					if id == "" {
						return fmt.Errorf("usage: anuris sessions close <session_id>")
					}
					rt, err := newRuntime(cmd)
					if err != nil {
						return err
					}
					return rt.sessions.Close(id)
				},
			},
			{
				Name:      "compactions",
				Usage:     "Show the compaction audit records of a session",
				ArgsUsage: "<session_id>",
				Action:    runSessionsCompactions,
			},
			{
				Name:      "compact",
				Usage:     "Summarize older turns of a session now",
				ArgsUsage: "<session_id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "focus",
						Usage: "Bias the summary toward this topic",
					},
				},
				Action: runSessionsCompact,
			},
		},
		DefaultCommand: "list",
	}
}

func runSessionsList(_ context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	list, err := rt.sessions.List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTURNS\tTOKENS\tUPDATED\tTITLE")
	for _, s := range list {
		title := s.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			s.ID,
			s.Status,
			s.TurnCount,
			s.TokenUsage.Input, s.TokenUsage.Output,
			s.UpdatedAt.Format("2006-01-02 15:04"),
			title,
		)
	}
	return w.Flush()
}

func runSessionsShow(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: anuris sessions show <session_id>")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	turns, err := rt.sessions.LoadTurns(id)
	if err != nil {
		return fmt.Errorf("load turns: %w", err)
	}
	if len(turns) == 0 {
		fmt.Println("No turns in this session.")
		return nil
	}
	for _, t := range turns {
		fmt.Printf("--- %s ---\n", t.Role)
		if t.Content != "" {
			fmt.Println(t.Content)
		}
		for _, tc := range t.ToolCalls {
			fmt.Printf("[tool call] %s(%s)\n", tc.Name, tc.Arguments)
		}
	}
	return nil
}

func runSessionsCompactions(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: anuris sessions compactions <session_id>")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	snaps, err := rt.sessions.LoadCompactions(id)
	if err != nil {
		return fmt.Errorf("load compactions: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No compactions recorded.")
		return nil
	}
	for _, snap := range snaps {
		trigger := "threshold"
		if snap.Manual {
			trigger = "manual"
		}
		fmt.Printf("--- %s (%s, %d turns replaced) ---\n",
			snap.At.Format("2006-01-02 15:04"), trigger, snap.ReplacedTurns)
		if snap.Focus != "" {
			fmt.Printf("focus: %s\n", snap.Focus)
		}
		fmt.Println(snap.Summary)
	}
	return nil
}

// runSessionsCompact summarizes the older turns of a session on demand and
// records the snapshot. The turn log itself is untouched.
func runSessionsCompact(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: anuris sessions compact <session_id>")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	if _, err := rt.sessions.Get(id); err != nil {
		return err
	}

	lead := tools.Identity{Name: rt.cfg.Team.Name, Type: team.AgentLead}
	eng, err := rt.buildEngine(ctx, lead, id)
	if err != nil {
		return err
	}
	turns, err := rt.sessions.LoadTurns(id)
	if err != nil {
		return fmt.Errorf("load turns: %w", err)
	}
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, t.ToSchemaMessage())
	}
	eng.Seed(msgs)

	if err := eng.CompactNow(ctx, cmd.String("focus")); err != nil {
		return err
	}
	fmt.Println("compacted")
	return nil
}
