package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/anuris-ai/anuris/internal/team"
)

// NewTeamCommand returns the team subcommand.
func NewTeamCommand() *cli.Command {
	return &cli.Command{
		Name:  "team",
		Usage: "Inspect the teammate roster and governance log",
		Commands: []*cli.Command{
			{
				Name:   "roster",
				Usage:  "List all teammates, tombstones included",
				Action: runTeamRoster,
			},
			{
				Name:  "plans",
				Usage: "List plan approval requests",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Filter by status"},
				},
				Action: runTeamPlans,
			},
			{
				Name:  "shutdowns",
				Usage: "List shutdown requests",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Filter by status"},
				},
				Action: runTeamShutdowns,
			},
			{
				Name:      "inbox",
				Usage:     "Peek at a teammate's inbox without consuming it",
				ArgsUsage: "<name>",
				Action:    runTeamInbox,
			},
		},
		DefaultCommand: "roster",
	}
}

func runTeamRoster(_ context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	list, err := rt.coord.Roster.List()
	if err != nil {
		return fmt.Errorf("list roster: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No teammates.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tSTATUS\tLAST SEEN")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.Name, r.AgentType, r.Status, r.LastSeen.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runTeamPlans(_ context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	list, err := rt.coord.Governance.ListPlans(team.PlanStatus(cmd.String("status")))
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No plan requests.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREQUESTER\tSTATUS\tPLAN")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Requester, p.Status, oneLine(p.Plan))
	}
	return w.Flush()
}

func runTeamShutdowns(_ context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	list, err := rt.coord.Governance.ListShutdowns(team.ShutdownStatus(cmd.String("status")))
	if err != nil {
		return fmt.Errorf("list shutdowns: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No shutdown requests.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTARGET\tREQUESTER\tSTATUS\tREASON")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Target, s.Requester, s.Status, oneLine(s.Reason))
	}
	return w.Flush()
}

func runTeamInbox(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: anuris team inbox <name>")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	msgs, err := rt.coord.Inbox.Peek(name)
	if err != nil {
		return fmt.Errorf("peek inbox: %w", err)
	}
	if len(msgs) == 0 {
		fmt.Println("Inbox is empty.")
		return nil
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s -> %s: %s\n", m.Type, m.From, m.To, m.Body)
	}
	return nil
}

func oneLine(s string) string {
	const max = 60
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			s = s[:i] + " ..."
			break
		}
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
