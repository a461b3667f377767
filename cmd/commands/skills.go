package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewSkillsCommand returns the skills subcommand.
func NewSkillsCommand() *cli.Command {
	return &cli.Command{
		Name:  "skills",
		Usage: "Inspect discovered skills",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List discovered skills",
				Action: runSkillsList,
			},
			{
				Name:      "show",
				Usage:     "Print a skill body",
				ArgsUsage: "<name>",
				Action:    runSkillsShow,
			},
		},
		DefaultCommand: "list",
	}
}

func runSkillsList(_ context.Context, cmd *cli.Command) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	fmt.Println(rt.skills.Catalog())
	return nil
}

func runSkillsShow(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: anuris skills show <name>")
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	body, err := rt.skills.Load(name)
	if err != nil {
		return err
	}
	fmt.Println(body)
	return nil
}
