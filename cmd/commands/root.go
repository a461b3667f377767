// Package commands defines the anuris CLI surface.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/anuris-ai/anuris/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "anuris",
		Usage: "Agent orchestration for your workspace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Usage:   "Workspace root the agent operates in",
				Value:   config.WorkspaceRoot(),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return ctx, nil
		},
		Commands: []*cli.Command{
			NewAskCommand(),
			NewStatusCommand(),
			NewTasksCommand(),
			NewTeamCommand(),
			NewSkillsCommand(),
			NewSessionsCommand(),
		},
	}
}

func workspaceRoot(cmd *cli.Command) string {
	if w := cmd.String("workspace"); w != "" {
		return w
	}
	return config.WorkspaceRoot()
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		path = config.ConfigPath(workspaceRoot(cmd))
	}
	return config.Load(path)
}
