package config

import (
	"os"
	"path/filepath"
)

// WorkspaceRoot returns the workspace directory the agent operates in.
// It uses $ANURIS_WORKSPACE if set, otherwise the current directory.
func WorkspaceRoot() string {
	if v := os.Getenv("ANURIS_WORKSPACE"); v != "" {
		return v
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// DataDir returns the per-workspace data directory holding the persisted
// stores (tasks, team, sessions, workspace-local skills).
func DataDir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".anuris")
}

// TasksDir returns the task store directory.
func TasksDir(workspaceRoot string) string {
	return filepath.Join(DataDir(workspaceRoot), "tasks")
}

// TeamDir returns the team store directory (roster, inbox, governance).
func TeamDir(workspaceRoot string) string {
	return filepath.Join(DataDir(workspaceRoot), "team")
}

// SessionsDir returns the session log directory.
func SessionsDir(workspaceRoot string) string {
	return filepath.Join(DataDir(workspaceRoot), "sessions")
}

// SkillDirs returns skill discovery directories in precedence order:
// workspace-local first, then the shared directory.
func SkillDirs(workspaceRoot string) []string {
	return []string{
		filepath.Join(DataDir(workspaceRoot), "skills"),
		filepath.Join(workspaceRoot, "skills"),
	}
}

// ConfigPath returns the path to the workspace config file.
func ConfigPath(workspaceRoot string) string {
	return filepath.Join(DataDir(workspaceRoot), "config.jsonc")
}

// DotenvPath returns the path to the workspace .env file.
func DotenvPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".env")
}
