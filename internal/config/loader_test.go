package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.jsonc"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.MaxRounds != 16 {
		t.Fatalf("expected default max rounds 16, got %d", cfg.Agent.MaxRounds)
	}
	if cfg.Agent.CompactThreshold != 0.80 {
		t.Fatalf("expected default threshold 0.80, got %v", cfg.Agent.CompactThreshold)
	}
}

func TestLoadJSONCWithCommentsAndEnvTemplate(t *testing.T) {
	t.Setenv("ANURIS_TEST_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.jsonc")
	content := `{
  // model setup
  "models": {
    "default": "main",
    "providers": {
      "main": {
        "driver": "anthropic",
        "model": "claude-sonnet-4-6",
        "api_key": "${{ .Env.ANURIS_TEST_KEY }}",
        "timeout": "90s",
      },
    },
  },
  "agent": { "max_rounds": 4 },
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	prov, ok := cfg.Models.Providers["main"]
	if !ok {
		t.Fatal("expected provider 'main'")
	}
	if prov.APIKey != "sk-test" {
		t.Fatalf("expected expanded api key, got %q", prov.APIKey)
	}
	if prov.Timeout.Duration() != 90*time.Second {
		t.Fatalf("expected 90s timeout, got %v", prov.Timeout.Duration())
	}
	if cfg.Agent.MaxRounds != 4 {
		t.Fatalf("expected max rounds 4, got %d", cfg.Agent.MaxRounds)
	}
}

func TestLoadDotenvDoesNotOverride(t *testing.T) {
	t.Setenv("ANURIS_EXISTING", "keep")

	path := filepath.Join(t.TempDir(), ".env")
	content := "ANURIS_EXISTING=replace\nANURIS_FRESH='value'\n# comment\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := os.Getenv("ANURIS_EXISTING"); got != "keep" {
		t.Fatalf("expected existing var preserved, got %q", got)
	}
	if got := os.Getenv("ANURIS_FRESH"); got != "value" {
		t.Fatalf("expected fresh var %q, got %q", "value", got)
	}
	os.Unsetenv("ANURIS_FRESH")
}

func TestParseDotenvDialect(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"# header",
		"export EXPORTED=yes",
		"PLAIN=one # trailing note",
		`QUOTED="hash # kept"`,
		"NOEQUALS",
		"=novalue",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	entries, err := parseDotenv(path)
	if err != nil {
		t.Fatalf("parseDotenv: %v", err)
	}
	want := map[string]string{
		"EXPORTED": "yes",
		"PLAIN":    "one",
		"QUOTED":   "hash # kept",
	}
	if len(entries) != len(want) {
		t.Fatalf("unexpected entries: %v", entries)
	}
	for k, v := range want {
		if entries[k] != v {
			t.Fatalf("entry %s: want %q, got %q", k, v, entries[k])
		}
	}

	if entries, err := parseDotenv(filepath.Join(t.TempDir(), "absent")); err != nil || entries != nil {
		t.Fatalf("missing file should be empty, got %v, %v", entries, err)
	}
}
