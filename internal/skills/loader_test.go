package skills

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSkill(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write skill %s: %v", name, err)
	}
}

const reviewSkill = `---
description: Review code for common mistakes
tags: [review, quality]
aliases: code-review
---
# Review checklist

Look for error handling gaps.
`

func TestDiscoverMetadataOnly(t *testing.T) {
	local := t.TempDir()
	writeSkill(t, local, "review.md", reviewSkill)

	loader := NewLoader(local)
	metas, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	meta, ok := metas["review"]
	if !ok {
		t.Fatalf("expected skill 'review', got %v", metas)
	}
	if meta.Description != "Review code for common mistakes" {
		t.Fatalf("unexpected description %q", meta.Description)
	}
	if len(meta.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", meta.Tags)
	}
}

func TestWorkspaceLocalWinsCollision(t *testing.T) {
	local := t.TempDir()
	shared := t.TempDir()
	writeSkill(t, local, "deploy.md", "---\ndescription: local deploy\n---\nlocal body\n")
	writeSkill(t, shared, "deploy.md", "---\ndescription: shared deploy\n---\nshared body\n")

	loader := NewLoader(local, shared)
	body, err := loader.Load("deploy")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(body, "local body") {
		t.Fatalf("expected workspace-local skill to win, got %q", body)
	}
}

func TestLoadUnknownSkill(t *testing.T) {
	local := t.TempDir()
	writeSkill(t, local, "review.md", reviewSkill)

	loader := NewLoader(local)
	_, err := loader.Load("nonexistent")
	if !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestLoadByAliasAndSuggestion(t *testing.T) {
	local := t.TempDir()
	writeSkill(t, local, "review.md", reviewSkill)

	loader := NewLoader(local)
	if _, err := loader.Load("code-review"); err != nil {
		t.Fatalf("Load by alias: %v", err)
	}

	_, err := loader.Load("reviw-stuff")
	if err == nil {
		t.Fatal("expected error for near-miss name")
	}
}

func TestNestedSkillsDiscovered(t *testing.T) {
	local := t.TempDir()
	writeSkill(t, filepath.Join(local, "infra"), "terraform.md", "---\ndescription: tf\n---\nbody\n")

	loader := NewLoader(local)
	metas, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if _, ok := metas["terraform"]; !ok {
		t.Fatalf("expected nested skill discovered, got %v", metas)
	}
}

func TestMissingDirsIgnored(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "absent"))
	metas, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(metas) != 0 {
		t.Fatalf("expected no skills, got %v", metas)
	}
}

func TestDescriptionsAndCatalog(t *testing.T) {
	local := t.TempDir()
	writeSkill(t, local, "review.md", reviewSkill)

	loader := NewLoader(local)
	desc := loader.Descriptions()
	if !strings.Contains(desc, "- review:") {
		t.Fatalf("unexpected descriptions %q", desc)
	}
	catalog := loader.Catalog()
	if !strings.Contains(catalog, "review.md") {
		t.Fatalf("expected path in catalog, got %q", catalog)
	}
}
