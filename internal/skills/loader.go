// Package skills discovers and lazily loads reusable instruction bundles.
// Discovery reads metadata only; skill bodies stay on disk until the model
// explicitly loads one, keeping the system prompt small.
package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrSkillNotFound is returned when load names an unknown skill.
var ErrSkillNotFound = errors.New("skill not found")

// Meta is the lightweight per-skill record returned by discovery.
type Meta struct {
	Name        string
	Description string
	Tags        []string
	Path        string
}

// frontMatter is the YAML header of a skill file.
type frontMatter struct {
	Description string `yaml:"description"`
	Tags        any    `yaml:"tags"`    // string or list
	Aliases     any    `yaml:"aliases"` // string or list
}

// Loader scans skill directories in precedence order: earlier directories
// win name collisions, so workspace-local skills shadow shared ones.
type Loader struct {
	dirs    []string
	skills  map[string]Meta
	aliases map[string]string
}

// NewLoader creates a Loader over dirs, highest precedence first.
func NewLoader(dirs ...string) *Loader {
	return &Loader{dirs: dirs}
}

// Discover rescans the skill directories and returns name → metadata.
// Bodies are not read here beyond the front-matter header.
func (l *Loader) Discover() (map[string]Meta, error) {
	skills := make(map[string]Meta)
	aliases := make(map[string]string)

	for _, dir := range l.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue // missing directories are fine
		}
		fsys := os.DirFS(dir)
		matches, err := doublestar.Glob(fsys, "**/*.md")
		if err != nil {
			return nil, fmt.Errorf("scan skills dir %s: %w", dir, err)
		}
		sort.Strings(matches)
		for _, rel := range matches {
			name := normalize(strings.TrimSuffix(filepath.Base(rel), ".md"))
			if name == "" {
				continue
			}
			if _, exists := skills[name]; exists {
				continue // earlier directory wins
			}

			path := filepath.Join(dir, rel)
			meta, err := readFrontMatter(path)
			if err != nil {
				continue // unreadable skill files are skipped, not fatal
			}
			meta.Name = name
			meta.Path = path
			skills[name] = meta

			for _, alias := range metaAliases(path) {
				if _, taken := aliases[alias]; !taken {
					aliases[alias] = name
				}
			}
			for _, tag := range meta.Tags {
				if t := normalize(tag); t != "" {
					if _, taken := aliases[t]; !taken {
						aliases[t] = name
					}
				}
			}
		}
	}

	l.skills = skills
	l.aliases = aliases
	return skills, nil
}

// Load returns the full body of a skill, wrapped for injection as a tool
// result. Unknown names fail with ErrSkillNotFound, carrying close-match
// suggestions when any exist.
func (l *Loader) Load(name string) (string, error) {
	if _, err := l.Discover(); err != nil {
		return "", err
	}

	resolved := l.resolve(name)
	meta, ok := l.skills[resolved]
	if !ok {
		available := strings.Join(l.names(), ", ")
		if available == "" {
			available = "(none)"
		}
		if hint := l.suggest(name); hint != "" {
			return "", fmt.Errorf("%w: %q (did you mean %s? available: %s)", ErrSkillNotFound, name, hint, available)
		}
		return "", fmt.Errorf("%w: %q (available: %s)", ErrSkillNotFound, name, available)
	}

	data, err := os.ReadFile(meta.Path)
	if err != nil {
		return "", fmt.Errorf("read skill %s: %w", resolved, err)
	}
	_, body := splitFrontMatter(string(data))
	return fmt.Sprintf("<skill name=%q>\n%s\n</skill>", resolved, strings.TrimSpace(body)), nil
}

// Descriptions renders the compact metadata block injected into the system
// prompt.
func (l *Loader) Descriptions() string {
	if _, err := l.Discover(); err != nil || len(l.skills) == 0 {
		return "(no skills available)"
	}
	var lines []string
	for _, name := range l.names() {
		meta := l.skills[name]
		line := fmt.Sprintf("- %s: %s", name, orDefault(meta.Description, "No description"))
		if len(meta.Tags) > 0 {
			line += fmt.Sprintf(" [%s]", strings.Join(meta.Tags, ", "))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Catalog renders the CLI-facing skill listing with source paths.
func (l *Loader) Catalog() string {
	if _, err := l.Discover(); err != nil || len(l.skills) == 0 {
		return "No skills found. Add Markdown files under .anuris/skills/ or skills/."
	}
	var lines []string
	for _, name := range l.names() {
		meta := l.skills[name]
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", name, orDefault(meta.Description, "No description"), meta.Path))
	}
	return strings.Join(lines, "\n")
}

func (l *Loader) names() []string {
	names := make([]string, 0, len(l.skills))
	for name := range l.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Loader) resolve(requested string) string {
	if _, ok := l.skills[requested]; ok {
		return requested
	}
	n := normalize(requested)
	if _, ok := l.skills[n]; ok {
		return n
	}
	if canonical, ok := l.aliases[n]; ok {
		return canonical
	}
	return requested
}

// suggest returns skill names whose normalized form shares a prefix or
// contains the requested token.
func (l *Loader) suggest(requested string) string {
	n := normalize(requested)
	if n == "" {
		return ""
	}
	var hits []string
	for _, name := range l.names() {
		if strings.Contains(name, n) || strings.Contains(n, name) {
			hits = append(hits, name)
		}
	}
	if len(hits) > 3 {
		hits = hits[:3]
	}
	return strings.Join(hits, ", ")
}

func readFrontMatter(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, err
	}
	header, _ := splitFrontMatter(string(data))

	var fm frontMatter
	if header != "" {
		if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
			return Meta{}, err
		}
	}
	return Meta{
		Description: strings.TrimSpace(fm.Description),
		Tags:        toStringList(fm.Tags),
	}, nil
}

// metaAliases re-reads the aliases field of a skill file; alias resolution
// failures are silently ignored.
func metaAliases(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	header, _ := splitFrontMatter(string(data))
	var fm frontMatter
	if yaml.Unmarshal([]byte(header), &fm) != nil {
		return nil
	}
	var out []string
	for _, a := range toStringList(fm.Aliases) {
		if n := normalize(a); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// splitFrontMatter separates a "---" delimited YAML header from the body.
func splitFrontMatter(text string) (header, body string) {
	if !strings.HasPrefix(text, "---\n") {
		return "", text
	}
	rest := text[4:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", text
	}
	header = rest[:idx]
	body = rest[idx+4:]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return header, body
}

func toStringList(v any) []string {
	switch val := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

func normalize(raw string) string {
	n := strings.ToLower(strings.TrimSpace(raw))
	n = strings.TrimSuffix(n, ".md")
	n = strings.ReplaceAll(n, "_", "-")
	var sb strings.Builder
	for _, r := range n {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	out := strings.Trim(sb.String(), "-")
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
