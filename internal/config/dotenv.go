package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotenv reads a .env file and exports every entry that is not already
// present in the environment, so real environment variables always win.
// A missing file is not an error.
func LoadDotenv(path string) error {
	entries, err := parseDotenv(path)
	if err != nil {
		return err
	}
	for key, value := range entries {
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

// parseDotenv understands the common .env dialect: KEY=VALUE pairs, blank
// lines, full-line comments, an optional "export " prefix, and single or
// double quoted values. Unquoted values lose trailing inline comments.
func parseDotenv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	entries := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		entries[key] = parseValue(strings.TrimSpace(raw))
	}
	return entries, scanner.Err()
}

func parseValue(raw string) string {
	if len(raw) >= 2 {
		if (raw[0] == '"' && raw[len(raw)-1] == '"') || (raw[0] == '\'' && raw[len(raw)-1] == '\'') {
			return raw[1 : len(raw)-1]
		}
	}
	// Inline comments only apply to unquoted values.
	if i := strings.Index(raw, " #"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw
}
