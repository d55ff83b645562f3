// Package loader fetches the address and domain patterns used by list evaluators.
package loader

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Loader is one source of patterns: a file, a Redis key or an HTTP endpoint.
type Loader interface {
	Patterns(ctx context.Context) ([]string, error)
	Close() error
}

// Patterns returns the patterns of l, a nil Loader has none.
func Patterns(ctx context.Context, l Loader) ([]string, error) {
	if l == nil {
		return nil, nil
	}
	return l.Patterns(ctx)
}

// scanPatterns reads one pattern per line. Text after '#' and blank lines are ignored.
func scanPatterns(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if p := trimPattern(scanner.Text()); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns, scanner.Err()
}

func cleanPatterns(items []string) []string {
	var patterns []string
	for _, item := range items {
		if p := trimPattern(item); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func trimPattern(s string) string {
	if n := strings.IndexByte(s, '#'); n >= 0 {
		s = s[:n]
	}
	return strings.TrimSpace(s)
}
