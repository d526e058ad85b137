package extraction

import "strings"

// SplitLines splits raw OCR text into trimmed, non-empty lines
func SplitLines(raw string) []string {
	lines := make([]string, 0, strings.Count(raw, "\n")+1)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// rule is one matching strategy. It reports false when it does not apply.
type rule[T any] func(in T) (string, bool)

// firstMatch runs rules in order and returns the first successful value
func firstMatch[T any](in T, rules []rule[T]) (string, bool) {
	for _, r := range rules {
		if v, ok := r(in); ok {
			return v, true
		}
	}
	return "", false
}

// document is the input shared by whole-text strategies
type document struct {
	text  string
	lines []string
}
