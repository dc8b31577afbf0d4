package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed reports model output that holds no decodable JSON value.
var ErrParseFailed = errors.New("failed to parse response")

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Parse decodes JSON from model output into T. It tries, in order, the whole
// content, the first markdown code fence, and the span from the first "{" to
// the last "}".
func Parse[T any](content string) (T, error) {
	var out T
	content = strings.TrimSpace(content)

	for _, candidate := range candidates(content) {
		if err := json.Unmarshal([]byte(candidate), &out); err == nil {
			return out, nil
		}
		var zero T
		out = zero
	}

	return out, fmt.Errorf("%w: %q", ErrParseFailed, truncate(content, 120))
}

func candidates(content string) []string {
	out := []string{content}
	if m := fenced.FindStringSubmatch(content); m != nil {
		out = append(out, m[1])
	}
	start, end := strings.Index(content, "{"), strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		out = append(out, content[start:end+1])
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
