package textanalysis

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/pkg/formatting"
)

type plagiarismResponse struct {
	IsPlagiarized *bool    `json:"isPlagiarized"`
	Similarity    *float64 `json:"similarity"`
}

// ParsePlagiarism reads a structured plagiarism verdict from model output.
// Text around the outermost JSON object and markdown fences are tolerated.
func ParsePlagiarism(content string) (detection.PlagiarismResult, error) {
	parsed, err := formatting.Parse[plagiarismResponse](content)
	if err != nil {
		return detection.PlagiarismResult{}, err
	}

	if parsed.IsPlagiarized == nil || parsed.Similarity == nil {
		return detection.PlagiarismResult{}, fmt.Errorf("%w: missing field", ErrInvalidVerdict)
	}
	if *parsed.Similarity < 0 || *parsed.Similarity > 1 {
		return detection.PlagiarismResult{}, fmt.Errorf("%w: similarity %v out of range", ErrInvalidVerdict, *parsed.Similarity)
	}

	return detection.PlagiarismResult{
		Flagged:    *parsed.IsPlagiarized,
		Similarity: *parsed.Similarity,
	}, nil
}

// FallbackPlagiarism derives a verdict from free text when the model did not
// answer with the expected JSON.
func FallbackPlagiarism(content string) detection.PlagiarismResult {
	lower := strings.ToLower(content)

	r := detection.PlagiarismResult{
		Flagged: strings.Contains(lower, "plagiarized") || strings.Contains(lower, "copied"),
	}
	switch {
	case strings.Contains(lower, "high similarity"):
		r.Similarity = 0.8
	case strings.Contains(lower, "moderate similarity"):
		r.Similarity = 0.5
	case strings.Contains(lower, "low similarity"):
		r.Similarity = 0.2
	}
	return r
}
