package textanalysis

import "errors"

var (
	// ErrInvalidStage indicates an unknown screening stage.
	ErrInvalidStage = errors.New("invalid screening stage")
	// ErrInvalidVerdict indicates an LLM plagiarism answer with a missing or
	// out-of-range field.
	ErrInvalidVerdict = errors.New("invalid plagiarism verdict")
)
