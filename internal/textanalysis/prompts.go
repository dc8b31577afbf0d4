package textanalysis

import (
	"fmt"
	"slices"
)

// Stage identifies one LLM call of the screening workflow.
type Stage string

const (
	StageAI         Stage = "ai"
	StagePlagiarism Stage = "plagiarism"
)

var stages = []Stage{StageAI, StagePlagiarism}

// Stages returns the screening stages in execution order.
func Stages() []Stage {
	return stages
}

// ParseStage validates a string as a known stage.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}

const aiInstructions = `Analyze this text for signs of AI generation. Consider:
1. Repetitive patterns
2. Unnatural language structures
3. Consistent writing style
4. Technical accuracy without human errors
5. Lack of personal perspective
6. Overly formal or mechanical tone
7. Perfect grammar and punctuation
8. Generic examples and explanations

Based on these factors, is this text likely AI-generated? Respond with only "true" or "false".`

const plagiarismInstructions = `You are a plagiarism detection system. Analyze the following text for potential plagiarism and respond ONLY with a valid JSON object in this exact format: {"isPlagiarized":false,"similarity":0.0} where isPlagiarized is a boolean and similarity is a number between 0 and 1.`

// DefaultInstructions returns the built-in instructions for stage.
func DefaultInstructions(stage Stage) string {
	switch stage {
	case StageAI:
		return aiInstructions
	case StagePlagiarism:
		return plagiarismInstructions
	}
	return ""
}

// composePrompt appends the candidate text to the stage instructions.
func composePrompt(instructions, text string) string {
	return fmt.Sprintf("%s\n\nText to analyze:\n%q", instructions, text)
}
