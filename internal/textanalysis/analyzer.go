// Package textanalysis screens free-text answers for AI origin and
// plagiarism. Screening runs as a small state graph:
// ai → plagiarism → (fallback when the verdict is unstructured) → verdict.
// Every failure degrades to a not-flagged result.
package textanalysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/proctor/internal/detection"
)

const (
	keyText       = "text"
	keyAI         = "ai_content"
	keyPlagiarism = "plagiarism"
	keyRaw        = "plagiarism_raw"
	keyStructured = "plagiarism_structured"
)

// Analyzer implements proctor.TextAnalyzer. A nil Completer or heuristic
// mode limits screening to the stylistic heuristics.
type Analyzer struct {
	cfg       Config
	completer Completer
	logger    *slog.Logger
}

// New creates an Analyzer from a finalized Config.
func New(cfg Config, completer Completer, logger *slog.Logger) *Analyzer {
	if cfg.Mode == ModeHeuristic {
		completer = nil
	}
	return &Analyzer{
		cfg:       cfg,
		completer: completer,
		logger:    logger.With("system", "textanalysis"),
	}
}

// DetectAI reports whether text is likely AI-generated. With a model
// available the answer is the model's "true" or a heuristic score at the
// configured threshold; a failed model call yields false.
func (a *Analyzer) DetectAI(ctx context.Context, text string) bool {
	score := HeuristicScore(text)
	if a.completer == nil {
		return score >= a.cfg.HeuristicThreshold
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.TimeoutDuration())
	defer cancel()

	out, err := a.completer.Complete(ctx, composePrompt(a.cfg.InstructionsFor(StageAI), text))
	if err != nil {
		a.logger.Warn("ai content check failed", "error", err)
		return false
	}

	return strings.ToLower(strings.TrimSpace(out)) == "true" || score >= a.cfg.HeuristicThreshold
}

// CheckPlagiarism asks the model for a plagiarism verdict. Without a model,
// or when the call fails, the answer is not flagged.
func (a *Analyzer) CheckPlagiarism(ctx context.Context, text string) detection.PlagiarismResult {
	raw, ok := a.plagiarismRaw(ctx, text)
	if !ok {
		return detection.PlagiarismResult{}
	}
	if r, err := ParsePlagiarism(raw); err == nil {
		return r
	}
	return FallbackPlagiarism(raw)
}

// Screen runs both checks through the screening graph.
func (a *Analyzer) Screen(ctx context.Context, text string) detection.TextVerdict {
	graph, err := a.buildGraph()
	if err != nil {
		a.logger.Error("build screening graph failed", "error", err)
		return detection.TextVerdict{}
	}

	initial := state.New(nil)
	initial = initial.Set(keyText, text)

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		a.logger.Warn("screening failed", "error", err)
		return detection.TextVerdict{}
	}

	var v detection.TextVerdict
	if val, ok := final.Get(keyAI); ok {
		v.AIContent, _ = val.(bool)
	}
	if val, ok := final.Get(keyPlagiarism); ok {
		v.Plagiarism, _ = val.(detection.PlagiarismResult)
	}

	a.logger.Debug(
		"answer screened",
		"ai_content", v.AIContent,
		"plagiarism", v.Plagiarism.Flagged,
		"similarity", v.Plagiarism.Similarity,
	)
	return v
}

func (a *Analyzer) plagiarismRaw(ctx context.Context, text string) (string, bool) {
	if a.completer == nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.TimeoutDuration())
	defer cancel()

	out, err := a.completer.Complete(ctx, composePrompt(a.cfg.InstructionsFor(StagePlagiarism), text))
	if err != nil {
		a.logger.Warn("plagiarism check failed", "error", err)
		return "", false
	}
	return strings.TrimSpace(out), true
}

func (a *Analyzer) buildGraph() (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("proctor-screen")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := []struct {
		name string
		node state.StateNode
	}{
		{"ai", a.aiNode()},
		{"plagiarism", a.plagiarismNode()},
		{"fallback", fallbackNode()},
		{"verdict", verdictNode()},
	}
	for _, n := range nodes {
		if err := graph.AddNode(n.name, n.node); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.name, err)
		}
	}

	if err := graph.AddEdge("ai", "plagiarism", nil); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("plagiarism", "verdict", structured); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("plagiarism", "fallback", state.Not(structured)); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("fallback", "verdict", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("ai"); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint("verdict"); err != nil {
		return nil, err
	}

	return graph, nil
}

func (a *Analyzer) aiNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		return s.Set(keyAI, a.DetectAI(ctx, textOf(s))), nil
	})
}

func (a *Analyzer) plagiarismNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		raw, ok := a.plagiarismRaw(ctx, textOf(s))
		if !ok {
			s = s.Set(keyPlagiarism, detection.PlagiarismResult{})
			return s.Set(keyStructured, true), nil
		}

		s = s.Set(keyRaw, raw)
		r, err := ParsePlagiarism(raw)
		if err != nil {
			a.logger.Debug("unstructured plagiarism verdict", "error", err)
			return s.Set(keyStructured, false), nil
		}

		s = s.Set(keyPlagiarism, r)
		return s.Set(keyStructured, true), nil
	})
}

func fallbackNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		raw := ""
		if val, ok := s.Get(keyRaw); ok {
			raw, _ = val.(string)
		}
		return s.Set(keyPlagiarism, FallbackPlagiarism(raw)), nil
	})
}

func verdictNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		return s, nil
	})
}

func structured(s state.State) bool {
	val, ok := s.Get(keyStructured)
	if !ok {
		return false
	}
	b, _ := val.(bool)
	return b
}

func textOf(s state.State) string {
	val, ok := s.Get(keyText)
	if !ok {
		return ""
	}
	t, _ := val.(string)
	return t
}
