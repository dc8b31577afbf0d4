package textanalysis_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/textanalysis"
)

type fakeCompleter struct {
	mu      sync.Mutex
	ai      string
	plag    string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "plagiarism detection system") {
		return f.plag, nil
	}
	return f.ai, nil
}

func newAnalyzer(t *testing.T, c textanalysis.Completer, mode string) *textanalysis.Analyzer {
	t.Helper()
	cfg := textanalysis.Config{Mode: mode}
	require.NoError(t, cfg.Finalize(nil))
	return textanalysis.New(cfg, c, slog.New(slog.DiscardHandler))
}

const humanAnswer = "I think the loop should stop at n minus one because the last index is out of range."

func TestHeuristicScore(t *testing.T) {
	long := strings.Repeat("word ", 60)
	uniform := "Aaaa. Bbbb. Cccc. Dddd. Eeee. Ffff."
	formal := "The function is pure. Therefore it can be memoized safely."
	repetitive := strings.Repeat("the same thing ", 40)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"short human answer", humanAnswer, 0},
		{"long without hedging", long, 1},
		{"long with hedging", "I believe " + long, 0},
		{"uniform sentences", uniform, 1},
		{"formal connective in short text", formal, 1},
		{"small vocabulary in long text", repetitive, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textanalysis.HeuristicScore(tt.text))
		})
	}
}

func TestDetectAI(t *testing.T) {
	t.Run("model says true", func(t *testing.T) {
		a := newAnalyzer(t, &fakeCompleter{ai: " TRUE \n"}, textanalysis.ModeAgent)
		assert.True(t, a.DetectAI(context.Background(), humanAnswer))
	})

	t.Run("model says false and heuristics low", func(t *testing.T) {
		a := newAnalyzer(t, &fakeCompleter{ai: "false"}, textanalysis.ModeAgent)
		assert.False(t, a.DetectAI(context.Background(), humanAnswer))
	})

	t.Run("model says false and heuristics high", func(t *testing.T) {
		a := newAnalyzer(t, &fakeCompleter{ai: "false"}, textanalysis.ModeAgent)
		assert.True(t, a.DetectAI(context.Background(), strings.Repeat("the same thing ", 40)))
	})

	t.Run("model failure yields false", func(t *testing.T) {
		a := newAnalyzer(t, &fakeCompleter{err: errors.New("quota")}, textanalysis.ModeAgent)
		assert.False(t, a.DetectAI(context.Background(), strings.Repeat("the same thing ", 40)))
	})

	t.Run("heuristic mode ignores completer", func(t *testing.T) {
		c := &fakeCompleter{ai: "true"}
		a := newAnalyzer(t, c, textanalysis.ModeHeuristic)
		assert.False(t, a.DetectAI(context.Background(), humanAnswer))
		assert.True(t, a.DetectAI(context.Background(), strings.Repeat("the same thing ", 40)))
		assert.Empty(t, c.prompts)
	})
}

func TestParsePlagiarism(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    detection.PlagiarismResult
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"isPlagiarized":true,"similarity":0.72}`,
			want:    detection.PlagiarismResult{Flagged: true, Similarity: 0.72},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"isPlagiarized\":false,\"similarity\":0.1}\n```",
			want:    detection.PlagiarismResult{Similarity: 0.1},
		},
		{
			name:    "json with prose around it",
			content: `Here is the result: {"isPlagiarized":true,"similarity":0.9} Hope this helps.`,
			want:    detection.PlagiarismResult{Flagged: true, Similarity: 0.9},
		},
		{name: "missing similarity", content: `{"isPlagiarized":true}`, wantErr: true},
		{name: "similarity out of range", content: `{"isPlagiarized":true,"similarity":4}`, wantErr: true},
		{name: "prose only", content: "This looks copied.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := textanalysis.ParsePlagiarism(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackPlagiarism(t *testing.T) {
	tests := []struct {
		content string
		want    detection.PlagiarismResult
	}{
		{"The text appears plagiarized with high similarity.", detection.PlagiarismResult{Flagged: true, Similarity: 0.8}},
		{"Portions were copied; moderate similarity.", detection.PlagiarismResult{Flagged: true, Similarity: 0.5}},
		{"Original work, low similarity.", detection.PlagiarismResult{Similarity: 0.2}},
		{"No opinion.", detection.PlagiarismResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, textanalysis.FallbackPlagiarism(tt.content))
		})
	}
}

func TestScreen(t *testing.T) {
	t.Run("structured verdict", func(t *testing.T) {
		c := &fakeCompleter{ai: "true", plag: `{"isPlagiarized":true,"similarity":0.66}`}
		a := newAnalyzer(t, c, textanalysis.ModeAgent)

		v := a.Screen(context.Background(), humanAnswer)
		assert.True(t, v.AIContent)
		assert.Equal(t, detection.PlagiarismResult{Flagged: true, Similarity: 0.66}, v.Plagiarism)
		assert.Len(t, c.prompts, 2)
		assert.Contains(t, c.prompts[0], humanAnswer)
	})

	t.Run("unstructured verdict takes fallback", func(t *testing.T) {
		c := &fakeCompleter{ai: "false", plag: "Likely copied from a tutorial, high similarity."}
		a := newAnalyzer(t, c, textanalysis.ModeAgent)

		v := a.Screen(context.Background(), humanAnswer)
		assert.False(t, v.AIContent)
		assert.Equal(t, detection.PlagiarismResult{Flagged: true, Similarity: 0.8}, v.Plagiarism)
	})

	t.Run("model failure is not flagged", func(t *testing.T) {
		a := newAnalyzer(t, &fakeCompleter{err: errors.New("unavailable")}, textanalysis.ModeAgent)

		v := a.Screen(context.Background(), humanAnswer)
		assert.Equal(t, detection.TextVerdict{}, v)
	})

	t.Run("no completer", func(t *testing.T) {
		a := newAnalyzer(t, nil, textanalysis.ModeAgent)

		v := a.Screen(context.Background(), strings.Repeat("the same thing ", 40))
		assert.True(t, v.AIContent)
		assert.False(t, v.Plagiarism.Flagged)
	})
}

func TestConfig(t *testing.T) {
	var cfg textanalysis.Config
	require.NoError(t, cfg.Finalize(nil))
	assert.Equal(t, textanalysis.ModeAgent, cfg.Mode)
	assert.Equal(t, 2, cfg.HeuristicThreshold)
	assert.Contains(t, cfg.InstructionsFor(textanalysis.StageAI), `"true" or "false"`)

	cfg.Merge(&textanalysis.Config{Instructions: map[string]string{"plagiarism": "custom"}})
	assert.Equal(t, "custom", cfg.InstructionsFor(textanalysis.StagePlagiarism))

	bad := textanalysis.Config{Mode: "oracle"}
	assert.Error(t, bad.Finalize(nil))

	bad = textanalysis.Config{Instructions: map[string]string{"grading": "x"}}
	assert.ErrorIs(t, bad.Finalize(nil), textanalysis.ErrInvalidStage)
}
