package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/proctor/internal/detection"
)

const scenario = `
session_id: 6f1c2a8e-3b7d-4e59-9a0c-2d4f8b1e7a63
exam_id: exam-7
questions: [q1, q2]
budget: 30m
start: 2026-03-02T09:00:00Z
finish: submit
steps:
  - at: 0s
    face: {present: true, box: {x: 0.5, y: 0.4, width: 0.3, height: 0.4}}
  - at: 1s
    no_face: true
  - at: 1500ms
    repeat: 3
    every: 1500ms
    objects:
      - {label: cell phone, confidence: 0.9}
  - at: 6s
    hidden: true
  - at: 7s
    hidden: true
  - at: 10s
    answer:
      question: q1
      response: "The algorithm iterates over the list and keeps a running maximum."
      tests:
        - {name: sample, passed: true}
      verdict: {ai_content: true}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestReplay(t *testing.T) {
	sc, err := ParseScenario(strings.NewReader(scenario))
	require.NoError(t, err)

	report, err := Replay(context.Background(), sc, detection.DefaultConfig(), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "6f1c2a8e-3b7d-4e59-9a0c-2d4f8b1e7a63", report.SessionID.String())
	assert.Equal(t, "exam-7", report.ExamID)
	assert.True(t, report.Forced, "blank q2 refuses submission")
	assert.Equal(t, int64(10), report.TotalTime)
	assert.True(t, report.AIDetected)

	assert.Equal(t, 1, report.Counts[detection.KindFaceLost])
	assert.Equal(t, 3, report.Counts[detection.KindProhibitedObject])
	assert.Equal(t, 1, report.Counts[detection.KindPhoneUsage])
	assert.Equal(t, 2, report.Counts[detection.KindTabSwitch])
	assert.Equal(t, 1, report.Counts[detection.KindAIContent])

	require.Len(t, report.DetectedObjects, 3)
	assert.Equal(t, "cell phone", report.DetectedObjects[0].Label)
	require.Len(t, report.Answers, 2)
	assert.Len(t, report.Answers[0].TestResults, 1)
	require.NotNil(t, report.HighRisk)
}

func TestReplayBudgetExpiry(t *testing.T) {
	sc, err := ParseScenario(strings.NewReader(`
questions: [q1]
budget: 5s
start: 2026-03-02T09:00:00Z
steps:
  - at: 1s
    hidden: true
  - at: 4s
    repeat: 3
    every: 1s
    hidden: true
`))
	require.NoError(t, err)

	report, err := Replay(context.Background(), sc, detection.DefaultConfig(), quietLogger())
	require.NoError(t, err)

	assert.True(t, report.Forced)
	assert.Equal(t, int64(5), report.TotalTime)
	assert.Equal(t, 3, report.Counts[detection.KindTabSwitch], "offsets past the budget are not applied")
	assert.True(t, report.CompletedAt.Equal(time.Date(2026, 3, 2, 9, 0, 5, 0, time.UTC)))
}

func TestParseScenarioInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "questions: [q1]\nsteps:\n  - at: 1s\n    blink: true\n"},
		{"decreasing offsets", "questions: [q1]\nsteps:\n  - at: 2s\n    hidden: true\n  - at: 1s\n    hidden: true\n"},
		{"repeat without every", "questions: [q1]\nsteps:\n  - at: 1s\n    repeat: 2\n    hidden: true\n"},
		{"face and no_face", "questions: [q1]\nsteps:\n  - at: 1s\n    no_face: true\n    face: {present: true}\n"},
		{"bad finish", "questions: [q1]\nfinish: abandon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"replay", "--config", filepath.Join(dir, "absent.toml"), path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"exam_id": "exam-7"`)
	assert.Contains(t, out.String(), `"Tab Switching"`)
}

func TestThresholdsCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[detection.thresholds]\npose_frames = 9\n"), 0o644))

	for _, format := range []string{"toml", "json"} {
		t.Run(format, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"thresholds", "-c", path, "-f", format})

			require.NoError(t, cmd.Execute())
			assert.Contains(t, out.String(), "pose_frames")
			assert.Contains(t, out.String(), "9")
			assert.Contains(t, out.String(), "phone")
		})
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"thresholds", "-c", path, "-f", "xml"})
	assert.Error(t, cmd.Execute())
}
