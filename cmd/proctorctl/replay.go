package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/proctor/internal/config"
	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/proctor"
	"github.com/JaimeStill/proctor/internal/textanalysis"
)

const (
	finishSubmit   = "submit"
	finishFinalize = "finalize"
)

// Scenario is a recorded session timeline. Step offsets are relative to the
// moment permission was granted.
type Scenario struct {
	SessionID uuid.UUID     `yaml:"session_id"`
	ExamID    string        `yaml:"exam_id"`
	Questions []string      `yaml:"questions"`
	Budget    time.Duration `yaml:"budget"`
	Start     time.Time     `yaml:"start"`
	Finish    string        `yaml:"finish"`
	Steps     []Step        `yaml:"steps"`
}

// Step applies its observations at offset At, Repeat times, Every apart.
type Step struct {
	At      time.Duration               `yaml:"at"`
	Repeat  int                         `yaml:"repeat"`
	Every   time.Duration               `yaml:"every"`
	Face    *detection.FaceObservation  `yaml:"face"`
	NoFace  bool                        `yaml:"no_face"`
	Objects []detection.ObjectDetection `yaml:"objects"`
	Hidden  *bool                       `yaml:"hidden"`
	Answer  *ScriptedAnswer             `yaml:"answer"`
}

// ScriptedAnswer is an answer update. Verdict, when present, replaces the
// heuristic screening result for this answer.
type ScriptedAnswer struct {
	Question string                 `yaml:"question"`
	Response string                 `yaml:"response"`
	Tests    []proctor.TestResult   `yaml:"tests"`
	Verdict  *detection.TextVerdict `yaml:"verdict"`
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	if sc.ExamID == "" {
		sc.ExamID = "replay"
	}
	if sc.Budget == 0 {
		sc.Budget = time.Hour
	}
	if sc.Start.IsZero() {
		sc.Start = time.Now().UTC().Truncate(time.Second)
	}
	if sc.Finish == "" {
		sc.Finish = finishFinalize
	}
	if sc.Finish != finishSubmit && sc.Finish != finishFinalize {
		return nil, fmt.Errorf("finish must be %q or %q, got %q", finishSubmit, finishFinalize, sc.Finish)
	}

	var last time.Duration
	for i := range sc.Steps {
		st := &sc.Steps[i]
		if st.At < last {
			return nil, fmt.Errorf("step %d: offset %s precedes previous step", i, st.At)
		}
		if st.Repeat == 0 {
			st.Repeat = 1
		}
		if st.Repeat > 1 && st.Every <= 0 {
			return nil, fmt.Errorf("step %d: repeat requires a positive every", i)
		}
		if st.Face != nil && st.NoFace {
			return nil, fmt.Errorf("step %d: face and no_face are exclusive", i)
		}
		last = st.At + time.Duration(st.Repeat-1)*st.Every
	}

	return &sc, nil
}

// Replay runs the scenario through a session driven by a simulated clock and
// returns the final report. Offsets past the budget finalize the session as
// a time expiry would.
func Replay(ctx context.Context, sc *Scenario, cfg detection.Config, logger *slog.Logger) (*proctor.Report, error) {
	clock := &fakeClock{now: sc.Start}
	text, err := newScriptedText(logger)
	if err != nil {
		return nil, err
	}

	session, err := proctor.New(proctor.Options{
		ID:        sc.SessionID,
		ExamID:    sc.ExamID,
		Questions: sc.Questions,
		Budget:    sc.Budget,
	}, cfg, proctor.Deps{
		Text:   text,
		Logger: logger,
		Now:    clock.Now,
	})
	if err != nil {
		return nil, err
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := session.GrantPermission(ctx, true); err != nil {
		return nil, err
	}

	for _, st := range sc.Steps {
		for n := range st.Repeat {
			offset := st.At + time.Duration(n)*st.Every
			if offset > sc.Budget {
				clock.Set(sc.Start.Add(sc.Budget))
				return session.Finalize()
			}
			clock.Set(sc.Start.Add(offset))
			if err := apply(ctx, session, text, st); err != nil {
				return nil, fmt.Errorf("at %s: %w", offset, err)
			}
		}
	}

	if sc.Finish == finishSubmit {
		report, err := session.Submit()
		if !errors.Is(err, proctor.ErrUnanswered) {
			return report, err
		}
		logger.Warn("submission refused, finalizing", "error", err)
	}
	return session.Finalize()
}

func apply(ctx context.Context, s *proctor.Session, text *scriptedText, st Step) error {
	switch {
	case st.Face != nil:
		s.ObserveFace(*st.Face)
	case st.NoFace:
		s.ObserveFace(detection.FaceObservation{})
	}
	if st.Objects != nil {
		s.ObserveObjects(st.Objects)
	}
	if st.Hidden != nil {
		if _, err := s.ReportVisibility(*st.Hidden); err != nil {
			return err
		}
	}
	if a := st.Answer; a != nil {
		text.next(a.Verdict)
		_, err := s.UpdateAnswer(ctx, proctor.Answer{
			QuestionID:  a.Question,
			Response:    a.Response,
			TestResults: a.Tests,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// scriptedText returns a queued verdict once, then falls back to heuristics.
type scriptedText struct {
	mu        sync.Mutex
	queued    *detection.TextVerdict
	heuristic *textanalysis.Analyzer
}

func newScriptedText(logger *slog.Logger) (*scriptedText, error) {
	cfg := textanalysis.Config{Mode: textanalysis.ModeHeuristic}
	if err := cfg.Finalize(nil); err != nil {
		return nil, err
	}
	return &scriptedText{heuristic: textanalysis.New(cfg, nil, logger)}, nil
}

func (t *scriptedText) next(v *detection.TextVerdict) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queued = v
}

func (t *scriptedText) Screen(ctx context.Context, text string) detection.TextVerdict {
	t.mu.Lock()
	v := t.queued
	t.queued = nil
	t.mu.Unlock()

	if v != nil {
		return *v
	}
	return t.heuristic.Screen(ctx, text)
}

func newReplayCmd(configPath *string) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "replay SCENARIO",
		Short: "Run a recorded observation timeline and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDetection(*configPath)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			sc, err := ParseScenario(f)
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			report, err := Replay(cmd.Context(), sc, *cfg, logger)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log session activity to stderr")
	return cmd
}
