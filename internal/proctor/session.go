// Package proctor runs the monitoring side of a live exam session: the
// permission gate, periodic detector sampling, the warning log and
// counters, and the one-time finalization into a report.
package proctor

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/proctor/internal/detection"
)

// Options describe a session at creation time.
type Options struct {
	ID        uuid.UUID
	ExamID    string
	Questions []string
	Budget    time.Duration
}

// Session is the session-scoped monitoring context. All methods are safe for
// concurrent use.
type Session struct {
	id        uuid.UUID
	examID    string
	questions []string
	budget    time.Duration

	cfg        detection.Config
	deps       Deps
	logger     *slog.Logger
	now        func() time.Time
	classifier *detection.Classifier

	faceMu   sync.Mutex
	objectMu sync.Mutex

	frameMu sync.RWMutex
	frame   []byte

	mu          sync.Mutex
	state       State
	phase       Phase
	startedAt   time.Time
	completedAt time.Time
	warnings    []Warning
	counts      detection.Counts
	detected    []DetectedObject
	answers     map[string]Answer
	aiDetected  bool
	report      *Report
	cancel      context.CancelFunc
	expiry      *time.Timer
	done        chan struct{}

	onComplete func(uuid.UUID)
}

// New creates a session in the not-started state.
func New(opts Options, cfg detection.Config, deps Deps) (*Session, error) {
	if len(opts.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if opts.Budget <= 0 {
		return nil, ErrInvalidBudget
	}

	classifier, err := detection.NewClassifier(cfg)
	if err != nil {
		return nil, err
	}

	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}

	deps = deps.withDefaults()

	return &Session{
		id:         opts.ID,
		examID:     opts.ExamID,
		questions:  slices.Clone(opts.Questions),
		budget:     opts.Budget,
		cfg:        cfg,
		deps:       deps,
		logger:     deps.Logger.With("session", opts.ID),
		now:        deps.Now,
		classifier: classifier,
		state:      StateNotStarted,
		phase:      PhaseIdle,
		counts:     detection.Counts{},
		answers:    make(map[string]Answer, len(opts.Questions)),
		done:       make(chan struct{}),
	}, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) ExamID() string { return s.examID }

// GrantPermission resolves the webcam permission gate. A refusal leaves the
// session not started so the candidate can retry. A grant moves the session
// to in progress and starts sampling and the time budget; parent bounds the
// lifetime of the sampling goroutines.
func (s *Session) GrantPermission(parent context.Context, granted bool) error {
	s.mu.Lock()
	if s.state != StateNotStarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if s.phase == PhaseDone {
		s.mu.Unlock()
		return ErrNotActive
	}
	if !granted {
		s.mu.Unlock()
		s.logger.Warn("webcam permission denied")
		return ErrCameraDenied
	}

	ctx, cancel := context.WithCancel(parent)
	s.state = StateInProgress
	s.phase = PhaseSampling
	s.startedAt = s.now()
	s.cancel = cancel
	s.expiry = time.AfterFunc(s.budget, s.expire)
	s.mu.Unlock()

	s.deps.Metrics.Transition(StateInProgress)
	s.logger.Info("session started", "exam", s.examID, "budget", s.budget)

	go s.sample(ctx)
	return nil
}

// PushFrame replaces the frame the samplers read on their next tick.
func (s *Session) PushFrame(frame []byte) error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	if !s.Active() {
		return ErrNotActive
	}
	s.frame = slices.Clone(frame)
	return nil
}

// ReportVisibility records a tab switch when the page became hidden.
func (s *Session) ReportVisibility(hidden bool) ([]detection.Event, error) {
	if !s.Active() {
		return nil, ErrNotActive
	}
	if !hidden {
		return nil, nil
	}
	return s.record(detection.TabSwitchEvent(s.now())), nil
}

// UpdateAnswer stores the candidate's response to a question. Responses
// longer than the configured minimum are screened for AI origin and
// plagiarism; any resulting events are returned.
func (s *Session) UpdateAnswer(ctx context.Context, answer Answer) ([]detection.Event, error) {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	if !slices.Contains(s.questions, answer.QuestionID) {
		s.mu.Unlock()
		return nil, ErrUnknownQuestion
	}
	answer.TestResults = slices.Clone(answer.TestResults)
	s.answers[answer.QuestionID] = answer
	s.mu.Unlock()

	if utf8.RuneCountInString(answer.Response) <= s.cfg.TextMinLength {
		return nil, nil
	}

	verdict := s.deps.Text.Screen(ctx, answer.Response)
	return s.record(s.classifier.Text(verdict, s.now())...), nil
}

// Submit finalizes the session on the candidate's request. Blank answers
// refuse the submission and add a warning to the log.
func (s *Session) Submit() (*Report, error) {
	s.mu.Lock()
	if s.report != nil {
		r := s.report
		s.mu.Unlock()
		return r, nil
	}
	if s.state != StateInProgress {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	if s.unansweredLocked() {
		s.warnings = append(s.warnings, Warning{Message: ErrUnanswered.Error(), At: s.now()})
		s.mu.Unlock()
		return nil, ErrUnanswered
	}
	s.mu.Unlock()

	return s.finalize(false)
}

// Finalize completes the session regardless of blank answers. It is used by
// time expiry and forced completion. Calls after the first return the same
// report.
func (s *Session) Finalize() (*Report, error) {
	return s.finalize(true)
}

// Close cancels sampling without producing a report and waits for the
// sampling loops to return. A closed not-started session can no longer be
// granted permission.
func (s *Session) Close() {
	s.mu.Lock()
	switch s.phase {
	case PhaseIdle:
		s.phase = PhaseDone
		s.mu.Unlock()
		return
	case PhaseSampling:
		s.phase = PhaseDone
		s.stopLocked()
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		return
	}

	<-s.done
	s.dropFrame()
	s.logger.Info("session closed before completion")
}

// Done is closed once both sampling loops have returned. It never closes for
// a session that was not started.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Active reports whether the session is sampling.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Warnings returns the full warning log.
func (s *Session) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Warning{}, s.warnings...)
}

// RecentWarnings returns the most recent warnings for display.
func (s *Session) RecentWarnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentLocked()
}

// Counts returns a copy of the per-kind counters.
func (s *Session) Counts() detection.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts.Clone()
}

// Report returns the frozen report once the session is completed.
func (s *Session) Report() (*Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.report != nil
}

// Status returns a point-in-time view of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:       s.id,
		ExamID:   s.examID,
		State:    s.state,
		Phase:    s.phase,
		Counts:   s.counts.Clone(),
		Recent:   s.recentLocked(),
		TimeLeft: int64(s.budget.Seconds()),
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		st.StartedAt = &started
		end := s.now()
		if !s.completedAt.IsZero() {
			end = s.completedAt
		}
		st.TimeLeft = int64(max(s.budget-end.Sub(s.startedAt), 0).Seconds())
	}
	if !s.completedAt.IsZero() {
		completed := s.completedAt
		st.CompletedAt = &completed
	}
	return st
}

func (s *Session) record(events ...detection.Event) []detection.Event {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	if !s.activeLocked() {
		s.mu.Unlock()
		return nil
	}
	for _, e := range events {
		s.warnings = append(s.warnings, Warning{Kind: e.Kind, Message: e.Message, At: e.At})
		s.counts.Add(e.Kind)

		switch e.Kind {
		case detection.KindProhibitedObject:
			d := DetectedObject{Label: e.Label, At: e.At}
			if e.Confidence != nil {
				d.Confidence = *e.Confidence
			}
			s.detected = append(s.detected, d)
		case detection.KindAIContent:
			s.aiDetected = true
		}
	}
	s.mu.Unlock()

	for _, e := range events {
		s.deps.Metrics.Violation(e.Kind)
		s.deps.Notifier.Violation(s.id, e)
	}
	return events
}

func (s *Session) finalize(forced bool) (*Report, error) {
	s.mu.Lock()
	if s.report != nil {
		r := s.report
		s.mu.Unlock()
		return r, nil
	}
	if s.state != StateInProgress || s.phase != PhaseSampling {
		s.mu.Unlock()
		return nil, ErrNotActive
	}

	s.phase = PhaseFinalizing
	s.stopLocked()

	now := s.now()
	s.state = StateCompleted
	s.completedAt = now
	s.report = s.buildReportLocked(now, forced)
	s.phase = PhaseDone
	report := s.report
	s.mu.Unlock()

	<-s.done
	s.dropFrame()

	s.deps.Metrics.Transition(StateCompleted)
	s.logger.Info(
		"session completed",
		"forced", forced,
		"total_time", report.TotalTime,
		"warnings", len(report.Warnings),
	)
	s.deps.Notifier.Completed(report)
	if s.onComplete != nil {
		s.onComplete(s.id)
	}

	return report, nil
}

func (s *Session) expire() {
	if _, err := s.finalize(true); err == nil {
		s.logger.Info("time budget exhausted")
	}
}

func (s *Session) buildReportLocked(now time.Time, forced bool) *Report {
	answers := make([]Answer, 0, len(s.questions))
	for _, q := range s.questions {
		a, ok := s.answers[q]
		if !ok {
			a = Answer{QuestionID: q}
		}
		if a.TestResults == nil {
			a.TestResults = []TestResult{}
		}
		answers = append(answers, a)
	}

	elapsed := min(now.Sub(s.startedAt), s.budget)
	counts := s.counts.Clone()

	return &Report{
		SessionID:       s.id,
		ExamID:          s.examID,
		Anomalies:       detection.Aggregate(counts, s.aiDetected, now),
		Warnings:        append([]Warning{}, s.warnings...),
		Counts:          counts,
		DetectedObjects: append([]DetectedObject{}, s.detected...),
		Answers:         answers,
		AIDetected:      s.aiDetected,
		HighRisk:        detection.HighRisk(counts, s.aiDetected, now),
		TotalTime:       int64(elapsed.Seconds()),
		StartedAt:       s.startedAt,
		CompletedAt:     now,
		Forced:          forced,
	}
}

func (s *Session) activeLocked() bool {
	return s.state == StateInProgress && s.phase == PhaseSampling
}

// discardPending closes a session that never left the permission gate.
func (s *Session) discardPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted || s.phase == PhaseDone {
		return false
	}
	s.phase = PhaseDone
	return true
}

func (s *Session) dropFrame() {
	s.frameMu.Lock()
	s.frame = nil
	s.frameMu.Unlock()
}

func (s *Session) stopLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.expiry != nil {
		s.expiry.Stop()
	}
}

func (s *Session) unansweredLocked() bool {
	for _, q := range s.questions {
		a, ok := s.answers[q]
		if !ok || isBlank(a.Response) {
			return true
		}
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func (s *Session) recentLocked() []Warning {
	n := len(s.warnings)
	from := max(n-s.cfg.RecentWarnings, 0)
	return append([]Warning{}, s.warnings[from:]...)
}

func (s *Session) latestFrame() []byte {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.frame
}
