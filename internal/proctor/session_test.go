package proctor_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/proctor"
)

type faceFunc func(ctx context.Context, frame []byte) (detection.FaceObservation, error)

func (f faceFunc) DetectFace(ctx context.Context, frame []byte) (detection.FaceObservation, error) {
	return f(ctx, frame)
}

type objectFunc func(ctx context.Context, frame []byte) ([]detection.ObjectDetection, error)

func (f objectFunc) DetectObjects(ctx context.Context, frame []byte) ([]detection.ObjectDetection, error) {
	return f(ctx, frame)
}

type fakeText struct {
	mu      sync.Mutex
	calls   int
	verdict detection.TextVerdict
}

func (f *fakeText) Screen(context.Context, string) detection.TextVerdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.verdict
}

func (f *fakeText) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu         sync.Mutex
	violations []detection.Event
	completed  []*proctor.Report
}

func (f *fakeNotifier) Violation(_ uuid.UUID, e detection.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.violations = append(f.violations, e)
}

func (f *fakeNotifier) Completed(r *proctor.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, r)
}

func (f *fakeNotifier) CompletedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.completed)
}

type fakeRecorder struct {
	mu       sync.Mutex
	failures map[string]int
}

func (f *fakeRecorder) Violation(detection.Kind) {}
func (f *fakeRecorder) Transition(proctor.State) {}

func (f *fakeRecorder) DetectorFailure(signal string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = map[string]int{}
	}
	f.failures[signal]++
}

func (f *fakeRecorder) Failures(signal string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[signal]
}

func fastConfig() detection.Config {
	cfg := detection.DefaultConfig()
	cfg.FaceInterval = "5ms"
	cfg.ObjectInterval = "1h"
	return cfg
}

func newSession(t *testing.T, cfg detection.Config, deps proctor.Deps, budget time.Duration) *proctor.Session {
	t.Helper()
	s, err := proctor.New(proctor.Options{
		ExamID:    "exam-1",
		Questions: []string{"q1", "q2"},
		Budget:    budget,
	}, cfg, deps)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func start(t *testing.T, s *proctor.Session) {
	t.Helper()
	require.NoError(t, s.GrantPermission(context.Background(), true))
}

func TestNewValidation(t *testing.T) {
	cfg := detection.DefaultConfig()

	_, err := proctor.New(proctor.Options{Budget: time.Minute}, cfg, proctor.Deps{})
	assert.ErrorIs(t, err, proctor.ErrNoQuestions)

	_, err = proctor.New(proctor.Options{Questions: []string{"q1"}}, cfg, proctor.Deps{})
	assert.ErrorIs(t, err, proctor.ErrInvalidBudget)
}

func TestPermissionGate(t *testing.T) {
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{}, time.Hour)

	err := s.GrantPermission(context.Background(), false)
	assert.ErrorIs(t, err, proctor.ErrCameraDenied)
	assert.Equal(t, proctor.StateNotStarted, s.State())
	assert.False(t, s.Active())

	_, err = s.ReportVisibility(true)
	assert.ErrorIs(t, err, proctor.ErrNotActive)

	start(t, s)
	assert.Equal(t, proctor.StateInProgress, s.State())
	assert.True(t, s.Active())

	err = s.GrantPermission(context.Background(), true)
	assert.ErrorIs(t, err, proctor.ErrAlreadyStarted)
}

func TestTabSwitchAndRecentWarnings(t *testing.T) {
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{}, time.Hour)
	start(t, s)

	events, err := s.ReportVisibility(false)
	require.NoError(t, err)
	assert.Empty(t, events)

	for range 7 {
		events, err := s.ReportVisibility(true)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Tab switching detected", events[0].Message)
	}

	assert.Equal(t, 7, s.Counts()[detection.KindTabSwitch])
	assert.Len(t, s.Warnings(), 7)
	assert.Len(t, s.RecentWarnings(), 5)
	assert.Len(t, s.Status().Recent, 5)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{Notifier: notifier}, time.Hour)
	start(t, s)

	_, err := s.ReportVisibility(true)
	require.NoError(t, err)

	first, err := s.Finalize()
	require.NoError(t, err)
	second, err := s.Finalize()
	require.NoError(t, err)
	third, err := s.Submit()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, third)
	assert.True(t, first.Forced)
	assert.Equal(t, 1, first.Counts[detection.KindTabSwitch])
	assert.Equal(t, 1, notifier.CompletedCount())
	assert.Equal(t, proctor.StateCompleted, s.State())

	_, err = s.ReportVisibility(true)
	assert.ErrorIs(t, err, proctor.ErrNotActive)
	assert.Equal(t, 1, s.Counts()[detection.KindTabSwitch])

	<-s.Done()
}

func TestSubmitRequiresAnswers(t *testing.T) {
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{}, time.Hour)
	start(t, s)

	_, err := s.UpdateAnswer(context.Background(), proctor.Answer{QuestionID: "q1", Response: "x"})
	require.NoError(t, err)
	_, err = s.UpdateAnswer(context.Background(), proctor.Answer{QuestionID: "q2", Response: "   "})
	require.NoError(t, err)

	_, err = s.Submit()
	assert.ErrorIs(t, err, proctor.ErrUnanswered)
	assert.Equal(t, proctor.StateInProgress, s.State())

	warnings := s.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Please answer all questions before submitting", warnings[0].Message)
	assert.Empty(t, s.Counts())

	_, err = s.UpdateAnswer(context.Background(), proctor.Answer{
		QuestionID:  "q2",
		Response:    "y",
		TestResults: []proctor.TestResult{{Name: "case 1", Passed: true}},
	})
	require.NoError(t, err)

	report, err := s.Submit()
	require.NoError(t, err)
	assert.False(t, report.Forced)
	require.Len(t, report.Answers, 2)
	assert.Equal(t, "q1", report.Answers[0].QuestionID)
	assert.Equal(t, "y", report.Answers[1].Response)
	assert.Len(t, report.Answers[1].TestResults, 1)
	assert.NotNil(t, report.Answers[0].TestResults)
}

func TestUpdateAnswerUnknownQuestion(t *testing.T) {
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{}, time.Hour)
	start(t, s)

	_, err := s.UpdateAnswer(context.Background(), proctor.Answer{QuestionID: "q9", Response: "x"})
	assert.ErrorIs(t, err, proctor.ErrUnknownQuestion)
}

func TestTextScreeningGate(t *testing.T) {
	text := &fakeText{verdict: detection.TextVerdict{
		AIContent:  true,
		Plagiarism: detection.PlagiarismResult{Flagged: true, Similarity: 0.8},
	}}
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{Text: text}, time.Hour)
	start(t, s)

	events, err := s.UpdateAnswer(context.Background(), proctor.Answer{
		QuestionID: "q1",
		Response:   strings.Repeat("a", 30),
	})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, text.Calls())

	events, err = s.UpdateAnswer(context.Background(), proctor.Answer{
		QuestionID: "q1",
		Response:   strings.Repeat("a", 31),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, text.Calls())
	require.Len(t, events, 2)
	assert.Equal(t, detection.KindAIContent, events[0].Kind)
	assert.Equal(t, "Plagiarism detected (80% similarity)", events[1].Message)

	report, err := s.Finalize()
	require.NoError(t, err)
	assert.True(t, report.AIDetected)
	assert.NotNil(t, report.HighRisk)
}

func TestTimeExpiryForcesCompletion(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{Notifier: notifier}, 30*time.Millisecond)
	start(t, s)

	assert.Eventually(t, func() bool {
		return s.State() == proctor.StateCompleted
	}, time.Second, 5*time.Millisecond)

	report, ok := s.Report()
	require.True(t, ok)
	assert.True(t, report.Forced)
	assert.LessOrEqual(t, report.TotalTime, int64(1))
	assert.Equal(t, 1, notifier.CompletedCount())

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("sampling did not stop after expiry")
	}
}

func TestSamplerRecordsFaceEvents(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	face := faceFunc(func(context.Context, []byte) (detection.FaceObservation, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return detection.FaceObservation{Present: true, MultipleFaces: true}, nil
	})

	s := newSession(t, fastConfig(), proctor.Deps{Face: face}, time.Hour)
	start(t, s)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, calls, "detector must not run before a frame arrives")
	mu.Unlock()

	require.NoError(t, s.PushFrame([]byte("frame")))

	assert.Eventually(t, func() bool {
		return s.Counts()[detection.KindMultipleFaces] >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestSamplerTreatsDetectorFailureAsNoDetection(t *testing.T) {
	recorder := &fakeRecorder{}
	face := faceFunc(func(context.Context, []byte) (detection.FaceObservation, error) {
		return detection.FaceObservation{}, errors.New("backend unavailable")
	})

	s := newSession(t, fastConfig(), proctor.Deps{Face: face, Metrics: recorder}, time.Hour)
	start(t, s)
	require.NoError(t, s.PushFrame([]byte("frame")))

	assert.Eventually(t, func() bool {
		return recorder.Failures("face") >= 2
	}, time.Second, 5*time.Millisecond)

	assert.True(t, s.Active())
	assert.Zero(t, s.Counts()[detection.KindFaceLost])
}

func TestFinalizeDiscardsInFlightResults(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	face := faceFunc(func(context.Context, []byte) (detection.FaceObservation, error) {
		once.Do(func() { close(entered) })
		<-release
		return detection.FaceObservation{Present: true, MultipleFaces: true}, nil
	})
	notifier := &fakeNotifier{}

	s := newSession(t, fastConfig(), proctor.Deps{Face: face, Notifier: notifier}, time.Hour)
	start(t, s)
	require.NoError(t, s.PushFrame([]byte("frame")))

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("detector was never called")
	}

	finished := make(chan *proctor.Report, 1)
	go func() {
		report, err := s.Finalize()
		assert.NoError(t, err)
		finished <- report
	}()

	select {
	case <-finished:
		t.Fatal("finalize returned while a detector call was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Zero(t, notifier.CompletedCount())
	close(release)

	var report *proctor.Report
	select {
	case report = <-finished:
	case <-time.After(time.Second):
		t.Fatal("finalize did not return after the detector call finished")
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("sampling loops still running after finalize returned")
	}

	assert.Equal(t, 1, notifier.CompletedCount())
	assert.Empty(t, report.Counts)
	assert.Empty(t, s.Counts())
	assert.Empty(t, s.Warnings())

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Empty(t, notifier.violations)
}

func TestPushFrameRequiresActiveSession(t *testing.T) {
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{}, time.Hour)
	assert.ErrorIs(t, s.PushFrame([]byte("frame")), proctor.ErrNotActive)
}

func TestClosedPendingSessionCannotStart(t *testing.T) {
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{}, time.Hour)
	s.Close()

	assert.ErrorIs(t, s.GrantPermission(context.Background(), true), proctor.ErrNotActive)
	assert.Equal(t, proctor.StateNotStarted, s.State())
	assert.False(t, s.Active())
}

func TestCloseWaitsForSampling(t *testing.T) {
	entered := make(chan struct{})
	var once sync.Once
	face := faceFunc(func(ctx context.Context, _ []byte) (detection.FaceObservation, error) {
		once.Do(func() { close(entered) })
		time.Sleep(30 * time.Millisecond)
		return detection.FaceObservation{}, ctx.Err()
	})

	s := newSession(t, fastConfig(), proctor.Deps{Face: face}, time.Hour)
	start(t, s)
	require.NoError(t, s.PushFrame([]byte("frame")))
	<-entered

	s.Close()
	select {
	case <-s.Done():
	default:
		t.Fatal("close returned before sampling stopped")
	}
	assert.ErrorIs(t, s.PushFrame([]byte("frame")), proctor.ErrNotActive)
}

func TestStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	s := newSession(t, detection.DefaultConfig(), proctor.Deps{Now: clock}, 10*time.Minute)

	st := s.Status()
	assert.Equal(t, proctor.StateNotStarted, st.State)
	assert.Equal(t, proctor.PhaseIdle, st.Phase)
	assert.Equal(t, int64(600), st.TimeLeft)
	assert.Nil(t, st.StartedAt)

	start(t, s)
	st = s.Status()
	assert.Equal(t, proctor.PhaseSampling, st.Phase)
	require.NotNil(t, st.StartedAt)
	assert.Equal(t, now, *st.StartedAt)
}

func TestObserveAppliesOutsideTicks(t *testing.T) {
	s := newSession(t, detection.DefaultConfig(), proctor.Deps{}, time.Hour)

	assert.Nil(t, s.ObserveFace(detection.FaceObservation{Present: true}))

	start(t, s)

	assert.Empty(t, s.ObserveFace(detection.FaceObservation{Present: true}))
	events := s.ObserveFace(detection.FaceObservation{})
	require.Len(t, events, 1)
	assert.Equal(t, detection.KindFaceLost, events[0].Kind)

	events = s.ObserveObjects([]detection.ObjectDetection{{Label: "book", Confidence: 0.8}})
	require.Len(t, events, 1)
	assert.Equal(t, detection.KindProhibitedObject, events[0].Kind)

	report, err := s.Finalize()
	require.NoError(t, err)
	require.Len(t, report.DetectedObjects, 1)
	assert.Equal(t, "book", report.DetectedObjects[0].Label)

	assert.Nil(t, s.ObserveObjects([]detection.ObjectDetection{{Label: "book", Confidence: 0.8}}))
}
