package detection_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/proctor/internal/detection"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newClassifier(t *testing.T) *detection.Classifier {
	t.Helper()
	c, err := detection.NewClassifier(detection.DefaultConfig())
	require.NoError(t, err)
	return c
}

func kinds(events []detection.Event) []detection.Kind {
	out := make([]detection.Kind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestWindow(t *testing.T) {
	w := detection.NewWindow[int](3)
	for i := 1; i <= 5; i++ {
		w.Push(i)
		assert.LessOrEqual(t, w.Len(), w.Cap())
	}

	assert.True(t, w.Full())
	assert.Equal(t, []int{3, 4, 5}, w.Values())

	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.False(t, w.Full())
}

func TestWindowMinimumCapacity(t *testing.T) {
	w := detection.NewWindow[string](0)
	w.Push("a")
	w.Push("b")
	assert.Equal(t, []string{"b"}, w.Values())
}

func TestPhoneWindow(t *testing.T) {
	tests := []struct {
		name       string
		readings   []float64
		wantFrames int
		wantFire   bool
	}{
		{"three of five", []float64{0, 0.5, 0.5, 0.5, 0}, 3, true},
		{"two of five", []float64{0, 0.5, 0.5, 0, 0}, 2, false},
		{"at threshold does not count", []float64{0.4, 0.4, 0.4, 0.4, 0.4}, 0, false},
		{"old readings evicted", []float64{0.9, 0.9, 0.9, 0, 0, 0, 0, 0}, 0, false},
	}

	cfg := detection.DefaultConfig()
	table, err := detection.NewTable(cfg.Categories)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := detection.NewPhoneSmoother(table, cfg.Thresholds)

			var frames int
			var fired bool
			for _, r := range tt.readings {
				frames, fired = s.Observe([]detection.ObjectDetection{{Label: "cell phone", Confidence: r}})
			}

			assert.Equal(t, tt.wantFrames, frames)
			assert.Equal(t, tt.wantFire, fired)
		})
	}
}

func TestMaxPhoneConfidence(t *testing.T) {
	table, err := detection.NewTable(detection.DefaultCategories())
	require.NoError(t, err)

	got := detection.MaxPhoneConfidence(table, []detection.ObjectDetection{
		{Label: "book", Confidence: 0.99},
		{Label: "Mobile Phone", Confidence: 0.42},
		{Label: "cell phone", Confidence: 0.61},
	})
	assert.InDelta(t, 0.61, got, 1e-9)

	assert.Zero(t, detection.MaxPhoneConfidence(table, nil))
}

func TestProhibitedThresholds(t *testing.T) {
	tests := []struct {
		label      string
		confidence float64
		want       bool
	}{
		{"cell phone", 0.50, true},
		{"cell phone", 0.40, false},
		{"cell phone", 0.45, false},
		{"book", 0.50, false},
		{"book", 0.60, true},
		{"Laptop", 0.56, true},
		{"cup", 0.99, false},
		{"smart watch", 0.46, true},
	}

	table, err := detection.NewTable(detection.DefaultCategories())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got := table.Prohibited([]detection.ObjectDetection{{Label: tt.label, Confidence: tt.confidence}})
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name       string
		categories []detection.Category
	}{
		{"empty", nil},
		{"unnamed", []detection.Category{{Substrings: []string{"x"}, Threshold: 0.5}}},
		{"no substrings", []detection.Category{{Name: "x", Substrings: []string{" "}, Threshold: 0.5}}},
		{"threshold range", []detection.Category{{Name: "x", Substrings: []string{"x"}, Threshold: 1.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := detection.NewTable(tt.categories)
			assert.ErrorIs(t, err, detection.ErrInvalidCategory)
		})
	}
}

func TestTableNormalizesSubstrings(t *testing.T) {
	table, err := detection.NewTable([]detection.Category{
		{Name: "notes", Substrings: []string{"  Cheat Sheet "}, Threshold: 0.2},
	})
	require.NoError(t, err)

	c, ok := table.Match("CHEAT SHEET on desk")
	require.True(t, ok)
	assert.Equal(t, "notes", c.Name)
	assert.Equal(t, []string{"cheat sheet"}, c.Substrings)
}

func TestProhibitedEventPerItem(t *testing.T) {
	c := newClassifier(t)

	events := c.Objects([]detection.ObjectDetection{
		{Label: "book", Confidence: 0.8},
		{Label: "calculator", Confidence: 0.9},
		{Label: "chair", Confidence: 0.9},
	}, epoch)

	require.Len(t, events, 2)
	assert.Equal(t, "Prohibited object detected: book (80.0% confidence)", events[0].Message)
	assert.Equal(t, "calculator", events[1].Label)
	require.NotNil(t, events[1].Confidence)
	assert.InDelta(t, 0.9, *events[1].Confidence, 1e-9)

	again := c.Objects([]detection.ObjectDetection{{Label: "book", Confidence: 0.8}}, epoch.Add(1500*time.Millisecond))
	assert.Len(t, again, 1, "every qualifying tick counts")
}

func TestObjectPhonePath(t *testing.T) {
	c := newClassifier(t)
	phone := []detection.ObjectDetection{{Label: "cell phone", Confidence: 0.42}}

	at := epoch
	var last []detection.Event
	for range 3 {
		last = c.Objects(phone, at)
		at = at.Add(1500 * time.Millisecond)
	}

	assert.Equal(t, []detection.Kind{detection.KindPhoneUsage}, kinds(last))
}

func TestFaceLostFallingEdge(t *testing.T) {
	c := newClassifier(t)
	present := detection.FaceObservation{Present: true, Box: &detection.BoundingBox{X: 0.5, Y: 0.4, Width: 0.3, Height: 0.3}}
	absent := detection.FaceObservation{}

	var lost int
	sequence := []detection.FaceObservation{absent, absent, present, absent, absent, absent, present, present, absent}
	for i, obs := range sequence {
		for _, e := range c.Face(obs, epoch.Add(time.Duration(i)*time.Second)) {
			if e.Kind == detection.KindFaceLost {
				lost++
			}
		}
	}

	assert.Equal(t, 2, lost, "one event per present-to-absent edge, none before a face is first seen")
}

func TestMultipleFacesEveryTick(t *testing.T) {
	c := newClassifier(t)
	obs := detection.FaceObservation{Present: true, MultipleFaces: true}

	for i := range 3 {
		events := c.Face(obs, epoch.Add(time.Duration(i)*time.Second))
		assert.Equal(t, []detection.Kind{detection.KindMultipleFaces}, kinds(events))
	}
}

func TestCooldownStep(t *testing.T) {
	var cd detection.Cooldown
	interval := 5 * time.Second

	at := epoch
	fired := 0
	for range 12 {
		if cd.Step(true, at, 12, 3, interval) {
			fired++
		}
		at = at.Add(100 * time.Millisecond)
	}
	require.Equal(t, 1, fired)
	assert.Zero(t, cd.ConsecutiveFrames)

	for range 12 {
		assert.False(t, cd.Step(true, at, 12, 3, interval), "re-crossing within the cooldown must not fire")
		at = at.Add(100 * time.Millisecond)
	}
	assert.Equal(t, 12, cd.ConsecutiveFrames)

	cd.Step(false, at, 12, 3, interval)
	assert.Equal(t, 9, cd.ConsecutiveFrames)
	for range 5 {
		cd.Step(false, at, 12, 3, interval)
	}
	assert.Zero(t, cd.ConsecutiveFrames)
}

func TestPosePhonePath(t *testing.T) {
	c := newClassifier(t)

	firedAt := []int{}
	for i := 1; i <= 80; i++ {
		y := 0.80
		if i%2 == 0 {
			y = 0.96
		}
		obs := detection.FaceObservation{
			Present: true,
			Box:     &detection.BoundingBox{X: 0.5, Y: y, Width: 0.05, Height: 0.1},
		}
		for _, e := range c.Face(obs, epoch.Add(time.Duration(i)*100*time.Millisecond)) {
			if e.Kind == detection.KindPhoneUsage {
				firedAt = append(firedAt, i)
			}
		}
	}

	// frames 1-9 fill the history, frames 10-21 reach the threshold, and the
	// next fire waits until more than 5s after frame 21.
	assert.Equal(t, []int{21, 72}, firedAt)
}

func TestPoseCounterResetsWhenFaceLost(t *testing.T) {
	c := newClassifier(t)
	for i := 1; i <= 15; i++ {
		y := 0.80
		if i%2 == 0 {
			y = 0.96
		}
		c.Face(detection.FaceObservation{
			Present: true,
			Box:     &detection.BoundingBox{X: 0.5, Y: y, Width: 0.05},
		}, epoch.Add(time.Duration(i)*time.Second))
	}
	require.Equal(t, 6, c.PoseState().ConsecutiveFrames)

	c.Face(detection.FaceObservation{}, epoch.Add(16*time.Second))
	assert.Zero(t, c.PoseState().ConsecutiveFrames)
}

func TestPoseSignals(t *testing.T) {
	points := func(ys ...float64) []detection.FacePoint {
		out := make([]detection.FacePoint, len(ys))
		for i, y := range ys {
			out[i] = detection.FacePoint{Y: y, At: epoch.Add(time.Duration(i) * 100 * time.Millisecond)}
		}
		return out
	}

	t.Run("consistently looking down requires a full window", func(t *testing.T) {
		assert.False(t, detection.ConsistentlyLookingDown(points(0.7, 0.7), 3, 0.65))
		assert.True(t, detection.ConsistentlyLookingDown(points(0.7, 0.7, 0.7), 3, 0.65))
		assert.False(t, detection.ConsistentlyLookingDown(points(0.7, 0.65, 0.7), 3, 0.65))
	})

	t.Run("rapid movement needs more than two points", func(t *testing.T) {
		assert.False(t, detection.RapidMovement(points(0.1, 0.5), 0.1, 200*time.Millisecond))
		assert.True(t, detection.RapidMovement(points(0.1, 0.1, 0.5), 0.1, 200*time.Millisecond))
		assert.False(t, detection.RapidMovement(points(0.1, 0.1, 0.5), 0.1, 100*time.Millisecond))
	})

	t.Run("composite", func(t *testing.T) {
		base := detection.PoseSignals{LookingDown: true, ConsistentlyLookingDown: true}
		assert.False(t, base.PotentialPhoneUsage())

		partial := base
		partial.PartiallyVisible, partial.SignificantMovement = true, true
		assert.True(t, partial.PotentialPhoneUsage())

		offCenter := base
		offCenter.OffCenter, offCenter.RapidMovement = true, true
		assert.True(t, offCenter.PotentialPhoneUsage())

		offCenter.LookingDown = false
		assert.False(t, offCenter.PotentialPhoneUsage())
	})
}

func TestTextEvents(t *testing.T) {
	c := newClassifier(t)

	events := c.Text(detection.TextVerdict{
		AIContent:  true,
		Plagiarism: detection.PlagiarismResult{Flagged: true, Similarity: 0.734},
	}, epoch)

	require.Equal(t, []detection.Kind{detection.KindAIContent, detection.KindPlagiarism}, kinds(events))
	assert.Equal(t, "Plagiarism detected (73% similarity)", events[1].Message)

	assert.Empty(t, c.Text(detection.TextVerdict{Plagiarism: detection.PlagiarismResult{Similarity: 0.9}}, epoch))
}
