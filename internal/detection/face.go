package detection

import (
	"math"
	"time"
)

// FacePoint is the vertical face position recorded at one tick.
type FacePoint struct {
	Y  float64
	At time.Time
}

// PoseSignals are the booleans derived from one face observation and the
// recent position history.
type PoseSignals struct {
	LookingDown             bool
	ConsistentlyLookingDown bool
	RapidMovement           bool
	OffCenter               bool
	PartiallyVisible        bool
	SignificantMovement     bool
}

// PotentialPhoneUsage combines the pose signals into the phone-usage verdict.
func (p PoseSignals) PotentialPhoneUsage() bool {
	return p.LookingDown &&
		p.ConsistentlyLookingDown &&
		((p.PartiallyVisible && p.SignificantMovement) || (p.OffCenter && p.RapidMovement))
}

// ConsistentlyLookingDown reports whether the history is full and every
// recorded position is below threshold.
func ConsistentlyLookingDown(points []FacePoint, capacity int, threshold float64) bool {
	if len(points) != capacity {
		return false
	}
	for _, p := range points {
		if p.Y <= threshold {
			return false
		}
	}
	return true
}

// RapidMovement reports whether any adjacent pair moved more than delta
// within less than window. Histories of two points or fewer never qualify.
func RapidMovement(points []FacePoint, delta float64, window time.Duration) bool {
	if len(points) <= 2 {
		return false
	}
	for i := 1; i < len(points); i++ {
		dy := math.Abs(points[i].Y - points[i-1].Y)
		dt := points[i].At.Sub(points[i-1].At)
		if dy > delta && dt < window {
			return true
		}
	}
	return false
}

// FaceSmoother tracks face position history for a single session.
type FaceSmoother struct {
	th       Thresholds
	rapid    time.Duration
	history  *Window[FacePoint]
	previous BoundingBox
}

// NewFaceSmoother creates a FaceSmoother with an empty history.
func NewFaceSmoother(th Thresholds) *FaceSmoother {
	return &FaceSmoother{
		th:      th,
		rapid:   th.RapidMovementDuration(),
		history: NewWindow[FacePoint](th.FaceWindow),
	}
}

// Observe records box at time at and derives the pose signals.
func (s *FaceSmoother) Observe(box BoundingBox, at time.Time) PoseSignals {
	s.history.Push(FacePoint{Y: box.Y, At: at})
	points := s.history.Values()

	yMovement := math.Abs(box.Y - s.previous.Y)
	s.previous = box

	return PoseSignals{
		LookingDown:             box.Y > s.th.PhonePoseY,
		ConsistentlyLookingDown: ConsistentlyLookingDown(points, s.history.Cap(), s.th.LookingDownY),
		RapidMovement:           RapidMovement(points, s.th.RapidMovementDelta, s.rapid),
		OffCenter:               math.Abs(box.X-0.5) > s.th.OffCenterOffset,
		PartiallyVisible:        box.Width < s.th.PartialWidth,
		SignificantMovement:     yMovement > s.th.SignificantMovement,
	}
}

// History returns the recorded positions, oldest first.
func (s *FaceSmoother) History() []FacePoint {
	return s.history.Values()
}

// Reset clears the history and the previous position.
func (s *FaceSmoother) Reset() {
	s.history.Reset()
	s.previous = BoundingBox{}
}
