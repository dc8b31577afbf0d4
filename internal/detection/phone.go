package detection

// CountAbove returns how many values strictly exceed threshold.
func CountAbove(values []float64, threshold float64) int {
	n := 0
	for _, v := range values {
		if v > threshold {
			n++
		}
	}
	return n
}

// MaxPhoneConfidence returns the highest confidence among phone-family
// detections, or 0 when there are none.
func MaxPhoneConfidence(table *Table, detections []ObjectDetection) float64 {
	best := 0.0
	for _, d := range detections {
		if table.IsPhone(d.Label) && d.Confidence > best {
			best = d.Confidence
		}
	}
	return best
}

// PhoneSmoother keeps the recent per-tick phone confidences of a session.
type PhoneSmoother struct {
	table      *Table
	confidence float64
	frames     int
	recent     *Window[float64]
}

// NewPhoneSmoother creates a PhoneSmoother with an empty window.
func NewPhoneSmoother(table *Table, th Thresholds) *PhoneSmoother {
	return &PhoneSmoother{
		table:      table,
		confidence: th.PhoneConfidence,
		frames:     th.PhoneFrames,
		recent:     NewWindow[float64](th.PhoneWindow),
	}
}

// Observe records the tick's phone confidence and returns the number of
// qualifying frames in the window and whether the signal fires.
func (s *PhoneSmoother) Observe(detections []ObjectDetection) (int, bool) {
	s.recent.Push(MaxPhoneConfidence(s.table, detections))
	n := CountAbove(s.recent.Values(), s.confidence)
	return n, n >= s.frames
}

// Recent returns the window contents, oldest first.
func (s *PhoneSmoother) Recent() []float64 {
	return s.recent.Values()
}
