package detection

import "time"

// Cooldown is the pose-path phone counter. ConsecutiveFrames climbs on each
// suspicious frame and decays on each normal one; firing is limited to once
// per interval.
type Cooldown struct {
	LastFiredAt       time.Time
	ConsecutiveFrames int
}

// Step advances the counter and reports whether the signal fires. The
// counter resets only when a fire is allowed by the interval.
func (c *Cooldown) Step(suspicious bool, at time.Time, frames, decay int, interval time.Duration) bool {
	if !suspicious {
		c.ConsecutiveFrames = max(0, c.ConsecutiveFrames-decay)
		return false
	}

	c.ConsecutiveFrames++
	if c.ConsecutiveFrames < frames {
		return false
	}
	if !c.LastFiredAt.IsZero() && at.Sub(c.LastFiredAt) <= interval {
		return false
	}

	c.LastFiredAt = at
	c.ConsecutiveFrames = 0
	return true
}

// Classifier holds the per-session smoothing state and emits violation
// events. Face and Objects touch disjoint state, so each may be guarded by
// its own lock.
type Classifier struct {
	th    Thresholds
	table *Table

	face        *FaceSmoother
	pose        Cooldown
	poseWindow  time.Duration
	facePresent bool

	phone *PhoneSmoother
}

// NewClassifier builds a Classifier from a finalized Config.
func NewClassifier(cfg Config) (*Classifier, error) {
	table, err := NewTable(cfg.Categories)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		th:         cfg.Thresholds,
		table:      table,
		face:       NewFaceSmoother(cfg.Thresholds),
		poseWindow: cfg.Thresholds.PoseCooldownDuration(),
		phone:      NewPhoneSmoother(table, cfg.Thresholds),
	}, nil
}

// Table returns the category table the classifier matches against.
func (c *Classifier) Table() *Table {
	return c.table
}

// Face classifies one face observation.
func (c *Classifier) Face(obs FaceObservation, at time.Time) []Event {
	var events []Event

	if !obs.Present && c.facePresent {
		events = append(events, FaceLostEvent(at))
	} else if obs.MultipleFaces {
		events = append(events, MultipleFacesEvent(at))
	}
	c.facePresent = obs.Present

	switch {
	case !obs.Present:
		c.pose.ConsecutiveFrames = 0
	case obs.Box != nil:
		signals := c.face.Observe(*obs.Box, at)
		if c.pose.Step(signals.PotentialPhoneUsage(), at, c.th.PoseFrames, c.th.PoseDecay, c.poseWindow) {
			events = append(events, PhoneUsageEvent(at))
		}
	}

	return events
}

// Objects classifies one object-detector sample. The phone window is updated
// first, then every prohibited detection yields its own event.
func (c *Classifier) Objects(detections []ObjectDetection, at time.Time) []Event {
	var events []Event

	if _, fired := c.phone.Observe(detections); fired {
		events = append(events, PhoneUsageEvent(at))
	}

	for _, d := range c.table.Prohibited(detections) {
		events = append(events, ProhibitedObjectEvent(d, at))
	}

	return events
}

// Text classifies the verdict of one answer screening.
func (c *Classifier) Text(v TextVerdict, at time.Time) []Event {
	var events []Event
	if v.AIContent {
		events = append(events, AIContentEvent(at))
	}
	if v.Plagiarism.Flagged {
		events = append(events, PlagiarismEvent(v.Plagiarism.Similarity, at))
	}
	return events
}

// PoseState returns a copy of the pose-path cooldown.
func (c *Classifier) PoseState() Cooldown {
	return c.pose
}

// PhoneWindow returns the recent phone confidences.
func (c *Classifier) PhoneWindow() []float64 {
	return c.phone.Recent()
}
