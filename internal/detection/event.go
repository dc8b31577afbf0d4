package detection

import (
	"fmt"
	"math"
	"time"
)

// Kind identifies a class of violation.
type Kind string

const (
	KindTabSwitch        Kind = "tab_switch"
	KindFaceLost         Kind = "face_lost"
	KindMultipleFaces    Kind = "multiple_faces"
	KindPhoneUsage       Kind = "phone_usage"
	KindProhibitedObject Kind = "prohibited_object"
	KindAIContent        Kind = "ai_content"
	KindPlagiarism       Kind = "plagiarism"
)

// Kinds lists every violation kind in report order.
var Kinds = []Kind{
	KindTabSwitch,
	KindFaceLost,
	KindMultipleFaces,
	KindPhoneUsage,
	KindProhibitedObject,
	KindAIContent,
	KindPlagiarism,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is one classified violation. Events are values and never change after creation.
type Event struct {
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	Label      string    `json:"label,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	At         time.Time `json:"at"`
}

func newEvent(kind Kind, message string, at time.Time) Event {
	return Event{Kind: kind, Message: message, At: at}
}

// TabSwitchEvent is emitted for each hidden visibility change.
func TabSwitchEvent(at time.Time) Event {
	return newEvent(KindTabSwitch, "Tab switching detected", at)
}

// FaceLostEvent is emitted on the present-to-absent edge.
func FaceLostEvent(at time.Time) Event {
	return newEvent(KindFaceLost, "No face detected in frame", at)
}

// MultipleFacesEvent is emitted for each tick with more than one face.
func MultipleFacesEvent(at time.Time) Event {
	return newEvent(KindMultipleFaces, "Multiple faces detected", at)
}

// PhoneUsageEvent is emitted by both the pose and object phone paths.
func PhoneUsageEvent(at time.Time) Event {
	return newEvent(KindPhoneUsage, "Phone usage detected", at)
}

// ProhibitedObjectEvent is emitted for each qualifying detection.
func ProhibitedObjectEvent(d ObjectDetection, at time.Time) Event {
	confidence := d.Confidence
	e := newEvent(
		KindProhibitedObject,
		fmt.Sprintf("Prohibited object detected: %s (%.1f%% confidence)", d.Label, d.Confidence*100),
		at,
	)
	e.Label = d.Label
	e.Confidence = &confidence
	return e
}

// AIContentEvent is emitted for each positive AI-origin check.
func AIContentEvent(at time.Time) Event {
	return newEvent(KindAIContent, "AI-generated content detected", at)
}

// PlagiarismEvent is emitted for each flagged plagiarism check.
func PlagiarismEvent(similarity float64, at time.Time) Event {
	e := newEvent(
		KindPlagiarism,
		fmt.Sprintf("Plagiarism detected (%d%% similarity)", int(math.Round(similarity*100))),
		at,
	)
	e.Confidence = &similarity
	return e
}
