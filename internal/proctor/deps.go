package proctor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/proctor/internal/detection"
)

// FaceDetector samples a frame for faces.
type FaceDetector interface {
	DetectFace(ctx context.Context, frame []byte) (detection.FaceObservation, error)
}

// ObjectDetector samples a frame for labelled objects.
type ObjectDetector interface {
	DetectObjects(ctx context.Context, frame []byte) ([]detection.ObjectDetection, error)
}

// TextAnalyzer screens a free-text answer for AI origin and plagiarism.
// Implementations recover their own failures into a not-flagged verdict.
type TextAnalyzer interface {
	Screen(ctx context.Context, text string) detection.TextVerdict
}

// Notifier receives session activity. Calls must not block the caller for long
// and their failures are not reported back.
type Notifier interface {
	Violation(sessionID uuid.UUID, event detection.Event)
	Completed(report *Report)
}

// Recorder receives metric observations.
type Recorder interface {
	Violation(kind detection.Kind)
	DetectorFailure(signal string)
	Transition(state State)
}

// Deps are the collaborators a Session needs. Nil collaborators are
// replaced with no-op implementations.
type Deps struct {
	Face     FaceDetector
	Objects  ObjectDetector
	Text     TextAnalyzer
	Notifier Notifier
	Metrics  Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Face == nil {
		d.Face = noFaces{}
	}
	if d.Objects == nil {
		d.Objects = noObjects{}
	}
	if d.Text == nil {
		d.Text = noText{}
	}
	if d.Notifier == nil {
		d.Notifier = noNotifier{}
	}
	if d.Metrics == nil {
		d.Metrics = noRecorder{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type noFaces struct{}

func (noFaces) DetectFace(context.Context, []byte) (detection.FaceObservation, error) {
	return detection.FaceObservation{}, nil
}

type noObjects struct{}

func (noObjects) DetectObjects(context.Context, []byte) ([]detection.ObjectDetection, error) {
	return nil, nil
}

type noText struct{}

func (noText) Screen(context.Context, string) detection.TextVerdict {
	return detection.TextVerdict{}
}

type noNotifier struct{}

func (noNotifier) Violation(uuid.UUID, detection.Event) {}
func (noNotifier) Completed(*Report)                    {}

type noRecorder struct{}

func (noRecorder) Violation(detection.Kind) {}
func (noRecorder) DetectorFailure(string)   {}
func (noRecorder) Transition(State)         {}
