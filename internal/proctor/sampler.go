package proctor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/proctor/internal/detection"
)

const (
	signalFace   = "face"
	signalObject = "object"
)

// sample runs the face and object tick loops until ctx is cancelled. Each
// loop runs one tick at a time, so calls for the same signal never overlap.
func (s *Session) sample(ctx context.Context) {
	defer close(s.done)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tick(gctx, s.cfg.FaceIntervalDuration(), s.faceTick)
	})
	g.Go(func() error {
		return tick(gctx, s.cfg.ObjectIntervalDuration(), s.objectTick)
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("sampling stopped", "error", err)
		return
	}
	s.logger.Debug("sampling stopped")
}

func tick(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn(ctx)
		}
	}
}

func (s *Session) faceTick(ctx context.Context) {
	frame := s.latestFrame()
	if frame == nil {
		return
	}

	obs, err := s.deps.Face.DetectFace(ctx, frame)
	if err != nil {
		s.detectorFailed(ctx, signalFace, err)
		obs = detection.FaceObservation{}
	}

	s.ObserveFace(obs)
}

// ObserveFace classifies one face observation as if it had been sampled on a
// face tick. It is a no-op once the session stops sampling.
func (s *Session) ObserveFace(obs detection.FaceObservation) []detection.Event {
	s.faceMu.Lock()
	if !s.Active() {
		s.faceMu.Unlock()
		return nil
	}
	events := s.classifier.Face(obs, s.now())
	s.faceMu.Unlock()

	return s.record(events...)
}

func (s *Session) objectTick(ctx context.Context) {
	frame := s.latestFrame()
	if frame == nil {
		return
	}

	detections, err := s.deps.Objects.DetectObjects(ctx, frame)
	if err != nil {
		s.detectorFailed(ctx, signalObject, err)
		detections = nil
	}

	s.ObserveObjects(detections)
}

// ObserveObjects classifies one object-detector sample as if it had been
// taken on an object tick.
func (s *Session) ObserveObjects(detections []detection.ObjectDetection) []detection.Event {
	s.objectMu.Lock()
	if !s.Active() {
		s.objectMu.Unlock()
		return nil
	}
	events := s.classifier.Objects(detections, s.now())
	s.objectMu.Unlock()

	return s.record(events...)
}

func (s *Session) detectorFailed(ctx context.Context, signal string, err error) {
	if ctx.Err() != nil {
		return
	}
	s.deps.Metrics.DetectorFailure(signal)
	s.logger.Warn("detector failed, treating tick as no detection", "signal", signal, "error", err)
}
