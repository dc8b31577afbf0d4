// Package detectors talks to the face and object detection backends. Frames
// are posted as a multipart "image" field and responses are validated against
// embedded JSON schemas before they reach the classifier.
package detectors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/JaimeStill/proctor/internal/detection"
)

// Client implements proctor.FaceDetector and proctor.ObjectDetector over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	schemas *schemas
	logger  *slog.Logger
}

// New creates a Client from a finalized Config. A nil httpClient gets a
// client bounded by the configured timeout.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	s, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TimeoutDuration()}
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		schemas: s,
		logger:  logger.With("system", "detectors"),
	}, nil
}

type boxBody struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type faceBody struct {
	FaceDetected  bool     `json:"faceDetected"`
	MultipleFaces bool     `json:"multipleFaces"`
	FaceCount     int      `json:"faceCount"`
	BoundingBox   *boxBody `json:"boundingBox"`
}

type objectBody struct {
	Objects []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"objects"`
	ObjectDetected bool     `json:"objectDetected"`
	Label          string   `json:"label"`
	Confidence     *float64 `json:"confidence"`
}

// DetectFace posts frame to the face backend.
func (c *Client) DetectFace(ctx context.Context, frame []byte) (detection.FaceObservation, error) {
	body, err := c.post(ctx, c.cfg.FaceURL, frame)
	if err != nil {
		return detection.FaceObservation{}, fmt.Errorf("detect face: %w", err)
	}

	var fb faceBody
	if err := decode(c.schemas.face, body, &fb); err != nil {
		return detection.FaceObservation{}, fmt.Errorf("detect face: %w", err)
	}

	obs := detection.FaceObservation{
		Present:       fb.FaceDetected,
		MultipleFaces: fb.MultipleFaces || fb.FaceCount > 1,
	}
	if fb.FaceDetected && fb.BoundingBox != nil {
		obs.Box = &detection.BoundingBox{
			X:      fb.BoundingBox.X,
			Y:      fb.BoundingBox.Y,
			Width:  fb.BoundingBox.Width,
			Height: fb.BoundingBox.Height,
		}
	}
	return obs, nil
}

// DetectObjects posts frame to the object backend. The single-label legacy
// shape {"objectDetected", "label"} is accepted with full confidence unless
// a confidence is given.
func (c *Client) DetectObjects(ctx context.Context, frame []byte) ([]detection.ObjectDetection, error) {
	body, err := c.post(ctx, c.cfg.ObjectURL, frame)
	if err != nil {
		return nil, fmt.Errorf("detect objects: %w", err)
	}

	var ob objectBody
	if err := decode(c.schemas.objects, body, &ob); err != nil {
		return nil, fmt.Errorf("detect objects: %w", err)
	}

	out := make([]detection.ObjectDetection, 0, len(ob.Objects)+1)
	for _, o := range ob.Objects {
		out = append(out, detection.ObjectDetection{Label: o.Label, Confidence: o.Confidence})
	}
	if ob.ObjectDetected && ob.Label != "" {
		conf := 1.0
		if ob.Confidence != nil {
			conf = *ob.Confidence
		}
		out = append(out, detection.ObjectDetection{Label: ob.Label, Confidence: conf})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	if int64(len(frame)) > c.cfg.MaxFrame {
		return nil, ErrFrameTooLarge
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("detector error response", "url", url, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	return body, nil
}
