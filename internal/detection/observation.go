package detection

// BoundingBox is a face box in normalized frame coordinates.
type BoundingBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// FaceObservation is one face-detector sample. Box is nil when the detector
// found a face without reporting its bounds.
type FaceObservation struct {
	Present       bool         `json:"present" yaml:"present"`
	Box           *BoundingBox `json:"box,omitempty" yaml:"box,omitempty"`
	MultipleFaces bool         `json:"multiple_faces" yaml:"multiple_faces"`
}

// ObjectDetection is one labelled object reported by the object detector.
type ObjectDetection struct {
	Label      string  `json:"label" yaml:"label"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// PlagiarismResult is the verdict of a plagiarism check.
type PlagiarismResult struct {
	Flagged    bool    `json:"flagged" yaml:"flagged"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// TextVerdict combines the AI-origin and plagiarism checks of one answer.
type TextVerdict struct {
	AIContent  bool             `json:"ai_content" yaml:"ai_content"`
	Plagiarism PlagiarismResult `json:"plagiarism" yaml:"plagiarism"`
}
