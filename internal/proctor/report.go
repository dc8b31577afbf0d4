package proctor

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/proctor/internal/detection"
)

// Warning is one entry of the session warning log. Kind is empty for
// warnings that are not violations, such as a refused submission.
type Warning struct {
	Kind    detection.Kind `json:"kind,omitempty"`
	Message string         `json:"message"`
	At      time.Time      `json:"at"`
}

// TestResult is the outcome of one test case run against an answer.
type TestResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Output string `json:"output,omitempty"`
}

// Answer is the candidate's current response to one question.
type Answer struct {
	QuestionID  string       `json:"question_id"`
	Response    string       `json:"response"`
	TestResults []TestResult `json:"test_results"`
}

// DetectedObject records one qualifying prohibited-object detection.
type DetectedObject struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// Report is the frozen outcome of a session. It is built once and never mutated.
type Report struct {
	SessionID       uuid.UUID              `json:"session_id"`
	ExamID          string                 `json:"exam_id"`
	Anomalies       []detection.Anomaly    `json:"anomalies"`
	Warnings        []Warning              `json:"warnings"`
	Counts          detection.Counts       `json:"counts"`
	DetectedObjects []DetectedObject       `json:"detected_objects"`
	Answers         []Answer               `json:"answers"`
	AIDetected      bool                   `json:"ai_detected"`
	HighRisk        *detection.RiskSummary `json:"high_risk,omitempty"`
	TotalTime       int64                  `json:"total_time"`
	StartedAt       time.Time              `json:"started_at"`
	CompletedAt     time.Time              `json:"completed_at"`
	Forced          bool                   `json:"forced"`
}

// Status is a point-in-time view of a live session.
type Status struct {
	ID          uuid.UUID        `json:"id"`
	ExamID      string           `json:"exam_id"`
	State       State            `json:"state"`
	Phase       Phase            `json:"phase"`
	Counts      detection.Counts `json:"counts"`
	Recent      []Warning        `json:"recent_warnings"`
	TimeLeft    int64            `json:"time_left"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
