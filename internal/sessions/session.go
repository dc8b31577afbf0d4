package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/proctor"
)

// Session is the persisted record of an exam session.
type Session struct {
	ID                uuid.UUID     `json:"id"`
	ExamID            string        `json:"exam_id"`
	QuestionIDs       []string      `json:"question_ids"`
	TimeBudgetSeconds int           `json:"time_budget_seconds"`
	State             proctor.State `json:"state"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Event is a persisted violation event.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	SessionID  uuid.UUID      `json:"session_id"`
	Kind       detection.Kind `json:"kind"`
	Message    string         `json:"message"`
	Label      string         `json:"label,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// CreateCommand carries the fields needed to start a session.
type CreateCommand struct {
	ExamID            string   `json:"exam_id"`
	QuestionIDs       []string `json:"question_ids"`
	TimeBudgetSeconds int      `json:"time_budget_seconds"`
}

// Warnings is the warning log view of a session.
type Warnings struct {
	Recent []proctor.Warning `json:"recent"`
	All    []proctor.Warning `json:"all"`
}
