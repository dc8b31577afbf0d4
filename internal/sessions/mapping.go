package sessions

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/JaimeStill/proctor/pkg/query"
	"github.com/JaimeStill/proctor/pkg/repository"
)

var projection = query.
	NewProjection("public.sessions", "s").
	Field("id", "ID").
	Field("exam_id", "ExamID").
	Field("question_ids", "QuestionIDs").
	Field("time_budget_seconds", "TimeBudgetSeconds").
	Field("state", "State").
	Field("started_at", "StartedAt").
	Field("completed_at", "CompletedAt").
	Field("created_at", "CreatedAt").
	Field("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

var eventProjection = query.
	NewProjection("public.session_events", "e").
	Field("id", "ID").
	Field("session_id", "SessionID").
	Field("kind", "Kind").
	Field("message", "Message").
	Field("label", "Label").
	Field("confidence", "Confidence").
	Field("occurred_at", "OccurredAt")

var eventSort = query.SortField{Field: "OccurredAt"}

// Filters contains optional filtering criteria for session queries. Since
// and Until bound the creation time as a half-open interval.
type Filters struct {
	State  *string    `json:"state,omitempty"`
	ExamID *string    `json:"exam_id,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Until  *time.Time `json:"until,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("State", f.State).
		WhereEquals("ExamID", f.ExamID).
		WhereAtLeast("CreatedAt", f.Since).
		WhereBefore("CreatedAt", f.Until)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Timestamps that are not RFC 3339 are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if s := values.Get("state"); s != "" {
		f.State = &s
	}
	if e := values.Get("exam_id"); e != "" {
		f.ExamID = &e
	}
	f.Since = parseTime(values.Get("since"))
	f.Until = parseTime(values.Get("until"))
	return f
}

func parseTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func scanSession(s repository.Scanner) (Session, error) {
	var (
		rec       Session
		questions []byte
	)
	err := s.Scan(
		&rec.ID,
		&rec.ExamID,
		&questions,
		&rec.TimeBudgetSeconds,
		&rec.State,
		&rec.StartedAt,
		&rec.CompletedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(questions, &rec.QuestionIDs); err != nil {
		return rec, fmt.Errorf("decode question_ids: %w", err)
	}
	return rec, nil
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	err := s.Scan(
		&e.ID,
		&e.SessionID,
		&e.Kind,
		&e.Message,
		&e.Label,
		&e.Confidence,
		&e.OccurredAt,
	)
	return e, err
}
