package detection

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the coarse tier assigned to an anomaly.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Counts maps each violation kind to the number of events fired.
type Counts map[Kind]int

// Add increments the counter for kind.
func (c Counts) Add(kind Kind) {
	c[kind]++
}

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Anomaly is one severity-graded line of the final report.
type Anomaly struct {
	Type        string    `json:"type"`
	Count       int       `json:"count"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// RiskSummary flags sessions with tab switching, AI content, or prohibited objects.
type RiskSummary struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
}

type tierRule struct {
	kind        Kind
	name        string
	description string
	high        int
	medium      int
}

// Counts strictly above high are high severity, strictly above medium are medium.
var tierRules = []tierRule{
	{KindTabSwitch, "Tab Switching", "Switched between browser tabs during exam", 5, 2},
	{KindFaceLost, "Face Detection", "Face not detected in camera frame", 10, 5},
	{KindProhibitedObject, "Prohibited Objects", "Prohibited objects detected during exam", 3, 1},
	{KindPhoneUsage, "Phone Usage", "Phone usage detected during exam", 2, 0},
}

// Tier grades count against the strict high and medium bounds.
func Tier(count, high, medium int) Severity {
	switch {
	case count > high:
		return SeverityHigh
	case count > medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Aggregate converts cumulative counts into the ordered anomaly list. The
// AI content entry is present only when AI content was ever detected.
func Aggregate(counts Counts, aiDetected bool, at time.Time) []Anomaly {
	anomalies := make([]Anomaly, 0, len(tierRules)+1)
	for _, r := range tierRules {
		n := counts[r.kind]
		anomalies = append(anomalies, Anomaly{
			Type:        r.name,
			Count:       n,
			Severity:    Tier(n, r.high, r.medium),
			Description: r.description,
			Timestamp:   at,
		})
	}

	if aiDetected {
		anomalies = append(anomalies, Anomaly{
			Type:        "AI Content",
			Count:       1,
			Severity:    SeverityHigh,
			Description: "Potential use of AI-generated content",
			Timestamp:   at,
		})
	}

	return anomalies
}

// HighRisk returns a summary when the session shows tab switching, AI
// content, or prohibited objects, and nil otherwise.
func HighRisk(counts Counts, aiDetected bool, at time.Time) *RiskSummary {
	tabs := counts[KindTabSwitch]
	objects := counts[KindProhibitedObject]
	phones := counts[KindPhoneUsage]

	if tabs == 0 && !aiDetected && objects == 0 {
		return nil
	}

	var parts []string
	if tabs > 0 {
		parts = append(parts, fmt.Sprintf("Tab switching detected (%d times).", tabs))
	}
	if aiDetected {
		parts = append(parts, "AI-generated content detected.")
	}
	if objects > 0 {
		parts = append(parts, fmt.Sprintf("Prohibited objects detected (%d instances).", objects))
	}
	if phones > 0 {
		parts = append(parts, fmt.Sprintf("Phone usage detected (%d instances).", phones))
	}

	return &RiskSummary{
		Type:        "High Risk Activity Detected",
		Description: strings.Join(parts, " "),
		Severity:    SeverityHigh,
		Timestamp:   at,
	}
}
