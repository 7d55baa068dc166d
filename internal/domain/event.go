package domain

import "time"

// EventCategory buckets feed events.
type EventCategory string

const (
	EventThreat  EventCategory = "threat"
	EventAnomaly EventCategory = "anomaly"
	EventInsight EventCategory = "insight"
	EventPassive EventCategory = "passive"
	EventSystem  EventCategory = "system"
)

// Severity orders events by urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event is an immutable record appended to the event feed. The feed is a
// bounded FIFO; oldest events are dropped once capacity is exceeded, a
// documented lossy-log policy rather than an error.
type Event struct {
	ID        string         `json:"id"`
	Category  EventCategory  `json:"category"`
	Severity  Severity       `json:"severity"`
	Subject   string         `json:"subject,omitempty"` // emitter address
	Summary   string         `json:"summary"`
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
