package notify

import (
	"context"
	"time"
)

// =============================================================================
// Notification Types
// =============================================================================

// EventType represents the kind of ticket outcome being reported.
type EventType string

// Event type constants.
const (
	EventTicketResolved    EventType = "ticket_resolved"
	EventTicketEscalated   EventType = "ticket_escalated"
	EventRunInterrupted    EventType = "run_interrupted"
	EventRunFailed         EventType = "run_failed"
	EventEscalationDropped EventType = "escalation_dropped"
)

// Severity constants for notifications.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Event describes a ticket run outcome for notification.
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Category  string         `json:"category,omitempty"`
	Stage     string         `json:"stage,omitempty"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"` // SeverityInfo, SeverityWarning, SeverityError
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// =============================================================================
// Notifier Interface
// =============================================================================

// Notifier sends notifications about ticket runs.
type Notifier interface {
	// Notify sends a notification. Callers treat failures as non-fatal.
	Notify(ctx context.Context, event Event) error
}
