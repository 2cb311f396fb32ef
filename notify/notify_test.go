package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/supportflow/httpclient"
)

// =============================================================================
// Event Type Tests
// =============================================================================

func TestEventTypes(t *testing.T) {
	types := []EventType{
		EventTicketResolved,
		EventTicketEscalated,
		EventRunInterrupted,
		EventRunFailed,
		EventEscalationDropped,
	}

	seen := make(map[EventType]bool)
	for _, et := range types {
		if seen[et] {
			t.Errorf("duplicate event type: %s", et)
		}
		seen[et] = true
	}
}

// =============================================================================
// NopNotifier Tests
// =============================================================================

func TestNopNotifier(t *testing.T) {
	err := NopNotifier{}.Notify(context.Background(), Event{
		Type:    EventTicketResolved,
		Message: "test",
	})
	if err != nil {
		t.Errorf("NopNotifier.Notify() error = %v, want nil", err)
	}
}

// =============================================================================
// LogNotifier Tests
// =============================================================================

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewLogNotifier(logger)
	err := n.Notify(context.Background(), Event{
		Type:      EventTicketEscalated,
		RunID:     "run-123",
		Category:  "Billing",
		Message:   "Ticket escalated after 2 retries",
		Severity:  SeverityWarning,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Errorf("LogNotifier.Notify() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Ticket escalated after 2 retries", "run-123", "Billing", "level=WARN"} {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q: %s", want, output)
		}
	}
}

func TestLogNotifier_Severity(t *testing.T) {
	tests := []struct {
		severity string
		wantLog  string
	}{
		{SeverityInfo, "level=INFO"},
		{SeverityWarning, "level=WARN"},
		{SeverityError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			var buf bytes.Buffer
			n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

			if err := n.Notify(context.Background(), Event{Message: "test", Severity: tt.severity}); err != nil {
				t.Errorf("Notify() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("log output = %s, want %s", buf.String(), tt.wantLog)
			}
		})
	}
}

// =============================================================================
// WebhookNotifier Tests
// =============================================================================

func TestWebhookNotifier(t *testing.T) {
	var received []byte
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		gotHeader = r.Header.Get("X-Api-Key")
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, map[string]string{"X-Api-Key": "secret"})
	event := Event{
		Type:      EventTicketResolved,
		RunID:     "run-456",
		Category:  "Technical",
		Message:   "resolved",
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"retries": 1},
	}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	var parsed Event
	if err := json.Unmarshal(received, &parsed); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if parsed.RunID != "run-456" || parsed.Category != "Technical" {
		t.Errorf("parsed = %+v", parsed)
	}
	if gotHeader != "secret" {
		t.Errorf("X-Api-Key = %q, want secret", gotHeader)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, nil)
	n.Client = httpclient.New(httpclient.Config{Service: "webhook", MaxRetries: 2, RetryWait: time.Millisecond})
	err := n.Notify(context.Background(), Event{Type: EventRunFailed})
	if !errors.Is(err, httpclient.ErrServerError) {
		t.Errorf("Notify() error = %v, want ErrServerError", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

// =============================================================================
// SlackNotifier Tests
// =============================================================================

func TestSlackNotifier(t *testing.T) {
	var payload slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL, WithSlackChannel("#support"), WithSlackUsername("bot"))
	err := n.Notify(context.Background(), Event{
		Type:      EventTicketEscalated,
		RunID:     "run-789",
		Category:  "Security",
		Message:   "needs a human",
		Severity:  SeverityWarning,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"retries": 2, "drafts": 3},
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if payload.Channel != "#support" || payload.Username != "bot" {
		t.Errorf("channel/username = %s/%s", payload.Channel, payload.Username)
	}
	if len(payload.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(payload.Attachments))
	}
	att := payload.Attachments[0]
	if att.Title != "Ticket escalated to a human agent" {
		t.Errorf("Title = %q", att.Title)
	}
	if att.Color != "warning" {
		t.Errorf("Color = %q, want warning", att.Color)
	}
	if !strings.Contains(att.Footer, "Security") || !strings.Contains(att.Footer, "run-789") {
		t.Errorf("Footer = %q", att.Footer)
	}
	if len(att.Fields) != 2 || att.Fields[0].Title != "drafts" {
		t.Errorf("Fields = %+v, want sorted drafts, retries", att.Fields)
	}
}

func TestSlackNotifier_ColorForSeverity(t *testing.T) {
	n := &SlackNotifier{}

	tests := []struct {
		severity  string
		wantColor string
	}{
		{SeverityInfo, "good"},
		{SeverityWarning, "warning"},
		{SeverityError, "danger"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			if color := n.colorForSeverity(tt.severity); color != tt.wantColor {
				t.Errorf("colorForSeverity() = %s, want %s", color, tt.wantColor)
			}
		})
	}
}

func TestTitleForEvent_Unknown(t *testing.T) {
	if got := titleForEvent(Event{Type: "custom"}); got != "custom" {
		t.Errorf("titleForEvent() = %q, want custom", got)
	}
}

// =============================================================================
// MultiNotifier Tests
// =============================================================================

func TestMultiNotifier(t *testing.T) {
	var calls []string

	multi := NewMultiNotifier(
		&mockNotifier{name: "n1", calls: &calls},
		&mockNotifier{name: "n2", calls: &calls},
	)

	if err := multi.Notify(context.Background(), Event{Type: EventTicketResolved}); err != nil {
		t.Errorf("MultiNotifier.Notify() error = %v", err)
	}
	if len(calls) != 2 || calls[0] != "n1" || calls[1] != "n2" {
		t.Errorf("Calls = %v, want [n1 n2]", calls)
	}
}

func TestMultiNotifier_ContinuesOnError(t *testing.T) {
	var calls []string

	multi := NewMultiNotifier(
		&mockNotifier{name: "n1", calls: &calls, err: context.DeadlineExceeded},
		&mockNotifier{name: "n2", calls: &calls},
	)
	multi.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	err := multi.Notify(context.Background(), Event{Type: EventTicketResolved})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
	if len(calls) != 2 {
		t.Errorf("Call count = %d, want 2 (both notifiers called)", len(calls))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
	err   error
}

func (m *mockNotifier) Notify(ctx context.Context, event Event) error {
	*m.calls = append(*m.calls, m.name)
	return m.err
}
