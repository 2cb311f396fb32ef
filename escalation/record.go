package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Feedback is one review verdict in the escalation history.
type Feedback struct {
	Status    string `json:"status"`
	Feedback  string `json:"feedback"`
	Timestamp string `json:"timestamp"`
	Attempt   int    `json:"attempt"`
}

// Record is one escalated ticket.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	Subject     string    `json:"ticket_subject"`
	Description string    `json:"ticket_description"`
	Category    string    `json:"category"`
	Retries     int       `json:"retries"`

	Drafts         []string   `json:"final_drafts"`
	Feedback       []Feedback `json:"review_feedback"`
	ContextSources []string   `json:"context_sources"`
}

// NewRecord starts a record for a ticket escalated now.
func NewRecord(runID, subject, description, category string, retries int) Record {
	return Record{
		Timestamp:      time.Now().UTC(),
		RunID:          runID,
		Subject:        subject,
		Description:    description,
		Category:       category,
		Retries:        retries,
		Drafts:         []string{},
		Feedback:       []Feedback{},
		ContextSources: []string{},
	}
}

// DraftCount returns the number of generation attempts.
func (r Record) DraftCount() int { return len(r.Drafts) }

// FeedbackCount returns the number of review verdicts.
func (r Record) FeedbackCount() int { return len(r.Feedback) }

// ContextDocuments returns the number of knowledge-base documents consulted.
func (r Record) ContextDocuments() int { return len(r.ContextSources) }

// MarshalJSON adds the derived counts to the encoded record.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		DraftCount       int `json:"draft_count"`
		FeedbackCount    int `json:"feedback_count"`
		ContextDocuments int `json:"context_documents"`
	}{plain(r), r.DraftCount(), r.FeedbackCount(), r.ContextDocuments()})
}

// Title is a one-line summary used for issue titles.
func (r Record) Title() string {
	subject := r.Subject
	if len([]rune(subject)) > 80 {
		subject = string([]rune(subject)[:77]) + "..."
	}
	return fmt.Sprintf("[%s] Escalated: %s", r.Category, subject)
}

// Markdown renders the record for human review.
func (r Record) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Escalated support ticket\n\n")
	fmt.Fprintf(&b, "- **Run:** `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- **Category:** %s\n", r.Category)
	fmt.Fprintf(&b, "- **Escalated at:** %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Retries:** %d (%d drafts, %d reviews)\n\n", r.Retries, r.DraftCount(), r.FeedbackCount())

	fmt.Fprintf(&b, "### Subject\n\n%s\n\n", r.Subject)
	fmt.Fprintf(&b, "### Description\n\n%s\n\n", r.Description)

	if len(r.Feedback) > 0 {
		b.WriteString("### Review history\n\n")
		for _, fb := range r.Feedback {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", fb.Attempt, fb.Status, fb.Feedback)
		}
		b.WriteString("\n")
	}

	if len(r.Drafts) > 0 {
		b.WriteString("### Drafts\n\n")
		for i, d := range r.Drafts {
			fmt.Fprintf(&b, "<details><summary>Draft %d</summary>\n\n%s\n\n</details>\n\n", i+1, d)
		}
	}

	if len(r.ContextSources) > 0 {
		b.WriteString("### Knowledge base sources\n\n")
		for _, src := range r.ContextSources {
			fmt.Fprintf(&b, "- %s\n", src)
		}
	}

	return b.String()
}

// =============================================================================
// Sink Interface
// =============================================================================

// Sink receives escalation records.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// Name returns a short label for sink, used in logs and metrics.
func Name(sink Sink) string {
	if n, ok := sink.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", sink)
}
