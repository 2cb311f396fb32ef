package escalation

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// CSVHeader lists the columns of the escalation log.
var CSVHeader = []string{
	"timestamp",
	"run_id",
	"ticket_subject",
	"ticket_description",
	"category",
	"retries",
	"draft_count",
	"feedback_count",
	"context_documents",
	"final_drafts",
	"review_feedback",
	"context_summary",
}

// CSVSink appends one row per escalation to a CSV file. The header is
// written when the file is created. Writes from concurrent runs are
// serialized.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink creates a sink writing to path. Parent directories are created
// on first write.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Name implements the sink label.
func (s *CSVSink) Name() string { return "csv" }

// Path returns the log file location.
func (s *CSVSink) Path() string { return s.path }

// Record appends rec.
func (s *CSVSink) Record(_ context.Context, rec Record) error {
	row, err := csvRow(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create escalation log dir: %w", err)
		}
	}

	_, statErr := os.Stat(s.path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open escalation log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(CSVHeader); err != nil {
			return fmt.Errorf("write escalation header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write escalation row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush escalation log: %w", err)
	}
	return nil
}

func csvRow(rec Record) ([]string, error) {
	drafts, err := json.Marshal(nonNil(rec.Drafts))
	if err != nil {
		return nil, fmt.Errorf("encode drafts: %w", err)
	}
	feedback := rec.Feedback
	if feedback == nil {
		feedback = []Feedback{}
	}
	fb, err := json.Marshal(feedback)
	if err != nil {
		return nil, fmt.Errorf("encode feedback: %w", err)
	}
	sources, err := json.Marshal(nonNil(rec.ContextSources))
	if err != nil {
		return nil, fmt.Errorf("encode context sources: %w", err)
	}

	return []string{
		rec.Timestamp.Format(time.RFC3339),
		rec.RunID,
		rec.Subject,
		rec.Description,
		rec.Category,
		strconv.Itoa(rec.Retries),
		strconv.Itoa(rec.DraftCount()),
		strconv.Itoa(rec.FeedbackCount()),
		strconv.Itoa(rec.ContextDocuments()),
		string(drafts),
		string(fb),
		string(sources),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
