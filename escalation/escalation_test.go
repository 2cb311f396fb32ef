package escalation

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v57/github"
	"github.com/xanzy/go-gitlab"
)

func sampleRecord() Record {
	rec := NewRecord("run-1", "Refund request", "I was charged twice", "Billing", 2)
	rec.Drafts = []string{"draft one", "draft two", "draft three"}
	rec.Feedback = []Feedback{
		{Status: "rejected", Feedback: "too vague", Attempt: 1},
		{Status: "rejected", Feedback: "missing refund policy", Attempt: 2},
		{Status: "rejected", Feedback: "still wrong", Attempt: 3},
	}
	rec.ContextSources = []string{"billing_policy.md"}
	return rec
}

// =============================================================================
// Record Tests
// =============================================================================

func TestRecord_Counts(t *testing.T) {
	rec := sampleRecord()
	if rec.DraftCount() != 3 || rec.FeedbackCount() != 3 || rec.ContextDocuments() != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/3/1", rec.DraftCount(), rec.FeedbackCount(), rec.ContextDocuments())
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(sampleRecord())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["draft_count"] != float64(3) {
		t.Errorf("draft_count = %v, want 3", m["draft_count"])
	}
	if m["ticket_subject"] != "Refund request" {
		t.Errorf("ticket_subject = %v", m["ticket_subject"])
	}
}

func TestRecord_Title(t *testing.T) {
	rec := sampleRecord()
	if got := rec.Title(); got != "[Billing] Escalated: Refund request" {
		t.Errorf("Title() = %q", got)
	}

	rec.Subject = strings.Repeat("x", 120)
	if got := rec.Title(); len(got) > 110 || !strings.HasSuffix(got, "...") {
		t.Errorf("long Title() = %q", got)
	}
}

func TestRecord_Markdown(t *testing.T) {
	md := sampleRecord().Markdown()
	for _, want := range []string{"run-1", "Billing", "Draft 3", "missing refund policy", "billing_policy.md"} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown() missing %q", want)
		}
	}
}

// =============================================================================
// CSVSink Tests
// =============================================================================

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVSink_HeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "escalations.csv")
	sink := NewCSVSink(path)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := sink.Record(ctx, sampleRecord()); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(CSVHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}

	row := rows[1]
	if row[1] != "run-1" || row[4] != "Billing" || row[5] != "2" || row[6] != "3" || row[7] != "3" || row[8] != "1" {
		t.Errorf("row = %v", row)
	}

	var drafts []string
	if err := json.Unmarshal([]byte(row[9]), &drafts); err != nil || len(drafts) != 3 {
		t.Errorf("final_drafts = %s (%v)", row[9], err)
	}
	var sources []string
	if err := json.Unmarshal([]byte(row[11]), &sources); err != nil || sources[0] != "billing_policy.md" {
		t.Errorf("context_summary = %s (%v)", row[11], err)
	}
}

func TestCSVSink_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escalations.csv")
	sink := NewCSVSink(path)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sink.Record(context.Background(), sampleRecord()); err != nil {
				t.Errorf("Record() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if rows := readCSV(t, path); len(rows) != 11 {
		t.Errorf("rows = %d, want 11", len(rows))
	}
}

func TestCSVSink_NilSlices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escalations.csv")
	rec := Record{RunID: "r", Category: "General"}
	if err := NewCSVSink(path).Record(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	row := readCSV(t, path)[1]
	if row[9] != "[]" || row[10] != "[]" || row[11] != "[]" {
		t.Errorf("empty history columns = %v", row[9:])
	}
}

// =============================================================================
// NATSSink Tests
// =============================================================================

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func TestNATSSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "")

	if err := sink.Record(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if pub.subject != DefaultNATSSubject {
		t.Errorf("subject = %q, want %q", pub.subject, DefaultNATSSubject)
	}
	var m map[string]any
	if err := json.Unmarshal(pub.data, &m); err != nil {
		t.Fatal(err)
	}
	if m["run_id"] != "run-1" {
		t.Errorf("run_id = %v", m["run_id"])
	}
}

func TestNATSSink_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	if err := NewNATSSink(pub, "x").Record(context.Background(), sampleRecord()); err == nil {
		t.Error("expected publish error")
	}
}

// =============================================================================
// Issue Sink Tests
// =============================================================================

func TestGitHubIssueSink(t *testing.T) {
	var got github.IssueRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/acme/support/issues" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"number": 7}`))
	}))
	defer server.Close()

	client := github.NewClient(nil)
	client.BaseURL, _ = client.BaseURL.Parse(server.URL + "/")
	sink := &GitHubIssueSink{client: client, owner: "acme", repo: "support", labels: []string{"triage"}}

	if err := sink.Record(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got.GetTitle() != "[Billing] Escalated: Refund request" {
		t.Errorf("title = %q", got.GetTitle())
	}
	if labels := got.GetLabels(); len(labels) != 3 || labels[1] != "billing" {
		t.Errorf("labels = %v", labels)
	}
}

func TestNewGitHubIssueSink_Validation(t *testing.T) {
	if _, err := NewGitHubIssueSink("", "o", "r"); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := NewGitHubIssueSink("t", "", "r"); err == nil {
		t.Error("expected error for missing owner")
	}
}

func TestParseGitHubRepo(t *testing.T) {
	owner, repo, err := ParseGitHubRepo("acme/support")
	if err != nil || owner != "acme" || repo != "support" {
		t.Errorf("ParseGitHubRepo() = %s, %s, %v", owner, repo, err)
	}
	if _, _, err := ParseGitHubRepo("nope"); err == nil {
		t.Error("expected error for missing slash")
	}
}

func TestGitLabIssueSink(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.EscapedPath(), "/projects/acme%2Fsupport/issues") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.EscapedPath())
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"id": 101,
			"iid": 3,
			"project_id": 42,
			"title": "[Billing] Escalated: Refund request",
			"state": "opened",
			"labels": ["support", "escalation"],
			"web_url": "https://gitlab.example.com/acme/support/-/issues/3",
			"created_at": "2026-01-02T03:04:05Z"
		}`))
	}))
	defer server.Close()

	client, err := gitlab.NewClient("test-token", gitlab.WithBaseURL(server.URL+"/api/v4"))
	if err != nil {
		t.Fatal(err)
	}
	sink := &GitLabIssueSink{client: client, projectID: "acme/support"}

	if err := sink.Record(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if body["title"] != "[Billing] Escalated: Refund request" {
		t.Errorf("title = %v", body["title"])
	}
}

// =============================================================================
// MultiSink Tests
// =============================================================================

type recordingSink struct {
	name string
	err  error
	recs []Record
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Record(_ context.Context, rec Record) error {
	s.recs = append(s.recs, rec)
	return s.err
}

func TestMultiSink_ContinuesOnError(t *testing.T) {
	failing := &recordingSink{name: "bad", err: errors.New("disk full")}
	ok := &recordingSink{name: "good"}
	multi := NewMultiSink(failing, nil, ok)
	multi.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	err := multi.Record(context.Background(), sampleRecord())
	if err == nil || !strings.Contains(err.Error(), "bad: disk full") {
		t.Errorf("error = %v, want joined sink error", err)
	}
	if len(failing.recs) != 1 || len(ok.recs) != 1 {
		t.Errorf("records = %d/%d, want 1/1", len(failing.recs), len(ok.recs))
	}
}

func TestName(t *testing.T) {
	if Name(NopSink{}) != "nop" {
		t.Errorf("Name(NopSink) = %q", Name(NopSink{}))
	}
	if Name(NewCSVSink("x")) != "csv" {
		t.Error("Name(CSVSink) should be csv")
	}
}
