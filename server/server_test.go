package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/supportflow/auth"
	"github.com/randalmurphal/supportflow/checkpoint"
	"github.com/randalmurphal/supportflow/metrics"
	"github.com/randalmurphal/supportflow/testutil"
	"github.com/randalmurphal/supportflow/workflow"
)

var testJWT = auth.JWTConfig{
	Secret: []byte("server-test-secret-that-is-32-bytes"),
	Issuer: "supportflow",
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	srv      *Server
	store    *checkpoint.MemoryStore
	registry *prometheus.Registry
}

func setupTestServer(t *testing.T, authCfg *auth.JWTConfig, reviewer *testutil.Reviewer) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	store := checkpoint.NewMemoryStore()
	orch := workflow.New(workflow.Dependencies{
		Classifier: &testutil.Classifier{Label: "Billing"},
		Retriever: &testutil.Retriever{Docs: []workflow.ContextDocument{
			testutil.Doc("billing_policy.md", 0.8, workflow.CategoryBilling),
		}},
		Generator: &testutil.Generator{},
		Reviewer:  reviewer,
		Sink:      &testutil.Sink{},
		Store:     store,
	}, workflow.DefaultConfig(),
		workflow.WithLogger(quietLogger()),
		workflow.WithMetrics(metrics.New(reg)),
	)

	srv, err := New(orch, Config{Auth: authCfg, Gatherer: reg, Logger: quietLogger()})
	require.NoError(t, err)
	return &fixture{srv: srv, store: store, registry: reg}
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// stubRunner returns fixed errors for paths a real orchestrator cannot
// easily reach.
type stubRunner struct {
	err error
}

func (s stubRunner) Run(context.Context, workflow.Ticket) (*workflow.Outcome, error) {
	return nil, s.err
}

func (s stubRunner) Resume(context.Context, string) (*workflow.Outcome, error) {
	return nil, s.err
}

func (s stubRunner) Checkpoint(context.Context, string) (*workflow.Snapshot, error) {
	return nil, s.err
}

// =============================================================================
// Construction
// =============================================================================

func TestNew(t *testing.T) {
	t.Run("nil runner", func(t *testing.T) {
		_, err := New(nil, Config{})
		assert.Error(t, err)
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := New(stubRunner{}, Config{Auth: &auth.JWTConfig{Secret: []byte("short")}})
		assert.ErrorIs(t, err, auth.ErrSecretTooShort)
	})

	t.Run("defaults", func(t *testing.T) {
		srv, err := New(stubRunner{}, Config{})
		require.NoError(t, err)
		assert.Equal(t, ":8080", srv.cfg.Addr)
		assert.NotNil(t, srv.cfg.Gatherer)
	})
}

// =============================================================================
// Routes
// =============================================================================

func TestHandleHealth(t *testing.T) {
	f := setupTestServer(t, nil, testutil.ScriptedReviewer(0))

	rec := do(t, f.srv.Handler(), http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSubmitTicket(t *testing.T) {
	f := setupTestServer(t, nil, testutil.ScriptedReviewer(0))

	rec := do(t, f.srv.Handler(), http.MethodPost, "/api/v1/tickets",
		`{"subject":"Refund request","description":"I was charged twice"}`, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[workflow.Outcome](t, rec)
	assert.Equal(t, workflow.StatusResolved, out.Status)
	assert.Equal(t, workflow.CategoryBilling, out.Category)
	assert.Equal(t, "Draft 1 for Billing", out.FinalOutput)
	assert.NotEmpty(t, out.RunID)

	rec = do(t, f.srv.Handler(), http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `supportflow_runs_total{category="Billing",status="resolved"} 1`)
}

func TestSubmitTicket_Escalates(t *testing.T) {
	f := setupTestServer(t, nil, testutil.RejectingReviewer())

	rec := do(t, f.srv.Handler(), http.MethodPost, "/api/v1/tickets",
		`{"subject":"Refund request","description":"I was charged twice"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[workflow.Outcome](t, rec)
	assert.Equal(t, workflow.StatusEscalated, out.Status)
	assert.Equal(t, workflow.EscalationMessage, out.FinalOutput)
	assert.Equal(t, 2, out.Retries)
}

func TestSubmitTicket_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"malformed json", `{"subject":`, ""},
		{"blank subject", `{"subject":"  ","description":"x"}`, "subject"},
		{"missing description", `{"subject":"Help"}`, "description"},
		{"oversized subject", `{"subject":"` + strings.Repeat("s", 201) + `","description":"x"}`, "subject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestServer(t, nil, testutil.ScriptedReviewer(0))

			rec := do(t, f.srv.Handler(), http.MethodPost, "/api/v1/tickets", tt.body, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantField, decode[ErrorResponse](t, rec).Field)
			assert.Equal(t, 0, f.store.Len(), "rejected tickets must not be checkpointed")
		})
	}
}

func TestGetRun(t *testing.T) {
	f := setupTestServer(t, nil, testutil.ScriptedReviewer(1))
	h := f.srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/tickets", `{"subject":"Refund","description":"charged twice"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	runID := decode[workflow.Outcome](t, rec).RunID

	rec = do(t, h, http.MethodGet, "/api/v1/runs/"+runID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[RunView](t, rec)
	assert.Equal(t, runID, view.RunID)
	assert.True(t, view.Finished)
	assert.Equal(t, workflow.StageEnd, view.NextStage)
	assert.Equal(t, 1, view.Retries)
	assert.Equal(t, 2, view.Drafts)

	rec = do(t, h, http.MethodGet, "/api/v1/runs/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "does-not-exist", decode[ErrorResponse](t, rec).RunID)
}

func TestResumeRun_Finished(t *testing.T) {
	f := setupTestServer(t, nil, testutil.ScriptedReviewer(0))
	h := f.srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/tickets", `{"subject":"Refund","description":"charged twice"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[workflow.Outcome](t, rec)

	rec = do(t, h, http.MethodPost, "/api/v1/runs/"+first.RunID+"/resume", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[workflow.Outcome](t, rec)
	assert.Equal(t, first.FinalOutput, again.FinalOutput)
	assert.Equal(t, first.Drafts, again.Drafts)
}

func TestResumeRun_RejectsRunInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &testutil.Generator{Func: func(_ context.Context, call int, req workflow.GenerateRequest) (string, error) {
		if call == 1 {
			close(started)
			<-release
		}
		return "Draft for " + string(req.Category), nil
	}}
	orch := workflow.New(workflow.Dependencies{
		Classifier: &testutil.Classifier{Label: "Billing"},
		Retriever: &testutil.Retriever{Docs: []workflow.ContextDocument{
			testutil.Doc("billing_policy.md", 0.8, workflow.CategoryBilling),
		}},
		Generator: gen,
		Reviewer:  testutil.ScriptedReviewer(0),
		Sink:      &testutil.Sink{},
	}, workflow.DefaultConfig(),
		workflow.WithLogger(quietLogger()),
		workflow.WithRunIDGenerator(func() string { return "run-busy" }),
	)
	srv, err := New(orch, Config{Logger: quietLogger(), Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)
	h := srv.Handler()

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- do(t, h, http.MethodPost, "/api/v1/tickets", `{"subject":"Refund","description":"charged twice"}`, "")
	}()
	<-started

	rec := do(t, h, http.MethodPost, "/api/v1/runs/run-busy/resume", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "run-busy", decode[ErrorResponse](t, rec).RunID)

	close(release)
	submitted := <-done
	require.Equal(t, http.StatusOK, submitted.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/runs/run-busy/resume", "", "")
	require.Equal(t, http.StatusOK, rec.Code, "the run is free once the submit returns")
	assert.Equal(t, decode[workflow.Outcome](t, submitted).FinalOutput, decode[workflow.Outcome](t, rec).FinalOutput)
	assert.Len(t, gen.Requests(), 1, "the finished run is not driven again")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantRunID string
	}{
		{
			name:      "interrupted",
			err:       &workflow.InterruptedError{RunID: "r-1", Stage: workflow.StageReview, Err: context.Canceled},
			wantCode:  http.StatusServiceUnavailable,
			wantRunID: "r-1",
		},
		{
			name:     "internal",
			err:      &workflow.StageError{Stage: workflow.StageGenerate, Err: errors.New("boom")},
			wantCode: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := New(stubRunner{err: tt.err}, Config{Logger: quietLogger(), Gatherer: prometheus.NewRegistry()})
			require.NoError(t, err)

			rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/tickets", `{"subject":"a","description":"b"}`, "")

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantRunID, resp.RunID)
			assert.NotContains(t, resp.Error, "boom", "internal details must not leak")
		})
	}
}

// =============================================================================
// Authentication
// =============================================================================

func TestBearerAuth(t *testing.T) {
	f := setupTestServer(t, &testJWT, testutil.ScriptedReviewer(0))
	h := f.srv.Handler()

	readOnly, err := auth.IssueToken(testJWT, "dashboard", auth.ScopeRead)
	require.NoError(t, err)
	submitter, err := auth.IssueToken(testJWT, "helpdesk", auth.ScopeSubmit)
	require.NoError(t, err)
	foreign, err := auth.IssueToken(auth.JWTConfig{Secret: []byte("some-other-secret-of-32-bytes-long"), Issuer: "supportflow"}, "x", auth.ScopeSubmit)
	require.NoError(t, err)

	body := `{"subject":"Refund","description":"charged twice"}`
	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"foreign token", foreign, http.StatusUnauthorized},
		{"missing scope", readOnly, http.StatusForbidden},
		{"allowed", submitter, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/tickets", body, tt.token)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}

	t.Run("health and metrics stay open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", "").Code)
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics", "", "").Code)
	})
}
