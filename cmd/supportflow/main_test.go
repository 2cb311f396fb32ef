package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/supportflow/auth"
	"github.com/randalmurphal/supportflow/checkpoint"
	"github.com/randalmurphal/supportflow/config"
	"github.com/randalmurphal/supportflow/notify"
	"github.com/randalmurphal/supportflow/retrieval"
	"github.com/randalmurphal/supportflow/workflow"
)

// execute runs the CLI with an isolated home directory and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SUPPORTFLOW_ESCALATION_LOG", filepath.Join(home, "escalations.csv"))
	t.Setenv("SUPPORTFLOW_LOG_LEVEL", "error")

	outputJSON = false
	flagLogLevel, flagLogFormat, flagKBDir, flagProvider = "", "", "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "resume", "serve", "token", "kb", "config", "graph"}
	got := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "command %q not registered", name)
	}
}

func TestRunCommand_LocalFallbacks(t *testing.T) {
	out, err := execute(t, "run", "--provider", "none", "--kb-dir", t.TempDir(), "--json",
		"--subject", "Refund request", "--description", "I was charged twice")
	require.NoError(t, err)

	var outcome workflow.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome), out)
	assert.Equal(t, workflow.StatusResolved, outcome.Status)
	assert.Equal(t, workflow.CategoryBilling, outcome.Category)
	assert.Equal(t, workflow.TemplateDraft(workflow.Ticket{Subject: "Refund request"}, workflow.CategoryBilling), outcome.FinalOutput)
	assert.NotEmpty(t, outcome.RetrievedContext, "built-in samples should match a refund ticket")
}

func TestRunCommand_InvalidTicket(t *testing.T) {
	_, err := execute(t, "run", "--provider", "none", "--subject", " ", "--description", "x")
	assert.ErrorIs(t, err, workflow.ErrInvalidTicket)
}

func TestResumeCommand_UnknownRun(t *testing.T) {
	_, err := execute(t, "resume", "--provider", "none", "missing-run")
	assert.ErrorIs(t, err, workflow.ErrRunNotFound)
}

// saveEscalationCheckpoint stores a run that was rejected three times and is
// about to escalate.
func saveEscalationCheckpoint(t *testing.T, dir, runID string) {
	t.Helper()
	state := workflow.NewState(runID, workflow.Ticket{Subject: "Refund request", Description: "I was charged twice"})
	state.Category = workflow.CategoryBilling
	state.Retries = 2
	state.Drafts = []string{"draft 1", "draft 2", "draft 3"}
	state.CurrentDraft = "draft 3"
	for i := 1; i <= 3; i++ {
		state.ReviewFeedback = append(state.ReviewFeedback, workflow.ReviewFeedback{
			Status: workflow.VerdictRejected, Feedback: "too vague", Attempt: i,
		})
	}
	state.Status = workflow.StatusReviewed

	data, err := json.Marshal(state)
	require.NoError(t, err)
	store, err := checkpoint.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), checkpoint.Checkpoint{
		RunID: runID,
		Stage: string(workflow.StageEscalate),
		State: data,
	}))
}

func TestResumeCommand_EscalationNotifiesOnce(t *testing.T) {
	var mu sync.Mutex
	var events []notify.Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e notify.Event
		_ = json.NewDecoder(r.Body).Decode(&e)
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	runs := t.TempDir()
	saveEscalationCheckpoint(t, runs, "run-escalate")
	t.Setenv("SUPPORTFLOW_CHECKPOINT_DRIVER", config.DriverFile)
	t.Setenv("SUPPORTFLOW_CHECKPOINT_PATH", runs)
	t.Setenv("SUPPORTFLOW_WEBHOOK_URL", server.URL)

	out, err := execute(t, "resume", "--provider", "none", "--json", "run-escalate")
	require.NoError(t, err)

	var outcome workflow.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome), out)
	assert.True(t, outcome.Escalated)
	assert.Equal(t, workflow.EscalationMessage, outcome.FinalOutput)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventTicketEscalated, events[0].Type)
	assert.Equal(t, "run-escalate", events[0].RunID)

	f, err := os.Open(os.Getenv("SUPPORTFLOW_ESCALATION_LOG"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2, "header and one escalation")
}

func TestTokenCommand(t *testing.T) {
	t.Run("requires secret", func(t *testing.T) {
		_, err := execute(t, "token", "bot")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), config.KeyJWTSecret)
	})

	t.Run("issues scoped token", func(t *testing.T) {
		secret := "cli-test-secret-that-is-32-bytes-long"
		t.Setenv("SUPPORTFLOW_JWT_SECRET", secret)

		out, err := execute(t, "token", "bot", "--scopes", "runs:read", "--ttl", "1h")
		require.NoError(t, err)

		claims, err := auth.VerifyToken(auth.JWTConfig{Secret: []byte(secret), Issuer: "supportflow"}, strings.TrimSpace(out))
		require.NoError(t, err)
		assert.Equal(t, "bot", claims.Subject)
		assert.Equal(t, []auth.Scope{auth.ScopeRead}, claims.Scopes)
		assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	})
}

func TestKBSearchCommand(t *testing.T) {
	out, err := execute(t, "kb", "search", "--kb-dir", t.TempDir(), "--category", "Billing", "refund", "policy")
	require.NoError(t, err)
	assert.Contains(t, out, "billing_policy.md")
}

func TestKBSearchCommand_EmbeddingProvider(t *testing.T) {
	t.Setenv("SUPPORTFLOW_EMBEDDING_PROVIDER", config.EmbeddingFastEmbed)
	t.Setenv("SUPPORTFLOW_EMBEDDING_MODEL", "no-such-model")

	_, err := execute(t, "kb", "search", "--kb-dir", t.TempDir(), "refund")
	assert.ErrorIs(t, err, retrieval.ErrUnsupportedModel)
}

func TestConfigCommands(t *testing.T) {
	home := t.TempDir()
	run := func(args ...string) string {
		t.Helper()
		t.Setenv("HOME", home)
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}

	run("config", "set", "nats_subject", "support.escalated")
	assert.Equal(t, "support.escalated\n", run("config", "get", "nats_subject"))

	list := run("config", "list")
	assert.Contains(t, list, "nats_subject")
	assert.Contains(t, list, "global")

	run("config", "unset", "nats_subject")
	assert.Equal(t, "supportflow.escalations\n", run("config", "get", "nats_subject"))
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "entry: classify_ticket")
	assert.Contains(t, out, "review_response ?> refine_context")
	assert.Contains(t, out, "review_response ?> escalate_ticket")
}

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"github_token", "ghp_x", "********"},
		{"jwt_secret", "s", "********"},
		{"openai_api_key", "sk", "********"},
		{"slack_webhook_url", "https://hooks", "********"},
		{"nats_url", "nats://x", "nats://x"},
		{"gitlab_url", "", "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, displayValue(tt.key, tt.value), tt.key)
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", excerpt("a\n b\t c", 10))
	assert.Equal(t, "héll...", excerpt("héllo world", 4))
}
