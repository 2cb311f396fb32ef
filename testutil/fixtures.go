// Package testutil provides fixtures and deterministic fakes for testing the
// support pipeline.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/randalmurphal/supportflow/workflow"
)

// Sample tickets, one per category.
var (
	RefundTicket = workflow.Ticket{
		Subject:     "Refund request",
		Description: "I was charged twice",
	}
	APITicket = workflow.Ticket{
		Subject:     "API returns 500",
		Description: "Every call to the integration endpoint fails with an error since this morning.",
	}
	LoginTicket = workflow.Ticket{
		Subject:     "Cannot login",
		Description: "My password reset link never arrives and I am locked out of my account.",
	}
	GeneralTicket = workflow.Ticket{
		Subject:     "Office hours",
		Description: "When is your team available for a call?",
	}
)

// OversizedTicket returns a ticket whose description exceeds the default
// limit by one character.
func OversizedTicket() workflow.Ticket {
	return workflow.Ticket{
		Subject:     "Long report",
		Description: strings.Repeat("a", workflow.DefaultMaxDescriptionLength+1),
	}
}

// Doc builds a context document.
func Doc(source string, score float64, category workflow.Category) workflow.ContextDocument {
	return workflow.ContextDocument{
		Content:        "Content of " + source,
		Source:         source,
		RelevanceScore: score,
		Category:       string(category),
	}
}

// KnowledgeBaseDoc is the on-disk knowledge base document layout.
type KnowledgeBaseDoc struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Category string `json:"category,omitempty"`
}

// WriteKnowledgeBase writes <category>_docs.json files into a fresh
// directory and returns its path.
func WriteKnowledgeBase(t *testing.T, docs map[workflow.Category][]KnowledgeBaseDoc) string {
	t.Helper()

	dir := t.TempDir()
	for category, list := range docs {
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			t.Fatalf("marshal %s docs: %v", category, err)
		}
		name := strings.ToLower(string(category)) + "_docs.json"
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
