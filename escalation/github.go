package escalation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubIssueSink opens a GitHub issue for each escalation.
type GitHubIssueSink struct {
	client *github.Client
	owner  string
	repo   string
	labels []string
}

// NewGitHubIssueSink creates a sink filing issues in owner/repo.
// token is a personal access token or GitHub App token.
func NewGitHubIssueSink(token, owner, repo string, labels ...string) (*GitHubIssueSink, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &GitHubIssueSink{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
		labels: labels,
	}, nil
}

// ParseGitHubRepo splits "owner/repo".
func ParseGitHubRepo(s string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSuffix(s, ".git"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub repository %q: want owner/repo", s)
	}
	return parts[0], parts[1], nil
}

// Name implements the sink label.
func (s *GitHubIssueSink) Name() string { return "github" }

// Record opens an issue describing rec.
func (s *GitHubIssueSink) Record(ctx context.Context, rec Record) error {
	labels := append([]string{"escalation", strings.ToLower(rec.Category)}, s.labels...)
	req := &github.IssueRequest{
		Title:  github.String(rec.Title()),
		Body:   github.String(rec.Markdown()),
		Labels: &labels,
	}

	if _, _, err := s.client.Issues.Create(ctx, s.owner, s.repo, req); err != nil {
		return fmt.Errorf("create GitHub issue: %w", err)
	}
	return nil
}
