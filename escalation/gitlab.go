package escalation

import (
	"context"
	"fmt"
	"strings"

	"github.com/xanzy/go-gitlab"
)

// GitLabIssueSink opens a GitLab issue for each escalation.
type GitLabIssueSink struct {
	client    *gitlab.Client
	projectID string // Can be numeric ID or "namespace/project"
	labels    []string
}

// NewGitLabIssueSink creates a sink filing issues in projectID.
// baseURL is the GitLab instance URL (empty for gitlab.com).
func NewGitLabIssueSink(token, baseURL, projectID string, labels ...string) (*GitLabIssueSink, error) {
	if token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	var opts []gitlab.ClientOptionFunc
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &GitLabIssueSink{
		client:    client,
		projectID: projectID,
		labels:    labels,
	}, nil
}

// Name implements the sink label.
func (s *GitLabIssueSink) Name() string { return "gitlab" }

// Record opens an issue describing rec.
func (s *GitLabIssueSink) Record(ctx context.Context, rec Record) error {
	labels := gitlab.LabelOptions(append([]string{"escalation", strings.ToLower(rec.Category)}, s.labels...))
	opts := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(rec.Title()),
		Description: gitlab.Ptr(rec.Markdown()),
		Labels:      &labels,
	}

	if _, _, err := s.client.Issues.CreateIssue(s.projectID, opts, gitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("create GitLab issue: %w", err)
	}
	return nil
}
