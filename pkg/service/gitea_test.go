//go:build unit

package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func giteaServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/repos/owner/repo/issues/1":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"number":     1,
				"title":      "broken build",
				"state":      "open",
				"html_url":   "http://example.com/owner/repo/issues/1",
				"user":       map[string]interface{}{"login": "alice"},
				"assignee":   map[string]interface{}{"login": "bob"},
				"created_at": "2024-01-02T03:04:05Z",
				"updated_at": "2024-02-03T04:05:06Z",
			})
		case "/api/v1/repos/owner/repo/pulls/2":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"number":     2,
				"title":      "fix build",
				"state":      "closed",
				"html_url":   "http://example.com/owner/repo/pulls/2",
				"user":       map[string]interface{}{"login": "carol"},
				"created_at": "2024-01-02T03:04:05Z",
				"updated_at": "2024-02-03T04:05:06Z",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGitea_GetIssue(t *testing.T) {
	server := giteaServer(t)
	defer server.Close()

	svc, err := NewGitea(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{
		Repo:    "owner/repo",
		IssueID: "1",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "broken build", got.Title)
	assert.Equal(t, "OPEN", got.Status)
	assert.Equal(t, "bob", got.Assignee)
	assert.Equal(t, "alice", got.Creator)
	assert.Contains(t, got.Tag, "#owner/repo#1")
}

func TestGitea_GetIssue_PullRequest(t *testing.T) {
	server := giteaServer(t)
	defer server.Close()

	svc, err := NewGitea(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{
		Repo:    "owner/repo",
		IssueID: "2",
		IsPR:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fix build", got.Title)
	assert.Equal(t, "none", got.Assignee)
	assert.Contains(t, got.Tag, "!2")
}

func TestGitea_GetIssue_NotFound(t *testing.T) {
	server := giteaServer(t)
	defer server.Close()

	svc, err := NewGitea(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{
		Repo:    "owner/repo",
		IssueID: "999",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issue.NotFoundStatus, got.Status)
	assert.Equal(t, issue.NotFoundTitle, got.Title)
	assert.Equal(t, server.URL+"/owner/repo/issues/999", got.URL)
}

func TestGitea_GetIssues(t *testing.T) {
	server := giteaServer(t)
	defer server.Close()

	svc, err := NewGitea(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	issues := svc.GetIssues(context.Background(), []issue.Reference{
		{Repo: "owner/repo", IssueID: "1"},
		{Repo: "owner/repo", IssueID: "999"},
	})
	require.Len(t, issues, 2)
}

func TestGogs_GetIssue_NoPullRequests(t *testing.T) {
	svc, err := NewGogs("gogs.example.com", nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	_, err = svc.GetIssue(context.Background(), issue.Reference{
		Repo:    "owner/repo",
		IssueID: "1",
		IsPR:    true,
	})
	assert.ErrorIs(t, err, ErrNotSupported)
}
