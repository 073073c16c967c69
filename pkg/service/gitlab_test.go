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

func gitlabServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/projects/group/proj/issues/3":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":         3,
				"iid":        3,
				"title":      "broken pipeline",
				"state":      "opened",
				"web_url":    "https://gitlab.example.com/group/proj/-/issues/3",
				"author":     map[string]interface{}{"username": "alice"},
				"assignee":   map[string]interface{}{"username": "bob"},
				"references": map[string]interface{}{"full": "group/proj#3"},
				"created_at": "2024-01-02T03:04:05Z",
				"updated_at": "2024-02-03T04:05:06Z",
			})
		case "/api/v4/projects/group/proj/merge_requests/4":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"iid":        4,
				"title":      "fix pipeline",
				"state":      "merged",
				"web_url":    "https://gitlab.example.com/group/proj/-/merge_requests/4",
				"author":     map[string]interface{}{"username": "carol"},
				"references": map[string]interface{}{"full": "group/proj!4"},
				"created_at": "2024-01-02T03:04:05Z",
				"updated_at": "2024-02-03T04:05:06Z",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGitlab_GetIssue(t *testing.T) {
	server := gitlabServer(t)
	defer server.Close()

	svc, err := NewGitlab(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{
		Repo:    "group/proj",
		IssueID: "3",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, svc.Tag()+"#group/proj#3", got.Tag)
	assert.Equal(t, "broken pipeline", got.Title)
	assert.Equal(t, "OPENED", got.Status)
	assert.Equal(t, "bob", got.Assignee)
	assert.Equal(t, "alice", got.Creator)
}

func TestGitlab_GetIssue_MergeRequest(t *testing.T) {
	server := gitlabServer(t)
	defer server.Close()

	svc, err := NewGitlab(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{
		Repo:    "group/proj",
		IssueID: "4",
		IsPR:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, svc.Tag()+"#group/proj!4", got.Tag)
	assert.Equal(t, "MERGED", got.Status)
	assert.Equal(t, "none", got.Assignee)
	assert.Equal(t, "carol", got.Creator)
}

func TestGitlab_GetIssue_NotFound(t *testing.T) {
	server := gitlabServer(t)
	defer server.Close()

	svc, err := NewGitlab(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{
		Repo:    "group/proj",
		IssueID: "999",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issue.NotFoundStatus, got.Status)
	assert.Equal(t, server.URL+"/group/proj/-/issues/999", got.URL)
}

func TestGitlab_TagOnlyForGitlabCom(t *testing.T) {
	svc, err := NewGitlab("gitlab.com", nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	assert.Equal(t, "gl", svc.Tag())

	svc, err = NewGitlab("gitlab.suse.de", nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	assert.Equal(t, "gsd", svc.Tag())
}
