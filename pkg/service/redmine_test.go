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

func redmineIssue(id int, status, subject string) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"subject":     subject,
		"created_on":  "2024-01-02T03:04:05Z",
		"updated_on":  "2024-02-03T04:05:06Z",
		"assigned_to": map[string]interface{}{"name": "alice"},
		"author":      map[string]interface{}{"name": "bob"},
		"status":      map[string]interface{}{"name": status},
	}
}

func redmineServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/issues/1.json":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"issue": redmineIssue(1, "New", "first ticket"),
			})
		case "/issues.json":
			assert.Equal(t, "*", r.URL.Query().Get("status_id"))
			// The ID-list filter silently drops unknown IDs.
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"total_count": 2,
				"issues": []interface{}{
					redmineIssue(1, "New", "first ticket"),
					redmineIssue(2, "Feedback", "second ticket"),
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRedmine_GetIssue(t *testing.T) {
	server := redmineServer(t)
	defer server.Close()

	svc, err := NewRedmine(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{IssueID: "1"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first ticket", got.Title)
	assert.Equal(t, "NEW", got.Status)
	assert.Equal(t, server.URL+"/issues/1", got.URL)

	got, err = svc.GetIssue(context.Background(), issue.Reference{IssueID: "999"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issue.NotFoundStatus, got.Status)
}

func TestRedmine_GetIssues_Reconciliation(t *testing.T) {
	server := redmineServer(t)
	defer server.Close()

	svc, err := NewRedmine(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	issues := svc.GetIssues(context.Background(), []issue.Reference{
		{IssueID: "1"},
		{IssueID: "2"},
		{IssueID: "999"},
	})
	require.Len(t, issues, 3)

	byURL := make(map[string]issue.Issue, len(issues))
	for _, got := range issues {
		byURL[got.URL] = got
	}
	assert.Equal(t, "first ticket", byURL[server.URL+"/issues/1"].Title)
	assert.Equal(t, "FEEDBACK", byURL[server.URL+"/issues/2"].Status)
	assert.Equal(t, issue.NotFoundTitle, byURL[server.URL+"/issues/999"].Title)
}
