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

func bugzillaBug(id int, status, summary string) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"status":           status,
		"summary":          summary,
		"assigned_to":      "alice",
		"creator":          "bob",
		"creation_time":    "2024-01-02T03:04:05Z",
		"last_change_time": "2024-02-03T04:05:06Z",
	}
}

func bugzillaServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/bug/1":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"bugs": []interface{}{bugzillaBug(1, "NEW", "first bug")},
			})
		case "/rest/bug/999":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": true,
				"code":  101,
			})
		case "/rest/bug":
			// The multi-ID query silently drops unknown IDs.
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"bugs": []interface{}{
					bugzillaBug(1, "NEW", "first bug"),
					bugzillaBug(2, "IN PROGRESS", "second bug"),
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestBugzilla_GetIssue(t *testing.T) {
	server := bugzillaServer(t)
	defer server.Close()

	svc, err := NewBugzilla(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{IssueID: "1"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first bug", got.Title)
	assert.Equal(t, "NEW", got.Status)
	assert.Equal(t, server.URL+"/show_bug.cgi?id=1", got.URL)
}

func TestBugzilla_GetIssue_NotFound(t *testing.T) {
	server := bugzillaServer(t)
	defer server.Close()

	svc, err := NewBugzilla(server.URL, nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	got, err := svc.GetIssue(context.Background(), issue.Reference{IssueID: "999"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issue.NotFoundStatus, got.Status)
	assert.Equal(t, issue.NotFoundTitle, got.Title)
}

func TestBugzilla_GetIssues_Reconciliation(t *testing.T) {
	server := bugzillaServer(t)
	defer server.Close()

	svc, err := NewBugzilla(server.URL, nil, logger.NewNoopLogger())
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
	assert.Equal(t, "first bug", byURL[server.URL+"/show_bug.cgi?id=1"].Title)
	assert.Equal(t, "IN_PROGRESS", byURL[server.URL+"/show_bug.cgi?id=2"].Status)
	assert.Equal(t, issue.NotFoundTitle, byURL[server.URL+"/show_bug.cgi?id=999"].Title)
}

func TestBugzilla_GetUserIssues_NoUser(t *testing.T) {
	svc, err := NewBugzilla("bugzilla.example.com", nil, logger.NewNoopLogger())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	_, err = svc.GetUserIssues(context.Background())
	assert.ErrorIs(t, err, ErrNotSupported)
}
