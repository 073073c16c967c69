package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
)

// References:
// https://developer.atlassian.com/cloud/jira/platform/rest/v2/
// https://support.atlassian.com/jira-service-management-cloud/docs/jql-functions/

// Jira implements the Service contract for Jira instances.
type Jira struct {
	base
	session *session
}

// NewJira creates a new Jira service client.
func NewJira(host string, creds map[string]string, log logger.Logger) (Service, error) {
	j := &Jira{
		base: newBase("jira", host, log),
	}

	headers := http.Header{}
	if token := creds["token"]; token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}
	if cookie := creds["cookie"]; cookie != "" {
		headers.Set("Cookie", cookie)
	}
	j.session = newSession(log, headers)

	return j, nil
}

// GetIssue fetches a single Jira ticket by key.
func (j *Jira) GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error) {
	var raw map[string]interface{}
	err := j.session.getJSON(ctx, j.url+"/rest/api/2/issue/"+url.PathEscape(ref.IssueID), nil, &raw)
	if errors.Is(err, errNotFound) {
		notFound := j.notFoundIssue(ref.IssueID)
		return &notFound, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", ref.IssueID, err)
	}
	got := j.toIssue(raw)
	return &got, nil
}

// GetIssues fetches the whole batch with one JQL "key IN" query, falling
// back to the per-item fan-out when the bulk query is rejected (Jira errors
// the entire query on any malformed key). Keys the query silently drops
// surface as sentinels.
func (j *Jira) GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue {
	if len(refs) == 0 {
		return nil
	}

	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.IssueID
	}

	jql := fmt.Sprintf("key IN (%s)", strings.Join(keys, ","))
	found, err := j.search(ctx, jql, url.Values{"validateQuery": []string{"false"}})
	if err != nil {
		j.log.Warnf("jira: %s: bulk query failed, fetching one by one: %v", j.url, err)
		return fanOutIssues(ctx, j, refs, j.log)
	}

	returned := make(map[string]bool, len(found))
	issues := make([]issue.Issue, 0, len(refs))
	for _, raw := range found {
		issues = append(issues, j.toIssue(raw))
		returned[jsonStr(raw, "key")] = true
	}
	for _, key := range keys {
		if !returned[key] {
			issues = append(issues, j.notFoundIssue(key))
		}
	}
	return issues
}

// GetUserIssues returns the unresolved tickets watched by the authenticated
// user.
func (j *Jira) GetUserIssues(ctx context.Context) ([]issue.Issue, error) {
	found, err := j.search(ctx, "watcher = currentUser() AND resolution IS EMPTY", nil)
	if err != nil {
		return nil, fmt.Errorf("get user issues: %w", err)
	}
	issues := make([]issue.Issue, 0, len(found))
	for _, raw := range found {
		issues = append(issues, j.toIssue(raw))
	}
	return issues, nil
}

// Close releases the underlying session.
func (j *Jira) Close() error {
	j.session.close()
	return nil
}

// search pages through a JQL query with startAt offsets until the reported
// total is reached.
func (j *Jira) search(ctx context.Context, jql string, extra url.Values) ([]map[string]interface{}, error) {
	var issues []map[string]interface{}
	for {
		params := url.Values{}
		for key, values := range extra {
			params[key] = values
		}
		params.Set("jql", jql)
		params.Set("startAt", strconv.Itoa(len(issues)))

		var body struct {
			Total  int                      `json:"total"`
			Issues []map[string]interface{} `json:"issues"`
		}
		if err := j.session.getJSON(ctx, j.url+"/rest/api/2/search", params, &body); err != nil {
			return nil, err
		}
		issues = append(issues, body.Issues...)
		if len(body.Issues) == 0 || len(issues) >= body.Total {
			return issues, nil
		}
	}
}

func (j *Jira) notFoundIssue(key string) issue.Issue {
	return issue.NotFound(
		fmt.Sprintf("%s#%s", j.tag, key),
		fmt.Sprintf("%s/browse/%s", j.url, key),
	)
}

func (j *Jira) toIssue(raw map[string]interface{}) issue.Issue {
	key := jsonStr(raw, "key")
	assignee := jsonStr(raw, "fields", "assignee", "name")
	if assignee == "" {
		assignee = "none"
	}
	return issue.Issue{
		Tag:      fmt.Sprintf("%s#%s", j.tag, key),
		URL:      fmt.Sprintf("%s/browse/%s", j.url, key),
		Assignee: assignee,
		Creator:  jsonStr(raw, "fields", "creator", "name"),
		Created:  issue.ParseTime(jsonStr(raw, "fields", "created")),
		Updated:  issue.ParseTime(jsonStr(raw, "fields", "updated")),
		Status:   issue.NormalizeStatus(jsonStr(raw, "fields", "status", "name")),
		Title:    jsonStr(raw, "fields", "summary"),
		Raw:      raw,
	}
}
