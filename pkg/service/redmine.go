package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Reference: https://www.redmine.org/projects/redmine/wiki/Rest_api

// Redmine implements the Service contract for Redmine instances.
type Redmine struct {
	base
	session *session
}

// NewRedmine creates a new Redmine service client.
func NewRedmine(host string, creds map[string]string, log logger.Logger) (Service, error) {
	r := &Redmine{
		base: newBase("redmine", host, log),
	}

	headers := http.Header{}
	if key := creds["key"]; key != "" {
		headers.Set("X-Redmine-API-Key", key)
	}
	r.session = newSession(log, headers)

	return r, nil
}

// GetIssue fetches a single Redmine ticket.
func (r *Redmine) GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error) {
	var body struct {
		Issue map[string]interface{} `json:"issue"`
	}
	err := r.session.getJSON(ctx, r.url+"/issues/"+url.PathEscape(ref.IssueID)+".json", nil, &body)
	if errors.Is(err, errNotFound) {
		notFound := r.notFoundIssue(ref.IssueID)
		return &notFound, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", ref.IssueID, err)
	}
	got := r.toIssue(body.Issue)
	return &got, nil
}

// GetIssues fetches the whole batch with Redmine's ID-list filter. Redmine
// silently drops unknown IDs, so requested and returned IDs are reconciled
// and the missing ones surface as sentinels.
func (r *Redmine) GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue {
	if len(refs) == 0 {
		return nil
	}

	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.IssueID
	}

	params := url.Values{}
	params.Set("issue_id", strings.Join(ids, ","))
	params.Set("status_id", "*")
	found, err := r.listIssues(ctx, params)
	if err != nil {
		r.log.Errorf("redmine: %s: get issues: %v", r.url, err)
		return nil
	}

	returned := make(map[string]bool, len(found))
	issues := make([]issue.Issue, 0, len(refs))
	for _, raw := range found {
		issues = append(issues, r.toIssue(raw))
		returned[strconv.FormatInt(jsonInt(raw, "id"), 10)] = true
	}
	for _, id := range ids {
		if !returned[id] {
			issues = append(issues, r.notFoundIssue(id))
		}
	}
	return issues
}

// GetUserIssues returns the open tickets assigned to or created by the
// authenticated user, fetched concurrently and deduplicated.
func (r *Redmine) GetUserIssues(ctx context.Context) ([]issue.Issue, error) {
	set := make(issue.Set)
	var mu sync.Mutex

	var group errgroup.Group
	for _, filter := range []string{"assigned_to_id", "author_id"} {
		filter := filter
		group.Go(func() error {
			params := url.Values{}
			params.Set(filter, "me")
			found, err := r.listIssues(ctx, params)
			if err != nil {
				return fmt.Errorf("query %s=me: %w", filter, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, raw := range found {
				set.Add(r.toIssue(raw))
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return set.Slice(), nil
}

// Close releases the underlying session.
func (r *Redmine) Close() error {
	r.session.close()
	return nil
}

// listIssues pages through /issues.json with offset/limit until the
// reported total count is reached.
func (r *Redmine) listIssues(ctx context.Context, extra url.Values) ([]map[string]interface{}, error) {
	var issues []map[string]interface{}
	for {
		params := url.Values{}
		for key, values := range extra {
			params[key] = values
		}
		params.Set("limit", "100")
		params.Set("offset", strconv.Itoa(len(issues)))

		var body struct {
			TotalCount int                      `json:"total_count"`
			Issues     []map[string]interface{} `json:"issues"`
		}
		if err := r.session.getJSON(ctx, r.url+"/issues.json", params, &body); err != nil {
			return nil, err
		}
		issues = append(issues, body.Issues...)
		if len(body.Issues) == 0 || len(issues) >= body.TotalCount {
			return issues, nil
		}
	}
}

func (r *Redmine) notFoundIssue(id string) issue.Issue {
	return issue.NotFound(
		fmt.Sprintf("%s#%s", r.tag, id),
		fmt.Sprintf("%s/issues/%s", r.url, id),
	)
}

func (r *Redmine) toIssue(raw map[string]interface{}) issue.Issue {
	id := jsonInt(raw, "id")
	assignee := jsonStr(raw, "assigned_to", "name")
	if assignee == "" {
		assignee = "none"
	}
	return issue.Issue{
		Tag:      fmt.Sprintf("%s#%d", r.tag, id),
		URL:      fmt.Sprintf("%s/issues/%d", r.url, id),
		Assignee: assignee,
		Creator:  jsonStr(raw, "author", "name"),
		Created:  issue.ParseTime(jsonStr(raw, "created_on")),
		Updated:  issue.ParseTime(jsonStr(raw, "updated_on")),
		Status:   issue.NormalizeStatus(jsonStr(raw, "status", "name")),
		Title:    jsonStr(raw, "subject"),
		Raw:      raw,
	}
}
