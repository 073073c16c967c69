package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Reference: https://bugzilla.readthedocs.io/en/latest/api/index.html#apis

// bugzillaNotFoundCode is Bugzilla's error code for a nonexistent bug;
// missing bugs come back as 400/404 with this code in the error body.
const bugzillaNotFoundCode = 101

// Bugzilla implements the Service contract for Bugzilla instances.
type Bugzilla struct {
	base
	session *session
	user    string
}

// NewBugzilla creates a new Bugzilla service client.
func NewBugzilla(host string, creds map[string]string, log logger.Logger) (Service, error) {
	b := &Bugzilla{
		base: newBase("bugzilla", host, log),
		user: creds["user"],
	}

	headers := http.Header{}
	if key := creds["api_key"]; key != "" {
		headers.Set("X-BUGZILLA-API-KEY", key)
	}
	b.session = newSession(log, headers)

	return b, nil
}

// GetIssue fetches a single Bugzilla bug.
func (b *Bugzilla) GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error) {
	bugs, err := b.fetchBugs(ctx, b.url+"/rest/bug/"+url.PathEscape(ref.IssueID), nil)
	if err != nil {
		return nil, fmt.Errorf("get bug %s: %w", ref.IssueID, err)
	}
	if len(bugs) == 0 {
		notFound := b.notFoundIssue(ref.IssueID)
		return &notFound, nil
	}
	got := b.toIssue(bugs[0])
	return &got, nil
}

// GetIssues fetches a whole batch with Bugzilla's multi-ID query. Bugzilla
// silently drops unknown IDs, so requested and returned IDs are reconciled
// and the missing ones surface as sentinels.
func (b *Bugzilla) GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.IssueID
	}

	params := url.Values{}
	for _, id := range ids {
		params.Add("id", id)
	}
	bugs, err := b.fetchBugs(ctx, b.url+"/rest/bug", params)
	if err != nil {
		b.log.Errorf("bugzilla: %s: get bugs: %v", b.url, err)
		return nil
	}

	found := make(map[string]bool, len(bugs))
	issues := make([]issue.Issue, 0, len(refs))
	for _, bug := range bugs {
		issues = append(issues, b.toIssue(bug))
		found[strconv.FormatInt(jsonInt(bug, "id"), 10)] = true
	}
	for _, id := range ids {
		if !found[id] {
			issues = append(issues, b.notFoundIssue(id))
		}
	}
	return issues
}

// GetUserIssues returns the open bugs assigned to or reported by the
// configured user, fetched concurrently and deduplicated.
func (b *Bugzilla) GetUserIssues(ctx context.Context) ([]issue.Issue, error) {
	if b.user == "" {
		return nil, fmt.Errorf("%w: user issues without configured user (bugzilla)", ErrNotSupported)
	}

	set := make(issue.Set)
	var mu sync.Mutex

	var group errgroup.Group
	for _, filter := range []string{"assigned_to", "reporter"} {
		filter := filter
		group.Go(func() error {
			params := url.Values{}
			params.Set(filter, b.user)
			params.Set("resolution", "---")
			bugs, err := b.fetchBugs(ctx, b.url+"/rest/bug", params)
			if err != nil {
				return fmt.Errorf("query %s=%s: %w", filter, b.user, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, bug := range bugs {
				set.Add(b.toIssue(bug))
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
func (b *Bugzilla) Close() error {
	b.session.close()
	return nil
}

// fetchBugs issues a bug query and unwraps the "bugs" array. A confirmed
// not-found error body yields an empty list, not an error.
func (b *Bugzilla) fetchBugs(ctx context.Context, rawURL string, params url.Values) ([]map[string]interface{}, error) {
	resp, err := b.session.do(ctx, http.MethodGet, rawURL, params)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Error bool                     `json:"error"`
		Code  int                      `json:"code"`
		Bugs  []map[string]interface{} `json:"bugs"`
	}
	if resp.StatusCode >= http.StatusBadRequest {
		// Bugzilla reports missing bugs as an error body with code 101.
		if json.NewDecoder(resp.Body).Decode(&body) == nil &&
			body.Error && body.Code == bugzillaNotFoundCode {
			return nil, nil
		}
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return body.Bugs, nil
}

func (b *Bugzilla) notFoundIssue(id string) issue.Issue {
	return issue.NotFound(
		fmt.Sprintf("%s#%s", b.tag, id),
		fmt.Sprintf("%s/show_bug.cgi?id=%s", b.url, id),
	)
}

func (b *Bugzilla) toIssue(bug map[string]interface{}) issue.Issue {
	id := jsonInt(bug, "id")
	assignee := jsonStr(bug, "assigned_to")
	if assignee == "" {
		assignee = "none"
	}
	return issue.Issue{
		Tag:      fmt.Sprintf("%s#%d", b.tag, id),
		URL:      fmt.Sprintf("%s/show_bug.cgi?id=%d", b.url, id),
		Assignee: assignee,
		Creator:  jsonStr(bug, "creator"),
		Created:  issue.ParseTime(jsonStr(bug, "creation_time")),
		Updated:  issue.ParseTime(jsonStr(bug, "last_change_time")),
		Status:   issue.NormalizeStatus(jsonStr(bug, "status")),
		Title:    jsonStr(bug, "summary"),
		Raw:      bug,
	}
}
