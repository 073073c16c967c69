package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Reference: https://launchpad.net/+apidoc/1.0.html

const launchpadAPI = "https://api.launchpad.net/1.0"

// Launchpad implements the Service contract for Launchpad. Bugs are global
// there, so references need no repository: a bare id is resolved to its
// project by following the web redirect.
type Launchpad struct {
	*Generic
	user string
}

// NewLaunchpad creates a new Launchpad service client.
func NewLaunchpad(host string, creds map[string]string, log logger.Logger) (Service, error) {
	generic := newGeneric("launchpad", host, tokenAuth(creds), log)
	generic.tag = "lp"
	generic.issueAPIURL = launchpadAPI + "/%s/+bug/%s"
	generic.issueWebURL = generic.url + "/%s/+bug/%s"

	l := &Launchpad{Generic: generic, user: creds["username"]}
	generic.convert = l.toIssue
	return l, nil
}

// GetIssue fetches a single bug. When the reference carries no project, a
// HEAD request against the bug's short URL discovers it from the redirect.
func (l *Launchpad) GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error) {
	if ref.Repo == "" {
		shortURL := l.url + "/bugs/" + ref.IssueID
		resp, err := l.session.do(ctx, http.MethodHead, shortURL, nil)
		if err != nil {
			return nil, fmt.Errorf("get issue %s: %w", ref.IssueID, err)
		}
		drain(resp)
		if resp.StatusCode == http.StatusNotFound {
			notFound := issue.NotFound(l.tag+"#"+ref.IssueID, shortURL)
			return &notFound, nil
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("get issue %s: %s", ref.IssueID, resp.Status)
		}
		// Final URL looks like /<project>/+bug/<id> after redirects.
		path := resp.Request.URL.Path
		if cut := strings.LastIndex(path, "/+bug/"); cut >= 0 {
			ref.Repo = strings.TrimPrefix(path[:cut], "/")
		}
	}
	return l.Generic.GetIssue(ctx, ref)
}

// GetIssues fans the single-item call out across a bounded worker pool.
func (l *Launchpad) GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue {
	return fanOutIssues(ctx, l, refs, l.log)
}

// GetUserIssues returns the bugs assigned to or reported by the configured
// user. Launchpad's API has no "current user" shorthand, so the username must
// be provided in the credentials.
func (l *Launchpad) GetUserIssues(ctx context.Context) ([]issue.Issue, error) {
	if l.user == "" {
		return nil, ErrNotSupported
	}
	userURL := launchpadAPI + "/~" + l.user

	set := make(issue.Set)
	var mu sync.Mutex

	var group errgroup.Group
	for _, filter := range []string{"assignee", "bug_reporter"} {
		filter := filter
		group.Go(func() error {
			params := url.Values{}
			params.Set("ws.op", "searchTasks")
			params.Set(filter, userURL)

			var body struct {
				Entries []map[string]interface{} `json:"entries"`
			}
			if err := l.session.getJSON(ctx, launchpadAPI+"/bugs", params, &body); err != nil {
				l.log.Errorf("%s: user issues (%s): %v", l.name, filter, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, entry := range body.Entries {
				set.Add(l.toIssue(entry, issue.Reference{}))
			}
			return nil
		})
	}
	_ = group.Wait()
	return set.Slice(), nil
}

// extra fetches the global bug record, which carries fields the bug task
// payload lacks, notably the last-updated date.
func (l *Launchpad) extra(ctx context.Context, id string) map[string]interface{} {
	var info map[string]interface{}
	if err := l.session.getJSON(ctx, launchpadAPI+"/bugs/"+id, nil, &info); err != nil {
		l.log.Errorf("%s: %s: %v", l.name, id, err)
		return map[string]interface{}{}
	}
	return info
}

func (l *Launchpad) toIssue(raw map[string]interface{}, _ issue.Reference) issue.Issue {
	webLink := jsonStr(raw, "web_link")
	id := webLink[strings.LastIndex(webLink, "/")+1:]
	extra := l.extra(context.Background(), id)
	raw["extra"] = extra

	assignee := "none"
	if link := jsonStr(raw, "assignee_link"); link != "" {
		assignee = lpUser(link)
	}
	return issue.Issue{
		Tag:      l.tag + "#" + id,
		URL:      webLink,
		Assignee: assignee,
		Creator:  lpUser(jsonStr(raw, "owner_link")),
		Created:  issue.ParseTime(jsonStr(raw, "date_created")),
		Updated:  issue.ParseTime(jsonStr(extra, "date_last_updated")),
		Status:   issue.NormalizeStatus(jsonStr(raw, "status")),
		Title:    jsonStr(raw, "title"),
		Raw:      raw,
	}
}

// lpUser extracts the username from an API person link like
// "https://api.launchpad.net/1.0/~someone".
func lpUser(link string) string {
	return link[strings.LastIndex(link, "~")+1:]
}
