package service

import (
	"context"
	"net/url"
	"sync"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Reference: https://pagure.io/api/0/

// Pagure implements the Service contract for Pagure instances.
type Pagure struct {
	*Generic
	user string
}

// NewPagure creates a new Pagure service client.
func NewPagure(host string, creds map[string]string, log logger.Logger) (Service, error) {
	generic := newGeneric("pagure", host, tokenAuth(creds), log)
	generic.issueAPIURL = generic.url + "/api/0/%s/issue/%s"
	generic.issueWebURL = generic.url + "/%s/issue/%s"
	generic.prAPIURL = generic.url + "/api/0/%s/pull-request/%s"
	generic.prWebURL = generic.url + "/%s/pull-request/%s"

	p := &Pagure{Generic: generic, user: creds["user"]}
	generic.convert = p.toIssue
	return p, nil
}

// GetUserIssues returns the open issues assigned to or created by the
// configured user. Pagure has no notion of "current user" in its API, so the
// username must be provided in the credentials.
func (p *Pagure) GetUserIssues(ctx context.Context) ([]issue.Issue, error) {
	if p.user == "" {
		return nil, ErrNotSupported
	}

	set := make(issue.Set)
	var mu sync.Mutex

	var group errgroup.Group
	for _, filter := range []string{"assignee", "author"} {
		filter := filter
		group.Go(func() error {
			params := url.Values{}
			params.Set(filter, "1")
			params.Set("status", "Open")
			items := p.fetchAll(ctx, p.url+"/api/0/user/"+p.user+"/issues", params, bodyCursor, "issues")
			mu.Lock()
			defer mu.Unlock()
			for _, item := range items {
				set.Add(p.toIssue(item, issue.Reference{}))
			}
			return nil
		})
	}
	_ = group.Wait()
	return set.Slice(), nil
}

func (p *Pagure) toIssue(raw map[string]interface{}, ref issue.Reference) issue.Issue {
	repo := ref.Repo
	if repo == "" {
		repo = jsonStr(raw, "project", "fullname")
	}
	mark := "#"
	if ref.IsPR {
		mark = "!"
	}
	assignee := jsonStr(raw, "assignee", "name")
	if assignee == "" {
		assignee = "none"
	}
	return issue.Issue{
		Tag:      p.tag + "#" + repo + mark + formatID(raw, "id"),
		URL:      jsonStr(raw, "full_url"),
		Assignee: assignee,
		Creator:  jsonStr(raw, "user", "name"),
		Created:  issue.ParseTime(jsonStr(raw, "date_created")),
		Updated:  issue.ParseTime(jsonStr(raw, "last_updated")),
		Status:   issue.NormalizeStatus(jsonStr(raw, "status")),
		Title:    jsonStr(raw, "title"),
		Raw:      raw,
	}
}
