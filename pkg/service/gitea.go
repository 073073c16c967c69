package service

import (
	"context"
	"net/url"
	"sync"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Reference: https://try.gitea.io/api/swagger

// Gitea implements the Service contract for Gitea instances.
type Gitea struct {
	*Generic
}

// NewGitea creates a new Gitea service client.
func NewGitea(host string, creds map[string]string, log logger.Logger) (Service, error) {
	generic := newGeneric("gitea", host, tokenAuth(creds), log)
	generic.issueAPIURL = generic.url + "/api/v1/repos/%s/issues/%s"
	generic.issueWebURL = generic.url + "/%s/issues/%s"
	generic.prAPIURL = generic.url + "/api/v1/repos/%s/pulls/%s"
	generic.prWebURL = generic.url + "/%s/pulls/%s"

	g := &Gitea{Generic: generic}
	generic.convert = g.toIssue
	return g, nil
}

// GetUserIssues returns the open issues assigned to or created by the
// authenticated user, via the cross-repository search endpoint. Results are
// paginated with Link headers.
func (g *Gitea) GetUserIssues(ctx context.Context) ([]issue.Issue, error) {
	set := make(issue.Set)
	var mu sync.Mutex

	var group errgroup.Group
	for _, filter := range []string{"assigned", "created"} {
		filter := filter
		group.Go(func() error {
			params := url.Values{}
			params.Set(filter, "true")
			params.Set("state", "open")
			items := g.fetchAll(ctx, g.url+"/api/v1/repos/issues/search", params, linkCursor, "")
			mu.Lock()
			defer mu.Unlock()
			for _, item := range items {
				set.Add(g.toIssue(item, issue.Reference{IsPR: item["pull_request"] != nil}))
			}
			return nil
		})
	}
	_ = group.Wait()
	return set.Slice(), nil
}

func (g *Gitea) toIssue(raw map[string]interface{}, ref issue.Reference) issue.Issue {
	repo := jsonStr(raw, "repository", "full_name")
	if repo == "" {
		repo = ref.Repo
	}
	mark := "#"
	if ref.IsPR {
		mark = "!"
	}
	assignee := jsonStr(raw, "assignee", "login")
	if assignee == "" {
		assignee = "none"
	}
	return issue.Issue{
		Tag:      g.tag + "#" + repo + mark + formatID(raw, "number"),
		URL:      jsonStr(raw, "html_url"),
		Assignee: assignee,
		Creator:  jsonStr(raw, "user", "login"),
		Created:  issue.ParseTime(jsonStr(raw, "created_at")),
		Updated:  issue.ParseTime(jsonStr(raw, "updated_at")),
		Status:   issue.NormalizeStatus(jsonStr(raw, "state")),
		Title:    jsonStr(raw, "title"),
		Raw:      raw,
	}
}

// tokenAuth builds the "token" authorization header value used by the Gitea
// family of APIs, empty for anonymous access.
func tokenAuth(creds map[string]string) string {
	if token := creds["token"]; token != "" {
		return "token " + token
	}
	return ""
}
