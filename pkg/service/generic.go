package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
)

// Generic implements the Service contract for trackers speaking token-auth
// JSON REST (Gitea, Gogs, Pagure, Bitbucket, Allura, Launchpad). Concrete
// adapters fill in the URL templates and the payload conversion.
type Generic struct {
	base
	session *session

	// URL templates; the verb is substituted with repo and issue id.
	issueAPIURL string
	issueWebURL string
	prAPIURL    string
	prWebURL    string

	// convert maps the backend's raw payload to the common Issue shape.
	convert func(raw map[string]interface{}, ref issue.Reference) issue.Issue
}

// newGeneric creates the REST base for an adapter. The authorization header
// value is used verbatim ("token x", "Bearer x"); empty means anonymous.
func newGeneric(name, host, authorization string, log logger.Logger) *Generic {
	headers := http.Header{}
	if authorization != "" {
		headers.Set("Authorization", authorization)
	}
	return &Generic{
		base:    newBase(name, host, log),
		session: newSession(log, headers),
	}
}

// GetIssue fetches a single issue or pull request from the tracker.
func (g *Generic) GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error) {
	apiURL, webURL, mark := g.issueAPIURL, g.issueWebURL, "#"
	if ref.IsPR {
		if g.prAPIURL == "" {
			return nil, fmt.Errorf("%w: pull requests (%s)", ErrNotSupported, g.name)
		}
		apiURL, webURL, mark = g.prAPIURL, g.prWebURL, "!"
	}

	var raw map[string]interface{}
	err := g.session.getJSON(ctx, fmt.Sprintf(apiURL, ref.Repo, ref.IssueID), nil, &raw)
	if errors.Is(err, errNotFound) {
		notFound := issue.NotFound(
			fmt.Sprintf("%s#%s%s%s", g.tag, ref.Repo, mark, ref.IssueID),
			fmt.Sprintf(webURL, ref.Repo, ref.IssueID),
		)
		return &notFound, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %s %s: %w", ref.Repo, ref.IssueID, err)
	}

	got := g.convert(raw, ref)
	return &got, nil
}

// GetIssues fans the single-item call out across a bounded worker pool.
func (g *Generic) GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue {
	return fanOutIssues(ctx, g, refs, g.log)
}

// GetUserIssues reports the operation as unsupported. Adapters whose
// backend has a user-issue query override this.
func (g *Generic) GetUserIssues(_ context.Context) ([]issue.Issue, error) {
	return nil, fmt.Errorf("%w: user issues (%s)", ErrNotSupported, g.name)
}

// Close releases the underlying session.
func (g *Generic) Close() error {
	g.session.close()
	return nil
}
