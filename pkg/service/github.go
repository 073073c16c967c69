package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
)

// Reference:
// https://docs.github.com/en/search-github/searching-on-github/searching-issues-and-pull-requests

// Github implements the Service contract for GitHub and GitHub Enterprise.
type Github struct {
	base
	client *github.Client
}

// NewGithub creates a new GitHub service client.
func NewGithub(host string, creds map[string]string, log logger.Logger) (Service, error) {
	g := &Github{
		base: newBase("github", host, log),
	}
	g.tag = "gh"

	client := github.NewClient(nil)
	if token := creds["token"]; token != "" {
		client = client.WithAuthToken(token)
	}
	if !strings.HasSuffix(g.url, "github.com") {
		var err error
		client, err = client.WithEnterpriseURLs(g.url, g.url)
		if err != nil {
			return nil, fmt.Errorf("github: %w", err)
		}
	}
	g.client = client

	return g, nil
}

// GetIssue fetches a single GitHub issue or pull request.
func (g *Github) GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error) {
	owner, repo, ok := strings.Cut(ref.Repo, "/")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadReference, ref.Repo)
	}
	number, err := strconv.Atoi(ref.IssueID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadReference, ref.IssueID)
	}

	var got *issue.Issue
	fetchErr := g.withRateLimitRetry(ctx, func() (*github.Response, error) {
		if ref.IsPR {
			info, resp, err := g.client.PullRequests.Get(ctx, owner, repo, number)
			if err == nil {
				converted := g.pullToIssue(info, ref.Repo)
				got = &converted
			}
			return resp, err
		}
		info, resp, err := g.client.Issues.Get(ctx, owner, repo, number)
		if err == nil {
			converted := g.issueToIssue(info, ref.Repo, false)
			got = &converted
		}
		return resp, err
	})
	if fetchErr != nil {
		if notFound := g.notFound(fetchErr, ref); notFound != nil {
			return notFound, nil
		}
		return nil, fmt.Errorf("get issue %s %s: %w", ref.Repo, ref.IssueID, fetchErr)
	}
	return got, nil
}

// GetIssues fans the single-item call out across a bounded worker pool.
func (g *Github) GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue {
	return fanOutIssues(ctx, g, refs, g.log)
}

// GetUserIssues returns the open issues and pull requests involving the
// authenticated user, via the search API.
func (g *Github) GetUserIssues(ctx context.Context) ([]issue.Issue, error) {
	user, _, err := g.client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("get authenticated user: %w", err)
	}

	set := make(issue.Set)
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	query := fmt.Sprintf("state:open involves:%s", user.GetLogin())
	for {
		result, resp, err := g.client.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("search issues %q: %w", query, err)
		}
		for _, info := range result.Issues {
			set.Add(g.issueToIssue(info, repoFromURL(info.GetHTMLURL()), info.IsPullRequest()))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return set.Slice(), nil
}

// Close releases the underlying HTTP connections.
func (g *Github) Close() error {
	g.client.Client().CloseIdleConnections()
	return nil
}

// notFound translates a confirmed 404 into the sentinel issue, nil for any
// other failure.
func (g *Github) notFound(err error, ref issue.Reference) *issue.Issue {
	var apiErr *github.ErrorResponse
	if !errors.As(err, &apiErr) || apiErr.Response == nil ||
		apiErr.Response.StatusCode != http.StatusNotFound {
		return nil
	}
	path, mark := "issues", "#"
	if ref.IsPR {
		path, mark = "pull", "!"
	}
	notFound := issue.NotFound(
		fmt.Sprintf("%s#%s%s%s", g.tag, ref.Repo, mark, ref.IssueID),
		fmt.Sprintf("%s/%s/%s/%s", g.url, ref.Repo, path, ref.IssueID),
	)
	return &notFound
}

// withRateLimitRetry retries a call after sleeping out GitHub's rate-limit
// window, up to the retry budget. The sleep blocks only the calling worker.
func (g *Github) withRateLimitRetry(ctx context.Context, fn func() (*github.Response, error)) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var resp *github.Response
		resp, err = fn()
		if err == nil {
			return nil
		}

		wait, limited := rateLimitWait(err, resp)
		if !limited {
			return err
		}
		g.log.Warnf("github: rate limited, retrying in %s", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// rateLimitWait reports whether the error is a rate-limit exhaustion and how
// long to sleep before retrying.
func rateLimitWait(err error, resp *github.Response) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return time.Until(rateErr.Rate.Reset.Time), true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return abuseErr.GetRetryAfter(), true
	}
	if resp != nil && resp.StatusCode == http.StatusForbidden &&
		resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return time.Until(resp.Rate.Reset.Time), true
	}
	return 0, false
}

func (g *Github) issueToIssue(info *github.Issue, repo string, isPR bool) issue.Issue {
	mark := "#"
	if isPR {
		mark = "!"
	}
	return issue.Issue{
		Tag:      fmt.Sprintf("%s#%s%s%d", g.tag, repo, mark, info.GetNumber()),
		URL:      info.GetHTMLURL(),
		Assignee: loginOrNone(info.Assignee),
		Creator:  loginOrNone(info.User),
		Created:  info.GetCreatedAt().Time.UTC(),
		Updated:  info.GetUpdatedAt().Time.UTC(),
		Status:   issue.NormalizeStatus(info.GetState()),
		Title:    info.GetTitle(),
		Raw:      rawMap(info),
	}
}

func (g *Github) pullToIssue(info *github.PullRequest, repo string) issue.Issue {
	return issue.Issue{
		Tag:      fmt.Sprintf("%s#%s!%d", g.tag, repo, info.GetNumber()),
		URL:      info.GetHTMLURL(),
		Assignee: loginOrNone(info.Assignee),
		Creator:  loginOrNone(info.User),
		Created:  info.GetCreatedAt().Time.UTC(),
		Updated:  info.GetUpdatedAt().Time.UTC(),
		Status:   issue.NormalizeStatus(info.GetState()),
		Title:    info.GetTitle(),
		Raw:      rawMap(info),
	}
}

func loginOrNone(user *github.User) string {
	if user.GetLogin() == "" {
		return "none"
	}
	return user.GetLogin()
}

// repoFromURL extracts "owner/repo" from an issue web URL.
func repoFromURL(htmlURL string) string {
	parts := strings.Split(strings.TrimPrefix(htmlURL, "https://"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1] + "/" + parts[2]
}
