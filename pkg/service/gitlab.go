package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/sync/errgroup"
)

// References:
// https://docs.gitlab.com/ee/api/issues.html
// https://docs.gitlab.com/ee/api/merge_requests.html

// Gitlab implements the Service contract for GitLab instances.
type Gitlab struct {
	base
	client *gitlab.Client
}

// NewGitlab creates a new GitLab service client.
func NewGitlab(host string, creds map[string]string, log logger.Logger) (Service, error) {
	g := &Gitlab{
		base: newBase("gitlab", host, log),
	}
	if strings.HasSuffix(g.url, "://gitlab.com") {
		g.tag = "gl"
	}

	client, err := gitlab.NewClient(
		creds["token"],
		gitlab.WithBaseURL(g.url+"/api/v4"),
	)
	if err != nil {
		return nil, fmt.Errorf("gitlab: %w", err)
	}
	g.client = client

	return g, nil
}

// GetIssue fetches a single GitLab issue or merge request.
func (g *Gitlab) GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error) {
	iid, err := strconv.Atoi(ref.IssueID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadReference, ref.IssueID)
	}

	if ref.IsPR {
		info, resp, err := g.client.MergeRequests.GetMergeRequest(ref.Repo, iid, nil, gitlab.WithContext(ctx))
		if err != nil {
			if notFound := g.notFound(resp, ref); notFound != nil {
				return notFound, nil
			}
			return nil, fmt.Errorf("get merge request %s %s: %w", ref.Repo, ref.IssueID, err)
		}
		got := g.mergeRequestToIssue(info)
		return &got, nil
	}

	info, resp, err := g.client.Issues.GetIssue(ref.Repo, iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		if notFound := g.notFound(resp, ref); notFound != nil {
			return notFound, nil
		}
		return nil, fmt.Errorf("get issue %s %s: %w", ref.Repo, ref.IssueID, err)
	}
	got := g.issueToIssue(info)
	return &got, nil
}

// GetIssues fans the single-item call out across a bounded worker pool.
func (g *Gitlab) GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue {
	return fanOutIssues(ctx, g, refs, g.log)
}

// GetUserIssues returns the authenticated user's open issues and merge
// requests, assigned and created, fetched concurrently and deduplicated.
func (g *Gitlab) GetUserIssues(ctx context.Context) ([]issue.Issue, error) {
	scopes := []string{"assigned_to_me", "created_by_me"}
	set := make(issue.Set)
	var mu sync.Mutex

	add := func(issues []issue.Issue) {
		mu.Lock()
		defer mu.Unlock()
		set.Add(issues...)
	}

	var group errgroup.Group
	for _, scope := range scopes {
		scope := scope
		group.Go(func() error {
			issues, err := g.listIssues(ctx, scope)
			add(issues)
			return err
		})
		group.Go(func() error {
			issues, err := g.listMergeRequests(ctx, scope)
			add(issues)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return set.Slice(), nil
}

// Close releases the underlying HTTP connections.
func (g *Gitlab) Close() error {
	return nil
}

func (g *Gitlab) listIssues(ctx context.Context, scope string) ([]issue.Issue, error) {
	opts := &gitlab.ListIssuesOptions{
		Scope:       gitlab.Ptr(scope),
		State:       gitlab.Ptr("opened"),
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 100},
	}
	var issues []issue.Issue
	for {
		page, resp, err := g.client.Issues.ListIssues(opts, gitlab.WithContext(ctx))
		if err != nil {
			return issues, fmt.Errorf("list issues %s: %w", scope, err)
		}
		for _, info := range page {
			issues = append(issues, g.issueToIssue(info))
		}
		if resp.NextPage == 0 {
			return issues, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *Gitlab) listMergeRequests(ctx context.Context, scope string) ([]issue.Issue, error) {
	opts := &gitlab.ListMergeRequestsOptions{
		Scope:       gitlab.Ptr(scope),
		State:       gitlab.Ptr("opened"),
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 100},
	}
	var issues []issue.Issue
	for {
		page, resp, err := g.client.MergeRequests.ListMergeRequests(opts, gitlab.WithContext(ctx))
		if err != nil {
			return issues, fmt.Errorf("list merge requests %s: %w", scope, err)
		}
		for _, info := range page {
			issues = append(issues, g.mergeRequestToIssue(info))
		}
		if resp.NextPage == 0 {
			return issues, nil
		}
		opts.Page = resp.NextPage
	}
}

// notFound translates a confirmed 404 into the sentinel issue, nil for any
// other failure.
func (g *Gitlab) notFound(resp *gitlab.Response, ref issue.Reference) *issue.Issue {
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return nil
	}
	path, mark := "issues", "#"
	if ref.IsPR {
		path, mark = "merge_requests", "!"
	}
	notFound := issue.NotFound(
		fmt.Sprintf("%s#%s%s%s", g.tag, ref.Repo, mark, ref.IssueID),
		fmt.Sprintf("%s/%s/-/%s/%s", g.url, ref.Repo, path, ref.IssueID),
	)
	return &notFound
}

func (g *Gitlab) issueToIssue(info *gitlab.Issue) issue.Issue {
	assignee := "none"
	if info.Assignee != nil {
		assignee = info.Assignee.Username
	}
	creator := "none"
	if info.Author != nil {
		creator = info.Author.Username
	}
	tag := fmt.Sprintf("%s#%d", g.tag, info.IID)
	if info.References != nil {
		tag = g.tag + "#" + info.References.Full
	}
	got := issue.Issue{
		Tag:      tag,
		URL:      info.WebURL,
		Assignee: assignee,
		Creator:  creator,
		Status:   issue.NormalizeStatus(info.State),
		Title:    info.Title,
		Raw:      rawMap(info),
	}
	if info.CreatedAt != nil {
		got.Created = info.CreatedAt.UTC()
	}
	if info.UpdatedAt != nil {
		got.Updated = info.UpdatedAt.UTC()
	}
	return got
}

func (g *Gitlab) mergeRequestToIssue(info *gitlab.MergeRequest) issue.Issue {
	assignee := "none"
	if info.Assignee != nil {
		assignee = info.Assignee.Username
	}
	creator := "none"
	if info.Author != nil {
		creator = info.Author.Username
	}
	tag := fmt.Sprintf("%s!%d", g.tag, info.IID)
	if info.References != nil {
		tag = g.tag + "#" + info.References.Full
	}
	got := issue.Issue{
		Tag:      tag,
		URL:      info.WebURL,
		Assignee: assignee,
		Creator:  creator,
		Status:   issue.NormalizeStatus(info.State),
		Title:    info.Title,
		Raw:      rawMap(info),
	}
	if info.CreatedAt != nil {
		got.Created = info.CreatedAt.UTC()
	}
	if info.UpdatedAt != nil {
		got.Updated = info.UpdatedAt.UTC()
	}
	return got
}
