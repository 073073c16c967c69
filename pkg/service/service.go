// Package service implements the tracker abstraction layer: one adapter per
// backend behind a common contract, hostname-based backend resolution, and
// the shared REST session, retry and pagination plumbing.
package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"golang.org/x/sync/errgroup"
)

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=service.go -destination=mockservice.gen.go -package=service

const (
	// probeTimeout bounds each endpoint probe during service resolution.
	probeTimeout = 5 * time.Second
	// requestTimeout bounds every issue fetch request.
	requestTimeout = 30 * time.Second
	// maxWorkers caps per-host concurrent requests so a single backend's
	// rate limiter is not overwhelmed.
	maxWorkers = 10
	// maxRetries is the retry budget for rate-limited requests.
	maxRetries = 3
)

// Service interface defines the methods that all tracker adapters must
// provide.
type Service interface {
	// Name returns the name of the tracker backend.
	Name() string

	// URL returns the canonical base URL of the tracker.
	URL() string

	// Tag returns the short tag prefix for this tracker, e.g. "bsc".
	Tag() string

	// GetIssue fetches a single issue. A confirmed 404 yields the
	// not-found sentinel issue and a nil error; transient failures return
	// an error.
	GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error)

	// GetIssues fetches a batch of issues from this tracker. Failed items
	// are logged and omitted; confirmed-absent items appear as sentinels.
	GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue

	// GetUserIssues fetches open issues the authenticated user is involved
	// in, deduplicated by URL.
	GetUserIssues(ctx context.Context) ([]issue.Issue, error)

	// Close releases the underlying session.
	Close() error
}

// Factory builds a Service client for the given host from that host's
// credentials. A missing credential map means anonymous access.
type Factory func(host string, creds map[string]string, log logger.Logger) (Service, error)

// base holds the canonical URL and tag prefix shared by all adapters.
type base struct {
	name string
	url  string
	tag  string
	log  logger.Logger
}

// newBase derives the canonical https URL and the default tag prefix from
// the hostname initials (bugzilla.suse.com becomes "bsc").
func newBase(name, host string, log logger.Logger) base {
	u := strings.TrimSuffix(host, "/")
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	return base{
		name: name,
		url:  u,
		tag:  hostInitials(u),
		log:  log,
	}
}

// Name returns the name of the tracker backend.
func (b *base) Name() string {
	return b.name
}

// URL returns the canonical base URL of the tracker.
func (b *base) URL() string {
	return b.url
}

// Tag returns the short tag prefix for this tracker.
func (b *base) Tag() string {
	return b.tag
}

func hostInitials(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	var initials strings.Builder
	for _, label := range strings.Split(u.Hostname(), ".") {
		if label != "" {
			initials.WriteByte(label[0])
		}
	}
	return initials.String()
}

// fanOutIssues is the default bulk-fetch implementation: it fans the
// single-item call out across a bounded worker pool. A failed item degrades
// to a logged error and is dropped; it never cancels sibling fetches.
func fanOutIssues(ctx context.Context, svc Service, refs []issue.Reference, log logger.Logger) []issue.Issue {
	if len(refs) == 0 {
		return nil
	}
	results := make([]*issue.Issue, len(refs))

	var group errgroup.Group
	group.SetLimit(min(maxWorkers, len(refs)))
	for i, ref := range refs {
		i, ref := i, ref
		group.Go(func() error {
			got, err := svc.GetIssue(ctx, ref)
			if err != nil {
				log.Errorf("%s: %s: %v", svc.Name(), svc.URL(), err)
				return nil
			}
			results[i] = got
			return nil
		})
	}
	_ = group.Wait()

	issues := make([]issue.Issue, 0, len(refs))
	for _, got := range results {
		if got != nil {
			issues = append(issues, *got)
		}
	}
	return issues
}
