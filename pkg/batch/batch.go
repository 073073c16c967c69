// Package batch orchestrates issue fetching across trackers: it parses raw
// tags and URLs, groups the references by host, resolves one client per host
// and fans the fetches out concurrently, merging everything into one
// URL-deduplicated result.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"github.com/lerenn/bugme/pkg/service"
	"github.com/lerenn/bugme/pkg/tag"
	"golang.org/x/sync/errgroup"
)

// Fetcher resolves and queries all trackers referenced by a batch of inputs.
type Fetcher struct {
	registry *service.Registry
	parser   *tag.Parser
	creds    map[string]map[string]string
	log      logger.Logger
	strict   bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithStrict makes host-resolution failures abort the whole batch instead of
// being logged and skipped.
func WithStrict() Option {
	return func(f *Fetcher) {
		f.strict = true
	}
}

// NewFetcher creates a Fetcher. The credentials map is keyed by hostname;
// hosts without an entry are queried anonymously.
func NewFetcher(creds map[string]map[string]string, log logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		registry: service.NewRegistry(log),
		parser:   tag.NewParser(log),
		creds:    creds,
		log:      log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register pins a tracker backend for a host, bypassing resolution. Used for
// self-hosted trackers known in advance.
func (f *Fetcher) Register(host string, factory service.Factory) {
	f.registry.Register(host, factory)
}

// GetIssues fetches every issue referenced by the given tags and URLs.
// Unsupported inputs are skipped with a warning, duplicates are collapsed,
// and each host's references are fetched with a single client. Results
// arrive in no particular order.
func (f *Fetcher) GetIssues(ctx context.Context, inputs []string) ([]issue.Issue, error) {
	byHost := make(map[string][]issue.Reference)
	seen := make(map[string]bool)
	for _, input := range inputs {
		ref := f.parser.Parse(input)
		if ref == nil {
			continue
		}
		key := fmt.Sprintf("%s/%s#%s#%t", ref.Host, ref.Repo, ref.IssueID, ref.IsPR)
		if seen[key] {
			continue
		}
		seen[key] = true
		byHost[ref.Host] = append(byHost[ref.Host], *ref)
	}

	set := make(issue.Set)
	var mu sync.Mutex

	var group errgroup.Group
	for host, refs := range byHost {
		host, refs := host, refs
		group.Go(func() error {
			svc, err := f.connect(ctx, host)
			if err != nil {
				if f.strict {
					return err
				}
				f.log.Errorf("skipping %s: %v", host, err)
				return nil
			}
			defer func() { _ = svc.Close() }()

			issues := svc.GetIssues(ctx, refs)
			mu.Lock()
			defer mu.Unlock()
			set.Add(issues...)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return set.Slice(), nil
}

// GetUserIssues fetches the issues involving the authenticated user on each
// of the given hosts. Hosts whose backend has no user-issue query are
// skipped.
func (f *Fetcher) GetUserIssues(ctx context.Context, hosts []string) ([]issue.Issue, error) {
	set := make(issue.Set)
	var mu sync.Mutex

	var group errgroup.Group
	for _, host := range hosts {
		host := host
		group.Go(func() error {
			svc, err := f.connect(ctx, host)
			if err != nil {
				if f.strict {
					return err
				}
				f.log.Errorf("skipping %s: %v", host, err)
				return nil
			}
			defer func() { _ = svc.Close() }()

			issues, err := svc.GetUserIssues(ctx)
			if errors.Is(err, service.ErrNotSupported) {
				f.log.Warnf("%s: %v", host, err)
				return nil
			}
			if err != nil {
				if f.strict {
					return fmt.Errorf("%s: %w", host, err)
				}
				f.log.Errorf("%s: %v", host, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			set.Add(issues...)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return set.Slice(), nil
}

// connect resolves the host to a backend and builds a client for it with the
// host's credentials.
func (f *Fetcher) connect(ctx context.Context, host string) (service.Service, error) {
	factory, err := f.registry.Guess(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResolveHost, host, err)
	}
	svc, err := factory(host, f.creds[host], f.log)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", host, err)
	}
	return svc, nil
}
