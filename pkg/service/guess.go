package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/lerenn/bugme/pkg/logger"
)

// Registry resolves hostnames to tracker adapter factories. Resolution runs
// in three tiers: exact host table, hostname heuristics, then active probing
// of well-known API endpoints. Results are cached for the registry lifetime
// and never re-probed.
type Registry struct {
	mu    sync.Mutex
	cache map[string]Factory
	probe *http.Client
	log   logger.Logger
}

// NewRegistry creates a registry pre-populated with the hosts that have no
// probeable signature.
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		cache: map[string]Factory{
			"github.com":    NewGithub,
			"bitbucket.org": NewBitbucket,
		},
		probe: &http.Client{Timeout: probeTimeout},
		log:   log,
	}
}

// Register pins a factory for a host, bypassing heuristics and probing.
// Used for self-hosted trackers known in advance and for tests.
func (r *Registry) Register(host string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[host] = factory
}

// Guess returns the adapter factory serving the given host. A nil factory
// is a configuration error for that host's whole sub-batch, reported as
// ErrUnknownService.
func (r *Registry) Guess(ctx context.Context, host string) (Factory, error) {
	r.mu.Lock()
	factory, ok := r.cache[host]
	r.mu.Unlock()
	if ok {
		return factory, nil
	}

	factory = guessByName(host)
	if factory == nil {
		factory = r.guessByProbe(ctx, host)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, host)
	}

	r.mu.Lock()
	r.cache[host] = factory
	r.mu.Unlock()
	return factory, nil
}

// guessByName resolves hosts whose name gives the tracker away.
func guessByName(host string) Factory {
	hostname := strings.ToLower(host)
	if i := strings.Index(hostname, "://"); i >= 0 {
		hostname = hostname[i+3:]
	}

	prefixes := []struct {
		prefix  string
		factory Factory
	}{
		{prefix: "jira", factory: NewJira},
		{prefix: "gitlab", factory: NewGitlab},
		{prefix: "bugzilla", factory: NewBugzilla},
	}
	for _, entry := range prefixes {
		if strings.HasPrefix(hostname, entry.prefix) {
			return entry.factory
		}
	}

	if strings.Contains(hostname, "gogs") {
		return NewGogs
	}

	if strings.HasSuffix(strings.TrimSuffix(hostname, "/"), "launchpad.net") {
		return NewLaunchpad
	}

	return nil
}

// guessByProbe issues lightweight HEAD requests to each candidate backend's
// characteristic endpoint, in priority order. First 200 wins.
func (r *Registry) guessByProbe(ctx context.Context, host string) Factory {
	baseURL := host
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	candidates := []struct {
		endpoint string
		factory  Factory
	}{
		{endpoint: "rest/api/2/serverInfo", factory: NewJira},
		{endpoint: "rest/", factory: NewAllura},
		{endpoint: "issues.json", factory: NewRedmine},
		{endpoint: "swagger.v1.json", factory: NewGitea},
		{endpoint: "api/0/version", factory: NewPagure},
	}

	for _, candidate := range candidates {
		endpoint := baseURL + "/" + candidate.endpoint
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
		if err != nil {
			continue
		}
		resp, err := r.probe.Do(req)
		if err != nil {
			r.log.Debugf("probing %s: %v", endpoint, err)
			continue
		}
		drain(resp)
		if resp.StatusCode == http.StatusOK {
			return candidate.factory
		}
	}

	return nil
}
