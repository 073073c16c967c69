// Package tag parses compact issue tags and tracker URLs into normalized
// references.
package tag

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
)

// tagRegex is the total grammar of recognized tag forms. Anything else is
// rejected rather than routed to a guessed tracker.
var tagRegex = regexp.MustCompile(
	`^(?:` + strings.Join([]string{
		`(?:bnc|bsc|boo|poo|lp)#[0-9]+`,
		`(?:gh|gl|gsd|coo|soo)#[^#!]+[#!][0-9]+`,
		`jsc#[A-Z]+-[0-9]+`,
	}, "|") + `)$`,
)

var splitRegex = regexp.MustCompile(`[#!]`)

// hostByCode maps each short tag code to its tracker host. The mapping is
// fixed and total: unknown codes fail parsing.
var hostByCode = map[string]string{
	"bnc": "bugzilla.suse.com",
	"bsc": "bugzilla.suse.com",
	"boo": "bugzilla.suse.com",
	"gh":  "github.com",
	"gl":  "gitlab.com",
	"gsd": "gitlab.suse.de",
	"jsc": "jira.suse.com",
	"poo": "progress.opensuse.org",
	"coo": "code.opensuse.org",
	"soo": "src.opensuse.org",
	"lp":  "launchpad.net",
}

// trackerHostPrefixes identifies hosts whose issue URLs have no repository
// segment (plain trackers, not forges).
var trackerHostPrefixes = []string{
	"bugzilla",
	"jira",
	"progress",
	"redmine",
	"launchpad",
}

// Parser converts tag strings and URLs into issue references.
type Parser struct {
	log logger.Logger
}

// NewParser creates a new Parser.
func NewParser(log logger.Logger) *Parser {
	return &Parser{log: log}
}

// Parse returns the reference parsed from a tag like "bsc#1213811" or
// "gh#org/repo#42", or from a tracker URL. Unrecognized input returns nil
// after logging a warning; Parse never panics on malformed strings.
func (p *Parser) Parse(ref string) *issue.Reference {
	if !strings.Contains(ref, "#") {
		return p.parseURL(ref)
	}
	if !tagRegex.MatchString(ref) {
		p.log.Warnf("Skipping unsupported %s", ref)
		return nil
	}

	isPR := strings.Contains(ref, "!")
	parts := splitRegex.Split(ref, -1)

	var code, repo, id string
	if len(parts) == 3 {
		code, repo, id = parts[0], parts[1], parts[2]
	} else {
		code, id = parts[0], parts[1]
	}

	return &issue.Reference{
		IssueID: id,
		Host:    hostByCode[code],
		Repo:    repo,
		IsPR:    isPR,
	}
}

// parseURL handles the URL form. The scheme defaults to https and a leading
// "www." is stripped from the hostname.
func (p *Parser) parseURL(ref string) *issue.Reference {
	s := ref
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		p.log.Warnf("Skipping unsupported %s", ref)
		return nil
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")

	var id, repo string
	var isPR bool

	switch {
	case u.Query().Get("id") != "":
		// Bugzilla-style query URL
		id = u.Query().Get("id")
	case strings.Count(path, "/") <= 1:
		// Plain tracker URL without repository namespacing
		if !isTrackerHost(host) {
			p.log.Warnf("Skipping unsupported %s", ref)
			return nil
		}
		id = path[strings.LastIndex(path, "/")+1:]
	default:
		// Forge-style URL: owner/repo/issues/N, with GitLab's /-/ infix
		// normalized away first
		path = strings.ReplaceAll(path, "/-/", "/")
		parts := strings.Split(path, "/")
		id = parts[len(parts)-1]
		issueType := parts[len(parts)-2]
		repo = strings.Join(parts[:len(parts)-2], "/")
		isPR = strings.Contains(issueType, "pull") || strings.Contains(issueType, "merge")
	}

	if id == "" {
		p.log.Warnf("Skipping unsupported %s", ref)
		return nil
	}

	return &issue.Reference{
		IssueID: id,
		Host:    host,
		Repo:    repo,
		IsPR:    isPR,
	}
}

func isTrackerHost(host string) bool {
	for _, prefix := range trackerHostPrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}
