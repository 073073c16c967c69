package service

import (
	"context"
	"strings"

	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
)

// Reference: https://forge-allura.apache.org/docs/api/index.html

// Allura implements the Service contract for Apache Allura forges, including
// SourceForge where the tracker tool is named "bugs" instead of "tickets".
// Allura has no merge request API, so PR references are rejected.
type Allura struct {
	*Generic
	bugs string
}

// NewAllura creates a new Allura service client.
func NewAllura(host string, creds map[string]string, log logger.Logger) (Service, error) {
	generic := newGeneric("allura", host, tokenAuth(creds), log)

	a := &Allura{Generic: generic, bugs: "tickets"}
	if strings.Contains(generic.url, "sourceforge") {
		a.bugs = "bugs"
	}
	generic.issueAPIURL = generic.url + "/rest/p/%s/" + a.bugs + "/%s"
	generic.issueWebURL = generic.url + "/p/%s/" + a.bugs + "/%s"
	generic.convert = a.toIssue
	return a, nil
}

// GetIssue fetches a single ticket. URL references carry the project path
// with its "p/" prefix, which the REST templates already include.
func (a *Allura) GetIssue(ctx context.Context, ref issue.Reference) (*issue.Issue, error) {
	ref.Repo = strings.TrimPrefix(ref.Repo, "p/")
	return a.Generic.GetIssue(ctx, ref)
}

// GetIssues fans the single-item call out across a bounded worker pool.
func (a *Allura) GetIssues(ctx context.Context, refs []issue.Reference) []issue.Issue {
	return fanOutIssues(ctx, a, refs, a.log)
}

func (a *Allura) toIssue(raw map[string]interface{}, ref issue.Reference) issue.Issue {
	// The REST payload wraps the ticket under a "ticket" key.
	if ticket := jsonMap(raw, "ticket"); ticket != nil {
		raw = ticket
	}
	number := formatID(raw, "ticket_num")
	assignee := jsonStr(raw, "assigned_to")
	if assignee == "" {
		assignee = "none"
	}
	return issue.Issue{
		Tag:      a.tag + "#" + ref.Repo + "#" + number,
		URL:      a.url + "/p/" + ref.Repo + "/" + a.bugs + "/" + number,
		Assignee: assignee,
		Creator:  jsonStr(raw, "reported_by"),
		Created:  issue.ParseTime(jsonStr(raw, "created_date")),
		Updated:  issue.ParseTime(jsonStr(raw, "mod_date")),
		Status:   issue.NormalizeStatus(jsonStr(raw, "status")),
		Title:    jsonStr(raw, "summary"),
		Raw:      raw,
	}
}
