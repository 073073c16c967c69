package service

import (
	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
)

// Reference: https://github.com/gogs/docs-api/tree/master/Issues

// Gogs implements the Service contract for Gogs instances. The Gogs API has
// no pull request endpoint, so PR references are rejected.
type Gogs struct {
	*Generic
}

// NewGogs creates a new Gogs service client.
func NewGogs(host string, creds map[string]string, log logger.Logger) (Service, error) {
	generic := newGeneric("gogs", host, tokenAuth(creds), log)
	generic.issueAPIURL = generic.url + "/api/v1/repos/%s/issues/%s"
	generic.issueWebURL = generic.url + "/%s/issues/%s"

	g := &Gogs{Generic: generic}
	generic.convert = g.toIssue
	return g, nil
}

func (g *Gogs) toIssue(raw map[string]interface{}, ref issue.Reference) issue.Issue {
	assignee := jsonStr(raw, "assignee", "username")
	if assignee == "" {
		assignee = "none"
	}
	number := formatID(raw, "number")
	return issue.Issue{
		Tag:      g.tag + "#" + ref.Repo + "#" + number,
		URL:      g.url + "/" + ref.Repo + "/issues/" + number,
		Assignee: assignee,
		Creator:  jsonStr(raw, "user", "username"),
		Created:  issue.ParseTime(jsonStr(raw, "created_at")),
		Updated:  issue.ParseTime(jsonStr(raw, "updated_at")),
		Status:   issue.NormalizeStatus(jsonStr(raw, "state")),
		Title:    jsonStr(raw, "title"),
		Raw:      raw,
	}
}
