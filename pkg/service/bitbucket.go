package service

import (
	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
)

// Reference: https://developer.atlassian.com/cloud/bitbucket/rest/api-group-issue-tracker/

// Bitbucket implements the Service contract for the Bitbucket Cloud issue
// tracker. The tracker has no API for pull requests tied to issue ids, so PR
// references are rejected.
type Bitbucket struct {
	*Generic
}

// NewBitbucket creates a new Bitbucket service client.
func NewBitbucket(host string, creds map[string]string, log logger.Logger) (Service, error) {
	var authorization string
	if token := creds["token"]; token != "" {
		authorization = "Bearer " + token
	}
	generic := newGeneric("bitbucket", host, authorization, log)
	generic.issueAPIURL = "https://api.bitbucket.org/2.0/repositories/%s/issues/%s"
	generic.issueWebURL = generic.url + "/%s/issues/%s"

	b := &Bitbucket{Generic: generic}
	generic.convert = b.toIssue
	return b, nil
}

func (b *Bitbucket) toIssue(raw map[string]interface{}, ref issue.Reference) issue.Issue {
	repo := jsonStr(raw, "repository", "full_name")
	if repo == "" {
		repo = ref.Repo
	}
	assignee := jsonStr(raw, "assignee", "display_name")
	if assignee == "" {
		assignee = "none"
	}
	creator := jsonStr(raw, "reporter", "display_name")
	if creator == "" {
		creator = "none"
	}
	return issue.Issue{
		Tag:      b.tag + "#" + repo + "#" + formatID(raw, "id"),
		URL:      jsonStr(raw, "links", "html", "href"),
		Assignee: assignee,
		Creator:  creator,
		Created:  issue.ParseTime(jsonStr(raw, "created_on")),
		Updated:  issue.ParseTime(jsonStr(raw, "updated_on")),
		Status:   issue.NormalizeStatus(jsonStr(raw, "state")),
		Title:    jsonStr(raw, "title"),
		Raw:      raw,
	}
}
