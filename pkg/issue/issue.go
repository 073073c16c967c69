// Package issue provides the normalized issue record and reference types
// shared by all tracker adapters.
package issue

import (
	"strings"
	"time"
)

// Issue represents a normalized issue fetched from a tracker. It is
// constructed once by an adapter and never mutated afterwards, except by the
// presentation layer which owns it once returned.
type Issue struct {
	Tag      string    `json:"tag"`
	URL      string    `json:"url"`
	Assignee string    `json:"assignee"`
	Creator  string    `json:"creator"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
	Status   string    `json:"status"`
	Title    string    `json:"title"`
	// Raw holds the backend's original payload for diagnostics; it is not
	// part of the rendered output.
	Raw map[string]interface{} `json:"-"`
}

// Reference represents a parsed issue reference.
type Reference struct {
	IssueID string
	Host    string
	Repo    string
	IsPR    bool
}

// NotFoundStatus and NotFoundTitle are the sentinel values used for issues
// whose tracker confirmed a 404.
const (
	NotFoundStatus = "ERROR"
	NotFoundTitle  = "NOT FOUND"
)

// NotFound returns a sentinel issue representing a confirmed-absent tracker
// item, so a dangling reference is still visible in the output.
func NotFound(tag, url string) Issue {
	now := time.Now().UTC()
	return Issue{
		Tag:      tag,
		URL:      url,
		Assignee: "none",
		Creator:  "none",
		Created:  now,
		Updated:  now,
		Status:   NotFoundStatus,
		Title:    NotFoundTitle,
		Raw:      map[string]interface{}{},
	}
}

// NormalizeStatus returns the status in uppercase with spaces replaced by
// underscores and apostrophes stripped, so the presentation layer never
// special-cases backend vocabulary.
func NormalizeStatus(status string) string {
	status = strings.ToUpper(status)
	status = strings.ReplaceAll(status, " ", "_")
	return strings.ReplaceAll(status, "'", "")
}

// Set deduplicates issues by canonical URL. Two issues with the same URL are
// the same issue, whichever query returned them.
type Set map[string]Issue

// Add inserts issues into the set, keeping the first one seen per URL.
func (s Set) Add(issues ...Issue) {
	for _, i := range issues {
		if _, ok := s[i.URL]; !ok {
			s[i.URL] = i
		}
	}
}

// Slice returns the deduplicated issues in unspecified order.
func (s Set) Slice() []Issue {
	issues := make([]Issue, 0, len(s))
	for _, i := range s {
		issues = append(issues, i)
	}
	return issues
}
