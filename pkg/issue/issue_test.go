//go:build unit

package issue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected string
	}{
		{name: "lowercase", status: "open", expected: "OPEN"},
		{name: "spaces", status: "In Progress", expected: "IN_PROGRESS"},
		{name: "apostrophe", status: "Won't Fix", expected: "WONT_FIX"},
		{name: "already normalized", status: "NEEDINFO", expected: "NEEDINFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeStatus(tt.status))
		})
	}
}

func TestNotFound(t *testing.T) {
	i := NotFound("gh#org/repo#42", "https://github.com/org/repo/issues/42")

	assert.Equal(t, NotFoundStatus, i.Status)
	assert.Equal(t, NotFoundTitle, i.Title)
	assert.Equal(t, "none", i.Assignee)
	assert.Equal(t, "none", i.Creator)
	assert.Equal(t, "gh#org/repo#42", i.Tag)
	assert.False(t, i.Created.IsZero())
	assert.Equal(t, i.Created, i.Updated)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		expected time.Time
	}{
		{
			name:     "rfc3339",
			date:     "2023-08-01T10:07:46Z",
			expected: time.Date(2023, 8, 1, 10, 7, 46, 0, time.UTC),
		},
		{
			name:     "rfc3339 with offset",
			date:     "2023-08-01T12:07:46+02:00",
			expected: time.Date(2023, 8, 1, 10, 7, 46, 0, time.UTC),
		},
		{
			name:     "jira milliseconds",
			date:     "2023-08-01T10:07:46.000+0000",
			expected: time.Date(2023, 8, 1, 10, 7, 46, 0, time.UTC),
		},
		{
			name:     "epoch seconds",
			date:     "1690884466",
			expected: time.Unix(1690884466, 0).UTC(),
		},
		{
			name:     "zoneless",
			date:     "2023-08-01T10:07:46",
			expected: time.Date(2023, 8, 1, 10, 7, 46, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.expected.Equal(ParseTime(tt.date)))
		})
	}
}

func TestParseTime_Invalid(t *testing.T) {
	assert.True(t, ParseTime("").IsZero())
	assert.True(t, ParseTime("not a date").IsZero())
}

func TestSet_DeduplicatesByURL(t *testing.T) {
	set := make(Set)
	set.Add(
		Issue{URL: "https://github.com/org/repo/issues/1", Tag: "gh#org/repo#1"},
		Issue{URL: "https://github.com/org/repo/issues/2", Tag: "gh#org/repo#2"},
		Issue{URL: "https://github.com/org/repo/issues/1", Tag: "gh#org/repo#1"},
	)

	assert.Len(t, set.Slice(), 2)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("updated")
	require.NoError(t, err)
	assert.Equal(t, FieldUpdated, f)

	_, err = ParseField("bogus")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSortBy_NumericSuffix(t *testing.T) {
	issues := []Issue{
		{Tag: "gh#org/repo#10", URL: "https://github.com/org/repo/issues/10"},
		{Tag: "gh#org/repo#9", URL: "https://github.com/org/repo/issues/9"},
		{Tag: "bsc#1213811", URL: "https://bugzilla.suse.com/show_bug.cgi?id=1213811"},
	}

	SortBy(issues, FieldTag, false)

	assert.Equal(t, "bsc#1213811", issues[0].Tag)
	assert.Equal(t, "gh#org/repo#9", issues[1].Tag)
	assert.Equal(t, "gh#org/repo#10", issues[2].Tag)
}

func TestSortBy_Updated(t *testing.T) {
	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	issues := []Issue{
		{Tag: "a", Updated: newer},
		{Tag: "b", Updated: older},
	}

	SortBy(issues, FieldUpdated, false)
	assert.Equal(t, "b", issues[0].Tag)

	SortBy(issues, FieldUpdated, true)
	assert.Equal(t, "a", issues[0].Tag)
}
