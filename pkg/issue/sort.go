package issue

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field identifies an Issue field usable as a sort key.
type Field string

// Sortable issue fields.
const (
	FieldTag      Field = "tag"
	FieldURL      Field = "url"
	FieldStatus   Field = "status"
	FieldAssignee Field = "assignee"
	FieldCreator  Field = "creator"
	FieldCreated  Field = "created"
	FieldUpdated  Field = "updated"
	FieldTitle    Field = "title"
)

// ParseField returns the Field matching the given name.
func ParseField(name string) (Field, error) {
	switch f := Field(strings.ToLower(name)); f {
	case FieldTag, FieldURL, FieldStatus, FieldAssignee, FieldCreator,
		FieldCreated, FieldUpdated, FieldTitle:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
}

// SortBy sorts issues in place by the given field. Tag and URL keys compare
// their trailing digit sequence numerically so gh#repo#9 sorts before
// gh#repo#10.
func SortBy(issues []Issue, field Field, reverse bool) {
	less := lessFunc(field)
	sort.SliceStable(issues, func(i, j int) bool {
		if reverse {
			i, j = j, i
		}
		return less(issues[i], issues[j])
	})
}

func lessFunc(field Field) func(a, b Issue) bool {
	switch field {
	case FieldTag:
		return func(a, b Issue) bool { return numericSuffixLess(a.Tag, b.Tag) }
	case FieldURL:
		return func(a, b Issue) bool { return numericSuffixLess(a.URL, b.URL) }
	case FieldStatus:
		return func(a, b Issue) bool { return a.Status < b.Status }
	case FieldAssignee:
		return func(a, b Issue) bool { return a.Assignee < b.Assignee }
	case FieldCreator:
		return func(a, b Issue) bool { return a.Creator < b.Creator }
	case FieldCreated:
		return func(a, b Issue) bool { return a.Created.Before(b.Created) }
	case FieldUpdated:
		return func(a, b Issue) bool { return a.Updated.Before(b.Updated) }
	default:
		return func(a, b Issue) bool { return a.Title < b.Title }
	}
}

// numericSuffixLess compares two strings ending in a digit sequence by their
// common base first and the numeric suffix second.
func numericSuffixLess(a, b string) bool {
	aBase, aNum := splitNumericSuffix(a)
	bBase, bNum := splitNumericSuffix(b)
	if aBase != bBase {
		return aBase < bBase
	}
	return aNum < bNum
}

func splitNumericSuffix(s string) (string, int) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0
	}
	return s[:i], n
}
