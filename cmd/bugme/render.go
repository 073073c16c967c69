package main

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/lerenn/bugme/pkg/issue"
)

// renderer writes a list of issues to the output in one of the supported
// formats.
type renderer interface {
	render(w io.Writer, issues []issue.Issue) error
}

// parseFields validates a comma-separated field list.
func parseFields(spec string) ([]issue.Field, error) {
	var fields []issue.Field
	for _, name := range strings.Split(spec, ",") {
		field, err := issue.ParseField(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// fieldValue renders one issue field as display text.
func fieldValue(it issue.Issue, field issue.Field, timeFormat string) string {
	switch field {
	case issue.FieldTag:
		return it.Tag
	case issue.FieldURL:
		return it.URL
	case issue.FieldStatus:
		return it.Status
	case issue.FieldAssignee:
		return it.Assignee
	case issue.FieldCreator:
		return it.Creator
	case issue.FieldCreated:
		return dateit(it.Created, timeFormat)
	case issue.FieldUpdated:
		return dateit(it.Updated, timeFormat)
	default:
		return it.Title
	}
}

// fieldWidth returns the column width for aligned text output, 0 for
// unpadded fields.
func fieldWidth(field issue.Field, timeFormat string) int {
	dateWidth := 15
	if timeFormat != "timeago" {
		dateWidth = 30
	}
	switch field {
	case issue.FieldTag:
		return 40
	case issue.FieldURL:
		return 60
	case issue.FieldStatus:
		return 15
	case issue.FieldCreated, issue.FieldUpdated:
		return dateWidth
	default:
		return 0
	}
}

// textRenderer prints an aligned table with an uppercase header row.
type textRenderer struct {
	fields     []issue.Field
	timeFormat string
}

func (r textRenderer) render(w io.Writer, issues []issue.Issue) error {
	header := make([]string, len(r.fields))
	for i, field := range r.fields {
		header[i] = strings.ToUpper(string(field))
	}
	if _, err := fmt.Fprintln(w, r.row(header)); err != nil {
		return err
	}
	for _, it := range issues {
		values := make([]string, len(r.fields))
		for i, field := range r.fields {
			values[i] = fieldValue(it, field, r.timeFormat)
		}
		if _, err := fmt.Fprintln(w, r.row(values)); err != nil {
			return err
		}
	}
	return nil
}

func (r textRenderer) row(values []string) string {
	cells := make([]string, len(values))
	for i, value := range values {
		if width := fieldWidth(r.fields[i], r.timeFormat); width > 0 {
			cells[i] = fmt.Sprintf("%-*s", width, value)
		} else {
			cells[i] = value
		}
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ")
}

// htmlRenderer prints an HTML table with the tag cell linking to the issue.
type htmlRenderer struct {
	fields     []issue.Field
	timeFormat string
}

func (r htmlRenderer) render(w io.Writer, issues []issue.Issue) error {
	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for _, field := range r.fields {
		fmt.Fprintf(&b, "<th>%s</th>", strings.ToUpper(string(field)))
	}
	b.WriteString("</tr></thead><tbody>\n")
	for _, it := range issues {
		b.WriteString("<tr>")
		for _, field := range r.fields {
			value := html.EscapeString(fieldValue(it, field, r.timeFormat))
			if field == issue.FieldTag {
				value = fmt.Sprintf(`<a href="%s">%s</a>`, it.URL, value)
			}
			fmt.Fprintf(&b, "<td>%s</td>", value)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody></table>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// jsonRenderer dumps the full records as a JSON array.
type jsonRenderer struct{}

func (jsonRenderer) render(w io.Writer, issues []issue.Issue) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(issues)
}

// newRenderer builds the renderer for the requested output type.
func newRenderer(output string, fields []issue.Field, timeFormat string) (renderer, error) {
	switch output {
	case "text":
		return textRenderer{fields: fields, timeFormat: timeFormat}, nil
	case "html":
		return htmlRenderer{fields: fields, timeFormat: timeFormat}, nil
	case "json":
		return jsonRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output type: %s", output)
	}
}
