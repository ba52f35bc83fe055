package domain

import (
	"encoding/json"
	"strings"
)

type MarkType string

const (
	MarkBold          MarkType = "bold"
	MarkItalic        MarkType = "italic"
	MarkUnderline     MarkType = "underline"
	MarkStrikethrough MarkType = "strikethrough"
	MarkCode          MarkType = "code"
	MarkLink          MarkType = "link"
	MarkHighlight     MarkType = "highlight"
)

// Mark is a single formatting annotation on a text run. Href is set only for
// links, Color only for highlights.
type Mark struct {
	Type  MarkType `json:"type"`
	Href  string   `json:"href,omitempty"`
	Color string   `json:"color,omitempty"`
}

// TextRun is a span of text carrying zero or more marks.
type TextRun struct {
	Text  string `json:"text"`
	Marks []Mark `json:"marks,omitempty"`
}

// RichText is an ordered sequence of runs.
type RichText []TextRun

// PlainRichText wraps s in a single unmarked run.
func PlainRichText(s string) RichText {
	if s == "" {
		return nil
	}
	return RichText{{Text: s}}
}

// PlainText concatenates the run texts without formatting.
func (r RichText) PlainText() string {
	var sb strings.Builder
	for _, run := range r {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

func (r RichText) clone() RichText {
	if r == nil {
		return nil
	}
	out := make(RichText, len(r))
	for i, run := range r {
		out[i] = TextRun{Text: run.Text}
		if run.Marks != nil {
			out[i].Marks = append([]Mark(nil), run.Marks...)
		}
	}
	return out
}

// UnmarshalJSON accepts either a bare string or an array of runs.
func (r *RichText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = PlainRichText(s)
		return nil
	}
	var runs []TextRun
	if err := json.Unmarshal(data, &runs); err != nil {
		return err
	}
	out := make(RichText, 0, len(runs))
	for _, run := range runs {
		run.Marks = NormalizeMarks(run.Marks)
		out = append(out, run)
	}
	*r = out
	return nil
}

// NormalizeMarks drops unknown marks, links without an href, and repeated
// mark types (the first occurrence wins), so a run never carries two
// conflicting marks of the same kind.
func NormalizeMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	seen := make(map[MarkType]bool, len(marks))
	out := make([]Mark, 0, len(marks))
	for _, m := range marks {
		switch m.Type {
		case MarkBold, MarkItalic, MarkUnderline, MarkStrikethrough, MarkCode:
			m.Href, m.Color = "", ""
		case MarkLink:
			if strings.TrimSpace(m.Href) == "" {
				continue
			}
			m.Color = ""
		case MarkHighlight:
			m.Href = ""
		default:
			continue
		}
		if seen[m.Type] {
			continue
		}
		seen[m.Type] = true
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
