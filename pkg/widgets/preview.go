package widgets

import (
	"slices"
	"strings"

	"github.com/nnorbert/codedam/pkg/api"
)

// Sourcer is implemented by widgets that can render themselves as one
// line of pseudo-code.
type Sourcer interface {
	Source() string
}

// Line is one row of the code preview.
type Line struct {
	Key    string
	Indent int
	Text   string
}

// Preview renders body and all nested bodies as indented lines keyed
// like Widget.LineKeys, so callers can emphasise the active ones.
func Preview(body api.Body) []Line {
	var lines []Line
	preview(body, 0, &lines)
	return lines
}

func preview(body api.Body, indent int, lines *[]Line) {
	for _, w := range body.Widgets() {
		*lines = append(*lines, Line{Key: w.ID(), Indent: indent, Text: source(w)})
		switch x := w.(type) {
		case *If:
			if then := x.Then(); then != nil {
				*lines = append(*lines, Line{Key: w.ID() + ":then", Indent: indent, Text: "then"})
				preview(then, indent+1, lines)
			}
			if els := x.Else(); els != nil && len(els.Widgets()) > 0 {
				*lines = append(*lines, Line{Key: w.ID() + ":else", Indent: indent, Text: "else"})
				preview(els, indent+1, lines)
			}
		default:
			for _, nested := range w.NestedExecutors() {
				preview(nested, indent+1, lines)
			}
		}
	}
}

// Format renders lines as text, marking the ones listed in active.
func Format(lines []Line, active []string) string {
	var sb strings.Builder
	for _, l := range lines {
		if slices.Contains(active, l.Key) {
			sb.WriteString("> ")
		} else {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("    ", l.Indent))
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func source(w api.Widget) string {
	if s, ok := w.(Sourcer); ok {
		return s.Source()
	}
	return w.Descriptor().Label
}

func slotSource(b *Base, name string) string {
	child := b.Slot(name)
	if child == nil {
		return api.PlaceholderText
	}
	return source(child)
}
