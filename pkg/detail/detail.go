// Package detail fills the detail overlay for a single node: a title, the
// STIX type and a markdown property listing rendered for the terminal.
package detail

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threatgraph/pkg/model"
)

// Slot receives rendered text.
type Slot interface {
	SetText(string)
}

// TextSlot is a Slot that keeps the last text it was given.
type TextSlot struct {
	Text string
}

func (s *TextSlot) SetText(v string) { s.Text = v }

// Renderer turns node payloads into terminal markdown.
type Renderer struct {
	md *glamour.TermRenderer
}

// NewRenderer returns a renderer. Without options it uses the plain style
// wrapped at 60 columns.
func NewRenderer(opts ...glamour.TermRendererOption) (*Renderer, error) {
	if len(opts) == 0 {
		opts = []glamour.TermRendererOption{
			glamour.WithStandardStyle("notty"),
			glamour.WithWordWrap(60),
		}
	}
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return &Renderer{md: md}, nil
}

// Render populates the three slots from data. Any slot may be nil.
func (r *Renderer) Render(data model.Object, title, body, typ Slot) error {
	if title != nil {
		title.SetText(Title(data))
	}
	if typ != nil {
		typ.SetText(data.String("type"))
	}
	if body == nil {
		return nil
	}
	out, err := r.md.Render(Markdown(data))
	if err != nil {
		return fmt.Errorf("rendering detail: %w", err)
	}
	body.SetText(strings.TrimSpace(out))
	return nil
}

// Title is the object's name, falling back to its id.
func Title(data model.Object) string {
	if name := data.String("name"); name != "" {
		return name
	}
	return data.String("id")
}

// skipped properties are shown in the title and type slots instead.
var skipped = map[string]bool{"name": true, "type": true}

// Markdown lists the object's properties, sorted by key, with the
// description first as a paragraph.
func Markdown(data model.Object) string {
	var sb strings.Builder
	if d := data.String("description"); d != "" {
		sb.WriteString(d)
		sb.WriteString("\n\n")
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		if !skipped[k] && k != "description" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "- **%s**: %s\n", k, value(data[k]))
	}
	return sb.String()
}

func value(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = value(e)
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	case map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return "`" + string(data) + "`"
	default:
		return fmt.Sprint(x)
	}
}
