package application

import (
	"html"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

// RichTextRenderer defines the interface for converting structured text to HTML.
type RichTextRenderer interface {
	Render(body domain.RichText) string
}

type HTMLRichTextRenderer struct{}

func NewRichTextRenderer() RichTextRenderer {
	return &HTMLRichTextRenderer{}
}

// Render serializes body to HTML. Consecutive list items are wrapped in a
// single <ul> or <ol>; unknown block types are dropped.
func (r *HTMLRichTextRenderer) Render(body domain.RichText) string {
	var b strings.Builder
	openList := ""

	for _, node := range body {
		list := listTag(node.Type)
		if list != openList {
			if openList != "" {
				b.WriteString("</" + openList + ">")
			}
			if list != "" {
				b.WriteString("<" + list + ">")
			}
			openList = list
		}
		writeBlock(&b, node)
	}
	if openList != "" {
		b.WriteString("</" + openList + ">")
	}

	return b.String()
}

func listTag(blockType string) string {
	switch blockType {
	case domain.BlockListItem:
		return "ul"
	case domain.BlockOListItem:
		return "ol"
	}
	return ""
}

func writeBlock(b *strings.Builder, node domain.RichTextNode) {
	switch node.Type {
	case domain.BlockHeading1, domain.BlockHeading2, domain.BlockHeading3,
		domain.BlockHeading4, domain.BlockHeading5, domain.BlockHeading6:
		tag := "h" + strings.TrimPrefix(node.Type, "heading")
		wrap(b, tag, node)
	case domain.BlockParagraph:
		wrap(b, "p", node)
	case domain.BlockPreformatted:
		wrap(b, "pre", node)
	case domain.BlockListItem, domain.BlockOListItem:
		wrap(b, "li", node)
	case domain.BlockImage:
		if node.Image == nil {
			return
		}
		b.WriteString(`<p class="block-img"><img src="`)
		b.WriteString(html.EscapeString(node.Image.URL))
		b.WriteString(`" alt="`)
		b.WriteString(html.EscapeString(node.Image.Alt))
		b.WriteString(`" /></p>`)
	case domain.BlockEmbed:
		if node.Embed == nil {
			return
		}
		b.WriteString(`<div data-oembed="`)
		b.WriteString(html.EscapeString(node.Embed.URL))
		b.WriteString(`" data-oembed-type="`)
		b.WriteString(html.EscapeString(node.Embed.Type))
		b.WriteString(`" data-oembed-provider="`)
		b.WriteString(html.EscapeString(node.Embed.Provider))
		b.WriteString(`">`)
		b.WriteString(node.Embed.HTML)
		b.WriteString(`</div>`)
	}
}

func wrap(b *strings.Builder, tag string, node domain.RichTextNode) {
	b.WriteString("<" + tag + ">")
	writeSpans(b, node.Text, node.Spans)
	b.WriteString("</" + tag + ">")
}

// writeSpans emits text with its spans as nested inline elements. Spans that
// overlap without nesting are split: the inner element is closed at the
// boundary and reopened after it.
func writeSpans(b *strings.Builder, text string, spans []domain.Span) {
	units := utf16.Encode([]rune(text))
	n := len(units)

	valid := make([]domain.Span, 0, len(spans))
	for _, s := range spans {
		s.Start = max(0, min(s.Start, n))
		s.End = max(0, min(s.End, n))
		if s.Start < s.End {
			valid = append(valid, s)
		}
	}
	slices.SortStableFunc(valid, func(a, c domain.Span) int {
		if a.Start != c.Start {
			return a.Start - c.Start
		}
		return c.End - a.End
	})

	bounds := []int{0, n}
	for _, s := range valid {
		bounds = append(bounds, s.Start, s.End)
	}
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)

	var stack []domain.Span
	next, prev := 0, 0
	for _, pos := range bounds {
		writeText(b, units[prev:pos])
		prev = pos

		var reopen []domain.Span
		for endsBy(stack, pos) {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b.WriteString(closeTag(top))
			if top.End > pos {
				reopen = append(reopen, top)
			}
		}
		for i := len(reopen) - 1; i >= 0; i-- {
			b.WriteString(openTag(reopen[i]))
			stack = append(stack, reopen[i])
		}

		for next < len(valid) && valid[next].Start == pos {
			b.WriteString(openTag(valid[next]))
			stack = append(stack, valid[next])
			next++
		}
	}
}

func endsBy(stack []domain.Span, pos int) bool {
	for _, s := range stack {
		if s.End <= pos {
			return true
		}
	}
	return false
}

func writeText(b *strings.Builder, units []uint16) {
	if len(units) == 0 {
		return
	}
	escaped := html.EscapeString(string(utf16.Decode(units)))
	b.WriteString(strings.ReplaceAll(escaped, "\n", "<br />"))
}

func openTag(s domain.Span) string {
	switch s.Type {
	case domain.SpanStrong:
		return "<strong>"
	case domain.SpanEm:
		return "<em>"
	case domain.SpanHyperlink:
		tag := `<a href="` + html.EscapeString(s.URL) + `"`
		if s.Target != "" {
			tag += ` target="` + html.EscapeString(s.Target) + `" rel="noopener noreferrer"`
		}
		return tag + ">"
	case domain.SpanLabel:
		return `<span class="` + html.EscapeString(s.Label) + `">`
	}
	return "<span>"
}

func closeTag(s domain.Span) string {
	switch s.Type {
	case domain.SpanStrong:
		return "</strong>"
	case domain.SpanEm:
		return "</em>"
	case domain.SpanHyperlink:
		return "</a>"
	}
	return "</span>"
}
