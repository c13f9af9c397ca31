package application

import (
	"testing"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

func TestRichTextRenderer_Render(t *testing.T) {
	tests := []struct {
		name     string
		body     domain.RichText
		expected string
	}{
		{
			name:     "Empty",
			body:     nil,
			expected: "",
		},
		{
			name:     "Paragraph is escaped",
			body:     domain.RichText{paragraph(`1 < 2 & "x"`)},
			expected: "<p>1 &lt; 2 &amp; &#34;x&#34;</p>",
		},
		{
			name:     "Newlines become breaks",
			body:     domain.RichText{paragraph("line one\nline two")},
			expected: "<p>line one<br />line two</p>",
		},
		{
			name: "Headings and preformatted",
			body: domain.RichText{
				{Type: domain.BlockHeading2, Text: "Title"},
				{Type: domain.BlockHeading6, Text: "Small"},
				{Type: domain.BlockPreformatted, Text: "code()"},
			},
			expected: "<h2>Title</h2><h6>Small</h6><pre>code()</pre>",
		},
		{
			name: "Lists are grouped",
			body: domain.RichText{
				{Type: domain.BlockListItem, Text: "a"},
				{Type: domain.BlockListItem, Text: "b"},
				{Type: domain.BlockOListItem, Text: "one"},
				paragraph("after"),
				{Type: domain.BlockOListItem, Text: "two"},
			},
			expected: "<ul><li>a</li><li>b</li></ul><ol><li>one</li></ol><p>after</p><ol><li>two</li></ol>",
		},
		{
			name: "Strong and link spans",
			body: domain.RichText{{
				Type: domain.BlockParagraph,
				Text: "a b c d",
				Spans: []domain.Span{
					{Start: 0, End: 1, Type: domain.SpanStrong},
					{Start: 2, End: 3, Type: domain.SpanHyperlink, URL: "https://example.com/?a=1&b=2", Target: "_blank"},
				},
			}},
			expected: `<p><strong>a</strong> <a href="https://example.com/?a=1&amp;b=2" target="_blank" rel="noopener noreferrer">b</a> c d</p>`,
		},
		{
			name: "Nested spans",
			body: domain.RichText{{
				Type: domain.BlockParagraph,
				Text: "bold italic",
				Spans: []domain.Span{
					{Start: 5, End: 11, Type: domain.SpanEm},
					{Start: 0, End: 11, Type: domain.SpanStrong},
				},
			}},
			expected: "<p><strong>bold <em>italic</em></strong></p>",
		},
		{
			name: "Overlapping spans are split",
			body: domain.RichText{{
				Type: domain.BlockParagraph,
				Text: "abcdef",
				Spans: []domain.Span{
					{Start: 0, End: 4, Type: domain.SpanStrong},
					{Start: 2, End: 6, Type: domain.SpanEm},
				},
			}},
			expected: "<p><strong>ab<em>cd</em></strong><em>ef</em></p>",
		},
		{
			name: "Label span",
			body: domain.RichText{{
				Type:  domain.BlockParagraph,
				Text:  "run go test",
				Spans: []domain.Span{{Start: 4, End: 11, Type: domain.SpanLabel, Label: "codespan"}},
			}},
			expected: `<p>run <span class="codespan">go test</span></p>`,
		},
		{
			name: "Offsets are UTF-16 units",
			body: domain.RichText{{
				Type:  domain.BlockParagraph,
				Text:  "🚀 ação",
				Spans: []domain.Span{{Start: 3, End: 7, Type: domain.SpanEm}},
			}},
			expected: "<p>🚀 <em>ação</em></p>",
		},
		{
			name: "Out of range spans are clamped",
			body: domain.RichText{{
				Type:  domain.BlockParagraph,
				Text:  "abc",
				Spans: []domain.Span{{Start: 1, End: 99, Type: domain.SpanStrong}, {Start: 2, End: 2, Type: domain.SpanEm}},
			}},
			expected: "<p>a<strong>bc</strong></p>",
		},
		{
			name: "Image and embed",
			body: domain.RichText{
				{Type: domain.BlockImage, Image: &domain.ImageRef{URL: "https://img/x.png", Alt: `a "b"`}},
				{Type: domain.BlockEmbed, Embed: &domain.Embed{Type: "video", Provider: "YouTube", URL: "https://youtu.be/x", HTML: "<iframe></iframe>"}},
			},
			expected: `<p class="block-img"><img src="https://img/x.png" alt="a &#34;b&#34;" /></p>` +
				`<div data-oembed="https://youtu.be/x" data-oembed-type="video" data-oembed-provider="YouTube"><iframe></iframe></div>`,
		},
		{
			name:     "Unknown block types are dropped",
			body:     domain.RichText{{Type: "table", Text: "x"}, paragraph("kept")},
			expected: "<p>kept</p>",
		},
	}

	r := NewRichTextRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Render(tt.body)
			if result != tt.expected {
				t.Errorf("Render() = %q, want %q", result, tt.expected)
			}
		})
	}
}
