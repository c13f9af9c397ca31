package domain

// Structured text block types.
const (
	BlockHeading1     = "heading1"
	BlockHeading2     = "heading2"
	BlockHeading3     = "heading3"
	BlockHeading4     = "heading4"
	BlockHeading5     = "heading5"
	BlockHeading6     = "heading6"
	BlockParagraph    = "paragraph"
	BlockPreformatted = "preformatted"
	BlockListItem     = "list-item"
	BlockOListItem    = "o-list-item"
	BlockImage        = "image"
	BlockEmbed        = "embed"
)

// Span types.
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

// RichText is an ordered sequence of structured text blocks.
type RichText []RichTextNode

// RichTextNode is a single structured text block.
// Text and Spans are set for text blocks, Image for image blocks and Embed
// for embed blocks.
type RichTextNode struct {
	Type  string
	Text  string
	Spans []Span
	Image *ImageRef
	Embed *Embed
}

// Span marks a formatted range of a text block. Start and End are offsets in
// UTF-16 code units, End exclusive.
type Span struct {
	Start int
	End   int
	Type  string
	URL   string
	// Target is the hyperlink target window, if any.
	Target string
	// Label is the CSS class of a label span.
	Label string
}

type ImageRef struct {
	URL string
	Alt string
}

type Embed struct {
	Type     string
	Provider string
	URL      string
	HTML     string
}
