package prismic

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

// decodeSearch parses and validates a search response into a domain page.
func decodeSearch(body []byte) (*searchResponse, *domain.Page, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := validate.Struct(&resp); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	page := &domain.Page{
		Results: make([]domain.PostSummary, 0, len(resp.Results)),
	}
	if resp.NextPage != nil {
		page.NextPage = withoutToken(*resp.NextPage)
	}

	for _, doc := range resp.Results {
		summary, err := toSummary(doc)
		if err != nil {
			return nil, nil, err
		}
		page.Results = append(page.Results, summary)
	}
	return &resp, page, nil
}

func decodeData(doc document) (*postData, error) {
	var data postData
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", ErrMalformedResponse, doc.ID, err)
	}
	if err := validate.Struct(&data); err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", ErrMalformedResponse, doc.ID, err)
	}
	return &data, nil
}

func toSummary(doc document) (domain.PostSummary, error) {
	data, err := decodeData(doc)
	if err != nil {
		return domain.PostSummary{}, err
	}

	published, err := parsePublicationDate(doc.FirstPublicationDate)
	if err != nil {
		return domain.PostSummary{}, fmt.Errorf("%w: document %s: %v", ErrMalformedResponse, doc.ID, err)
	}

	return domain.PostSummary{
		UID:                  doc.UID,
		FirstPublicationDate: published,
		Title:                string(data.Title),
		Subtitle:             string(data.Subtitle),
		Author:               string(data.Author),
	}, nil
}

func toPost(doc document) (*domain.Post, error) {
	data, err := decodeData(doc)
	if err != nil {
		return nil, err
	}

	published, err := parsePublicationDate(doc.FirstPublicationDate)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", ErrMalformedResponse, doc.ID, err)
	}

	post := &domain.Post{
		UID:                  doc.UID,
		FirstPublicationDate: published,
		Title:                string(data.Title),
		Author:               string(data.Author),
		BannerURL:            data.Banner.URL,
		Content:              make([]domain.ContentBlock, 0, len(data.Content)),
	}

	for _, group := range data.Content {
		post.Content = append(post.Content, domain.ContentBlock{
			Heading: string(group.Heading),
			Body:    toRichText(group.Body),
		})
	}
	return post, nil
}

func toRichText(blocks []richTextBlock) domain.RichText {
	out := make(domain.RichText, 0, len(blocks))
	for _, b := range blocks {
		node := domain.RichTextNode{
			Type: b.Type,
			Text: b.Text,
		}

		switch b.Type {
		case domain.BlockImage:
			img := &domain.ImageRef{URL: b.URL}
			if b.Alt != nil {
				img.Alt = *b.Alt
			}
			node.Image = img
		case domain.BlockEmbed:
			if b.OEmbed != nil {
				node.Embed = &domain.Embed{
					Type:     b.OEmbed.Type,
					Provider: b.OEmbed.ProviderName,
					URL:      b.OEmbed.EmbedURL,
					HTML:     b.OEmbed.HTML,
				}
			}
		}

		for _, s := range b.Spans {
			node.Spans = append(node.Spans, toSpan(s))
		}
		out = append(out, node)
	}
	return out
}

func toSpan(s span) domain.Span {
	out := domain.Span{
		Start: s.Start,
		End:   s.End,
		Type:  s.Type,
	}
	if s.Data == nil {
		return out
	}

	switch s.Type {
	case domain.SpanHyperlink:
		out.URL = resolveLink(s.Data)
		out.Target = s.Data.Target
	case domain.SpanLabel:
		out.Label = s.Data.Label
	}
	return out
}

// resolveLink maps a link field to a URL; links to post documents point at
// the post route.
func resolveLink(d *spanData) string {
	if d.LinkType == "Document" {
		if d.Type == domain.PostsType && d.UID != "" {
			return "/post/" + d.UID
		}
		return "/"
	}
	return d.URL
}

// withoutToken drops the access token Prismic echoes into next_page, since
// cursors are handed to browsers.
func withoutToken(cursor string) string {
	u, err := url.Parse(cursor)
	if err != nil {
		return cursor
	}
	q := u.Query()
	if !q.Has("access_token") {
		return cursor
	}
	q.Del("access_token")
	u.RawQuery = q.Encode()
	return u.String()
}
