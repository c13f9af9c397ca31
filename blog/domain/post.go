package domain

import (
	"errors"
	"time"
)

// PostsType is the Prismic custom type holding blog posts.
const PostsType = "posts"

var ErrPostNotFound = errors.New("post not found")

// PostSummary is the listing view of a post.
// FirstPublicationDate is nil for documents that have never been published.
type PostSummary struct {
	UID                  string
	FirstPublicationDate *time.Time
	Title                string
	Subtitle             string
	Author               string
}

// Post is a fully fetched post document.
type Post struct {
	UID                  string
	FirstPublicationDate *time.Time
	Title                string
	Author               string
	BannerURL            string
	Content              []ContentBlock
}

// ContentBlock is one entry of the post's content group: a heading followed
// by a structured text body.
type ContentBlock struct {
	Heading string
	Body    RichText
}

// Page is one page of a paginated query.
// NextPage is the ready-to-call URL of the following page, empty when there
// are no more results.
type Page struct {
	Results  []PostSummary
	NextPage string
}

// HasNext reports whether another page can be fetched.
func (p *Page) HasNext() bool {
	return p != nil && p.NextPage != ""
}

// UIDs returns the identifiers of the page's results in order.
func (p *Page) UIDs() []string {
	uids := make([]string, 0, len(p.Results))
	for _, r := range p.Results {
		uids = append(uids, r.UID)
	}
	return uids
}
