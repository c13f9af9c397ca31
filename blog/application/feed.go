package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

var ErrLoadInFlight = errors.New("a load is already in progress")

// Feed is the listing's view state: the summaries fetched so far, in fetch
// order, and the cursor of the next page. It only changes through LoadMore.
type Feed struct {
	source domain.ContentSource
	dates  *DateFormatter

	mu       sync.Mutex
	posts    []PostSummaryView
	nextPage string
	loading  bool
}

// NewFeed seeds a feed with an already fetched page. A nil page yields an
// empty feed with no cursor.
func NewFeed(source domain.ContentSource, dates *DateFormatter, initial *domain.Page) *Feed {
	f := &Feed{
		source: source,
		dates:  dates,
		posts:  make([]PostSummaryView, 0),
	}
	if initial != nil {
		f.posts = append(f.posts, f.format(initial.Results)...)
		f.nextPage = initial.NextPage
	}
	return f
}

// Posts returns a copy of the accumulated summaries.
func (f *Feed) Posts() []PostSummaryView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PostSummaryView(nil), f.posts...)
}

func (f *Feed) NextPage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextPage
}

func (f *Feed) HasMore() bool {
	return f.NextPage() != ""
}

// View snapshots the feed for rendering.
func (f *Feed) View() *HomeView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &HomeView{
		Posts:    append([]PostSummaryView(nil), f.posts...),
		NextPage: f.nextPage,
	}
}

// LoadMore fetches the page behind the cursor, appends its summaries and
// replaces the cursor. It returns the appended summaries.
//
// Without a cursor it is a no-op. While a load is running further calls fail
// with ErrLoadInFlight. On error the feed is left untouched.
func (f *Feed) LoadMore(ctx context.Context) ([]PostSummaryView, error) {
	f.mu.Lock()
	if f.nextPage == "" {
		f.mu.Unlock()
		return nil, nil
	}
	if f.loading {
		f.mu.Unlock()
		return nil, ErrLoadInFlight
	}
	f.loading = true
	cursor := f.nextPage
	f.mu.Unlock()

	page, err := f.source.FetchPage(ctx, cursor)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		return nil, fmt.Errorf("failed to load more posts: %w", err)
	}

	added := f.format(page.Results)
	f.posts = append(f.posts, added...)
	f.nextPage = page.NextPage
	return added, nil
}

func (f *Feed) format(results []domain.PostSummary) []PostSummaryView {
	views := make([]PostSummaryView, 0, len(results))
	for _, p := range results {
		views = append(views, PostSummaryView{
			UID:         p.UID,
			Href:        PostPath(p.UID),
			Title:       p.Title,
			Subtitle:    p.Subtitle,
			Author:      p.Author,
			PublishedAt: p.FirstPublicationDate,
			PublishedOn: f.dates.Format(p.FirstPublicationDate),
		})
	}
	return views
}

// PostPath is the route of the post with the given UID.
func PostPath(uid string) string {
	return "/post/" + url.PathEscape(uid)
}
