package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

// fakeSource is an in-memory domain.ContentSource. Cursors are keys of pages.
type fakeSource struct {
	mu      sync.Mutex
	first   *domain.Page
	pages   map[string]*domain.Page
	posts   map[string]*domain.Post
	err     error
	fetches int
	// gate, when set, blocks FetchPage until closed.
	gate chan struct{}
}

func (f *fakeSource) QueryByType(ctx context.Context, docType string, pageSize int) (*domain.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	if pageSize >= StaticPathsLimit {
		all := &domain.Page{}
		for p := f.first; p != nil; p = f.pages[p.NextPage] {
			all.Results = append(all.Results, p.Results...)
			if p.NextPage == "" {
				break
			}
		}
		return all, nil
	}
	return f.first, nil
}

func (f *fakeSource) GetByUID(ctx context.Context, docType string, uid string) (*domain.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	post, ok := f.posts[uid]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return post, nil
}

func (f *fakeSource) FetchPage(ctx context.Context, cursor string) (*domain.Page, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[cursor]
	if !ok {
		return nil, errors.New("unknown cursor")
	}
	return page, nil
}

func summary(uid string) domain.PostSummary {
	published := time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)
	return domain.PostSummary{
		UID:                  uid,
		FirstPublicationDate: &published,
		Title:                "Title " + uid,
		Subtitle:             "Subtitle " + uid,
		Author:               "Author " + uid,
	}
}

func newTestFeed(src *fakeSource) *Feed {
	return NewFeed(src, NewDateFormatter(DefaultLocale, time.UTC), src.first)
}

func uids(views []PostSummaryView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.UID)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFeed_LoadMoreAppendsInOrder(t *testing.T) {
	src := &fakeSource{
		first: &domain.Page{Results: []domain.PostSummary{summary("a")}, NextPage: "p2"},
		pages: map[string]*domain.Page{
			"p2": {Results: []domain.PostSummary{summary("b")}, NextPage: "p3"},
			"p3": {Results: []domain.PostSummary{summary("c"), summary("a")}},
		},
	}
	feed := newTestFeed(src)

	if !feed.HasMore() {
		t.Fatal("HasMore() = false, want true")
	}

	added, err := feed.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if got := uids(added); !equalStrings(got, []string{"b"}) {
		t.Errorf("added = %v, want [b]", got)
	}
	if added[0].PublishedOn != "15 mar 2021" {
		t.Errorf("PublishedOn = %q, want %q", added[0].PublishedOn, "15 mar 2021")
	}

	if _, err := feed.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}

	// duplicates are kept
	want := []string{"a", "b", "c", "a"}
	if got := uids(feed.Posts()); !equalStrings(got, want) {
		t.Errorf("Posts() = %v, want %v", got, want)
	}
	if feed.HasMore() {
		t.Error("HasMore() = true after last page")
	}
}

func TestFeed_LoadMoreWithoutCursorIsNoop(t *testing.T) {
	src := &fakeSource{
		first: &domain.Page{Results: []domain.PostSummary{summary("a")}},
	}
	feed := newTestFeed(src)

	added, err := feed.LoadMore(context.Background())
	if err != nil || added != nil {
		t.Fatalf("LoadMore() = %v, %v, want nil, nil", added, err)
	}
	if src.fetches != 0 {
		t.Errorf("fetches = %d, want 0", src.fetches)
	}
}

func TestFeed_LoadMoreEmptyLastPage(t *testing.T) {
	src := &fakeSource{
		first: &domain.Page{Results: []domain.PostSummary{summary("a")}, NextPage: "p2"},
		pages: map[string]*domain.Page{
			"p2": {Results: []domain.PostSummary{}},
		},
	}
	feed := newTestFeed(src)
	before := feed.Posts()

	if _, err := feed.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}

	if got := feed.Posts(); len(got) != len(before) || got[0] != before[0] {
		t.Errorf("Posts() = %v, want %v", got, before)
	}
	if feed.View().HasMore() {
		t.Error("load-more affordance should be cleared")
	}
}

func TestFeed_LoadMoreErrorLeavesStateUnchanged(t *testing.T) {
	src := &fakeSource{
		first: &domain.Page{Results: []domain.PostSummary{summary("a")}, NextPage: "p2"},
		err:   errors.New("network down"),
	}
	feed := newTestFeed(src)

	if _, err := feed.LoadMore(context.Background()); err == nil {
		t.Fatal("LoadMore() error = nil, want error")
	}
	if got := uids(feed.Posts()); !equalStrings(got, []string{"a"}) {
		t.Errorf("Posts() = %v, want [a]", got)
	}
	if feed.NextPage() != "p2" {
		t.Errorf("NextPage() = %q, want p2", feed.NextPage())
	}

	// the guard is released after a failure
	src.err = nil
	src.pages = map[string]*domain.Page{"p2": {Results: []domain.PostSummary{summary("b")}}}
	if _, err := feed.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore() after failure error = %v", err)
	}
}

func TestFeed_LoadMoreRejectsReentrantCalls(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{
		first: &domain.Page{Results: []domain.PostSummary{summary("a")}, NextPage: "p2"},
		pages: map[string]*domain.Page{
			"p2": {Results: []domain.PostSummary{summary("b")}},
		},
		gate: gate,
	}
	feed := newTestFeed(src)

	done := make(chan error, 1)
	go func() {
		_, err := feed.LoadMore(context.Background())
		done <- err
	}()

	// wait for the first call to reach the source
	for {
		src.mu.Lock()
		n := src.fetches
		src.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := feed.LoadMore(context.Background()); !errors.Is(err, ErrLoadInFlight) {
		t.Errorf("second LoadMore() error = %v, want ErrLoadInFlight", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first LoadMore() error = %v", err)
	}

	if got := uids(feed.Posts()); !equalStrings(got, []string{"a", "b"}) {
		t.Errorf("Posts() = %v, want [a b]", got)
	}
}

func TestNewFeed_NilPage(t *testing.T) {
	feed := NewFeed(&fakeSource{}, NewDateFormatter(DefaultLocale, nil), nil)
	if len(feed.Posts()) != 0 || feed.HasMore() {
		t.Errorf("empty feed = %v, more=%v", feed.Posts(), feed.HasMore())
	}
}
