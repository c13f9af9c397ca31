package prismic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

const postDocFmt = `{
	"id": "id-%[1]s",
	"uid": "%[1]s",
	"type": "posts",
	"first_publication_date": "2021-03-15T19:25:28+0000",
	"data": {
		"title": "Title %[1]s",
		"subtitle": "Subtitle %[1]s",
		"author": "Author %[1]s",
		"banner": {"url": "https://images.prismic.io/%[1]s.png", "alt": null},
		"content": [
			{
				"heading": "Hello world",
				"body": [
					{"type": "paragraph", "text": "a b c d", "spans": [
						{"start": 0, "end": 1, "type": "strong"},
						{"start": 2, "end": 3, "type": "hyperlink", "data": {"link_type": "Document", "type": "posts", "uid": "other"}}
					]},
					{"type": "image", "url": "https://images.prismic.io/inline.png", "alt": "inline"}
				]
			}
		]
	}
}`

// fakePrismic serves a repository holding uids, one document per page.
type fakePrismic struct {
	server *httptest.Server
	uids   []string
	token  string

	mu       sync.Mutex
	requests []string
}

func (f *fakePrismic) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.URL.String())
}

func (f *fakePrismic) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newFakePrismic(t *testing.T, uids ...string) *fakePrismic {
	t.Helper()

	f := &fakePrismic{uids: uids}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", f.root)
	mux.HandleFunc("/api/v2/documents/search", f.search)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePrismic) endpoint() string {
	return f.server.URL + "/api/v2"
}

func (f *fakePrismic) root(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if f.token != "" && r.URL.Query().Get("access_token") != f.token {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Invalid access token"}`)
		return
	}
	fmt.Fprint(w, `{"refs": [{"id": "master", "ref": "master-ref", "label": "Master", "isMasterRef": true}]}`)
}

func (f *fakePrismic) search(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	q := r.URL.Query()
	if q.Get("ref") != "master-ref" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message": "missing ref"}`)
		return
	}

	predicate := q.Get("q")
	if strings.HasPrefix(predicate, "[[at(my.posts.uid,") {
		uid := strings.TrimSuffix(strings.TrimPrefix(predicate, `[[at(my.posts.uid,"`), `")]]`)
		var results []string
		for _, u := range f.uids {
			if u == uid {
				results = append(results, fmt.Sprintf(postDocFmt, u))
			}
		}
		fmt.Fprintf(w, `{"page": 1, "next_page": null, "results": [%s]}`, strings.Join(results, ","))
		return
	}

	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 {
		pageSize = 20
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(f.uids))
	var results []string
	for i := start; i < end; i++ {
		results = append(results, fmt.Sprintf(postDocFmt, f.uids[i]))
	}

	next := "null"
	if end < len(f.uids) {
		nq := r.URL.Query()
		nq.Set("page", strconv.Itoa(page+1))
		next = strconv.Quote(f.endpoint() + "/documents/search?" + nq.Encode())
	}
	fmt.Fprintf(w, `{"page": %d, "results_per_page": %d, "next_page": %s, "results": [%s]}`,
		page, pageSize, next, strings.Join(results, ","))
}

func newTestClient(t *testing.T, f *fakePrismic) *Client {
	t.Helper()
	c, err := NewClient(Config{Endpoint: f.endpoint(), AccessToken: f.token})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantErr  bool
	}{
		{name: "valid", endpoint: "https://blog.cdn.prismic.io/api/v2"},
		{name: "trailing slash", endpoint: "https://blog.cdn.prismic.io/api/v2/"},
		{name: "empty", endpoint: "", wantErr: true},
		{name: "bad scheme", endpoint: "ftp://blog.cdn.prismic.io/api/v2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(Config{Endpoint: tt.endpoint})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient(%q) error = %v, wantErr %v", tt.endpoint, err, tt.wantErr)
			}
		})
	}
}

func TestClient_QueryByType(t *testing.T) {
	f := newFakePrismic(t, "abc", "def")
	c := newTestClient(t, f)

	page, err := c.QueryByType(context.Background(), domain.PostsType, 1)
	if err != nil {
		t.Fatalf("QueryByType() error = %v", err)
	}

	if len(page.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(page.Results))
	}
	got := page.Results[0]
	if got.UID != "abc" || got.Title != "Title abc" || got.Subtitle != "Subtitle abc" || got.Author != "Author abc" {
		t.Errorf("Results[0] = %+v", got)
	}

	wantDate := time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)
	if got.FirstPublicationDate == nil || !got.FirstPublicationDate.Equal(wantDate) {
		t.Errorf("FirstPublicationDate = %v, want %v", got.FirstPublicationDate, wantDate)
	}
	if !page.HasNext() {
		t.Fatal("expected a next page cursor")
	}

	next, err := c.FetchPage(context.Background(), page.NextPage)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if uids := next.UIDs(); len(uids) != 1 || uids[0] != "def" {
		t.Errorf("next page UIDs = %v, want [def]", uids)
	}
	if next.HasNext() {
		t.Errorf("NextPage = %q, want empty", next.NextPage)
	}
}

func TestClient_FetchPageRejectsForeignCursor(t *testing.T) {
	f := newFakePrismic(t, "abc")
	c := newTestClient(t, f)

	cursors := []string{
		"https://evil.example.com/api/v2/documents/search?page=2",
		f.server.URL + "/admin",
		"file:///etc/passwd",
		"::not a url",
	}
	for _, cursor := range cursors {
		if _, err := c.FetchPage(context.Background(), cursor); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("FetchPage(%q) error = %v, want ErrInvalidCursor", cursor, err)
		}
	}
	for _, r := range f.seen() {
		if strings.Contains(r, "admin") {
			t.Errorf("foreign cursor was requested: %s", r)
		}
	}
}

func TestClient_GetByUID(t *testing.T) {
	f := newFakePrismic(t, "abc")
	c := newTestClient(t, f)

	post, err := c.GetByUID(context.Background(), domain.PostsType, "abc")
	if err != nil {
		t.Fatalf("GetByUID() error = %v", err)
	}

	if post.Title != "Title abc" || post.Author != "Author abc" {
		t.Errorf("post = %+v", post)
	}
	if post.BannerURL != "https://images.prismic.io/abc.png" {
		t.Errorf("BannerURL = %q", post.BannerURL)
	}
	if len(post.Content) != 1 {
		t.Fatalf("len(Content) = %d, want 1", len(post.Content))
	}

	block := post.Content[0]
	if block.Heading != "Hello world" {
		t.Errorf("Heading = %q", block.Heading)
	}
	if len(block.Body) != 2 {
		t.Fatalf("len(Body) = %d, want 2", len(block.Body))
	}
	para := block.Body[0]
	if para.Text != "a b c d" || len(para.Spans) != 2 {
		t.Fatalf("paragraph = %+v", para)
	}
	if para.Spans[1].URL != "/post/other" {
		t.Errorf("document link resolved to %q, want /post/other", para.Spans[1].URL)
	}
	if img := block.Body[1].Image; img == nil || img.URL != "https://images.prismic.io/inline.png" || img.Alt != "inline" {
		t.Errorf("image = %+v", img)
	}
}

func TestClient_GetByUIDNotFound(t *testing.T) {
	f := newFakePrismic(t, "abc")
	c := newTestClient(t, f)

	post, err := c.GetByUID(context.Background(), domain.PostsType, "missing")
	if !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("GetByUID() error = %v, want ErrPostNotFound", err)
	}
	if post != nil {
		t.Errorf("GetByUID() post = %+v, want nil", post)
	}
}

func TestClient_AccessToken(t *testing.T) {
	f := newFakePrismic(t, "abc", "def")
	f.token = "secret"

	c := newTestClient(t, f)
	page, err := c.QueryByType(context.Background(), domain.PostsType, 1)
	if err != nil {
		t.Fatalf("QueryByType() with token error = %v", err)
	}
	if page.NextPage == "" || strings.Contains(page.NextPage, "secret") {
		t.Errorf("NextPage = %q, want a cursor without the token", page.NextPage)
	}
	if _, err := c.FetchPage(context.Background(), page.NextPage); err != nil {
		t.Fatalf("FetchPage() with token error = %v", err)
	}

	anon, err := NewClient(Config{Endpoint: f.endpoint()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = anon.QueryByType(context.Background(), domain.PostsType, 1)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("QueryByType() without token error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Invalid access token" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2" {
			fmt.Fprint(w, `{"refs": [{"ref": "r", "isMasterRef": true}]}`)
			return
		}
		// uid missing
		fmt.Fprint(w, `{"next_page": null, "results": [{"id": "x", "type": "posts", "data": {"title": "t"}}]}`)
	}))
	defer server.Close()

	c, err := NewClient(Config{Endpoint: server.URL + "/api/v2"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := c.QueryByType(context.Background(), domain.PostsType, 1); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("QueryByType() error = %v, want ErrMalformedResponse", err)
	}
}
