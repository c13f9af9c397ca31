package application

import (
	"context"
	"fmt"
	"html/template"
	"regexp"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

const (
	// HomePageSize is the number of summaries fetched for the first page.
	HomePageSize = 1
	// StaticPathsLimit caps how many post routes are prebuilt.
	StaticPathsLimit = 100

	HomeRevalidate = 30 * time.Minute
	PostRevalidate = 4 * time.Hour
)

var uidRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// PostService loads posts from the content source and shapes them into
// view models.
type PostService struct {
	source   domain.ContentSource
	richText RichTextRenderer
	dates    *DateFormatter
}

func NewPostService(source domain.ContentSource, richText RichTextRenderer, dates *DateFormatter) *PostService {
	return &PostService{
		source:   source,
		richText: richText,
		dates:    dates,
	}
}

// Home fetches the first page of posts and returns it as a feed.
func (s *PostService) Home(ctx context.Context) (*Feed, error) {
	page, err := s.source.QueryByType(ctx, domain.PostsType, HomePageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch home page posts: %w", err)
	}
	return NewFeed(s.source, s.dates, page), nil
}

// FeedAt returns an empty feed positioned at cursor, ready to LoadMore.
// Each call yields a new Feed, so its in-flight guard only covers loads on
// that instance, not concurrent requests carrying the same cursor.
func (s *PostService) FeedAt(cursor string) *Feed {
	return NewFeed(s.source, s.dates, &domain.Page{NextPage: cursor})
}

// StaticUIDs lists the posts whose routes are prebuilt. UIDs that cannot
// name a route are skipped.
func (s *PostService) StaticUIDs(ctx context.Context) ([]string, error) {
	page, err := s.source.QueryByType(ctx, domain.PostsType, StaticPathsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate post paths: %w", err)
	}

	uids := make([]string, 0, len(page.Results))
	for _, uid := range page.UIDs() {
		if IsValidUID(uid) {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

// Post fetches a post and builds its view. Unknown and malformed UIDs yield
// domain.ErrPostNotFound.
func (s *PostService) Post(ctx context.Context, uid string) (*PostView, error) {
	if !IsValidUID(uid) {
		return nil, fmt.Errorf("%w: %q", domain.ErrPostNotFound, uid)
	}

	post, err := s.source.GetByUID(ctx, domain.PostsType, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post %s: %w", uid, err)
	}
	return s.PostView(post), nil
}

// PostView derives the display fields of post.
func (s *PostService) PostView(post *domain.Post) *PostView {
	view := &PostView{
		UID:             post.UID,
		Title:           post.Title,
		Author:          post.Author,
		BannerURL:       post.BannerURL,
		PublishedAt:     post.FirstPublicationDate,
		PublishedOn:     s.dates.Format(post.FirstPublicationDate),
		ReadTimeMinutes: ReadTime(post.Content),
		Sections:        make([]SectionView, 0, len(post.Content)),
	}

	for _, block := range post.Content {
		view.Sections = append(view.Sections, SectionView{
			Heading: block.Heading,
			Body:    template.HTML(s.richText.Render(block.Body)),
		})
	}
	return view
}

// IsValidUID reports whether uid can name a post route.
func IsValidUID(uid string) bool {
	return uidRegex.MatchString(uid)
}
