package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/dfryer1193/spaceblog/api"
	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GetPosts returns the first page of summaries, or the page behind the
// cursor query parameter.
func GetPosts(posts *application.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			summaries []application.PostSummaryView
			nextPage  string
		)

		if cursor := c.Query("cursor"); cursor != "" {
			feed := posts.FeedAt(cursor)
			added, err := feed.LoadMore(c.Request.Context())
			if err != nil {
				writeError(c, err)
				return
			}
			summaries, nextPage = added, feed.NextPage()
		} else {
			feed, err := posts.Home(c.Request.Context())
			if err != nil {
				writeError(c, err)
				return
			}
			view := feed.View()
			summaries, nextPage = view.Posts, view.NextPage
		}

		c.JSON(http.StatusOK, toPagination(summaries, nextPage))
	}
}

func GetPost(posts *application.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID := c.Param("postId")

		view, err := posts.Post(c.Request.Context(), postID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPost(view))
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPostNotFound):
		c.JSON(http.StatusNotFound, api.Error{Error: "post not found"})
	case errors.Is(err, domain.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, api.Error{Error: "invalid cursor"})
	default:
		_ = c.Error(err)
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Failed to fetch posts")
		c.JSON(http.StatusBadGateway, api.Error{Error: "failed to fetch posts"})
	}
}

func toPagination(summaries []application.PostSummaryView, nextPage string) api.Pagination {
	out := api.Pagination{Results: make([]api.PostSummary, 0, len(summaries))}
	for _, s := range summaries {
		out.Results = append(out.Results, api.PostSummary{
			UID:                  s.UID,
			FirstPublicationDate: formatTimestamp(s.PublishedAt),
			PublishedOn:          s.PublishedOn,
			Data: api.PostSummaryData{
				Title:    s.Title,
				Subtitle: s.Subtitle,
				Author:   s.Author,
			},
		})
	}
	if nextPage != "" {
		out.NextPage = &nextPage
	}
	return out
}

func toPost(view *application.PostView) api.Post {
	content := make([]api.ContentBlock, 0, len(view.Sections))
	for _, s := range view.Sections {
		content = append(content, api.ContentBlock{
			Heading: s.Heading,
			Body:    string(s.Body),
		})
	}

	return api.Post{
		UID:                  view.UID,
		FirstPublicationDate: formatTimestamp(view.PublishedAt),
		PublishedOn:          view.PublishedOn,
		ReadTimeMinutes:      view.ReadTimeMinutes,
		Data: api.PostData{
			Title:   view.Title,
			Author:  view.Author,
			Banner:  api.Banner{URL: view.BannerURL},
			Content: content,
		},
	}
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
