package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const htmlContentType = "text/html; charset=utf-8"

var pageTemplates = []string{"home", "post", "not_found", "error"}

// Site serves the HTML pages of the blog through a Revalidator.
type Site struct {
	posts *application.PostService
	pages *application.Revalidator
	// fallback makes unknown posts answer with a placeholder instead of
	// blocking until they are generated.
	fallback bool

	fragments *template.Template
	templates map[string]*template.Template
}

func NewSite(posts *application.PostService, pages *application.Revalidator, fallback bool) (*Site, error) {
	base, err := template.ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		templates[name] = t
	}

	return &Site{
		posts:     posts,
		pages:     pages,
		fallback:  fallback,
		fragments: base,
		templates: templates,
	}, nil
}

func (s *Site) RegisterRoutes(r gin.IRouter) error {
	static, err := fs.Sub(staticFS, "static/images")
	if err != nil {
		return fmt.Errorf("failed to open static assets: %w", err)
	}

	r.GET("/", s.Home)
	r.GET("/post/:uid", s.Post)
	r.GET("/posts/more", s.LoadMore)
	r.StaticFS("/images", http.FS(static))
	return nil
}

// NotFound renders the 404 page. It is meant for gin's NoRoute.
func (s *Site) NotFound(c *gin.Context) {
	s.renderStatus(c, http.StatusNotFound, "not_found")
}

// HomeRoute is the listing page: the first page of summaries.
func (s *Site) HomeRoute() application.Route {
	return application.Route{
		Path:       "/",
		Revalidate: application.HomeRevalidate,
		Generate:   s.renderHome,
	}
}

// PostRoute is the detail page of uid.
func (s *Site) PostRoute(uid string) application.Route {
	route := application.Route{
		Path:       application.PostPath(uid),
		Revalidate: application.PostRevalidate,
		Generate: func(ctx context.Context) ([]byte, error) {
			return s.renderPost(ctx, uid)
		},
	}
	if s.fallback {
		route.Fallback = s.renderPlaceholder
	}
	return route
}

func (s *Site) Home(c *gin.Context) {
	s.serve(c, s.HomeRoute())
}

func (s *Site) Post(c *gin.Context) {
	uid := c.Param("uid")
	if !application.IsValidUID(uid) {
		s.NotFound(c)
		return
	}
	s.serve(c, s.PostRoute(uid))
}

// LoadMore answers the listing's load-more button with the markup of the
// next summaries, followed by a new button while more pages remain.
func (s *Site) LoadMore(c *gin.Context) {
	cursor := c.Query("cursor")
	if cursor == "" {
		c.String(http.StatusBadRequest, "missing cursor")
		return
	}

	feed := s.posts.FeedAt(cursor)
	added, err := feed.LoadMore(c.Request.Context())
	switch {
	case errors.Is(err, domain.ErrInvalidCursor):
		c.String(http.StatusBadRequest, "invalid cursor")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to load more posts")
		c.String(http.StatusBadGateway, "failed to load more posts")
		return
	}

	var buf bytes.Buffer
	view := &application.HomeView{Posts: added, NextPage: feed.NextPage()}
	if err := s.fragments.ExecuteTemplate(&buf, "feed", view); err != nil {
		log.Error().Err(err).Msg("Failed to render feed fragment")
		c.String(http.StatusInternalServerError, "failed to render posts")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, htmlContentType, buf.Bytes())
}

func (s *Site) serve(c *gin.Context, route application.Route) {
	served, err := s.pages.Serve(c.Request.Context(), route)
	if errors.Is(err, domain.ErrPostNotFound) {
		s.NotFound(c)
		return
	}
	if err != nil {
		_ = c.Error(err)
		log.Error().Err(err).Str("path", route.Path).Msg("Failed to serve page")
		s.renderStatus(c, http.StatusInternalServerError, "error")
		return
	}

	switch {
	case served.Fallback:
		c.Header("Cache-Control", "no-store")
		c.Header("X-Cache", "FALLBACK")
	default:
		c.Header("Cache-Control", cacheControl(route.Revalidate))
		c.Header("X-Cache", cacheStatus(served))
	}
	c.Data(http.StatusOK, htmlContentType, served.HTML)
}

func (s *Site) renderHome(ctx context.Context) ([]byte, error) {
	feed, err := s.posts.Home(ctx)
	if err != nil {
		return nil, err
	}
	return s.render("home", feed.View())
}

func (s *Site) renderPost(ctx context.Context, uid string) ([]byte, error) {
	view, err := s.posts.Post(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.render("post", view)
}

func (s *Site) renderPlaceholder() ([]byte, error) {
	return s.render("post", &application.PostView{Fallback: true})
}

func (s *Site) render(name string, data any) ([]byte, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (s *Site) renderStatus(c *gin.Context, status int, name string) {
	c.Header("Cache-Control", "no-store")
	body, err := s.render(name, nil)
	if err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render status page")
		c.String(status, http.StatusText(status))
		return
	}
	c.Data(status, htmlContentType, body)
}

func cacheControl(revalidate time.Duration) string {
	return fmt.Sprintf("s-maxage=%d, stale-while-revalidate", int(revalidate.Seconds()))
}

func cacheStatus(served *application.Served) string {
	switch {
	case served.Generated:
		return "MISS"
	case served.Stale:
		return "STALE"
	}
	return "HIT"
}
