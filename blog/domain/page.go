package domain

import (
	"context"
	"errors"
	"time"
)

var ErrPageNotFound = errors.New("page not found")

// RenderedPage is a statically generated page.
// A page is served as-is until ExpiresAt, after which it is stale and gets
// regenerated while the old copy keeps being served.
type RenderedPage struct {
	Path        string
	HTML        []byte
	GeneratedAt time.Time
	ExpiresAt   time.Time
	// Took is how long generation ran.
	Took time.Duration
}

// IsStale reports whether the page is past its freshness window at now.
func (p *RenderedPage) IsStale(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

type PageRepository interface {
	// SavePage stores the page markup and its freshness window
	SavePage(ctx context.Context, p *RenderedPage) error

	// GetPage returns ErrPageNotFound for paths that were never generated
	GetPage(ctx context.Context, path string) (*RenderedPage, error)

	// DeletePage removes a page, e.g. when its document disappeared
	DeletePage(ctx context.Context, path string) error

	// ExpireAll marks every stored page stale as of at
	ExpireAll(ctx context.Context, at time.Time) (int64, error)

	// ListPaths returns all stored paths
	ListPaths(ctx context.Context) ([]string, error)
}
