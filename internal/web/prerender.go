package web

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PrerenderConcurrency bounds how many pages are generated at once.
const PrerenderConcurrency = 8

// Prerender generates the listing page and the detail page of every post
// returned by StaticUIDs. Routes are independent and built in parallel; the
// first failure cancels the rest, including a page that was built but could
// not be stored. Posts that vanish between enumeration and generation are
// skipped. It returns the number of pages stored.
func (s *Site) Prerender(ctx context.Context) (int, error) {
	start := time.Now()

	uids, err := s.posts.StaticUIDs(ctx)
	if err != nil {
		return 0, err
	}

	routes := make([]application.Route, 0, len(uids)+1)
	routes = append(routes, s.HomeRoute())
	for _, uid := range uids {
		routes = append(routes, s.PostRoute(uid))
	}

	var built atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(PrerenderConcurrency)
	for _, route := range routes {
		g.Go(func() error {
			_, err := s.pages.Generate(gctx, route)
			if errors.Is(err, domain.ErrPostNotFound) {
				log.Warn().Str("path", route.Path).Msg("Skipping page of a removed post")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to prerender %s: %w", route.Path, err)
			}
			built.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(built.Load()), err
	}

	log.Info().
		Int("pages", int(built.Load())).
		Dur("took", time.Since(start)).
		Msg("Prerendered pages")
	return int(built.Load()), nil
}
