package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// FailedBuildBackoff is how long a page that failed to build is answered
// with its error instead of a placeholder.
const FailedBuildBackoff = 30 * time.Second

// ErrPageNotStored accompanies a page that was built but could not be saved.
var ErrPageNotStored = errors.New("page not stored")

// Route describes how to build one statically generated page.
type Route struct {
	Path string
	// Revalidate is how long a generated page is served before it is rebuilt.
	Revalidate time.Duration
	Generate   func(ctx context.Context) ([]byte, error)
	// Fallback renders the placeholder served while a never generated page
	// is built in the background. Nil means callers block until it is built.
	Fallback func() ([]byte, error)
}

// Served is the outcome of Revalidator.Serve.
type Served struct {
	HTML        []byte
	GeneratedAt time.Time
	// Stale is set when the page is past its window and a rebuild was started.
	Stale bool
	// Fallback is set when HTML is the route's placeholder.
	Fallback bool
	// Generated is set when the page was built to answer this call.
	Generated bool
}

type buildFailure struct {
	until time.Time
	err   error
}

// Revalidator serves statically generated pages with stale-while-revalidate
// semantics. Builds of the same path are coalesced.
type Revalidator struct {
	pages domain.PageRepository
	group singleflight.Group
	now   func() time.Time

	// failures remembers paths whose last build failed. Missing documents
	// are kept for the route's revalidation period, other errors for
	// FailedBuildBackoff.
	mu       sync.Mutex
	failures map[string]buildFailure

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

func NewRevalidator(pages domain.PageRepository) *Revalidator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Revalidator{
		pages:    pages,
		now:      time.Now,
		failures: make(map[string]buildFailure),
		ctx:      ctx,
		cancel:   cancel,
		wg:       &sync.WaitGroup{},
	}
}

// Close cancels background rebuilds and waits for them to return.
func (r *Revalidator) Close() error {
	r.cancel()
	r.wg.Wait()
	return nil
}

// Wait blocks until background rebuilds started so far have finished.
func (r *Revalidator) Wait() {
	r.wg.Wait()
}

// Serve returns the stored page for route.
//
// A fresh page is returned as is. A stale page is returned while a rebuild
// runs in the background; if the rebuild fails the stale copy stays. A page
// that was never generated is built before returning, or, when the route has
// a Fallback, the placeholder is returned and the build runs in the
// background. Paths whose document was recently not found fail with
// domain.ErrPostNotFound without building, and routes with a Fallback whose
// last build failed return that error until FailedBuildBackoff passes.
func (r *Revalidator) Serve(ctx context.Context, route Route) (*Served, error) {
	page, err := r.pages.GetPage(ctx, route.Path)
	if errors.Is(err, domain.ErrPageNotFound) {
		if failed := r.recentFailure(route.Path); failed != nil {
			if errors.Is(failed, domain.ErrPostNotFound) {
				return nil, domain.ErrPostNotFound
			}
			if route.Fallback != nil {
				return nil, failed
			}
		}
		if route.Fallback != nil {
			r.rebuildAsync(route)
			html, err := route.Fallback()
			if err != nil {
				return nil, fmt.Errorf("failed to render fallback for %s: %w", route.Path, err)
			}
			return &Served{HTML: html, Fallback: true}, nil
		}

		page, err = r.Generate(ctx, route)
		if errors.Is(err, ErrPageNotStored) {
			log.Error().Err(err).Str("path", route.Path).Msg("Serving page that could not be stored")
		} else if err != nil {
			return nil, err
		}
		return &Served{HTML: page.HTML, GeneratedAt: page.GeneratedAt, Generated: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load page %s: %w", route.Path, err)
	}

	served := &Served{HTML: page.HTML, GeneratedAt: page.GeneratedAt}
	if page.IsStale(r.now()) {
		served.Stale = true
		r.rebuildAsync(route)
	}
	return served, nil
}

// Generate builds and stores route now, joining a build of the same path
// that is already running. The build runs on the revalidator's context so a
// cancelled request does not abort it for other waiters. A page that was
// built but not saved is returned along with an error wrapping
// ErrPageNotStored.
func (r *Revalidator) Generate(ctx context.Context, route Route) (*domain.RenderedPage, error) {
	ch := r.group.DoChan(route.Path, func() (any, error) {
		return r.build(route)
	})

	select {
	case res := <-ch:
		page, _ := res.Val.(*domain.RenderedPage)
		return page, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ExpireAll marks every stored page stale so the next request rebuilds it,
// and forgets remembered build failures.
func (r *Revalidator) ExpireAll(ctx context.Context) (int64, error) {
	n, err := r.pages.ExpireAll(ctx, r.now())
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	clear(r.failures)
	r.mu.Unlock()

	log.Info().Int64("pages", n).Msg("Expired generated pages")
	return n, nil
}

func (r *Revalidator) rebuildAsync(route Route) {
	r.wg.Go(func() {
		if _, err := r.Generate(r.ctx, route); err != nil {
			log.Error().Err(err).Str("path", route.Path).Msg("Failed to revalidate page")
		}
	})
}

func (r *Revalidator) build(route Route) (*domain.RenderedPage, error) {
	start := r.now()
	html, err := route.Generate(r.ctx)
	if errors.Is(err, domain.ErrPostNotFound) {
		// the document is gone; stop serving the old copy
		if delErr := r.pages.DeletePage(r.ctx, route.Path); delErr != nil {
			log.Error().Err(delErr).Str("path", route.Path).Msg("Failed to delete page")
		}
		r.rememberFailure(route.Path, start.Add(route.Revalidate), err)
		return nil, err
	}
	if err != nil {
		err = fmt.Errorf("failed to generate %s: %w", route.Path, err)
		r.rememberFailure(route.Path, start.Add(FailedBuildBackoff), err)
		return nil, err
	}

	r.mu.Lock()
	delete(r.failures, route.Path)
	r.mu.Unlock()

	page := &domain.RenderedPage{
		Path:        route.Path,
		HTML:        html,
		GeneratedAt: start,
		ExpiresAt:   start.Add(route.Revalidate),
		Took:        r.now().Sub(start),
	}

	if err := r.pages.SavePage(r.ctx, page); err != nil {
		return page, fmt.Errorf("%w: %s: %w", ErrPageNotStored, route.Path, err)
	}

	log.Debug().Str("path", route.Path).Dur("took", page.Took).Msg("Generated page")
	return page, nil
}

func (r *Revalidator) rememberFailure(path string, until time.Time, err error) {
	r.mu.Lock()
	r.failures[path] = buildFailure{until: until, err: err}
	r.mu.Unlock()
}

// recentFailure returns the error of the last build of path while it is
// remembered.
func (r *Revalidator) recentFailure(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	failed, ok := r.failures[path]
	if !ok {
		return nil
	}
	if !r.now().Before(failed.until) {
		delete(r.failures, path)
		return nil
	}
	return failed.err
}
