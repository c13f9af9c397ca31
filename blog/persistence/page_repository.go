package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/dfryer1193/spaceblog/shared/db"
)

var _ domain.PageRepository = (*SQLitePageRepository)(nil)

// SQLitePageRepository implements domain.PageRepository.
// Page markup is written as HTML files under dir; the SQLite table indexes
// them with their freshness window.
type SQLitePageRepository struct {
	db  *sql.DB
	dir string
}

// NewPageRepository creates a SQLitePageRepository storing files under dir.
func NewPageRepository(db *sql.DB, dir string) *SQLitePageRepository {
	return &SQLitePageRepository{
		db:  db,
		dir: dir,
	}
}

const upsertPageQuery = `
	INSERT INTO pages (path, file_path, generated_at, expires_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		file_path = excluded.file_path,
		generated_at = excluded.generated_at,
		expires_at = excluded.expires_at
`

const insertGenerationQuery = `
	INSERT INTO generations (path, generated_at, duration_ms)
	VALUES (?, ?, ?)
`

// SavePage writes the page file and its index row within a transaction
func (r *SQLitePageRepository) SavePage(ctx context.Context, p *domain.RenderedPage) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}

	fileName, err := pageFileName(p.Path)
	if err != nil {
		return err
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		_, err := executor.ExecContext(txCtx, upsertPageQuery,
			p.Path,
			fileName,
			p.GeneratedAt.UTC(),
			p.ExpiresAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert page: %w", err)
		}

		_, err = executor.ExecContext(txCtx, insertGenerationQuery,
			p.Path,
			p.GeneratedAt.UTC(),
			p.Took.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to record generation: %w", err)
		}

		// the file goes last so a failed write rolls the row back
		return r.writeFile(fileName, p.HTML)
	})
}

// writeFile replaces the file atomically so concurrent readers never see a
// partial page.
func (r *SQLitePageRepository) writeFile(fileName string, content []byte) error {
	localPath := filepath.Join(r.dir, fileName)
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".page-*")
	if err != nil {
		return fmt.Errorf("failed to create page file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write page file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write page file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set page file mode: %w", err)
	}

	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("failed to move page file into place: %w", err)
	}
	return nil
}

const getPageQuery = `
	SELECT path, file_path, generated_at, expires_at
	FROM pages
	WHERE path = ?
`

// GetPage loads the index row and the page file for path
func (r *SQLitePageRepository) GetPage(ctx context.Context, path string) (*domain.RenderedPage, error) {
	var row pageRow
	err := r.db.QueryRowContext(ctx, getPageQuery, path).Scan(
		&row.Path,
		&row.FilePath,
		&row.GeneratedAt,
		&row.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPageNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	content, err := os.ReadFile(filepath.Join(r.dir, row.FilePath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (file missing)", domain.ErrPageNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read page file: %w", err)
	}

	page := row.toDomain()
	page.HTML = content
	return page, nil
}

const deletePageQuery = `
	DELETE FROM pages WHERE path = ?
`

// DeletePage removes the index row and the file within a transaction
func (r *SQLitePageRepository) DeletePage(ctx context.Context, path string) error {
	fileName, err := pageFileName(path)
	if err != nil {
		return err
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		if _, err := executor.ExecContext(txCtx, deletePageQuery, path); err != nil {
			return fmt.Errorf("failed to delete page record: %w", err)
		}

		err := os.Remove(filepath.Join(r.dir, fileName))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove page file: %w", err)
		}
		return nil
	})
}

const expireAllQuery = `
	UPDATE pages SET expires_at = ?
`

// ExpireAll marks every page stale as of at and returns how many were touched
func (r *SQLitePageRepository) ExpireAll(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, expireAllQuery, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire pages: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired pages: %w", err)
	}
	return n, nil
}

const listPathsQuery = `
	SELECT path FROM pages ORDER BY path
`

func (r *SQLitePageRepository) ListPaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listPathsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	paths := make([]string, 0)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page rows: %w", err)
	}
	return paths, nil
}

const countGenerationsQuery = `
	SELECT COUNT(*) FROM generations WHERE path = ?
`

// CountGenerations returns how many times path has been generated.
func (r *SQLitePageRepository) CountGenerations(ctx context.Context, path string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countGenerationsQuery, path).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count generations: %w", err)
	}
	return n, nil
}

// pageFileName maps a route path to a file under the page directory:
// "/" is index.html and "/post/abc" is post/abc.html.
func pageFileName(path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("page path must be absolute: %q", path)
	}

	name := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	if name == "" {
		return "index.html", nil
	}

	name = filepath.FromSlash(name) + ".html"
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("page path escapes page directory: %q", path)
	}
	return name, nil
}

// pageRow is a private struct used to scan database rows
type pageRow struct {
	Path        string    `db:"path"`
	FilePath    string    `db:"file_path"`
	GeneratedAt time.Time `db:"generated_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

func (pr *pageRow) toDomain() *domain.RenderedPage {
	return &domain.RenderedPage{
		Path:        pr.Path,
		GeneratedAt: pr.GeneratedAt,
		ExpiresAt:   pr.ExpiresAt,
	}
}
