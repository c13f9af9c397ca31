package domain

import (
	"context"
	"errors"
)

var ErrInvalidCursor = errors.New("invalid pagination cursor")

// ContentSource defines the interface for reading documents from the CMS.
// This allows the application to be decoupled from a specific implementation.
type ContentSource interface {
	// QueryByType returns the first page of documents of the given type.
	QueryByType(ctx context.Context, docType string, pageSize int) (*Page, error)
	// GetByUID returns ErrPostNotFound when no document matches.
	GetByUID(ctx context.Context, docType string, uid string) (*Post, error)
	// FetchPage retrieves the page a cursor points at. Cursors the source did
	// not issue yield ErrInvalidCursor.
	FetchPage(ctx context.Context, cursor string) (*Page, error)
}
