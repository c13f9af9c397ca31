package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 10 << 20
)

var (
	// ErrInvalidCursor is returned for cursors that do not point at this
	// repository's search endpoint.
	ErrInvalidCursor = domain.ErrInvalidCursor
	// ErrMalformedResponse is returned when a response does not match the
	// expected document shape.
	ErrMalformedResponse = errors.New("malformed prismic response")
)

// APIError is a non-2xx answer from the Prismic API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	// Endpoint is the API entry point, e.g. https://my-repo.cdn.prismic.io/api/v2
	Endpoint    string
	AccessToken string
	Timeout     time.Duration
}

var _ domain.ContentSource = (*Client)(nil)

// Client is a domain.ContentSource backed by the Prismic REST API v2.
type Client struct {
	httpClient  *http.Client
	endpoint    *url.URL
	accessToken string
}

// NewClient creates a Client for cfg.Endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("prismic: endpoint is required")
	}

	endpoint, err := url.Parse(strings.TrimSuffix(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("prismic: invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("prismic: endpoint %q must be http or https", cfg.Endpoint)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: NewLoggingTransport(http.DefaultTransport),
		},
		endpoint:    endpoint,
		accessToken: cfg.AccessToken,
	}, nil
}

// MasterRef resolves the ref of the currently published content.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	op := "resolving master ref"
	u := *c.endpoint
	c.withToken(&u)

	body, err := c.get(ctx, u.String())
	if err != nil {
		return "", handlePrismicError(op, err)
	}

	var root apiRoot
	if err := json.Unmarshal(body, &root); err != nil {
		return "", handlePrismicError(op, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if err := validate.Struct(&root); err != nil {
		return "", handlePrismicError(op, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}

	for _, ref := range root.Refs {
		if ref.IsMasterRef {
			return ref.Ref, nil
		}
	}
	return "", handlePrismicError(op, fmt.Errorf("%w: no master ref", ErrMalformedResponse))
}

// QueryByType returns the first page of documents of docType.
func (c *Client) QueryByType(ctx context.Context, docType string, pageSize int) (*domain.Page, error) {
	op := fmt.Sprintf("querying documents of type %s", docType)
	predicate := fmt.Sprintf("[[at(document.type,%s)]]", strconv.Quote(docType))

	_, page, err := c.search(ctx, predicate, pageSize)
	if err != nil {
		return nil, handlePrismicError(op, err)
	}
	return page, nil
}

// GetByUID fetches the document of docType whose UID is uid.
func (c *Client) GetByUID(ctx context.Context, docType string, uid string) (*domain.Post, error) {
	op := fmt.Sprintf("getting %s document %s", docType, uid)
	predicate := fmt.Sprintf("[[at(my.%s.uid,%s)]]", docType, strconv.Quote(uid))

	resp, _, err := c.search(ctx, predicate, 1)
	if err != nil {
		return nil, handlePrismicError(op, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrPostNotFound, uid)
	}

	post, err := toPost(resp.Results[0])
	if err != nil {
		return nil, handlePrismicError(op, err)
	}
	return post, nil
}

// FetchPage retrieves the page a next_page cursor points at. The cursor is
// called as-is, plus the access token, once it is confirmed to target this
// repository.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*domain.Page, error) {
	op := "fetching next page"
	u, err := c.checkCursor(cursor)
	if err != nil {
		return nil, err
	}
	c.withToken(u)

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, handlePrismicError(op, err)
	}

	_, page, err := decodeSearch(body)
	if err != nil {
		return nil, handlePrismicError(op, err)
	}
	return page, nil
}

func (c *Client) checkCursor(cursor string) (*url.URL, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidCursor, u.Scheme)
	}
	if !strings.EqualFold(u.Host, c.endpoint.Host) {
		return nil, fmt.Errorf("%w: host %q", ErrInvalidCursor, u.Host)
	}
	if u.Path != c.endpoint.Path+"/documents/search" {
		return nil, fmt.Errorf("%w: path %q", ErrInvalidCursor, u.Path)
	}
	return u, nil
}

func (c *Client) search(ctx context.Context, predicate string, pageSize int) (*searchResponse, *domain.Page, error) {
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return nil, nil, err
	}

	u := *c.endpoint
	u.Path += "/documents/search"
	q := url.Values{}
	q.Set("ref", ref)
	q.Set("q", predicate)
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	u.RawQuery = q.Encode()
	c.withToken(&u)

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, nil, err
	}
	return decodeSearch(body)
}

func (c *Client) withToken(u *url.URL) {
	if c.accessToken == "" {
		return
	}
	q := u.Query()
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil {
			if payload.Message != "" {
				apiErr.Message = payload.Message
			} else if payload.Error != "" {
				apiErr.Message = payload.Error
			}
		}
		return nil, apiErr
	}

	return body, nil
}

// handlePrismicError wraps err with the failed operation, keeping the cause
// reachable through errors.Is / errors.As.
func handlePrismicError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("prismic: %s failed with status %d: %w", op, apiErr.StatusCode, err)
	}

	return fmt.Errorf("prismic: %s failed: %w", op, err)
}
