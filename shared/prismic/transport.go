package prismic

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// loggingTransport logs every outbound API call.
type loggingTransport struct {
	inner http.RoundTripper
}

// NewLoggingTransport wraps inner, or http.DefaultTransport when nil.
func NewLoggingTransport(inner http.RoundTripper) http.RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &loggingTransport{inner: inner}
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.inner.RoundTrip(req)
	duration := time.Since(start)

	target := redactedURL(req.URL)
	if err != nil {
		log.Error().Err(err).
			Str("method", req.Method).
			Str("url", target).
			Dur("duration", duration).
			Msg("prismic request failed")
		return nil, err
	}

	evt := log.Debug()
	if resp.StatusCode >= 400 {
		evt = log.Warn()
	}
	evt.Str("method", req.Method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("prismic request")

	return resp, nil
}

func redactedURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		return u.String()
	}

	c := *u
	q.Set("access_token", "REDACTED")
	c.RawQuery = q.Encode()
	return c.String()
}
