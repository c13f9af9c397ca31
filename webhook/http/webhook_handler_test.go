package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls int
	err   error
}

func (f *fakeExpirer) ExpireAll(ctx context.Context) (int64, error) {
	f.calls++
	return 3, f.err
}

func newTestRouter(t *testing.T, pages PageExpirer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h, err := NewWebhookHandler("s3cret", pages)
	require.NoError(t, err)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestNewWebhookHandler_RequiresSecret(t *testing.T) {
	_, err := NewWebhookHandler("", &fakeExpirer{})
	assert.Error(t, err)
}

func TestHandlePrismicWebhook(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		expireErr error
		expected  int
		wantCalls int
	}{
		{
			name:      "Content update",
			body:      `{"type":"api-update","secret":"s3cret","masterRef":"YZ","documents":["X1"]}`,
			expected:  http.StatusNoContent,
			wantCalls: 1,
		},
		{
			name:      "Test trigger",
			body:      `{"type":"test-trigger","secret":"s3cret"}`,
			expected:  http.StatusNoContent,
			wantCalls: 0,
		},
		{
			name:      "Wrong secret",
			body:      `{"type":"api-update","secret":"guess"}`,
			expected:  http.StatusUnauthorized,
			wantCalls: 0,
		},
		{
			name:      "Unknown type",
			body:      `{"type":"user-login","secret":"s3cret"}`,
			expected:  http.StatusBadRequest,
			wantCalls: 0,
		},
		{
			name:      "Malformed body",
			body:      `{"type":`,
			expected:  http.StatusBadRequest,
			wantCalls: 0,
		},
		{
			name:      "Expire failure",
			body:      `{"type":"api-update","secret":"s3cret"}`,
			expireErr: errors.New("db locked"),
			expected:  http.StatusInternalServerError,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := &fakeExpirer{err: tt.expireErr}
			r := newTestRouter(t, pages)

			req := httptest.NewRequest(http.MethodPost, "/webhook/prismic", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			assert.Equal(t, tt.wantCalls, pages.calls)
		})
	}
}
