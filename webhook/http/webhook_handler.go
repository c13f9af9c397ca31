package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

const (
	eventAPIUpdate   = "api-update"
	eventTestTrigger = "test-trigger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PageExpirer marks generated pages stale.
type PageExpirer interface {
	ExpireAll(ctx context.Context) (int64, error)
}

// prismicEvent is the body Prismic posts to webhooks.
type prismicEvent struct {
	Type      string   `json:"type" validate:"required,oneof=api-update test-trigger"`
	Secret    string   `json:"secret"`
	MasterRef string   `json:"masterRef"`
	Domain    string   `json:"domain"`
	Documents []string `json:"documents"`
}

type WebhookHandler struct {
	webhookSecret []byte
	pages         PageExpirer
}

func NewWebhookHandler(secret string, pages PageExpirer) (*WebhookHandler, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is not set")
	}

	return &WebhookHandler{
		webhookSecret: []byte(secret),
		pages:         pages,
	}, nil
}

func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhook/prismic", h.HandlePrismicWebhook)
}

// HandlePrismicWebhook expires every generated page when content is
// published, so the next request for each page rebuilds it.
func (h *WebhookHandler) HandlePrismicWebhook(c *gin.Context) {
	var event prismicEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := validate.Struct(&event); err != nil {
		c.String(http.StatusBadRequest, "Invalid event")
		return
	}

	if subtle.ConstantTimeCompare([]byte(event.Secret), h.webhookSecret) != 1 {
		log.Warn().Str("domain", event.Domain).Msg("Rejected webhook with a bad secret")
		c.String(http.StatusUnauthorized, "Invalid secret")
		return
	}

	if event.Type == eventTestTrigger {
		c.Status(http.StatusNoContent)
		return
	}

	n, err := h.pages.ExpireAll(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to expire pages")
		c.String(http.StatusInternalServerError, "Error handling event")
		return
	}

	log.Info().
		Str("master_ref", event.MasterRef).
		Strs("documents", event.Documents).
		Int64("expired", n).
		Msg("Handled content update")
	c.Status(http.StatusNoContent)
}
