package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dfryer1193/spaceblog/internal/config"
	"github.com/dfryer1193/spaceblog/internal/middleware"
	"github.com/dfryer1193/spaceblog/internal/rest"
	webhook "github.com/dfryer1193/spaceblog/webhook/http"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var prerender bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the blog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		if prerender {
			if _, err := a.site.Prerender(cmd.Context()); err != nil {
				return fmt.Errorf("initial build failed: %w", err)
			}
		}

		handler, err := newHandler(a, appConfig)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", appConfig.Server.Port),
			Handler: handler,
		}

		go func() {
			log.Info().Int("port", appConfig.Server.Port).Msg("Starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Failed to start server")
			}
		}()

		<-cmd.Context().Done()

		log.Info().Msg("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}

		log.Info().Msg("Server stopped")
		return nil
	},
}

func newHandler(a *app, cfg *config.Config) (http.Handler, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(gin.CustomRecovery(middleware.HandlePanics()))

	if err := a.site.RegisterRoutes(r); err != nil {
		return nil, err
	}
	r.NoRoute(a.site.NotFound)
	rest.NewApi(r, a.posts)

	if cfg.Webhook.Secret != "" {
		h, err := webhook.NewWebhookHandler(cfg.Webhook.Secret, a.revalidator)
		if err != nil {
			return nil, err
		}
		h.RegisterRoutes(r)
	} else {
		log.Warn().Msg("webhook.secret is not set; on-demand revalidation is disabled")
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(r), nil
}

func init() {
	serveCmd.Flags().BoolVar(&prerender, "prerender", false, "generate known pages before accepting requests")
	rootCmd.AddCommand(serveCmd)
}
