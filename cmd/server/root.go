package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/blog/persistence"
	"github.com/dfryer1193/spaceblog/internal/config"
	"github.com/dfryer1193/spaceblog/internal/web"
	"github.com/dfryer1193/spaceblog/shared/db/sqlite"
	"github.com/dfryer1193/spaceblog/shared/prismic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "spaceblog",
	Short: "A blog rendered from Prismic content",
	Long: `spaceblog serves a post listing and post pages fetched from a Prismic
repository. Pages are generated once, stored, and regenerated in the
background after their revalidation period.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := setupLogging(cfg); err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

// Execute runs the command line. Interrupts cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func setupLogging(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return nil
}

// app holds the components shared by the serve and build commands.
type app struct {
	database    *sqlite.SQLiteDB
	pages       *persistence.SQLitePageRepository
	revalidator *application.Revalidator
	posts       *application.PostService
	site        *web.Site
}

func newApp(cfg *config.Config) (*app, error) {
	database := sqlite.NewSQLiteDB(sqlite.NewSQLiteConfig(cfg.DB.Path))
	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	client, err := prismic.NewClient(prismic.Config{
		Endpoint:    cfg.Prismic.Endpoint,
		AccessToken: cfg.Prismic.AccessToken,
		Timeout:     cfg.Prismic.Timeout,
	})
	if err != nil {
		database.Close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		database.Close()
		return nil, err
	}

	pages := persistence.NewPageRepository(database.DB(), cfg.Pages.Dir)
	revalidator := application.NewRevalidator(pages)
	posts := application.NewPostService(client, application.NewRichTextRenderer(), application.NewDateFormatter(cfg.Locale, loc))

	site, err := web.NewSite(posts, revalidator, cfg.Pages.Fallback == config.FallbackTrue)
	if err != nil {
		revalidator.Close()
		database.Close()
		return nil, err
	}

	return &app{
		database:    database,
		pages:       pages,
		revalidator: revalidator,
		posts:       posts,
		site:        site,
	}, nil
}

// Close drains background page generation before closing the database.
func (a *app) Close() {
	if err := a.revalidator.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to gracefully close revalidator")
	}
	if err := a.database.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
