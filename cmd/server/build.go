package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generates the listing and every known post page",
	Long: `The build command enumerates up to 100 posts from Prismic and generates
the listing page and each post page into the page store, so the server can
answer them without waiting on Prismic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.site.Prerender(cmd.Context())
		if err != nil {
			return err
		}

		paths, err := a.pages.ListPaths(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().
			Int("pages", n).
			Int("stored", len(paths)).
			Str("dir", appConfig.Pages.Dir).
			Msg("Build finished")
		log.Debug().Strs("paths", paths).Msg("Stored pages")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
