package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/alvarorichard/goanime-resolver/internal/models"
)

// queryFlags are shared by resolve and watch
type queryFlags struct {
	season   int
	title    string
	start    int
	endpoint string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.season, "season", "s", models.DefaultSeason, "Season number")
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Title hint used for scrape searches")
	cmd.Flags().IntVar(&f.start, "start", 0, "Provider index to start from")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Resolution server (overrides client.endpoint)")
}

func (f *queryFlags) query(slug, episode string) models.EpisodeQuery {
	return models.EpisodeQuery{
		AnimeSlug: slug,
		Episode:   episode,
		Season:    f.season,
		TitleHint: f.title,
		Start:     max(f.start, 0),
	}
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "resolve <anime-slug> <episode>",
		Short: "Resolve one episode and print the result as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, release, err := ctx.newFetcher(flags.endpoint)
			if err != nil {
				return err
			}
			defer func() { _ = release() }()

			res, fetchErr := fetcher.Fetch(cmd.Context(), flags.query(args[0], args[1]))
			if res.Total > 0 || res.Provider != "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			return fetchErr
		},
	}
	flags.register(cmd)
	return cmd
}
