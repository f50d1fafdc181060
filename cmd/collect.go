package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/lawfinder-au/collector-cli/internal/artifact"
	"github.com/lawfinder-au/collector-cli/internal/config"
	"github.com/lawfinder-au/collector-cli/internal/enrich"
	"github.com/lawfinder-au/collector-cli/internal/fetcher"
	"github.com/lawfinder-au/collector-cli/internal/model"
	"github.com/lawfinder-au/collector-cli/internal/pipeline"
	"github.com/lawfinder-au/collector-cli/internal/store"
	"github.com/lawfinder-au/collector-cli/pkg/geocode"
	"github.com/lawfinder-au/collector-cli/pkg/places"
)

var (
	collectResume     bool
	collectSkipImport bool
	collectDryRun     bool
	collectCitiesFile string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the full collection pipeline",
	Long: `Runs search, enrichment, synthesis, and import in sequence.
Each phase snapshots its output under the output directory; --resume
skips the search phase and starts from the latest completed snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		citiesPath := cfg.Search.CitiesFile
		if collectCitiesFile != "" {
			citiesPath = collectCitiesFile
		}

		var pairs []model.SearchPair
		if !collectResume {
			var err error
			pairs, err = config.LoadPairs(citiesPath)
			if err != nil {
				return err
			}
		}

		artifacts, err := artifact.NewDir(cfg.Output.Dir)
		if err != nil {
			return err
		}

		var st store.Store
		if !collectSkipImport && !collectDryRun {
			st, err = openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		placesClient := places.NewClient(cfg.Google.APIKey,
			places.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Google.PlacesRPS), 1)),
		)
		geocodeClient := geocode.NewClient(cfg.Google.APIKey,
			geocode.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Google.GeocodeRPS), 1)),
		)

		limiters := fetcher.NewLimiters(cfg.Scrape.FallbackRPS)
		fetchClient := fetcher.New(limiters, fetcher.Options{
			UserAgent:    cfg.Scrape.UserAgent,
			Timeout:      time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
			MaxRedirects: cfg.Scrape.MaxRedirects,
		})
		enricher := enrich.New(fetchClient, enrich.Options{
			MaxSubpages: cfg.Scrape.MaxSubpages,
		})

		p := pipeline.New(placesClient, geocodeClient, enricher, st, artifacts, pipeline.Options{
			Pairs:      pairs,
			Terms:      cfg.Search.Terms,
			MaxPages:   cfg.Search.MaxPages,
			RadiusM:    cfg.Search.RadiusM,
			Resume:     collectResume,
			SkipImport: collectSkipImport,
			DryRun:     collectDryRun,
		})

		rep, err := p.Run(cmd.Context())
		if rep != nil {
			fmt.Println(rep.Format())
		}
		return err
	},
}

func init() {
	collectCmd.Flags().BoolVar(&collectResume, "resume", false, "start from the latest completed search snapshot")
	collectCmd.Flags().BoolVar(&collectSkipImport, "skip-import", false, "run all phases except the database import")
	collectCmd.Flags().BoolVar(&collectDryRun, "dry-run", false, "collect and synthesize without writing to the database")
	collectCmd.Flags().StringVar(&collectCitiesFile, "cities", "", "override the configured cities file")
	rootCmd.AddCommand(collectCmd)
}
