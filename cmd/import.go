package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lawfinder-au/collector-cli/internal/artifact"
	"github.com/lawfinder-au/collector-cli/internal/importer"
	"github.com/lawfinder-au/collector-cli/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import [snapshot-file]",
	Short: "Import a final snapshot into the directory database",
	Long: `Imports the given 03_final snapshot, or with no argument the latest
completed one from the output directory. Safe to rerun: records are
matched by place ID then slug, and operator-owned moderation fields are
never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			artifacts, err := artifact.NewDir(cfg.Output.Dir)
			if err != nil {
				return err
			}
			latest, ok := artifacts.LatestCompleted(model.PhaseSynthesize)
			if !ok {
				return eris.New("import: no completed final snapshot in output dir")
			}
			path = latest
		}

		var records []model.Merged
		if err := artifact.Load(path, &records); err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rep := importer.New(st).ImportAll(cmd.Context(), records)
		fmt.Printf("imported %d records: inserted=%d updated=%d skipped=%d failed=%d\n",
			rep.Total(), rep.Inserted, rep.Updated, rep.Skipped, rep.Failed)
		for _, e := range rep.Errors {
			fmt.Printf("  failed %s: %s\n", e.Slug, e.Message)
		}
		if rep.Failed > 0 {
			return eris.Errorf("import: %d records failed", rep.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
