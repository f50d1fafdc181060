package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lawfinder-au/collector-cli/internal/artifact"
	"github.com/lawfinder-au/collector-cli/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [report-file]",
	Short: "Print a run report",
	Long:  "Prints the given report artifact, or with no argument the latest one from the output directory.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			artifacts, err := artifact.NewDir(cfg.Output.Dir)
			if err != nil {
				return err
			}
			latest, ok := artifacts.LatestReport()
			if !ok {
				return eris.New("report: no report artifact in output dir")
			}
			path = latest
		}

		var rep report.Report
		if err := artifact.Load(path, &rep); err != nil {
			return err
		}
		fmt.Println(rep.Format())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
