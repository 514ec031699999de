package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	outputFile   string
	outputFormat string
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [collection...]",
	Short: "Harvest DataSpace REST collections into Solr documents",
	Long: `Harvest senior theses from the DataSpace REST API.

Without arguments every collection of the configured community is harvested.
A collection that keeps failing is reported and the harvest moves on; the
command exits non-zero if any collection failed.

Examples:
  orangetheses harvest -o theses.json
  orangetheses harvest 361 --format ndjson`,
	RunE: runHarvest,
}

func init() {
	addOutputFlags(harvestCmd)
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&outputFormat, "format", formatJSON, "Output format: json or ndjson")
}

func runHarvest(cmd *cobra.Command, args []string) (err error) {
	a := current
	assembler, err := a.thesisAssembler()
	if err != nil {
		return err
	}
	s, err := openSink(outputFile, outputFormat)
	if err != nil {
		return err
	}
	defer closeSink(cmd.Context(), s, &err)

	stats, err := a.harvester(s).Theses(cmd.Context(), a.fetcher(), assembler, args...)
	report(os.Stderr, stats)
	return err
}
