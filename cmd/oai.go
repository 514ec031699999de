package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var oaiCmd = &cobra.Command{
	Use:   "oai",
	Short: "Harvest the configured OAI-PMH set into Solr documents",
	Long: `Harvest oai_dc records with ListRecords, following resumption tokens.

The endpoint and set come from oai_endpoint/oai_set in the config file or
ORANGETHESES_OAI_ENDPOINT/ORANGETHESES_OAI_SET.`,
	Args: cobra.NoArgs,
	RunE: runOAI,
}

func init() {
	addOutputFlags(oaiCmd)
}

func runOAI(cmd *cobra.Command, args []string) (err error) {
	a := current
	assembler, err := a.dublinCoreAssembler()
	if err != nil {
		return err
	}
	s, err := openSink(outputFile, outputFormat)
	if err != nil {
		return err
	}
	defer closeSink(cmd.Context(), s, &err)

	stats, err := a.harvester(s).DublinCore(cmd.Context(), a.oaiClient().ListRecords(cmd.Context()), assembler)
	report(os.Stderr, stats)
	return err
}
