package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulibrary/orangetheses/fetch"
)

var (
	archiveFile string
	noLinkCheck bool
)

var visualsCmd = &cobra.Command{
	Use:   "visuals",
	Short: "Turn the visual materials export into Solr documents",
	Long: `Download the visual materials tar.gz export (or read --archive) and emit one
document per <record>. Links are probed and dead ones dropped unless
--no-link-check is set. The location directory must be reachable; the run
aborts if it is not.

Examples:
  orangetheses visuals -o visuals.json
  orangetheses visuals --archive VisualsResults.tar.gz --no-link-check`,
	Args: cobra.NoArgs,
	RunE: runVisuals,
}

func init() {
	addOutputFlags(visualsCmd)
	visualsCmd.Flags().StringVar(&archiveFile, "archive", "", "Local archive instead of the configured visuals URL")
	visualsCmd.Flags().BoolVar(&noLinkCheck, "no-link-check", false, "Keep links without probing them")
}

func runVisuals(cmd *cobra.Command, args []string) (err error) {
	a := current
	assembler, err := a.visualAssembler(!noLinkCheck)
	if err != nil {
		return err
	}

	var archive io.ReadCloser
	if archiveFile != "" {
		archive, err = os.Open(archiveFile)
	} else {
		archive, err = fetch.OpenArchive(cmd.Context(), nil, a.cfg.VisualsURL)
	}
	if err != nil {
		return err
	}
	defer archive.Close()

	s, err := openSink(outputFile, outputFormat)
	if err != nil {
		return err
	}
	defer closeSink(cmd.Context(), s, &err)

	stats, err := a.harvester(s).Visuals(cmd.Context(), fetch.ReadVisualArchive(archive), assembler)
	report(os.Stderr, stats)
	return err
}
