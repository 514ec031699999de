package cmd

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pulibrary/orangetheses/document"
	"github.com/pulibrary/orangetheses/fetch"
	"github.com/pulibrary/orangetheses/harvest"
	"github.com/pulibrary/orangetheses/record"
)

var inputFile string

var convertCmd = &cobra.Command{
	Use:   "convert <variant>",
	Short: "Convert saved source records into Solr documents",
	Long: `Convert records saved from a source into Solr documents without harvesting.

Variants:
  rest      DataSpace REST items (a JSON array)
  oai_dc    OAI-PMH ListRecords responses or bare oai_dc documents
  visuals   the visual materials export (tar.gz, or a single XML file)

Input defaults to stdin, output defaults to stdout. Visual links are not
probed.

Examples:
  orangetheses convert rest -i items.json
  curl -s "$OAI?verb=ListRecords&metadataPrefix=oai_dc" | orangetheses convert oai_dc
  orangetheses convert visuals -i VisualsResults.tar.gz --format ndjson`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file (default: stdin)")
	addOutputFlags(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) (err error) {
	a := current
	registry, err := a.assemblers()
	if err != nil {
		return err
	}
	assembler, err := registry.Get(args[0])
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(registry.List(), ", "))
	}

	var input io.Reader = os.Stdin
	if inputFile != "" && inputFile != "-" {
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("opening input file: %w", err)
		}
		defer f.Close()
		input = f
	}

	s, err := openSink(outputFile, outputFormat)
	if err != nil {
		return err
	}
	defer closeSink(cmd.Context(), s, &err)

	stats, err := convert(cmd, a.harvester(s), assembler, input)
	report(os.Stderr, stats)
	return err
}

func convert(cmd *cobra.Command, h *harvest.Harvester, a document.Assembler, input io.Reader) (harvest.Stats, error) {
	ctx := cmd.Context()
	switch a.Variant() {
	case "rest":
		data, err := io.ReadAll(input)
		if err != nil {
			return harvest.Stats{}, fmt.Errorf("reading input: %w", err)
		}
		items, err := record.ParseRestItems(data)
		if err != nil {
			return harvest.Stats{}, err
		}
		return harvest.Run(ctx, h, each(items), a)

	case "oai_dc":
		root, err := record.ParseElement(input)
		if err != nil {
			return harvest.Stats{}, err
		}
		return h.DublinCore(ctx, each(dublinCoreRecords(root)), a)

	case "visuals":
		if isArchive(inputFile) {
			return h.Visuals(ctx, fetch.ReadVisualArchive(input), a)
		}
		data, err := io.ReadAll(input)
		if err != nil {
			return harvest.Stats{}, fmt.Errorf("reading input: %w", err)
		}
		if isGzip(data) {
			return h.Visuals(ctx, fetch.ReadVisualArchive(bytes.NewReader(data)), a)
		}
		root, err := record.ParseElement(bytes.NewReader(data))
		if err != nil {
			return harvest.Stats{}, err
		}
		records := record.VisualRecords(root)
		if root.Name == "record" {
			records = []record.VisualRecord{{Element: root}}
		}
		return h.Visuals(ctx, each(records), a)
	}
	return harvest.Stats{}, fmt.Errorf("no reader for variant %s", a.Variant())
}

// dublinCoreRecords finds every oai_dc container in a response or document.
func dublinCoreRecords(root *record.Element) []record.DublinCoreRecord {
	if root.Name == "dc" {
		return []record.DublinCoreRecord{{Metadata: root}}
	}
	var out []record.DublinCoreRecord
	for _, dc := range root.Descendants("dc") {
		out = append(out, record.DublinCoreRecord{Metadata: dc})
	}
	return out
}

func each[T any](items []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz")
}

func isGzip(data []byte) bool {
	return len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b
}
