package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulibrary/orangetheses/harvest"
	"github.com/pulibrary/orangetheses/sink"
)

var cachePath string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Write every thesis of every collection to the cache file",
	Long: `Harvest all collections into a single pretty-printed JSON array.

The file is written to FILEPATH (or cache_path in the config file, default
$TMPDIR/theses.json) and replaces the previous cache only when the run is
not aborted.`,
	Args: cobra.NoArgs,
	RunE: runCache,
}

func init() {
	cacheCmd.Flags().StringVarP(&cachePath, "output", "o", "", "Cache file (default: FILEPATH or cache_path)")
}

func runCache(cmd *cobra.Command, args []string) (err error) {
	a := current
	path := cachePath
	if path == "" {
		path = a.cfg.CachePath
	}
	assembler, err := a.thesisAssembler()
	if err != nil {
		return err
	}
	s, err := sink.CreateFile(path)
	if err != nil {
		return err
	}

	stats, err := a.harvester(s).Theses(cmd.Context(), a.fetcher(), assembler)
	report(os.Stderr, stats)
	if errors.Is(err, harvest.ErrAborted) || cmd.Context().Err() != nil {
		if aerr := s.Abort(); aerr != nil {
			slog.Error("Discarding partial cache", "path", path, "error", aerr)
		}
		return err
	}
	if cerr := s.Close(); cerr != nil {
		return errors.Join(err, fmt.Errorf("writing cache %s: %w", path, cerr))
	}
	slog.Info("Wrote cache", "path", path, "documents", s.Count())
	return err
}
