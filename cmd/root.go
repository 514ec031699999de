// Package cmd provides CLI commands for orangetheses.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulibrary/orangetheses/metrics"
)

var (
	configFile  string
	metricsAddr string
	profilesDir string
)

func setupLogger() {
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "INFO"
	}

	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger := slog.New(handler)

	slog.SetDefault(logger)
}

var rootCmd = &cobra.Command{
	Use:   "orangetheses",
	Short: "Harvest senior theses and visual materials into Solr documents",
	Long: `Orangetheses harvests senior thesis metadata from DataSpace (REST or OAI-PMH)
and visual materials records from the nightly finding-aid export, and turns
them into Solr documents.

Configuration comes from an optional YAML file (--config) with sections per
environment, selected by ORANGETHESES_ENV, and from environment variables.

Examples:
  orangetheses collections
  orangetheses harvest -o theses.json
  orangetheses harvest 361 362 --format ndjson
  FILEPATH=/data/theses.json orangetheses cache
  orangetheses visuals --no-link-check -o visuals.json
  orangetheses convert rest -i items.json`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	setupLogger()
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().StringVar(&profilesDir, "profiles-dir", "", "Directory of mapping profiles overriding the built-in ones")

	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(visualsCmd)
	rootCmd.AddCommand(oaiCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(profilesCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	a, err := newApp(configFile, profilesDir)
	if err != nil {
		return err
	}
	current = a

	if metricsAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", metricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()
	slog.Info("Serving metrics", "addr", ln.Addr().String())
	return nil
}

func teardown(cmd *cobra.Command, _ []string) error {
	if current == nil || current.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return current.server.Shutdown(ctx)
}
