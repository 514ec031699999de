package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/pulibrary/orangetheses/access"
	"github.com/pulibrary/orangetheses/config"
	"github.com/pulibrary/orangetheses/document"
	"github.com/pulibrary/orangetheses/fetch"
	"github.com/pulibrary/orangetheses/harvest"
	"github.com/pulibrary/orangetheses/linkcheck"
	"github.com/pulibrary/orangetheses/locations"
	"github.com/pulibrary/orangetheses/mapping"
	"github.com/pulibrary/orangetheses/metrics"
	"github.com/pulibrary/orangetheses/oai"
	"github.com/pulibrary/orangetheses/record"
	"github.com/pulibrary/orangetheses/sink"
	"github.com/pulibrary/orangetheses/vocab"
)

// Output formats.
const (
	formatJSON   = "json"
	formatNDJSON = "ndjson"
)

// app holds what every command builds its components from.
type app struct {
	cfg      config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	profiles *mapping.ProfileRegistry
	vocab    *vocab.Resolver
	server   *http.Server
}

var current *app

func newApp(configPath, profilesDir string) (*app, error) {
	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	profiles, err := mapping.NewProfileRegistry()
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	if profilesDir != "" {
		if err := profiles.LoadFromDirectory(profilesDir); err != nil {
			return nil, fmt.Errorf("loading profiles: %w", err)
		}
	}
	v, err := vocab.New()
	if err != nil {
		return nil, fmt.Errorf("loading vocabularies: %w", err)
	}
	reg, m := metrics.NewRegistry()

	slog.Debug("Loaded configuration",
		"env", cfg.Env,
		"server", cfg.Server,
		"community", cfg.CommunityHandle,
		"departments", v.DepartmentCount(),
		"programs", v.ProgramCount(),
	)
	return &app{cfg: cfg, registry: reg, metrics: m, profiles: profiles, vocab: v}, nil
}

func (a *app) fetcher() *fetch.Fetcher {
	return fetch.New(a.cfg.Fetch(),
		fetch.WithLogger(slog.Default()),
		fetch.WithMetrics(a.metrics),
	)
}

func (a *app) oaiClient() *oai.Client {
	c := oai.NewClient(a.cfg.OAIEndpoint, a.cfg.OAISet,
		oai.WithLogger(slog.Default()),
		oai.WithMetrics(a.metrics),
	)
	c.Retry.MaxAttempts = a.cfg.RetryLimit
	return c
}

func (a *app) harvester(s sink.Sink) *harvest.Harvester {
	return harvest.New(record.NewNormalizer(a.vocab), s,
		harvest.WithLogger(slog.Default()),
		harvest.WithMetrics(a.metrics),
	)
}

func (a *app) thesisAssembler() (*document.ThesisAssembler, error) {
	p, err := a.profiles.MustGet("rest")
	if err != nil {
		return nil, err
	}
	return document.NewThesisAssembler(p, access.NewEngine(slog.Default())), nil
}

func (a *app) dublinCoreAssembler() (*document.DublinCoreAssembler, error) {
	p, err := a.profiles.MustGet("oai_dc")
	if err != nil {
		return nil, err
	}
	return document.NewDublinCoreAssembler(p, a.cfg.ArkPrefix), nil
}

// visualAssembler probes links unless checkLinks is false.
func (a *app) visualAssembler(checkLinks bool) (*document.VisualAssembler, error) {
	p, err := a.profiles.MustGet("visuals")
	if err != nil {
		return nil, err
	}
	dir := locations.NewDirectory(a.cfg.LocationsURL, fetch.NewDefaultDoer(), slog.Default())

	var links document.LinkFilter
	if checkLinks {
		opts := []linkcheck.Option{
			linkcheck.WithLogger(slog.Default()),
			linkcheck.WithMetrics(a.metrics),
			linkcheck.WithConcurrency(a.cfg.LinkConcurrency),
		}
		if a.cfg.LinkRate > 0 {
			opts = append(opts, linkcheck.WithRateLimit(rate.NewLimiter(rate.Limit(a.cfg.LinkRate), 1)))
		}
		links = linkcheck.NewChecker(opts...)
	}
	return document.NewVisualAssembler(p, links, dir, slog.Default()), nil
}

// assemblers returns a registry of every variant. Link checking is off for
// offline conversion.
func (a *app) assemblers() (*document.Registry, error) {
	thesis, err := a.thesisAssembler()
	if err != nil {
		return nil, err
	}
	dc, err := a.dublinCoreAssembler()
	if err != nil {
		return nil, err
	}
	visual, err := a.visualAssembler(false)
	if err != nil {
		return nil, err
	}
	return document.NewRegistry(thesis, dc, visual), nil
}

// openSink returns a sink for path, or stdout when path is empty or "-".
func openSink(path, format string) (sink.Sink, error) {
	toStdout := path == "" || path == "-"
	switch format {
	case formatJSON:
		if toStdout {
			return sink.NewJSONArray(os.Stdout), nil
		}
		return sink.CreateFile(path)
	case formatNDJSON:
		if toStdout {
			return sink.NewNDJSON(os.Stdout), nil
		}
		return sink.CreateNDJSONFile(path)
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", format, formatJSON, formatNDJSON)
	}
}

// closeSink closes s, keeping the first error in err. When the run was
// aborted or interrupted an abortable sink is discarded instead, so partial
// output never replaces an existing file.
func closeSink(ctx context.Context, s sink.Sink, err *error) {
	if a, ok := s.(sink.Aborter); ok && (errors.Is(*err, harvest.ErrAborted) || ctx.Err() != nil) {
		if aerr := a.Abort(); aerr != nil {
			slog.Error("Discarding partial output", "error", aerr)
		}
		return
	}
	if cerr := s.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("closing output: %w", cerr)
	}
}

func report(w io.Writer, stats harvest.Stats) {
	fmt.Fprintf(w, "Emitted %d documents, skipped %d\n", stats.Emitted, stats.Skipped)
}
