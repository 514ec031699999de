// Package harvest runs records from a source through normalization and
// assembly into a sink.
//
// A record that cannot be normalized or assembled is logged with its raw
// content and skipped. A collection whose pages cannot be fetched is
// abandoned and the harvest moves on to the next one; those errors are
// joined into the returned error. Sink failures and an unavailable location
// directory abort the run.
package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/pulibrary/orangetheses/document"
	"github.com/pulibrary/orangetheses/fetch"
	"github.com/pulibrary/orangetheses/locations"
	"github.com/pulibrary/orangetheses/metrics"
	"github.com/pulibrary/orangetheses/record"
	"github.com/pulibrary/orangetheses/sink"
)

// ErrAborted marks errors that stop the whole run.
var ErrAborted = errors.New("harvest aborted")

// CollectionSource lists and pages through DataSpace collections.
type CollectionSource interface {
	Collections(ctx context.Context) ([]string, error)
	FetchCollection(ctx context.Context, id string) iter.Seq2[record.RestItem, error]
}

// Stats counts the outcome of a run.
type Stats struct {
	Emitted int
	Skipped int

	// Collections is the number of collections harvested without error
	Collections int
}

func (s *Stats) add(o Stats) {
	s.Emitted += o.Emitted
	s.Skipped += o.Skipped
	s.Collections += o.Collections
}

// Harvester connects sources to a sink.
type Harvester struct {
	normalizer *record.Normalizer
	sink       sink.Sink
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(h *Harvester) { h.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(h *Harvester) { h.metrics = m } }

// New returns a harvester writing to s.
func New(n *record.Normalizer, s sink.Sink, opts ...Option) *Harvester {
	h := &Harvester{normalizer: n, sink: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	if h.normalizer == nil {
		h.normalizer = record.NewNormalizer(nil)
	}
	return h
}

// Theses harvests the given collections, or every collection of the
// community when none are given.
func (h *Harvester) Theses(ctx context.Context, src CollectionSource, a document.Assembler, ids ...string) (Stats, error) {
	var total Stats
	if len(ids) == 0 {
		all, err := src.Collections(ctx)
		if err != nil {
			return total, fmt.Errorf("listing collections: %w", err)
		}
		ids = all
	}

	var errs []error
	for _, id := range ids {
		h.logger.Info("Harvesting collection", "collection", id)
		stats, err := Run(ctx, h, src.FetchCollection(ctx, id), a)
		total.add(stats)
		if err != nil {
			h.logger.Error("Collection failed", "collection", id, "error", err, "emitted", stats.Emitted)
			errs = append(errs, fmt.Errorf("collection %s: %w", id, err))
			if errors.Is(err, ErrAborted) || ctx.Err() != nil {
				break
			}
			continue
		}
		total.Collections++
		h.logger.Info("Finished collection", "collection", id, "emitted", stats.Emitted, "skipped", stats.Skipped)
	}
	return total, errors.Join(errs...)
}

// DublinCore harvests OAI-PMH records.
func (h *Harvester) DublinCore(ctx context.Context, seq iter.Seq2[record.DublinCoreRecord, error], a document.Assembler) (Stats, error) {
	return Run(ctx, h, seq, a)
}

// Visuals harvests visual materials records. Archive members that fail to
// parse are skipped.
func (h *Harvester) Visuals(ctx context.Context, seq iter.Seq2[record.VisualRecord, error], a document.Assembler) (Stats, error) {
	return Run(ctx, h, seq, a)
}

// Run consumes one source sequence of any variant. It returns the first
// source error or the first error that aborts the run.
func Run[T record.Raw](ctx context.Context, h *Harvester, seq iter.Seq2[T, error], a document.Assembler) (Stats, error) {
	var stats Stats
	for raw, err := range seq {
		if err != nil {
			var fileErr *fetch.FileError
			if errors.As(err, &fileErr) {
				h.logger.Error("Skipping unreadable archive member", "file", fileErr.Name, "error", fileErr.Err)
				stats.Skipped++
				continue
			}
			return stats, err
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		ok, err := h.process(ctx, raw, a)
		if err != nil {
			return stats, err
		}
		if ok {
			stats.Emitted++
		} else {
			stats.Skipped++
		}
	}
	return stats, nil
}

// process emits one record. It reports false for a skipped record and
// returns an error only when the run must stop.
func (h *Harvester) process(ctx context.Context, raw record.Raw, a document.Assembler) (bool, error) {
	variant := raw.Variant()

	m, err := h.normalizer.Normalize(raw)
	if err != nil {
		h.skip(raw, "", err)
		return false, nil
	}

	doc, err := a.Assemble(ctx, m)
	if err != nil {
		if errors.Is(err, locations.ErrUnavailable) {
			return false, fmt.Errorf("%w: %w", ErrAborted, err)
		}
		h.skip(raw, m.ID(), err)
		return false, nil
	}

	if err := h.sink.Write(ctx, doc); err != nil {
		return false, fmt.Errorf("%w: writing %s: %w", ErrAborted, doc.ID(), err)
	}
	h.metrics.IncrementRecordsEmitted(variant)
	h.logger.Debug("Emitted document", "variant", variant, "id", doc.ID())
	return true, nil
}

func (h *Harvester) skip(raw record.Raw, id string, err error) {
	h.metrics.IncrementRecordsSkipped(raw.Variant())
	h.logger.Error("Skipping record",
		"variant", raw.Variant(),
		"id", id,
		"error", err,
		"record", dump(raw),
	)
}

// dump renders a raw record for the error log.
func dump(raw record.Raw) string {
	switch r := raw.(type) {
	case record.RestItem:
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Sprintf("%+v", r)
		}
		return string(b)
	case record.DublinCoreRecord:
		if r.Metadata != nil {
			return r.Metadata.String()
		}
	case record.VisualRecord:
		if r.Element != nil {
			return r.Element.String()
		}
	}
	return fmt.Sprintf("%+v", raw)
}
