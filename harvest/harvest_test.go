package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pulibrary/orangetheses/document"
	"github.com/pulibrary/orangetheses/fetch"
	"github.com/pulibrary/orangetheses/locations"
	"github.com/pulibrary/orangetheses/metrics"
	"github.com/pulibrary/orangetheses/record"
	"github.com/pulibrary/orangetheses/sink"
)

func str(s string) *string { return &s }

func item(handle, title string) record.RestItem {
	return record.RestItem{
		Name:     title,
		Handle:   handle,
		Metadata: []record.MetadataEntry{{Key: "dc.title", Value: str(title)}},
	}
}

type fakeSource struct {
	collections []string
	items       map[string][]record.RestItem
	failures    map[string]error
	listErr     error
}

func (s *fakeSource) Collections(context.Context) ([]string, error) {
	return s.collections, s.listErr
}

func (s *fakeSource) FetchCollection(_ context.Context, id string) iter.Seq2[record.RestItem, error] {
	return func(yield func(record.RestItem, error) bool) {
		for _, it := range s.items[id] {
			if !yield(it, nil) {
				return
			}
		}
		if err := s.failures[id]; err != nil {
			yield(record.RestItem{}, err)
		}
	}
}

func newHarvester(s sink.Sink) (*Harvester, *metrics.Metrics, *bytes.Buffer) {
	var buf bytes.Buffer
	_, m := metrics.NewRegistry()
	h := New(record.NewNormalizer(nil), s,
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithMetrics(m),
	)
	return h, m, &buf
}

func ids(docs []document.Document) []string {
	var out []string
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}

func TestThesesSkipsBadRecordsAndContinuesPastFailedCollections(t *testing.T) {
	src := &fakeSource{
		collections: []string{"361", "362", "400"},
		items: map[string][]record.RestItem{
			"361": {item("88435/dsp01a", "A"), item("", "No handle"), item("88435/dsp01b", "B")},
			"362": {item("88435/dsp01c", "C")},
			"400": {item("88435/dsp01d", "D")},
		},
		failures: map[string]error{
			"362": fmt.Errorf("%w after 5 attempts: bad json", fetch.ErrRetriesExhausted),
		},
	}
	var out sink.Memory
	h, m, logs := newHarvester(&out)

	stats, err := h.Theses(context.Background(), src, document.NewThesisAssembler(nil, nil))
	if !errors.Is(err, fetch.ErrRetriesExhausted) || !strings.Contains(err.Error(), "collection 362") {
		t.Fatalf("error = %v, want the collection 362 failure", err)
	}
	if errors.Is(err, ErrAborted) {
		t.Error("a collection failure should not abort the run")
	}
	if got, want := ids(out.Documents()), []string{"dsp01a", "dsp01b", "dsp01c", "dsp01d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("documents = %v, want %v", got, want)
	}
	if stats.Emitted != 4 || stats.Skipped != 1 || stats.Collections != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if got := testutil.ToFloat64(m.RecordsSkipped.WithLabelValues("rest")); got != 1 {
		t.Errorf("records skipped = %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsEmitted.WithLabelValues("rest")); got != 4 {
		t.Errorf("records emitted = %v", got)
	}
	if !strings.Contains(logs.String(), "Skipping record") || !strings.Contains(logs.String(), `No handle`) {
		t.Errorf("skipped record should be logged with its content:\n%s", logs.String())
	}
}

func TestThesesExplicitCollections(t *testing.T) {
	src := &fakeSource{
		listErr: errors.New("should not be called"),
		items:   map[string][]record.RestItem{"9": {item("88435/dsp09", "Nine")}},
	}
	var out sink.Memory
	h, _, _ := newHarvester(&out)
	stats, err := h.Theses(context.Background(), src, document.NewThesisAssembler(nil, nil), "9")
	if err != nil {
		t.Fatalf("Theses() error = %v", err)
	}
	if stats.Emitted != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestThesesListingFails(t *testing.T) {
	src := &fakeSource{listErr: errors.New("connection refused")}
	h, _, _ := newHarvester(&sink.Memory{})
	if _, err := h.Theses(context.Background(), src, document.NewThesisAssembler(nil, nil)); err == nil {
		t.Fatal("expected an error when collections cannot be listed")
	}
}

type failingSink struct{}

func (failingSink) Write(context.Context, document.Document) error {
	return errors.New("disk full")
}

func (failingSink) Close() error { return nil }

func TestThesesSinkFailureAborts(t *testing.T) {
	src := &fakeSource{
		collections: []string{"1", "2"},
		items: map[string][]record.RestItem{
			"1": {item("88435/a", "A")},
			"2": {item("88435/b", "B")},
		},
	}
	h, _, _ := newHarvester(failingSink{})
	stats, err := h.Theses(context.Background(), src, document.NewThesisAssembler(nil, nil))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("error = %v, want ErrAborted", err)
	}
	if strings.Contains(err.Error(), "collection 2") {
		t.Errorf("run should stop at the first collection: %v", err)
	}
	if stats.Emitted != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func visualRecord(id string) record.VisualRecord {
	e := &record.Element{Name: "record", Children: []*record.Element{
		record.NewElement("id", id),
		record.NewElement("title", "Print "+id),
		{Name: "holdings", Children: []*record.Element{record.NewElement("collection", "ga")}},
	}}
	return record.VisualRecord{Element: e}
}

func visualSeq(entries ...any) iter.Seq2[record.VisualRecord, error] {
	return func(yield func(record.VisualRecord, error) bool) {
		for _, e := range entries {
			var ok bool
			switch v := e.(type) {
			case record.VisualRecord:
				ok = yield(v, nil)
			case error:
				ok = yield(record.VisualRecord{}, v)
			}
			if !ok {
				return
			}
		}
	}
}

func TestVisualsSkipsUnreadableMembers(t *testing.T) {
	dir := locations.NewStaticDirectory([]locations.Location{
		{Code: "ga", Label: "Graphic Arts", Library: &locations.Library{Label: "Special Collections"}},
	})
	a := document.NewVisualAssembler(nil, nil, dir, nil)
	var out sink.Memory
	h, _, logs := newHarvester(&out)

	seq := visualSeq(
		visualRecord("1"),
		&fetch.FileError{Name: "broken.xml", Err: errors.New("unexpected EOF")},
		visualRecord("2"),
	)
	stats, err := h.Visuals(context.Background(), seq, a)
	if err != nil {
		t.Fatalf("Visuals() error = %v", err)
	}
	if got := ids(out.Documents()); !reflect.DeepEqual(got, []string{"visuals1", "visuals2"}) {
		t.Errorf("documents = %v", got)
	}
	if stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if !strings.Contains(logs.String(), "broken.xml") {
		t.Errorf("log should name the unreadable member:\n%s", logs.String())
	}
}

func TestVisualsFatalSourceError(t *testing.T) {
	h, _, _ := newHarvester(&sink.Memory{})
	a := document.NewVisualAssembler(nil, nil, locations.NewStaticDirectory(nil), nil)
	_, err := h.Visuals(context.Background(), visualSeq(errors.New("opening gzip stream: invalid header")), a)
	if err == nil || !strings.Contains(err.Error(), "gzip") {
		t.Fatalf("error = %v", err)
	}
}

type downDirectory struct{}

func (downDirectory) Lookup(context.Context, string) (locations.Location, bool, error) {
	return locations.Location{}, false, fmt.Errorf("%w: status 500", locations.ErrUnavailable)
}

func TestVisualsDirectoryUnavailableAborts(t *testing.T) {
	var out sink.Memory
	h, _, _ := newHarvester(&out)
	a := document.NewVisualAssembler(nil, nil, downDirectory{}, nil)
	_, err := h.Visuals(context.Background(), visualSeq(visualRecord("1"), visualRecord("2")), a)
	if !errors.Is(err, ErrAborted) || !errors.Is(err, locations.ErrUnavailable) {
		t.Fatalf("error = %v, want an aborted run", err)
	}
	if len(out.Documents()) != 0 {
		t.Errorf("no documents should be written, got %d", len(out.Documents()))
	}
}

func TestDublinCore(t *testing.T) {
	dc := &record.Element{Name: "dc", Children: []*record.Element{
		record.NewElement("title", "Essay"),
		record.NewElement("identifier", "http://arks.princeton.edu/ark:/88435/dsp01x"),
	}}
	noArk := &record.Element{Name: "dc", Children: []*record.Element{record.NewElement("title", "Orphan")}}
	seq := func(yield func(record.DublinCoreRecord, error) bool) {
		if !yield(record.DublinCoreRecord{Metadata: dc}, nil) {
			return
		}
		yield(record.DublinCoreRecord{Metadata: noArk}, nil)
	}

	var out sink.Memory
	h, _, logs := newHarvester(&out)
	stats, err := h.DublinCore(context.Background(), seq, document.NewDublinCoreAssembler(nil, ""))
	if err != nil {
		t.Fatalf("DublinCore() error = %v", err)
	}
	if stats.Emitted != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if !strings.Contains(logs.String(), "Orphan") {
		t.Errorf("skipped record should be dumped:\n%s", logs.String())
	}
}
