// Package locations resolves holding location codes through the library's
// location directory.
package locations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// DefaultURL is the holding locations endpoint.
const DefaultURL = "https://bibdata.princeton.edu/locations/holding_locations.json"

// ErrUnavailable is returned when the directory could not be fetched.
var ErrUnavailable = errors.New("location directory unavailable")

// Doer sends HTTP requests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Library is the library a location belongs to.
type Library struct {
	Label string `json:"label"`
}

// Location is one entry of the directory.
type Location struct {
	Code    string   `json:"code"`
	Label   string   `json:"label"`
	Library *Library `json:"library"`
}

// Directory is a code to location map fetched at most once.
type Directory struct {
	url    string
	doer   Doer
	logger *slog.Logger

	once    sync.Once
	entries map[string]Location
	err     error
}

// NewDirectory returns a directory backed by the endpoint at url.
func NewDirectory(url string, doer Doer, logger *slog.Logger) *Directory {
	if url == "" {
		url = DefaultURL
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{url: url, doer: doer, logger: logger}
}

// NewStaticDirectory returns a directory over fixed entries.
func NewStaticDirectory(entries []Location) *Directory {
	d := &Directory{logger: slog.Default()}
	d.entries = index(entries)
	d.once.Do(func() {})
	return d
}

// Load fetches the directory on first use and returns any fetch error on
// every later call.
func (d *Directory) Load(ctx context.Context) error {
	d.once.Do(func() {
		d.entries, d.err = d.fetch(ctx)
		if d.err == nil {
			d.logger.Debug("Loaded location directory", "url", d.url, "locations", len(d.entries))
		}
	})
	return d.err
}

func (d *Directory) fetch(ctx context.Context) (map[string]Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := d.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrUnavailable, d.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrUnavailable, d.url, resp.StatusCode)
	}
	var entries []Location
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrUnavailable, d.url, err)
	}
	return index(entries), nil
}

func index(entries []Location) map[string]Location {
	m := make(map[string]Location, len(entries))
	for _, e := range entries {
		if e.Code == "" {
			continue
		}
		m[e.Code] = e
	}
	return m
}

// Lookup returns the location for a code. It loads the directory if needed.
func (d *Directory) Lookup(ctx context.Context, code string) (Location, bool, error) {
	if err := d.Load(ctx); err != nil {
		return Location{}, false, err
	}
	loc, ok := d.entries[code]
	return loc, ok, nil
}

// Len returns the number of known locations.
func (d *Directory) Len() int {
	return len(d.entries)
}

// LibraryLabel returns the label of the location's library.
func (l Location) LibraryLabel() string {
	if l.Library == nil {
		return ""
	}
	return l.Library.Label
}

// FullDisplay renders "Library - Label", or the library alone when the
// location has no label.
func (l Location) FullDisplay() string {
	if l.Label == "" {
		return l.LibraryLabel()
	}
	return l.LibraryLabel() + " - " + l.Label
}
