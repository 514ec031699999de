// Package fetch retrieves raw thesis records from the DataSpace REST API and
// visual materials records from the visuals export archive.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulibrary/orangetheses/metrics"
	"github.com/pulibrary/orangetheses/record"
)

// ErrMalformedPage marks a page whose body could not be parsed.
var ErrMalformedPage = errors.New("malformed page")

// PageError reports a collection page that failed to parse.
type PageError struct {
	URL string
	Err error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("malformed page %s: %v", e.URL, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Is matches ErrMalformedPage.
func (e *PageError) Is(target error) bool { return target == ErrMalformedPage }

// IsMalformedPage reports whether err came from a page that failed to parse.
func IsMalformedPage(err error) bool {
	return errors.Is(err, ErrMalformedPage)
}

// StatusError reports an unexpected HTTP status from a listing endpoint.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Config holds the remote endpoints and paging settings.
type Config struct {
	// BaseURL is the REST root, e.g. https://dataspace.princeton.edu/rest
	BaseURL string

	// CommunityHandle identifies the root community of the theses
	CommunityHandle string

	// CommunityID is used when the handle is not found in the listing
	CommunityID string

	// PageSize is the limit parameter of each items request
	PageSize int

	// Retry governs how malformed pages are re-requested
	Retry RetryPolicy
}

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 100

// Fetcher pages through DataSpace collections.
type Fetcher struct {
	cfg     Config
	doer    Doer
	logger  *slog.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter

	communityOnce sync.Once
	communityID   string
	communityErr  error

	collectionsOnce sync.Once
	collections     []string
	collectionsErr  error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithDoer sets the HTTP client.
func WithDoer(d Doer) Option {
	return func(f *Fetcher) { f.doer = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithRateLimit spaces out requests to the REST API.
func WithRateLimit(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// New creates a Fetcher.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Retry.MaxAttempts == 0 && cfg.Retry.Backoff == nil && cfg.Retry.Retryable == nil {
		cfg.Retry = DefaultRetryPolicy()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	f := &Fetcher{cfg: cfg}
	for _, opt := range opts {
		opt(f)
	}
	if f.doer == nil {
		f.doer = NewDefaultDoer()
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// CollectionURL returns the items URL for one page of a collection.
func (f *Fetcher) CollectionURL(id string, offset int) string {
	return fmt.Sprintf("%s/collections/%s/items?limit=%d&offset=%d&expand=metadata",
		f.cfg.BaseURL, id, f.cfg.PageSize, offset)
}

// FetchCollection returns the items of a collection, page by page, in source
// order. The sequence ends at the first empty page or non-200 response. A
// page that cannot be parsed is re-requested under the retry policy; when
// retries run out the error is yielded and the sequence stops.
func (f *Fetcher) FetchCollection(ctx context.Context, id string) iter.Seq2[record.RestItem, error] {
	return func(yield func(record.RestItem, error) bool) {
		policy := f.cfg.Retry
		notify := policy.Notify
		policy.Notify = func(err error, attempt int, next time.Duration) {
			f.metrics.IncrementPageRetries()
			if notify != nil {
				notify(err, attempt, next)
			}
		}

		for offset := 0; ; offset += f.cfg.PageSize {
			url := f.CollectionURL(id, offset)
			logger := f.logger.With("collection", id, "offset", offset)
			logger.Debug("Querying for the DSpace collection", "url", url)

			page, err := Retry(ctx, policy, logger, func(ctx context.Context) (*itemsPage, error) {
				return f.fetchPage(ctx, url)
			})
			if err != nil {
				yield(record.RestItem{}, fmt.Errorf("collection %s at offset %d: %w", id, offset, err))
				return
			}
			if page.done {
				logger.Debug("Collection complete", "status", page.status)
				return
			}
			f.metrics.IncrementPagesFetched()
			for _, item := range page.items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

type itemsPage struct {
	items  []record.RestItem
	status int
	done   bool
}

func (f *Fetcher) fetchPage(ctx context.Context, url string) (*itemsPage, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &itemsPage{status: resp.StatusCode, done: true}, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PageError{URL: url, Err: err}
	}
	items, err := record.ParseRestItems(body)
	if err != nil {
		return nil, &PageError{URL: url, Err: err}
	}
	return &itemsPage{items: items, status: resp.StatusCode, done: len(items) == 0}, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := f.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return resp, nil
}

// getJSON decodes a listing endpoint into v.
func (f *Fetcher) getJSON(ctx context.Context, url string, v any) error {
	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

type listingEntry struct {
	ID     json.RawMessage `json:"id"`
	Handle string          `json:"handle"`
}

// rawID renders a numeric or string JSON id as a string.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// CommunityID resolves the configured community handle to its id. The
// listing is requested at most once per Fetcher.
func (f *Fetcher) CommunityID(ctx context.Context) (string, error) {
	f.communityOnce.Do(func() {
		f.communityID, f.communityErr = f.resolveCommunity(ctx)
	})
	return f.communityID, f.communityErr
}

func (f *Fetcher) resolveCommunity(ctx context.Context) (string, error) {
	var communities []listingEntry
	if err := f.getJSON(ctx, f.cfg.BaseURL+"/communities/", &communities); err != nil {
		return "", fmt.Errorf("listing communities: %w", err)
	}
	for _, c := range communities {
		if c.Handle == f.cfg.CommunityHandle {
			return rawID(c.ID), nil
		}
	}
	if f.cfg.CommunityID == "" {
		return "", fmt.Errorf("community %s not found in listing", f.cfg.CommunityHandle)
	}
	f.logger.Warn("Community handle not listed, using configured id",
		"handle", f.cfg.CommunityHandle, "community_id", f.cfg.CommunityID)
	return f.cfg.CommunityID, nil
}

// Collections returns the ids of the community's collections in listing
// order. The list is computed at most once per Fetcher.
func (f *Fetcher) Collections(ctx context.Context) ([]string, error) {
	f.collectionsOnce.Do(func() {
		f.collections, f.collectionsErr = f.listCollections(ctx)
	})
	return f.collections, f.collectionsErr
}

func (f *Fetcher) listCollections(ctx context.Context) ([]string, error) {
	id, err := f.CommunityID(ctx)
	if err != nil {
		return nil, err
	}
	var entries []listingEntry
	if err := f.getJSON(ctx, fmt.Sprintf("%s/communities/%s/collections", f.cfg.BaseURL, id), &entries); err != nil {
		return nil, fmt.Errorf("listing collections of community %s: %w", id, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, rawID(e.ID))
	}
	return ids, nil
}
