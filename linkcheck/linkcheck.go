// Package linkcheck normalizes and probes the external links of visual
// materials records.
package linkcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sethgrid/pester"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pulibrary/orangetheses/metrics"
)

// DefaultConcurrency bounds simultaneous probes.
const DefaultConcurrency = 4

// Doer sends HTTP requests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// NewProbeDoer returns a client that reports redirects instead of following
// them, so a 301 is seen as a 301.
func NewProbeDoer() Doer {
	hc := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	c := pester.NewExtendedClient(hc)
	c.MaxRetries = 2
	c.Backoff = pester.ExponentialBackoff
	return c
}

var schemeHostPath = regexp.MustCompile(`^(https?://)(.+?)(/.*)$`)

// Normalize returns the URL to request for a link. Links that do not parse
// have each path segment percent-escaped.
func Normalize(link string) string {
	if u, err := url.Parse(link); err == nil {
		return u.String()
	}
	if m := schemeHostPath.FindStringSubmatch(link); m != nil {
		return m[1] + m[2] + escapeSegments(m[3])
	}
	return escapeSegments(link)
}

func escapeSegments(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// Checker probes links. Only links answering 200 or 301 are kept.
type Checker struct {
	doer        Doer
	logger      *slog.Logger
	metrics     *metrics.Metrics
	limiter     *rate.Limiter
	concurrency int
}

// Option configures a Checker.
type Option func(*Checker)

// WithDoer sets the HTTP client.
func WithDoer(d Doer) Option { return func(c *Checker) { c.doer = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Checker) { c.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Checker) { c.metrics = m } }

// WithRateLimit spaces out probes.
func WithRateLimit(l *rate.Limiter) Option { return func(c *Checker) { c.limiter = l } }

// WithConcurrency bounds simultaneous probes; 1 probes sequentially.
func WithConcurrency(n int) Option { return func(c *Checker) { c.concurrency = n } }

// NewChecker creates a Checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = NewProbeDoer()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

// Filter probes every link and returns those that answered 200 or 301, in
// input order. Failures are logged against the record id and never returned.
func (c *Checker) Filter(ctx context.Context, id string, links []string) []string {
	kept := make([]bool, len(links))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, link := range links {
		g.Go(func() error {
			kept[i] = c.probe(ctx, id, link)
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for i, link := range links {
		if kept[i] {
			out = append(out, link)
		}
	}
	return out
}

func (c *Checker) probe(ctx context.Context, id, link string) bool {
	start := time.Now()
	defer c.metrics.ObserveLinkProbe(start)

	status, err := c.status(ctx, Normalize(link))
	switch {
	case err != nil:
		c.logger.Info(fmt.Sprintf("%s: Bad link %s", id, link), "id", id, "link", link, "error", err)
	case status == http.StatusOK:
		return true
	case status == http.StatusMovedPermanently:
		c.logger.Info(fmt.Sprintf("%s: Link redirect %s", id, link), "id", id, "link", link)
		return true
	default:
		c.logger.Info(fmt.Sprintf("%s: Bad link %s", id, link), "id", id, "link", link, "status", status)
	}
	c.metrics.IncrementLinksRejected()
	return false
}

func (c *Checker) status(ctx context.Context, target string) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode, nil
}
