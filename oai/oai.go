// Package oai harvests oai_dc records from an OAI-PMH ListRecords endpoint.
// Only the ListRecords verb with resumption tokens is supported.
package oai

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pulibrary/orangetheses/fetch"
	"github.com/pulibrary/orangetheses/metrics"
	"github.com/pulibrary/orangetheses/record"
)

// Defaults for the Princeton DataSpace OAI endpoint.
const (
	DefaultEndpoint = "https://dataspace.princeton.edu/oai/request"
	DefaultSet      = "com_88435_dsp019c67wm88m"
	DefaultPrefix   = "oai_dc"

	// DefaultMaxRequests stops runaway resumption token loops.
	DefaultMaxRequests = 16384
)

// ErrTooManyRequests is returned when a harvest exceeds MaxRequests.
var ErrTooManyRequests = errors.New("too many requests")

// Error is an OAI-PMH protocol error.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oai: %s: %s", e.Code, e.Message)
}

type header struct {
	Identifier string `xml:"identifier"`
	Datestamp  string `xml:"datestamp"`
	Status     string `xml:"status,attr"`
}

type oaiRecord struct {
	Header   header          `xml:"header"`
	Metadata *record.Element `xml:"metadata"`
}

type response struct {
	XMLName xml.Name `xml:"OAI-PMH"`
	Error   struct {
		Code    string `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
	ListRecords struct {
		Records []oaiRecord `xml:"record"`
		Token   string      `xml:"resumptionToken"`
	} `xml:"ListRecords"`
}

// Client issues ListRecords requests.
type Client struct {
	Endpoint    string
	Set         string
	Prefix      string
	MaxRequests int

	// Retry governs re-requests of pages that fail to decode
	Retry fetch.RetryPolicy

	doer    fetch.Doer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithDoer sets the HTTP client.
func WithDoer(d fetch.Doer) Option { return func(c *Client) { c.doer = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

// NewClient returns a client for a set at endpoint. Empty values select the
// defaults.
func NewClient(endpoint, set string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if set == "" {
		set = DefaultSet
	}
	c := &Client{
		Endpoint:    endpoint,
		Set:         set,
		Prefix:      DefaultPrefix,
		MaxRequests: DefaultMaxRequests,
		Retry:       fetch.DefaultRetryPolicy(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = fetch.NewDefaultDoer()
	}
	return c
}

// URL returns the request URL for the first page, or for the page named by
// a resumption token.
func (c *Client) URL(token string) string {
	values := url.Values{}
	values.Set("verb", "ListRecords")
	if token != "" {
		values.Set("resumptionToken", token)
	} else {
		values.Set("metadataPrefix", c.Prefix)
		if c.Set != "" {
			values.Set("set", c.Set)
		}
	}
	return c.Endpoint + "?" + values.Encode()
}

// ListRecords returns every record of the set, following resumption tokens.
// Deleted records are skipped. A noRecordsMatch reply ends the sequence
// without error; other failures are yielded once and end it.
func (c *Client) ListRecords(ctx context.Context) iter.Seq2[record.DublinCoreRecord, error] {
	return func(yield func(record.DublinCoreRecord, error) bool) {
		policy := c.Retry
		notify := policy.Notify
		policy.Notify = func(err error, attempt int, next time.Duration) {
			c.metrics.IncrementPageRetries()
			if notify != nil {
				notify(err, attempt, next)
			}
		}

		token := ""
		for i := 0; ; i++ {
			if c.MaxRequests > 0 && i >= c.MaxRequests {
				yield(record.DublinCoreRecord{}, fmt.Errorf("%s: %w", c.Endpoint, ErrTooManyRequests))
				return
			}

			resp, err := fetch.Retry(ctx, policy, c.logger, func(ctx context.Context) (*response, error) {
				return c.page(ctx, token)
			})
			if err != nil {
				var oaiErr *Error
				if errors.As(err, &oaiErr) && oaiErr.Code == "noRecordsMatch" {
					return
				}
				yield(record.DublinCoreRecord{}, err)
				return
			}
			c.metrics.IncrementPagesFetched()

			for _, r := range resp.ListRecords.Records {
				if r.Header.Status == "deleted" {
					c.logger.Debug("Skipping deleted record", "identifier", r.Header.Identifier)
					continue
				}
				if !yield(record.DublinCoreRecord{Metadata: r.Metadata}, nil) {
					return
				}
			}

			token = resp.ListRecords.Token
			if token == "" {
				return
			}
			c.logger.Debug("Following resumption token", "token", token, "page", i+1)
		}
	}
}

func (c *Client) page(ctx context.Context, token string) (*response, error) {
	link := c.URL(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetch.UserAgent)
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &fetch.StatusError{URL: link, StatusCode: resp.StatusCode}
	}

	var out response
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &fetch.PageError{URL: link, Err: err}
	}
	if out.Error.Code != "" {
		return nil, &Error{Code: out.Error.Code, Message: out.Error.Message}
	}
	return &out, nil
}
