package fetch

import (
	"net/http"
	"time"

	"github.com/sethgrid/pester"
)

// UserAgent is sent with every request.
var UserAgent = "orangetheses/1.0 (+https://github.com/pulibrary/orangetheses)"

// Doer lets us use pester, DefaultClient or other HTTP client
// implementations interchangeably.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// NewDefaultDoer returns a resilient HTTP client that retries transport
// failures with exponential backoff.
func NewDefaultDoer() Doer {
	c := pester.New()
	c.Timeout = 2 * time.Minute
	c.MaxRetries = 3
	c.Backoff = pester.ExponentialBackoff
	return c
}
