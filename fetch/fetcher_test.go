package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/pulibrary/orangetheses/record"
)

func testFetcher(srv *httptest.Server, cfg Config) *Fetcher {
	cfg.BaseURL = srv.URL
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
		cfg.Retry.Sleep = noSleep
	}
	return New(cfg, WithDoer(srv.Client()), WithLogger(quietLogger()))
}

func collect(t *testing.T, f *Fetcher, id string) ([]record.RestItem, error) {
	t.Helper()
	var items []record.RestItem
	for item, err := range f.FetchCollection(context.Background(), id) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func TestFetchCollectionPages(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/361/items" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("limit") != "2" || q.Get("expand") != "metadata" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		offsets = append(offsets, q.Get("offset"))
		switch q.Get("offset") {
		case "0":
			fmt.Fprint(w, `[{"handle":"88435/a1","metadata":[]},{"handle":"88435/a2","metadata":[]}]`)
		case "2":
			fmt.Fprint(w, `[{"handle":"88435/a3","metadata":[]}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()

	items, err := collect(t, testFetcher(srv, Config{PageSize: 2}), "361")
	if err != nil {
		t.Fatalf("FetchCollection failed: %v", err)
	}
	var ids []string
	for _, item := range items {
		ids = append(ids, item.HandleID())
	}
	if want := []string{"a1", "a2", "a3"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids: got %v, want %v", ids, want)
	}
	if want := []string{"0", "2", "4"}; !reflect.DeepEqual(offsets, want) {
		t.Errorf("offsets: got %v, want %v", offsets, want)
	}
}

func TestFetchCollectionStopsOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "0" {
			fmt.Fprint(w, `[{"handle":"88435/a1","metadata":[]}]`)
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	items, err := collect(t, testFetcher(srv, Config{}), "1")
	if err != nil {
		t.Fatalf("FetchCollection failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}
}

func TestFetchCollectionRetriesMalformedPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			fmt.Fprint(w, `[]`)
			return
		}
		if calls.Add(1) < 3 {
			fmt.Fprint(w, `[{"handle":`)
			return
		}
		fmt.Fprint(w, `[{"handle":"88435/ok","metadata":[]}]`)
	}))
	defer srv.Close()

	items, err := collect(t, testFetcher(srv, Config{}), "1")
	if err != nil {
		t.Fatalf("FetchCollection failed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("page requests: got %d, want 3", calls.Load())
	}
	if len(items) != 1 || items[0].HandleID() != "ok" {
		t.Errorf("items: got %+v", items)
	}
}

func TestFetchCollectionRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	_, err := collect(t, testFetcher(srv, Config{}), "1")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if !IsMalformedPage(err) {
		t.Errorf("expected a malformed page error, got %v", err)
	}
	if calls.Load() != 5 {
		t.Errorf("page requests: got %d, want 5", calls.Load())
	}
}

func TestCollections(t *testing.T) {
	var communityCalls, collectionCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/communities/":
			communityCalls.Add(1)
			fmt.Fprint(w, `[{"id":12,"handle":"88435/other"},{"id":267,"handle":"88435/dsp019c67wm88m"}]`)
		case "/communities/267/collections":
			collectionCalls.Add(1)
			fmt.Fprint(w, `[{"id":361},{"id":"362"},{"id":400}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := testFetcher(srv, Config{CommunityHandle: "88435/dsp019c67wm88m", CommunityID: "999"})
	for i := 0; i < 3; i++ {
		got, err := f.Collections(context.Background())
		if err != nil {
			t.Fatalf("Collections failed: %v", err)
		}
		if want := []string{"361", "362", "400"}; !reflect.DeepEqual(got, want) {
			t.Errorf("collections: got %v, want %v", got, want)
		}
	}
	if communityCalls.Load() != 1 || collectionCalls.Load() != 1 {
		t.Errorf("listing requests: got %d communities, %d collections; want 1 each",
			communityCalls.Load(), collectionCalls.Load())
	}
}

func TestCommunityIDFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":12,"handle":"88435/other"}]`)
	}))
	defer srv.Close()

	f := testFetcher(srv, Config{CommunityHandle: "88435/dsp019c67wm88m", CommunityID: "267"})
	id, err := f.CommunityID(context.Background())
	if err != nil {
		t.Fatalf("CommunityID failed: %v", err)
	}
	if id != "267" {
		t.Errorf("got %q, want %q", id, "267")
	}
}

func TestCollectionsListingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testFetcher(srv, Config{CommunityHandle: "h"}).Collections(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d", statusErr.StatusCode)
	}
}

func TestCollectionURL(t *testing.T) {
	f := New(Config{BaseURL: "https://dataspace.princeton.edu/rest/"}, WithDoer(http.DefaultClient))
	want := "https://dataspace.princeton.edu/rest/collections/361/items?limit=100&offset=200&expand=metadata"
	if got := f.CollectionURL("361", 200); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
