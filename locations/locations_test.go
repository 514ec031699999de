package locations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const directoryJSON = `[
  {"code": "ga", "label": "Graphic Arts Collection", "library": {"label": "Special Collections"}},
  {"code": "mudd", "label": "", "library": {"label": "Mudd Manuscript Library"}},
  {"code": null, "label": "ignored"}
]`

func TestDirectoryLooksUpOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, directoryJSON)
	}))
	defer srv.Close()

	d := NewDirectory(srv.URL, srv.Client(), nil)
	ctx := context.Background()

	ga, ok, err := d.Lookup(ctx, "ga")
	if err != nil || !ok {
		t.Fatalf("Lookup(ga): ok=%v err=%v", ok, err)
	}
	if got := ga.FullDisplay(); got != "Special Collections - Graphic Arts Collection" {
		t.Errorf("FullDisplay: got %q", got)
	}
	mudd, _, _ := d.Lookup(ctx, "mudd")
	if got := mudd.FullDisplay(); got != "Mudd Manuscript Library" {
		t.Errorf("FullDisplay without label: got %q", got)
	}
	if _, ok, _ := d.Lookup(ctx, "zzz"); ok {
		t.Error("unknown code should not resolve")
	}
	if d.Len() != 2 {
		t.Errorf("Len: got %d, want 2", d.Len())
	}
	if calls.Load() != 1 {
		t.Errorf("directory requests: got %d, want 1", calls.Load())
	}
}

func TestDirectoryUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDirectory(srv.URL, srv.Client(), nil)
	for i := 0; i < 2; i++ {
		if _, _, err := d.Lookup(context.Background(), "ga"); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("directory requests: got %d, want 1", calls.Load())
	}
}

func TestStaticDirectory(t *testing.T) {
	d := NewStaticDirectory([]Location{{Code: "ex", Label: "Rare Books", Library: &Library{Label: "Firestone"}}})
	loc, ok, err := d.Lookup(context.Background(), "ex")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if loc.LibraryLabel() != "Firestone" {
		t.Errorf("LibraryLabel: got %q", loc.LibraryLabel())
	}
}
