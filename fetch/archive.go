package fetch

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/pulibrary/orangetheses/record"
)

// DefaultVisualsURL is the nightly visual materials export.
const DefaultVisualsURL = "http://libweb5.princeton.edu/NewStaff/visuals/VisualsResults.tar.gz"

// FileError reports an archive member that could not be parsed. The rest of
// the archive is still readable.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("archive member %s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// OpenArchive requests the visuals export and returns its body. The caller
// closes it.
func OpenArchive(ctx context.Context, doer Doer, url string) (io.ReadCloser, error) {
	if doer == nil {
		doer = NewDefaultDoer()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// ReadVisualArchive streams the <record> elements of every XML member of a
// gzipped tar archive, in archive order. A member that fails to parse yields
// a *FileError and reading continues; any other error ends the sequence.
func ReadVisualArchive(r io.Reader) iter.Seq2[record.VisualRecord, error] {
	return func(yield func(record.VisualRecord, error) bool) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			yield(record.VisualRecord{}, fmt.Errorf("opening gzip stream: %w", err))
			return
		}
		defer zr.Close()

		tr := tar.NewReader(zr)
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(record.VisualRecord{}, fmt.Errorf("reading tar archive: %w", err))
				return
			}
			if hdr.Typeflag != tar.TypeReg || !strings.EqualFold(path.Ext(hdr.Name), ".xml") {
				continue
			}

			root, err := record.ParseElement(tr)
			if err != nil {
				if !yield(record.VisualRecord{}, &FileError{Name: hdr.Name, Err: err}) {
					return
				}
				continue
			}
			for _, rec := range record.VisualRecords(root) {
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}
