// Package sink defines where assembled documents go.
package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"

	"github.com/pulibrary/orangetheses/document"
)

// Sink receives documents. Close flushes any buffered output; a sink must
// not be written to after Close.
type Sink interface {
	Write(ctx context.Context, doc document.Document) error
	Close() error
}

// Aborter is a sink that can be closed without publishing its output.
type Aborter interface {
	Abort() error
}

// JSONArray writes documents as one pretty-printed JSON array, the cache
// file format.
type JSONArray struct {
	w      *bufio.Writer
	closer io.Closer
	count  int

	// commit runs after a successful close
	commit func() error
	// discard removes uncommitted output
	discard func()
}

var (
	_ Sink    = (*JSONArray)(nil)
	_ Aborter = (*JSONArray)(nil)
)

// NewJSONArray writes to w. Closing the sink does not close w.
func NewJSONArray(w io.Writer) *JSONArray {
	return &JSONArray{w: bufio.NewWriter(w)}
}

// CreateFile writes the array to path. Output goes to a temporary file in
// the same directory that replaces path on Close, so readers never see a
// partial cache.
func CreateFile(path string) (*JSONArray, error) {
	f, commit, discard, err := createTemp(path)
	if err != nil {
		return nil, err
	}
	s := NewJSONArray(f)
	s.closer = f
	s.commit = commit
	s.discard = discard
	return s, nil
}

// createTemp opens a temporary file next to path. commit renames it over
// path; discard removes it.
func createTemp(path string) (f *os.File, commit func() error, discard func(), err error) {
	f, err = os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating output file for %s: %w", path, err)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, nil, nil, fmt.Errorf("creating output file for %s: %w", path, err)
	}
	commit = func() error {
		if err := os.Rename(f.Name(), path); err != nil {
			os.Remove(f.Name())
			return fmt.Errorf("replacing %s: %w", path, err)
		}
		return nil
	}
	discard = func() { os.Remove(f.Name()) }
	return f, commit, discard, nil
}

// Write implements Sink.
func (s *JSONArray) Write(_ context.Context, doc document.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document %s: %w", doc.ID(), err)
	}

	sep := ",\n  "
	if s.count == 0 {
		sep = "[\n  "
	}
	if _, err := s.w.WriteString(sep); err != nil {
		return err
	}
	if _, err := s.w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))); err != nil {
		return err
	}
	s.count++
	return nil
}

// Count returns the number of documents written.
func (s *JSONArray) Count() int { return s.count }

// Close implements Sink.
func (s *JSONArray) Close() error {
	tail := "\n]\n"
	if s.count == 0 {
		tail = "[]\n"
	}
	_, err := s.w.WriteString(tail)
	if err == nil {
		err = s.w.Flush()
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}
	if s.commit != nil {
		return s.commit()
	}
	return nil
}

// Abort closes the sink without replacing the target file. On a writer sink
// it only flushes.
func (s *JSONArray) Abort() error {
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	if s.discard != nil {
		s.discard()
	}
	return err
}

// NDJSON writes one protojson-encoded document per line.
type NDJSON struct {
	w       *bufio.Writer
	closer  io.Closer
	opts    protojson.MarshalOptions
	commit  func() error
	discard func()
}

var (
	_ Sink    = (*NDJSON)(nil)
	_ Aborter = (*NDJSON)(nil)
)

// NewNDJSON writes to w. Closing the sink does not close w.
func NewNDJSON(w io.Writer) *NDJSON {
	return &NDJSON{w: bufio.NewWriter(w)}
}

// CreateNDJSONFile writes to path the way CreateFile does: the file is
// replaced on Close and left alone on Abort.
func CreateNDJSONFile(path string) (*NDJSON, error) {
	f, commit, discard, err := createTemp(path)
	if err != nil {
		return nil, err
	}
	s := NewNDJSON(f)
	s.closer = f
	s.commit = commit
	s.discard = discard
	return s, nil
}

// Write implements Sink.
func (s *NDJSON) Write(_ context.Context, doc document.Document) error {
	pb, err := doc.Struct()
	if err != nil {
		return err
	}
	line, err := s.opts.Marshal(pb)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", doc.ID(), err)
	}
	if _, err := s.w.Write(line); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Close implements Sink.
func (s *NDJSON) Close() error {
	if err := s.flush(); err != nil {
		if s.discard != nil {
			s.discard()
		}
		return err
	}
	if s.commit != nil {
		return s.commit()
	}
	return nil
}

// Abort implements Aborter.
func (s *NDJSON) Abort() error {
	err := s.flush()
	if s.discard != nil {
		s.discard()
	}
	return err
}

func (s *NDJSON) flush() error {
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Memory collects documents in memory. It is safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	docs []document.Document
}

var _ Sink = (*Memory)(nil)

// Write implements Sink.
func (m *Memory) Write(_ context.Context, doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	return nil
}

// Close implements Sink.
func (m *Memory) Close() error { return nil }

// Documents returns the documents written so far.
func (m *Memory) Documents() []document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]document.Document(nil), m.docs...)
}
