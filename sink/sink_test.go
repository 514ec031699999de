package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pulibrary/orangetheses/document"
)

func docs() []document.Document {
	return []document.Document{
		{"id": "dsp01a", "title_display": "First", "author_s": []string{"A", "B"}},
		{"id": "dsp01b", "pub_date_display": 2013, "restrictions_note_display": `<a href="mailto:x">x</a>`},
	}
}

func TestJSONArray(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONArray(&buf)
	for _, d := range docs() {
		if err := s.Write(context.Background(), d); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[0]["id"] != "dsp01a" || got[1]["pub_date_display"] != float64(2013) {
		t.Errorf("got %v", got)
	}
	if !strings.HasPrefix(buf.String(), "[\n  {\n    \"") {
		t.Errorf("output is not indented:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `<a href=\"mailto:x\">`) {
		t.Errorf("HTML should not be escaped:\n%s", buf.String())
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d", s.Count())
	}
}

func TestJSONArrayEmpty(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONArray(&buf)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestCreateFileReplacesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theses.json")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := CreateFile(path)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if err := s.Write(context.Background(), docs()[0]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "old" {
		t.Errorf("cache replaced before Close: %q", data)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil || len(got) != 1 {
		t.Fatalf("cache = %s (%v)", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	s := NewNDJSON(&buf)
	for _, d := range docs() {
		if err := s.Write(context.Background(), d); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var ids []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("line %q: %v", scanner.Text(), err)
		}
		ids = append(ids, line["id"].(string))
		if line["id"] == "dsp01a" && len(line["author_s"].([]any)) != 2 {
			t.Errorf("author_s = %v", line["author_s"])
		}
	}
	if !reflect.DeepEqual(ids, []string{"dsp01a", "dsp01b"}) {
		t.Errorf("ids = %v", ids)
	}
}

func TestMemory(t *testing.T) {
	var m Memory
	for _, d := range docs() {
		if err := m.Write(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(m.Documents()); got != 2 {
		t.Errorf("Documents() has %d entries", got)
	}
}

func TestCreateFileAbortKeepsPreviousCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theses.json")
	if err := os.WriteFile(path, []byte("[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := CreateFile(path)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if err := s.Write(context.Background(), docs()[0]); err != nil {
		t.Fatal(err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "[]\n" {
		t.Errorf("cache = %q, want the previous contents", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestCreateNDJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theses.ndjson")
	if err := os.WriteFile(path, []byte("previous\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	aborted, err := CreateNDJSONFile(path)
	if err != nil {
		t.Fatalf("CreateNDJSONFile() error = %v", err)
	}
	if err := aborted.Write(context.Background(), docs()[0]); err != nil {
		t.Fatal(err)
	}
	if err := aborted.Abort(); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "previous\n" {
		t.Errorf("after Abort: got %q, want the previous contents", data)
	}

	s, err := CreateNDJSONFile(path)
	if err != nil {
		t.Fatalf("CreateNDJSONFile() error = %v", err)
	}
	for _, d := range docs() {
		if err := s.Write(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 2 {
		t.Errorf("got %d lines, want 2:\n%s", len(lines), data)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}
