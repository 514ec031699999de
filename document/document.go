// Package document assembles Solr documents from normalized records.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pulibrary/orangetheses/helpers"
	"github.com/pulibrary/orangetheses/record"
)

// ErrMissingID is returned for records without a resolvable identifier.
var ErrMissingID = errors.New("record has no id")

// Document is a Solr document: field names mapped to a string, an integer or
// a list of strings. Every assembled document has an "id".
type Document map[string]any

// ID returns the document identifier.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Struct converts the document to a protobuf Struct.
func (d Document) Struct() (*structpb.Struct, error) {
	fields := make(map[string]any, len(d))
	for k, v := range d {
		fields[k] = structValue(v)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID(), err)
	}
	return s, nil
}

// structValue widens typed slices to the []any structpb accepts.
func structValue(v any) any {
	switch t := v.(type) {
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	default:
		return v
	}
}

// Strings returns a field as a list, whether it holds one string or many.
func (d Document) Strings(field string) []string {
	switch t := d[field].(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (d Document) merge(fields map[string]any) {
	for k, v := range fields {
		d[k] = v
	}
}

func (d Document) setTitles(titles []string) {
	if search, ok := helpers.TitleSearch(titles); ok {
		if len(search) == 1 {
			d["title_t"] = search[0]
		} else {
			d["title_t"] = search
		}
	}
	if first, ok := helpers.First(titles); ok {
		d["title_citation_display"] = first
		d["title_display"] = first
	}
	if key, ok := helpers.TitleSort(titles); ok {
		d["title_sort"] = key
	}
}

func (d Document) setFirst(field string, values []string) {
	if v, ok := helpers.First(values); ok {
		d[field] = v
	}
}

// Assembler turns a normalized record of one variant into a document.
type Assembler interface {
	// Variant is the record variant the assembler accepts
	Variant() string
	Assemble(ctx context.Context, m record.FieldMap) (Document, error)
}

// Registry holds assemblers by variant.
type Registry struct {
	assemblers map[string]Assembler
}

// NewRegistry returns a registry holding the given assemblers.
func NewRegistry(assemblers ...Assembler) *Registry {
	r := &Registry{assemblers: make(map[string]Assembler)}
	for _, a := range assemblers {
		r.Register(a)
	}
	return r
}

// Register adds an assembler, replacing any for the same variant.
func (r *Registry) Register(a Assembler) {
	r.assemblers[a.Variant()] = a
}

// Get retrieves the assembler for a variant.
func (r *Registry) Get(variant string) (Assembler, error) {
	a, ok := r.assemblers[strings.ToLower(variant)]
	if !ok {
		return nil, fmt.Errorf("unknown variant: %s", variant)
	}
	return a, nil
}

// List returns the registered variants in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.assemblers))
	for name := range r.assemblers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
