// Package record models harvested source records and normalizes them into
// FieldMaps.
//
// Three source shapes are supported: DataSpace REST items (JSON), OAI Dublin
// Core metadata elements (XML) and visual-materials finding-aid records (XML).
// Each is a Raw value that knows how to produce its own FieldMap, so
// everything downstream works against the FieldMap only.
package record

import (
	"errors"
)

// ErrMissingElement reports a record without a structural element it needs,
// such as an id or handle.
var ErrMissingElement = errors.New("record is missing a required element")

// Field names shared across variants.
const (
	FieldID                 = "id"
	FieldVisualLocationCode = "holdings/collection"
)

// Vocabulary is the subset of the controlled vocabulary used during
// normalization.
type Vocabulary interface {
	Department(name string) (string, bool)
	Program(name string) (string, bool)
}

// Raw is a source record as fetched.
type Raw interface {
	// Fields normalizes the record. Implementations that do not consult
	// controlled vocabularies ignore v.
	Fields(v Vocabulary) (FieldMap, error)

	// Variant names the source format ("rest", "oai_dc", "visuals").
	Variant() string
}

// Normalizer converts raw records to FieldMaps.
type Normalizer struct {
	Vocab Vocabulary
}

// NewNormalizer returns a normalizer backed by the given vocabulary.
func NewNormalizer(v Vocabulary) *Normalizer {
	return &Normalizer{Vocab: v}
}

// Normalize returns the canonical FieldMap for a raw record.
func (n *Normalizer) Normalize(r Raw) (FieldMap, error) {
	return r.Fields(n.Vocab)
}
