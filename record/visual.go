package record

import (
	"fmt"
)

// VisualTags are the finding-aid elements carried into the FieldMap. The
// holdings location code and id are handled separately.
var VisualTags = []string{
	"title", "othertitle", "creator", "contributor", "subject", "genreform",
	"year1", "imprint", "unitdate", "physdesc", "note", "acqinfo", "callno",
	"physicallocation", "link", "colllink",
}

// VisualRecord is one <record> element of the visual materials export.
type VisualRecord struct {
	Element *Element
}

var _ Raw = VisualRecord{}

// Variant implements Raw.
func (VisualRecord) Variant() string { return "visuals" }

// LocationCode returns the first <collection> of the first <holdings>.
func (r VisualRecord) LocationCode() (string, bool) {
	if r.Element == nil {
		return "", false
	}
	holdings := r.Element.Child("holdings")
	if holdings == nil {
		return "", false
	}
	collection := holdings.Child("collection")
	if collection == nil {
		return "", false
	}
	return collection.Text, true
}

// Fields implements Raw.
func (r VisualRecord) Fields(_ Vocabulary) (FieldMap, error) {
	if r.Element == nil {
		return nil, fmt.Errorf("visual record: %w", ErrMissingElement)
	}
	id := r.Element.Child("id")
	if id == nil {
		return nil, fmt.Errorf("visual record: id: %w", ErrMissingElement)
	}
	m := FieldMap{FieldID: {id.Text}}
	for _, c := range r.Element.Children {
		if isVisualTag(c.Name) {
			m.Append(c.Name, c.Text)
		}
	}
	if code, ok := r.LocationCode(); ok {
		m.Append(FieldVisualLocationCode, code)
	}
	return m, nil
}

func isVisualTag(name string) bool {
	for _, t := range VisualTags {
		if t == name {
			return true
		}
	}
	return false
}

// VisualRecords returns every <record> child of a visuals export document
// root.
func VisualRecords(root *Element) []VisualRecord {
	var out []VisualRecord
	for _, e := range root.ChildrenNamed("record") {
		out = append(out, VisualRecord{Element: e})
	}
	return out
}
