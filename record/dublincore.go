package record

import (
	"fmt"
)

// DublinCoreTags are the oai_dc elements carried into the FieldMap.
var DublinCoreTags = []string{
	"title", "creator", "contributor", "date", "identifier",
	"type", "format", "rights", "description", "language",
}

// DublinCoreRecord is the metadata element of an OAI-PMH record in the
// oai_dc format. Metadata may be the <metadata> wrapper or the <oai_dc:dc>
// container itself.
type DublinCoreRecord struct {
	Metadata *Element
}

var _ Raw = DublinCoreRecord{}

// Variant implements Raw.
func (DublinCoreRecord) Variant() string { return "oai_dc" }

// Container returns the <dc> element holding the descriptive elements.
func (r DublinCoreRecord) Container() (*Element, error) {
	if r.Metadata == nil {
		return nil, fmt.Errorf("oai_dc record: metadata: %w", ErrMissingElement)
	}
	if r.Metadata.Name == "dc" {
		return r.Metadata, nil
	}
	if dc := r.Metadata.Child("dc"); dc != nil {
		return dc, nil
	}
	return nil, fmt.Errorf("oai_dc record: dc container: %w", ErrMissingElement)
}

// Elements returns the descriptive elements in document order, restricted to
// DublinCoreTags.
func (r DublinCoreRecord) Elements() ([]*Element, error) {
	dc, err := r.Container()
	if err != nil {
		return nil, err
	}
	var out []*Element
	for _, c := range dc.Children {
		if isDublinCoreTag(c.Name) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Fields implements Raw.
func (r DublinCoreRecord) Fields(_ Vocabulary) (FieldMap, error) {
	elements, err := r.Elements()
	if err != nil {
		return nil, err
	}
	m := FieldMap{}
	for _, e := range elements {
		m.Append(e.Name, e.Text)
	}
	return m, nil
}

func isDublinCoreTag(name string) bool {
	for _, t := range DublinCoreTags {
		if t == name {
			return true
		}
	}
	return false
}
