package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// REST metadata keys that are substituted through controlled vocabularies.
const (
	KeyDepartment  = "pu.department"
	KeyCertificate = "pu.certificate"
)

// MetadataEntry is one key/value pair of a DataSpace REST item.
type MetadataEntry struct {
	Key      string  `json:"key"`
	Value    *string `json:"value"`
	Language *string `json:"language,omitempty"`
}

// RestItem is an item from the DataSpace REST collection items endpoint,
// requested with expand=metadata.
type RestItem struct {
	Name     string          `json:"name,omitempty"`
	Handle   string          `json:"handle"`
	Metadata []MetadataEntry `json:"metadata"`
}

var _ Raw = RestItem{}

// Variant implements Raw.
func (RestItem) Variant() string { return "rest" }

// HandleID is the last path segment of the item handle.
func (i RestItem) HandleID() string {
	if idx := strings.LastIndex(i.Handle, "/"); idx >= 0 {
		return i.Handle[idx+1:]
	}
	return i.Handle
}

// Fields implements Raw. Department and certificate values without an
// authorized form are dropped.
func (i RestItem) Fields(v Vocabulary) (FieldMap, error) {
	if i.Handle == "" {
		return nil, fmt.Errorf("rest item %q: handle: %w", i.Name, ErrMissingElement)
	}
	m := FieldMap{FieldID: {i.HandleID()}}
	for _, entry := range i.Metadata {
		if entry.Value == nil {
			continue
		}
		value := *entry.Value
		switch entry.Key {
		case KeyDepartment:
			if v == nil {
				continue
			}
			authorized, ok := v.Department(value)
			if !ok {
				continue
			}
			value = authorized
		case KeyCertificate:
			if v == nil {
				continue
			}
			authorized, ok := v.Program(value)
			if !ok {
				continue
			}
			value = authorized
		}
		m.Append(entry.Key, value)
	}
	return m, nil
}

// ParseRestItems decodes one page of the REST items endpoint.
func ParseRestItems(data []byte) ([]RestItem, error) {
	var items []RestItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing items page: %w", err)
	}
	return items, nil
}
