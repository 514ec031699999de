package record

// FieldMap is the canonical form of a harvested record: source field names
// mapped to their values in source order.
type FieldMap map[string][]string

// Get returns all values for a field.
func (m FieldMap) Get(field string) []string {
	return m[field]
}

// First returns the first value of a field.
func (m FieldMap) First(field string) (string, bool) {
	vals := m[field]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Has reports whether the field is present with at least one value.
func (m FieldMap) Has(field string) bool {
	return len(m[field]) > 0
}

// Append adds a value to the end of a field's list, creating it if needed.
func (m FieldMap) Append(field, value string) {
	m[field] = append(m[field], value)
}

// ID returns the record identifier established during normalization.
func (m FieldMap) ID() string {
	id, _ := m.First(FieldID)
	return id
}

