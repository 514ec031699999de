package helpers

import (
	"encoding/json"
	"strings"
)

// DefaultArkPrefix marks the identifiers minted by the Princeton ARK
// resolver.
const DefaultArkPrefix = "http://arks.princeton.edu/ark:/"

// CallNumberPrefix is the shelf prefix of every senior thesis.
const CallNumberPrefix = "AC102"

// DataSpace is the label of the repository link.
const DataSpace = "DataSpace"

// Link display labels.
const (
	FullText     = "Full text"
	CitationOnly = "Citation only"
)

// Identifiers separates ARKs from other identifiers by URL prefix.
type Identifiers struct {
	ArkPrefix string
}

// NewIdentifiers returns a resolver for the given prefix, or the default
// prefix when empty.
func NewIdentifiers(prefix string) Identifiers {
	if prefix == "" {
		prefix = DefaultArkPrefix
	}
	return Identifiers{ArkPrefix: prefix}
}

// IsArk reports whether the identifier carries the ARK prefix.
func (i Identifiers) IsArk(id string) bool {
	return strings.HasPrefix(id, i.ArkPrefix)
}

// Split partitions identifiers into ARKs and others, preserving order.
func (i Identifiers) Split(ids []string) (arks, others []string) {
	for _, id := range ids {
		if i.IsArk(id) {
			arks = append(arks, id)
		} else {
			others = append(others, id)
		}
	}
	return arks, others
}

// ArkID returns the trailing path segment of the first ARK.
func (i Identifiers) ArkID(ids []string) (string, bool) {
	arks, _ := i.Split(ids)
	if len(arks) == 0 {
		return "", false
	}
	return LastSegment(arks[0]), true
}

// LastSegment returns the text after the final slash.
func LastSegment(s string) string {
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// OtherIdentifiersJSON renders {"Other identifier":[...]}. No identifiers
// yields no value.
func OtherIdentifiersJSON(others []string) (string, bool) {
	if len(others) == 0 {
		return "", false
	}
	return mustJSON(map[string][]string{"Other identifier": others}), true
}

// CallNumber returns AC102, suffixed with the first other identifier when
// there is one.
func CallNumber(others []string) string {
	if len(others) == 0 || strings.TrimSpace(others[0]) == "" {
		return CallNumberPrefix
	}
	return CallNumberPrefix + " " + others[0]
}

// LinkJSON renders {"<url>":[labels...]}.
func LinkJSON(url string, labels []string) string {
	return mustJSON(map[string][]string{url: labels})
}

// LinksJSON renders every link labelled with its last path segment as one
// object, keys in input order.
func LinksJSON(links []string) (string, bool) {
	if len(links) == 0 {
		return "", false
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, link := range links {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(mustJSON(link))
		sb.WriteByte(':')
		sb.WriteString(mustJSON([]string{LinkLabel(link)}))
	}
	sb.WriteByte('}')
	return sb.String(), true
}

// RelatedNamesJSON renders {"Related name":[...]}.
func RelatedNamesJSON(names []string) string {
	return mustJSON(map[string][]string{"Related name": names})
}

// mustJSON encodes values that cannot fail to marshal.
func mustJSON(v any) string {
	s, err := MarshalJSONString(v)
	if err != nil {
		panic(err)
	}
	return s
}

// MarshalJSONString encodes v as a JSON string field value. HTML characters
// are left unescaped so URLs survive as written.
func MarshalJSONString(v any) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}
