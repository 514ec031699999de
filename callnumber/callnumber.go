// Package callnumber builds sortable browse keys for shelf call numbers.
package callnumber

import (
	"fmt"
	"regexp"
	"strings"
)

// Normalizer turns a call number into a key that sorts in shelf order.
type Normalizer interface {
	Normalize(callNumber string) (string, bool)
}

// NormalizerFunc adapts a function to the Normalizer interface.
type NormalizerFunc func(string) (string, bool)

// Normalize implements Normalizer.
func (f NormalizerFunc) Normalize(s string) (string, bool) { return f(s) }

var lcRegex = regexp.MustCompile(`^([A-Z]{1,3})\s*(\d{1,4})(?:\.(\d+))?\s*(.*)$`)

// LC normalizes Library of Congress style call numbers: class letters padded
// to three characters, class number zero-padded to four digits, decimal
// digits kept, remaining cutters and suffixes upper-cased and single-spaced.
type LC struct{}

// Normalize implements Normalizer. Values that are not LC call numbers are
// reported as not normalizable.
func (LC) Normalize(callNumber string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(callNumber))
	m := lcRegex.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	key := fmt.Sprintf("%-3s", m[1]) + strings.Repeat("0", 4-len(m[2])) + m[2]
	if m[3] != "" {
		key += "." + m[3]
	}
	if rest := strings.Join(strings.Fields(m[4]), " "); rest != "" {
		key += " " + rest
	}
	return key, true
}

// BrowseKey normalizes with n and falls back to the call number itself.
func BrowseKey(n Normalizer, callNumber string) string {
	if n == nil {
		return callNumber
	}
	if key, ok := n.Normalize(callNumber); ok {
		return key
	}
	return callNumber
}
