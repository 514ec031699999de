package helpers

import (
	"strconv"
	"strings"
)

// SubjectSeparator replaces the "--" between subject subdivisions.
const SubjectSeparator = "—"

// ProcessYear normalizes a finding-aid year1 value to four digits. Two
// characters encode a century ("18" is the 1700s), three characters are a
// year before 1000, "uuuu" is unknown. Two catalogued typos are corrected.
func ProcessYear(year string, ok bool) (string, bool) {
	switch {
	case !ok:
		return "", false
	case year == "8981":
		return "0898", true
	case year == "173":
		return "1730", true
	case len(year) == 2:
		century, err := strconv.Atoi(year)
		if err != nil {
			return year, true
		}
		return strconv.Itoa(century-1) + "00", true
	case len(year) == 3:
		return "0" + year, true
	case year == "uuuu":
		return "", false
	default:
		return year, true
	}
}

// Publication joins the first imprint (without trailing punctuation) and the
// first unit date, capitalizing each word.
func Publication(imprints, unitdates []string) (string, bool) {
	pub := ""
	if len(imprints) > 0 {
		pub = StripTrailingPunct(imprints[0])
	}
	date := ""
	if len(unitdates) > 0 {
		date = unitdates[0]
	}

	var joined string
	switch {
	case pub == "":
		joined = date
	case date == "":
		joined = pub
	default:
		joined = pub + ", " + date
	}
	if joined == "" {
		return "", false
	}
	return CapitalizeWords(joined), true
}

// Genre returns the first genre/form capitalized.
func Genre(genres []string) (string, bool) {
	if len(genres) == 0 {
		return "", false
	}
	return Capitalize(genres[0]), true
}

// Subjects holds the subject renderings.
type Subjects struct {
	Full  []string
	Topic []string
}

// SplitSubjects renders each subject with an em dash between subdivisions
// and collects the distinct subdivisions in order.
func SplitSubjects(subjects []string) (Subjects, bool) {
	if len(subjects) == 0 {
		return Subjects{}, false
	}
	var s Subjects
	seen := make(map[string]bool)
	for _, subject := range subjects {
		s.Full = append(s.Full, strings.ReplaceAll(subject, "--", SubjectSeparator))
		for _, part := range strings.Split(subject, "--") {
			if !seen[part] {
				seen[part] = true
				s.Topic = append(s.Topic, part)
			}
		}
	}
	return s, true
}

// LinkLabel is the capitalized last path segment of a link.
func LinkLabel(link string) string {
	return Capitalize(LastSegment(link))
}
