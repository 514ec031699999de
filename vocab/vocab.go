// Package vocab provides the controlled vocabularies applied to thesis metadata:
// authorized department and program headings, and ISO 639 language names.
//
// Department and program tables are allow-lists. A name that is not in the
// table has no authorized form, and callers drop the value rather than index
// unreviewed free text into a controlled field.
package vocab

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used for records without a language and for codes that
// cannot be resolved.
const DefaultLanguage = "English"

//go:embed departments.yaml
var departmentsYAML []byte

//go:embed programs.yaml
var programsYAML []byte

// Resolver looks up authorized forms of controlled terms.
type Resolver struct {
	departments map[string]string
	programs    map[string]string
}

// New loads the embedded vocabulary tables.
func New() (*Resolver, error) {
	departments, err := parseTable(departmentsYAML)
	if err != nil {
		return nil, fmt.Errorf("loading departments: %w", err)
	}
	programs, err := parseTable(programsYAML)
	if err != nil {
		return nil, fmt.Errorf("loading programs: %w", err)
	}
	return NewFromTables(departments, programs), nil
}

// NewFromTables builds a resolver from caller supplied tables.
func NewFromTables(departments, programs map[string]string) *Resolver {
	return &Resolver{departments: departments, programs: programs}
}

func parseTable(data []byte) (map[string]string, error) {
	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing vocabulary YAML: %w", err)
	}
	return table, nil
}

// Department returns the authorized heading for a department name.
func (r *Resolver) Department(name string) (string, bool) {
	v, ok := r.departments[name]
	return v, ok
}

// Program returns the authorized heading for a certificate program name.
func (r *Resolver) Program(name string) (string, bool) {
	v, ok := r.programs[name]
	return v, ok
}

// DepartmentCount returns the number of authorized departments.
func (r *Resolver) DepartmentCount() int {
	return len(r.departments)
}

// ProgramCount returns the number of authorized programs.
func (r *Resolver) ProgramCount() int {
	return len(r.programs)
}

var languageNames = display.English.Languages()

// LanguageName resolves one ISO 639 code to its English name. Region
// suffixes ("en_US") are ignored. Unknown codes resolve to DefaultLanguage.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexByte(code, '_'); i >= 0 {
		code = code[:i]
	}
	if code == "" {
		return DefaultLanguage
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return DefaultLanguage
	}
	name := languageNames.Name(base)
	if name == "" {
		return DefaultLanguage
	}
	return name
}

// Languages resolves a list of codes to distinct English names in first-seen
// order. It returns nil for an empty list.
func Languages(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(codes))
	names := make([]string, 0, len(codes))
	for _, c := range codes {
		name := LanguageName(c)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// LanguageFacet is the language_facet value: the scalar DefaultLanguage when
// no codes are present, otherwise the resolved list.
func LanguageFacet(codes []string) any {
	names := Languages(codes)
	if len(names) == 0 {
		return DefaultLanguage
	}
	return names
}
