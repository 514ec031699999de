// Package mapping provides the table-driven projection of normalized source
// fields into index document fields.
package mapping

import (
	"github.com/pulibrary/orangetheses/record"
)

// Profile is the mapping table for one source variant.
type Profile struct {
	// Name is the profile identifier, usually the variant it serves
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable documentation
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Rules are applied in order; several rules may feed the same target
	Rules []Rule `yaml:"rules" json:"rules"`

	// Constants are merged into every document after the rules run
	Constants map[string]string `yaml:"constants,omitempty" json:"constants,omitempty"`

	// CollapseSingle turns single-element target lists into scalars
	CollapseSingle bool `yaml:"collapse_single,omitempty" json:"collapse_single,omitempty"`
}

// Rule copies every value of a source field into each target field.
type Rule struct {
	Source  string   `yaml:"source" json:"source"`
	Targets []string `yaml:"targets" json:"targets"`
}

// Apply projects the field map through the profile. Targets accumulate
// values from every rule that feeds them, in rule order. Sources absent from
// the map contribute nothing and do not create their targets.
func (p *Profile) Apply(m record.FieldMap) map[string]any {
	lists := make(map[string][]string)
	for _, rule := range p.Rules {
		values := m.Get(rule.Source)
		if len(values) == 0 {
			continue
		}
		for _, target := range rule.Targets {
			lists[target] = append(lists[target], values...)
		}
	}

	out := make(map[string]any, len(lists)+len(p.Constants))
	for target, values := range lists {
		if p.CollapseSingle && len(values) == 1 {
			out[target] = values[0]
			continue
		}
		out[target] = values
	}
	for field, value := range p.Constants {
		out[field] = value
	}
	return out
}

// Sources returns the distinct source fields the profile reads, in rule
// order.
func (p *Profile) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range p.Rules {
		if !seen[rule.Source] {
			seen[rule.Source] = true
			out = append(out, rule.Source)
		}
	}
	return out
}

// Targets returns the distinct target fields the profile writes, in rule
// order.
func (p *Profile) Targets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range p.Rules {
		for _, t := range rule.Targets {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
