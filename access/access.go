// Package access derives the embargo, restriction and holdings state of a
// thesis from its normalized metadata.
package access

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pulibrary/orangetheses/helpers"
	"github.com/pulibrary/orangetheses/record"
)

// Metadata keys consulted by the engine.
const (
	FieldLocation     = "pu.location"
	FieldAccessRights = "dc.rights.accessRights"
	FieldEmbargoLift  = "pu.embargo.lift"
	FieldEmbargoTerms = "pu.embargo.terms"
	FieldWalkIn       = "pu.mudd.walkin"
	FieldClassYear    = "pu.date.classyear"
)

// WalkInCutoffYear is the first class year whose walk-in flag no longer
// restricts access.
const WalkInCutoffYear = 2013

// Access facet values.
const (
	FacetOnline    = "Online"
	FacetInLibrary = "In the Library"
)

// State is the access state of a thesis.
type State int

const (
	Online State = iota
	OnSiteOnly
	Embargoed
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case OnSiteOnly:
		return "on_site_only"
	case Embargoed:
		return "embargoed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Decision is the outcome of evaluating one record.
type Decision struct {
	// ID is the record id, used in the restriction note
	ID string

	State State

	// EmbargoDate is set when the embargo date parsed
	EmbargoDate time.Time

	// DateInvalid is set when an embargo value was present but unparsable
	DateInvalid bool
}

// Engine evaluates access decisions.
type Engine struct {
	logger *slog.Logger
}

// NewEngine returns an engine that logs to logger, or slog.Default when nil.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Evaluate applies the access rules in precedence order:
//
//  1. a parsable embargo date in the future embargoes the record
//  2. an embargo value that does not parse also embargoes it
//  3. a location note, access-rights statement or pre-2013 walk-in flag
//     restricts it to the library
//  4. anything else is online
//
// The lift date takes precedence over the terms date; only the first value
// is read.
func (e *Engine) Evaluate(m record.FieldMap, now time.Time) Decision {
	d := Decision{ID: m.ID()}

	if raw, ok := embargoValue(m); ok {
		date, err := helpers.ParseDate(raw)
		switch {
		case err != nil:
			e.logger.Warn(fmt.Sprintf("Failed to parse the embargo date for %s", d.ID),
				"id", d.ID, "value", raw)
			d.State = Embargoed
			d.DateInvalid = true
			return d
		case date.After(now):
			d.State = Embargoed
			d.EmbargoDate = date
			return d
		}
	}

	if m.Has(FieldLocation) || m.Has(FieldAccessRights) || walkIn(m) {
		d.State = OnSiteOnly
		return d
	}
	d.State = Online
	return d
}

func embargoValue(m record.FieldMap) (string, bool) {
	if v, ok := m.First(FieldEmbargoLift); ok {
		return v, true
	}
	return m.First(FieldEmbargoTerms)
}

// walkIn reports a walk-in flag on a thesis from before the cutoff class
// year. Without a readable class year the flag is ignored.
func walkIn(m record.FieldMap) bool {
	flag, ok := m.First(FieldWalkIn)
	if !ok || !strings.EqualFold(strings.TrimSpace(flag), "yes") {
		return false
	}
	classYear, ok := m.First(FieldClassYear)
	if !ok {
		return false
	}
	t, err := helpers.ParseDate(classYear)
	if err != nil {
		return false
	}
	return t.Year() < WalkInCutoffYear
}

// Restricted reports whether the full text is withheld.
func (d Decision) Restricted() bool {
	return d.State != Online
}

// AccessFacet returns the access facet value. Embargoed records have none.
func (d Decision) AccessFacet() (string, bool) {
	switch d.State {
	case Online:
		return FacetOnline, true
	case OnSiteOnly:
		return FacetInLibrary, true
	default:
		return "", false
	}
}

// ArkDisplay returns the labels of the repository link.
func (d Decision) ArkDisplay() []string {
	if d.Restricted() {
		return []string{helpers.DataSpace, helpers.CitationOnly}
	}
	return []string{helpers.DataSpace, helpers.FullText}
}

// RestrictionNote returns the embargo note. Only embargoed records have one.
func (d Decision) RestrictionNote() (string, bool) {
	if d.State != Embargoed {
		return "", false
	}
	contact := fmt.Sprintf(`For more information contact the <a href="mailto:dspadmin@princeton.edu?subject=Regarding embargoed DataSpace Item 88435/%s"> Mudd Manuscript Library</a>.`, d.ID)
	if d.DateInvalid || d.EmbargoDate.IsZero() {
		return "This content is currently under embargo. " + contact, true
	}
	return fmt.Sprintf("This content is embargoed until %s. %s", helpers.FormatLongDate(d.EmbargoDate), contact), true
}
