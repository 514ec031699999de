package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulibrary/orangetheses/access"
	"github.com/pulibrary/orangetheses/callnumber"
	"github.com/pulibrary/orangetheses/helpers"
	"github.com/pulibrary/orangetheses/mapping"
	"github.com/pulibrary/orangetheses/record"
	"github.com/pulibrary/orangetheses/vocab"
)

// DataSpace REST metadata keys read directly by the assembler.
const (
	KeyTitle     = "dc.title"
	KeyAuthor    = "dc.contributor.author"
	KeyURI       = "dc.identifier.uri"
	KeyOther     = "dc.identifier.other"
	KeyLanguage  = "dc.language.iso"
	keyDatePart  = "dc.date"
	keyClassYear = access.FieldClassYear
)

// ThesisAssembler builds senior thesis documents from DataSpace REST
// records.
type ThesisAssembler struct {
	Profile     *mapping.Profile
	Engine      *access.Engine
	CallNumbers callnumber.Normalizer

	// Now is the clock embargo dates are compared against
	Now func() time.Time
}

var _ Assembler = (*ThesisAssembler)(nil)

// NewThesisAssembler returns an assembler using the LC call number
// normalizer and the wall clock.
func NewThesisAssembler(profile *mapping.Profile, engine *access.Engine) *ThesisAssembler {
	if engine == nil {
		engine = access.NewEngine(nil)
	}
	return &ThesisAssembler{
		Profile:     profile,
		Engine:      engine,
		CallNumbers: callnumber.LC{},
		Now:         time.Now,
	}
}

// Variant implements Assembler.
func (*ThesisAssembler) Variant() string { return "rest" }

// Assemble implements Assembler.
func (a *ThesisAssembler) Assemble(_ context.Context, m record.FieldMap) (Document, error) {
	id := m.ID()
	if id == "" {
		return nil, ErrMissingID
	}

	doc := Document{"id": id}
	doc.setTitles(m.Get(KeyTitle))
	doc.setFirst("author_sort", m.Get(KeyAuthor))

	decision := a.Engine.Evaluate(m, a.now())
	uri, hasURI := m.First(KeyURI)
	if hasURI {
		doc["electronic_access_1display"] = helpers.LinkJSON(uri, decision.ArkDisplay())
	}

	others := m.Get(KeyOther)
	if standard, ok := helpers.OtherIdentifiersJSON(others); ok {
		doc["standard_no_1display"] = standard
	}
	doc["language_facet"] = vocab.LanguageFacet(m.Get(KeyLanguage))

	if year, ok := earliestDate(m); ok {
		doc["pub_date_display"] = year
	}
	if _, ok := helpers.IntegerYear(m.Get(keyClassYear)); ok {
		years := m.Get(keyClassYear)
		doc["class_year_s"] = years
		doc["pub_date_start_sort"] = years
		doc["pub_date_end_sort"] = years
	}

	if a.Profile != nil {
		doc.merge(a.Profile.Apply(m))
	}

	shelf := access.Shelf{CallNumber: helpers.CallNumber(others), ArkURL: uri}
	shelf.CallNumberBrowse = callnumber.BrowseKey(a.callNumbers(), shelf.CallNumber)
	fields, err := decision.Fields(shelf)
	if err != nil {
		return nil, fmt.Errorf("holdings for %s: %w", id, err)
	}
	doc.merge(fields)
	return doc, nil
}

func (a *ThesisAssembler) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *ThesisAssembler) callNumbers() callnumber.Normalizer {
	if a.CallNumbers == nil {
		return callnumber.LC{}
	}
	return a.CallNumbers
}

// earliestDate is the earliest year among the first values of every dc.date
// qualifier.
func earliestDate(m record.FieldMap) (int, bool) {
	var firsts []string
	for key, values := range m {
		if strings.Contains(key, keyDatePart) && len(values) > 0 {
			firsts = append(firsts, values[0])
		}
	}
	return helpers.EarliestYear(firsts)
}
