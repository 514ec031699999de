package document

import (
	"context"
	"fmt"

	"github.com/pulibrary/orangetheses/access"
	"github.com/pulibrary/orangetheses/callnumber"
	"github.com/pulibrary/orangetheses/helpers"
	"github.com/pulibrary/orangetheses/mapping"
	"github.com/pulibrary/orangetheses/record"
)

// DublinCoreAssembler builds thesis documents from OAI-PMH oai_dc records.
// OAI records carry no embargo metadata, so they are always online.
type DublinCoreAssembler struct {
	Profile     *mapping.Profile
	Identifiers helpers.Identifiers
	CallNumbers callnumber.Normalizer
}

var _ Assembler = (*DublinCoreAssembler)(nil)

// NewDublinCoreAssembler returns an assembler recognizing ARKs by prefix;
// an empty prefix selects the default.
func NewDublinCoreAssembler(profile *mapping.Profile, arkPrefix string) *DublinCoreAssembler {
	return &DublinCoreAssembler{
		Profile:     profile,
		Identifiers: helpers.NewIdentifiers(arkPrefix),
		CallNumbers: callnumber.LC{},
	}
}

// Variant implements Assembler.
func (*DublinCoreAssembler) Variant() string { return "oai_dc" }

// Assemble implements Assembler.
func (a *DublinCoreAssembler) Assemble(_ context.Context, m record.FieldMap) (Document, error) {
	ids := m.Get("identifier")
	id, ok := a.identifiers().ArkID(ids)
	if !ok || id == "" {
		return nil, ErrMissingID
	}
	arks, others := a.identifiers().Split(ids)

	doc := Document{"id": id}
	doc.setTitles(m.Get("title"))
	doc.setFirst("author_sort", m.Get("creator"))

	if year, ok := helpers.EarliestYear(m.Get("date")); ok {
		doc["pub_date_display"] = year
		doc["pub_date_start_sort"] = year
		doc["pub_date_end_sort"] = year
		doc["class_year_s"] = year
	}

	doc["access_facet"] = access.FacetOnline
	labels := []string{helpers.DataSpace, helpers.FullText}
	if m.Has("rights") {
		labels = []string{helpers.DataSpace, helpers.CitationOnly}
	}
	doc["electronic_access_1display"] = helpers.LinkJSON(arks[0], labels)
	if standard, ok := helpers.OtherIdentifiersJSON(others); ok {
		doc["standard_no_1display"] = standard
	}

	shelf := access.Shelf{CallNumber: helpers.CallNumber(others), ArkURL: arks[0]}
	shelf.CallNumberBrowse = callnumber.BrowseKey(a.callNumbers(), shelf.CallNumber)
	online := access.Decision{ID: id, State: access.Online}
	holdings, err := helpers.MarshalJSONString(map[string]access.Holding{"thesis": online.Holding(shelf)})
	if err != nil {
		return nil, fmt.Errorf("holdings for %s: %w", id, err)
	}
	doc["holdings_1display"] = holdings

	if a.Profile != nil {
		doc.merge(a.Profile.Apply(m))
	}
	return doc, nil
}

func (a *DublinCoreAssembler) identifiers() helpers.Identifiers {
	if a.Identifiers.ArkPrefix == "" {
		return helpers.NewIdentifiers("")
	}
	return a.Identifiers
}

func (a *DublinCoreAssembler) callNumbers() callnumber.Normalizer {
	if a.CallNumbers == nil {
		return callnumber.LC{}
	}
	return a.CallNumbers
}
