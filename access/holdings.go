package access

import (
	"github.com/pulibrary/orangetheses/helpers"
)

// Mudd Manuscript Library location.
const (
	MuddCode      = "mudd"
	MuddLibrary   = "Mudd Manuscript Library"
	OnlineCode    = "elfthesis"
	OnlineLibrary = "Online"
)

// Holding is the single holding of a thesis.
type Holding struct {
	LocationCode     string `json:"location_code"`
	CallNumber       string `json:"call_number"`
	CallNumberBrowse string `json:"call_number_browse"`
	Library          string `json:"library"`
	Location         string `json:"location"`
	Dspace           bool   `json:"dspace"`
}

// Shelf carries the per-record values the holding fields need.
type Shelf struct {
	CallNumber       string
	CallNumberBrowse string
	// ArkURL is the repository link, if any
	ArkURL string
}

// Holding returns the holding for the decision. Physical holdings are at
// Mudd; dspace is false only while embargoed.
func (d Decision) Holding(s Shelf) Holding {
	h := Holding{
		CallNumber:       s.CallNumber,
		CallNumberBrowse: s.CallNumberBrowse,
		Dspace:           d.State != Embargoed,
	}
	if d.Restricted() {
		h.LocationCode = MuddCode
		h.Library = MuddLibrary
		h.Location = MuddLibrary
	} else {
		h.LocationCode = OnlineCode
		h.Library = OnlineLibrary
		h.Location = OnlineLibrary
	}
	return h
}

type portfolio struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Fields renders the decision into document fields.
func (d Decision) Fields(s Shelf) (map[string]any, error) {
	out := make(map[string]any)

	holdings, err := helpers.MarshalJSONString(map[string]Holding{"thesis": d.Holding(s)})
	if err != nil {
		return nil, err
	}
	out["holdings_1display"] = holdings

	if facet, ok := d.AccessFacet(); ok {
		out["access_facet"] = facet
	}

	if d.Restricted() {
		out["location"] = MuddLibrary
		out["location_display"] = MuddLibrary
		out["location_code_s"] = MuddCode
		out["advanced_location_s"] = []string{MuddCode, MuddLibrary}
	} else {
		p, err := helpers.MarshalJSONString(map[string]portfolio{
			"thesis": {Title: "Online Content", URL: s.ArkURL},
		})
		if err != nil {
			return nil, err
		}
		out["electronic_portfolio_s"] = p
	}

	if note, ok := d.RestrictionNote(); ok {
		out["restrictions_note_display"] = note
	}
	return out, nil
}
