package document

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pulibrary/orangetheses/access"
	"github.com/pulibrary/orangetheses/helpers"
	"github.com/pulibrary/orangetheses/locations"
	"github.com/pulibrary/orangetheses/mapping"
	"github.com/pulibrary/orangetheses/record"
)

// VisualIDPrefix namespaces visual material ids.
const VisualIDPrefix = "visuals"

// MaxDisplayedAuthors is the number of author_display values kept before the
// rest move to the related names field.
const MaxDisplayedAuthors = 4

// VisualOnlineCode is the holding location of visual materials without a
// shelf location.
const VisualOnlineCode = "elfvisuals"

// LinkFilter drops links that do not resolve.
type LinkFilter interface {
	Filter(ctx context.Context, id string, links []string) []string
}

// LocationResolver looks up holding location codes.
type LocationResolver interface {
	Lookup(ctx context.Context, code string) (locations.Location, bool, error)
}

// VisualAssembler builds documents from visual materials finding-aid
// records.
type VisualAssembler struct {
	Profile   *mapping.Profile
	Links     LinkFilter
	Locations LocationResolver
	Logger    *slog.Logger
}

var _ Assembler = (*VisualAssembler)(nil)

// NewVisualAssembler returns a visual assembler. A nil link filter keeps
// every link.
func NewVisualAssembler(profile *mapping.Profile, links LinkFilter, locs LocationResolver, logger *slog.Logger) *VisualAssembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisualAssembler{Profile: profile, Links: links, Locations: locs, Logger: logger}
}

// Variant implements Assembler.
func (*VisualAssembler) Variant() string { return "visuals" }

type visualHolding struct {
	LocationCode     string   `json:"location_code"`
	CallNumber       string   `json:"call_number,omitempty"`
	CallNumberBrowse string   `json:"call_number_browse,omitempty"`
	LocationNote     []string `json:"location_note,omitempty"`
	Library          string   `json:"library"`
	Location         string   `json:"location"`
	Dspace           bool     `json:"dspace"`
}

// Assemble implements Assembler. It returns an error wrapping
// locations.ErrUnavailable when the location directory cannot be loaded.
func (a *VisualAssembler) Assemble(ctx context.Context, m record.FieldMap) (Document, error) {
	raw := m.ID()
	if raw == "" {
		return nil, ErrMissingID
	}
	id := VisualIDPrefix + raw

	doc := Document{"id": id}
	doc.setTitles(m.Get("title"))
	// title_t holds the first title only; visual titles carry no LaTeX variant
	doc.setFirst("title_t", m.Get("title"))
	doc.setFirst("other_title_display", m.Get("othertitle"))
	doc.setFirst("other_title_index", m.Get("othertitle"))
	doc.setFirst("author_sort", m.Get("creator"))

	if year, ok := helpers.ProcessYear(m.First("year1")); ok {
		doc["pub_date_start_sort"] = year
		doc["pub_date_end_sort"] = year
	}
	if pub, ok := helpers.Publication(m.Get("imprint"), m.Get("unitdate")); ok {
		doc["pub_created_display"] = pub
	}
	if genre, ok := helpers.Genre(m.Get("genreform")); ok {
		doc["form_genre_display"] = genre
		doc["genre_facet"] = genre
	}

	code, hasCode := m.First(record.FieldVisualLocationCode)
	if hasCode {
		doc["location_code_s"] = code
	}

	links := a.links(ctx, id, m)
	if rendered, ok := helpers.LinksJSON(links); ok {
		doc["electronic_access_1display"] = rendered
	}

	var facets []string
	if hasCode {
		facets = append(facets, access.FacetInLibrary)
	}
	if len(links) > 0 {
		facets = append(facets, access.FacetOnline)
	}
	if len(facets) > 0 {
		doc["access_facet"] = facets
	}

	if err := a.setLocation(ctx, doc, m, code, hasCode); err != nil {
		return nil, err
	}

	if a.Profile != nil {
		doc.merge(a.Profile.Apply(m))
	}
	if s, ok := helpers.SplitSubjects(m.Get("subject")); ok {
		doc["subject_facet"] = s.Full
		doc["subject_display"] = s.Full
		doc["subject_topic_facet"] = s.Topic
	}
	truncateAuthors(doc)
	return doc, nil
}

func (a *VisualAssembler) links(ctx context.Context, id string, m record.FieldMap) []string {
	candidates := append(append([]string(nil), m.Get("link")...), m.Get("colllink")...)
	if len(candidates) == 0 || a.Links == nil {
		return candidates
	}
	return a.Links.Filter(ctx, id, candidates)
}

// setLocation adds the shelf location and holdings fields. Records without a
// location code get an online holding; unknown codes are logged and get no
// holding.
func (a *VisualAssembler) setLocation(ctx context.Context, doc Document, m record.FieldMap, code string, hasCode bool) error {
	callno, _ := m.First("callno")
	h := visualHolding{
		LocationCode:     VisualOnlineCode,
		CallNumber:       callno,
		CallNumberBrowse: callno,
		LocationNote:     m.Get("physicallocation"),
		Library:          access.OnlineLibrary,
		Location:         access.OnlineLibrary,
		Dspace:           true,
	}

	if hasCode {
		if a.Locations == nil {
			return fmt.Errorf("%s: %w", doc.ID(), locations.ErrUnavailable)
		}
		loc, found, err := a.Locations.Lookup(ctx, code)
		if err != nil {
			return fmt.Errorf("%s: %w", doc.ID(), err)
		}
		if !found {
			a.Logger.Info(fmt.Sprintf("%s: Invalid location code %s", doc.ID(), code),
				"id", doc.ID(), "location_code", code)
			return nil
		}
		library := loc.LibraryLabel()
		doc["advanced_location_s"] = []string{code, library}
		doc["location"] = library
		doc["location_display"] = loc.FullDisplay()
		h.LocationCode = code
		h.Library = library
		h.Location = loc.FullDisplay()
	}

	holdings, err := helpers.MarshalJSONString(map[string]visualHolding{VisualIDPrefix: h})
	if err != nil {
		return fmt.Errorf("holdings for %s: %w", doc.ID(), err)
	}
	doc["holdings_1display"] = holdings
	return nil
}

// truncateAuthors keeps the first author_display value when there are more
// than MaxDisplayedAuthors and moves the rest to related names.
func truncateAuthors(doc Document) {
	authors := doc.Strings("author_display")
	if len(authors) <= MaxDisplayedAuthors {
		return
	}
	doc["author_display"] = []string{authors[0]}
	doc["related_name_json_1display"] = helpers.RelatedNamesJSON(authors[1:])
}
