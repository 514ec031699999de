package cmd

import (
	"strings"
	"testing"

	"github.com/pulibrary/orangetheses/record"
)

func TestDublinCoreRecords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name: "list records response",
			input: `<OAI-PMH><ListRecords>
  <record><metadata><oai_dc:dc xmlns:oai_dc="http://www.openarchives.org/OAI/2.0/oai_dc/"><dc:title xmlns:dc="http://purl.org/dc/elements/1.1/">One</dc:title></oai_dc:dc></metadata></record>
  <record><metadata><oai_dc:dc xmlns:oai_dc="http://www.openarchives.org/OAI/2.0/oai_dc/"><dc:title xmlns:dc="http://purl.org/dc/elements/1.1/">Two</dc:title></oai_dc:dc></metadata></record>
</ListRecords></OAI-PMH>`,
			want: []string{"One", "Two"},
		},
		{
			name:  "bare container",
			input: `<dc><title>Alone</title></dc>`,
			want:  []string{"Alone"},
		},
		{
			name:  "no containers",
			input: `<OAI-PMH><error code="noRecordsMatch"/></OAI-PMH>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := record.ParseElement(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseElement() error = %v", err)
			}
			records := dublinCoreRecords(root)
			if len(records) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(records), len(tt.want))
			}
			for i, r := range records {
				title := r.Metadata.Child("title")
				if title == nil || title.Text != tt.want[i] {
					t.Errorf("record %d title = %v, want %q", i, title, tt.want[i])
				}
			}
		})
	}
}

func TestEach(t *testing.T) {
	var got []string
	for s, err := range each([]string{"a", "b", "c"}) {
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if s == "c" {
			break
		}
		got = append(got, s)
	}
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("got %v", got)
	}
}

func TestInputSniffing(t *testing.T) {
	if !isArchive("VisualsResults.tar.gz") || !isArchive("x.tgz") || isArchive("record.xml") {
		t.Error("isArchive misclassified a name")
	}
	if !isGzip([]byte{0x1f, 0x8b, 0x08}) || isGzip([]byte("<record/>")) {
		t.Error("isGzip misclassified content")
	}
}

func TestOpenSinkRejectsUnknownFormat(t *testing.T) {
	if _, err := openSink("", "csv"); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}
