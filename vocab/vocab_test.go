package vocab

import (
	"reflect"
	"testing"
)

func TestEmbeddedTables(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if r.DepartmentCount() < 45 {
		t.Errorf("DepartmentCount: got %d, want at least 45", r.DepartmentCount())
	}
	if r.ProgramCount() < 38 {
		t.Errorf("ProgramCount: got %d, want at least 38", r.ProgramCount())
	}
}

func TestDepartment(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"mapped", "English", "Princeton University. Department of English", true},
		{"renamed", "German", "Princeton University. Department of Germanic Languages and Literatures", true},
		{"unmapped", "Underwater Basket Weaving", "", false},
		{"case sensitive", "english", "", false},
		{"already authorized", "Princeton University. Department of English", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Department(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Department(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestProgram(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	got, ok := r.Program("Program in Technology & Society, Technology Track")
	if !ok || got != "Princeton University. Program in Technology and Society" {
		t.Errorf("Program: got %q, %v", got, ok)
	}
	if _, ok := r.Program("Theater Studies"); ok {
		t.Error("Program: unmapped term resolved")
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "English"},
		{"en_US", "English"},
		{"fr", "French"},
		{"it", "Italian"},
		{"", "English"},
		{"not-a-code", "English"},
	}
	for _, tt := range tests {
		if got := LanguageName(tt.code); got != tt.want {
			t.Errorf("LanguageName(%q): got %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestLanguageFacet(t *testing.T) {
	if got := LanguageFacet(nil); got != "English" {
		t.Errorf("LanguageFacet(nil): got %#v, want scalar English", got)
	}

	got := LanguageFacet([]string{"en_US", "en"})
	if !reflect.DeepEqual(got, []string{"English"}) {
		t.Errorf("LanguageFacet dedup: got %#v", got)
	}

	got = LanguageFacet([]string{"fr", "xx_YY", "it"})
	want := []string{"French", "English", "Italian"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LanguageFacet: got %#v, want %#v", got, want)
	}
}
