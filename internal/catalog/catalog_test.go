package catalog

import (
	"reflect"
	"testing"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name    string
		message string
		code    int
		ok      bool
	}{
		{name: "trailing code", message: "** Customer record not on file. (138)", code: 138, ok: true},
		{name: "trailing whitespace", message: "error (132)  ", code: 132, ok: true},
		{name: "no code", message: "Expected: 1 but was: 2", ok: false},
		{name: "code not at end", message: "(132) happened", ok: false},
		{name: "empty", message: "", ok: false},
		{name: "last of two", message: "inner (11) outer (565)", code: 565, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ExtractCode(tt.message)
			if ok != tt.ok || code != tt.code {
				t.Errorf("ExtractCode(%q) = %d, %v, want %d, %v", tt.message, code, ok, tt.code, tt.ok)
			}
		})
	}
}

func TestEntry_Help(t *testing.T) {
	e := Entry{Code: 132, Text: []string{
		"** %1 already exists with %2. (132)",
		`A unique index already holds this value.\nChange the key.`,
		"See the index definitions.",
	}}

	want := []string{
		"A unique index already holds this value.\n\nChange the key.",
		"See the index definitions.",
	}
	if got := e.Help(); !reflect.DeepEqual(got, want) {
		t.Errorf("Help() = %q, want %q", got, want)
	}
	if e.Short() != e.Text[0] {
		t.Errorf("Short() = %q", e.Short())
	}

	if got := (Entry{Text: []string{"only"}}).Help(); got != nil {
		t.Errorf("Help() of single segment = %q, want nil", got)
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := New([]Entry{
		{Code: 132, Text: []string{"first"}},
		{Code: 7, Text: []string{"seven"}},
		{Code: 132, Text: []string{"replacement"}},
	})

	e, ok := c.Lookup(132)
	if !ok || e.Short() != "replacement" {
		t.Errorf("Lookup(132) = %+v, %v", e, ok)
	}
	if _, ok := c.Lookup(1); ok {
		t.Error("Lookup(1) should miss")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if got := c.Entries(); got[0].Code != 7 || got[1].Code != 132 {
		t.Errorf("Entries() not ordered by code: %+v", got)
	}

	var empty *Catalog
	if _, ok := empty.Lookup(132); ok {
		t.Error("nil catalog Lookup should miss")
	}
	if empty.Len() != 0 || empty.Entries() != nil {
		t.Error("nil catalog should be empty")
	}
}
