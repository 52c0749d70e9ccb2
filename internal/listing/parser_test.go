package listing

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// listingRow formats one listing row the way the compiler lays it out.
func listingRow(depth, line int, block, text string) string {
	d := ""
	if depth > 0 {
		d = fmt.Sprint(depth)
	}
	return fmt.Sprintf("%2s %5d %3s %s", d, line, block, text)
}

func listingText(rows ...string) string {
	header := []string{
		"MyClass.cls                           10/19/2026 09:12:44   PROGRESS(R) Page 1",
		"",
		"{} Line   Blk",
		"-- ----- ---",
	}
	return strings.Join(append(header, rows...), "\n") + "\n"
}

func TestParse_TopLevelOnly(t *testing.T) {
	text := listingText(
		listingRow(0, 1, "", "USING Progress.Lang.*."),
		listingRow(0, 2, "", ""),
		listingRow(0, 3, "1", "CLASS MyClass:"),
	)

	l, err := Parse(strings.NewReader(text), "MyClass.cls")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	for compiled := 1; compiled <= 3; compiled++ {
		loc, ok := l.Lookup(compiled)
		if !ok {
			t.Fatalf("Lookup(%d) missing", compiled)
		}
		want := Location{File: "MyClass.cls", Line: compiled}
		if loc != want {
			t.Errorf("Lookup(%d) = %+v, want %+v", compiled, loc, want)
		}
	}
	if _, ok := l.Lookup(4); ok {
		t.Error("Lookup(4) should miss")
	}
}

func TestParse_Includes(t *testing.T) {
	text := listingText(
		listingRow(0, 1, "", "USING Progress.Lang.*."),
		listingRow(0, 2, "", "{inc/defs.i &mode=test}"),
		listingRow(1, 1, "", "DEFINE VARIABLE cName AS CHARACTER NO-UNDO."),
		listingRow(1, 2, "", "{inc/nested.i}"),
		listingRow(2, 1, "", "DEFINE VARIABLE iCount AS INTEGER NO-UNDO."),
		listingRow(1, 3, "", "DEFINE VARIABLE lOk AS LOGICAL NO-UNDO."),
		listingRow(0, 3, "1", "CLASS MyClass:"),
		listingRow(0, 4, "2", "  METHOD PUBLIC VOID testAdd():"),
	)

	l, err := Parse(strings.NewReader(text), "src/MyClass.cls")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := map[int]Location{
		1: {File: "src/MyClass.cls", Line: 1},
		2: {File: "src/MyClass.cls", Line: 2},
		3: {File: "inc/defs.i", Line: 1},
		4: {File: "inc/defs.i", Line: 2},
		5: {File: "inc/nested.i", Line: 1},
		6: {File: "inc/defs.i", Line: 3},
		7: {File: "src/MyClass.cls", Line: 3},
		8: {File: "src/MyClass.cls", Line: 4},
	}
	if l.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", l.Len(), len(want))
	}
	for compiled, loc := range want {
		got, ok := l.Lookup(compiled)
		if !ok {
			t.Errorf("Lookup(%d) missing", compiled)
			continue
		}
		if got != loc {
			t.Errorf("Lookup(%d) = %+v, want %+v", compiled, got, loc)
		}
	}
}

func TestParse_EmptyIncludeDoesNotLeak(t *testing.T) {
	text := listingText(
		listingRow(0, 1, "", "{inc/empty.i}"),
		listingRow(0, 2, "", "DISPLAY 1."),
	)
	l, err := Parse(strings.NewReader(text), "p.p")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if loc, _ := l.Lookup(2); loc.File != "p.p" {
		t.Errorf("Lookup(2).File = %q, want p.p", loc.File)
	}
}

func TestParse_CRLF(t *testing.T) {
	text := strings.ReplaceAll(listingText(listingRow(0, 1, "", "DISPLAY 1.")), "\n", "\r\n")
	l, err := Parse(strings.NewReader(text), "p.p")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "include without reference",
			text: listingText(
				listingRow(0, 1, "", "DISPLAY 1."),
				listingRow(1, 1, "", "DISPLAY 2."),
			),
		},
		{
			name: "depth jump",
			text: listingText(
				listingRow(0, 1, "", "{inc/a.i}"),
				listingRow(2, 1, "", "DISPLAY 2."),
			),
		},
		{
			name: "preprocessor reference is not an include",
			text: listingText(
				listingRow(0, 1, "", "{&WINDOW-NAME}"),
				listingRow(1, 1, "", "DISPLAY 2."),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.text), "p.p")
			if !errors.Is(err, ErrMalformedListing) {
				t.Errorf("Parse() error = %v, want ErrMalformedListing", err)
			}
		})
	}
}

func TestIncludeRef(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{text: "{inc/defs.i}", expected: "inc/defs.i"},
		{text: "  { inc/defs.i &mode=test }", expected: "inc/defs.i"},
		{text: "{&WINDOW-NAME}", expected: ""},
		{text: "MESSAGE {1}.", expected: ""},
		{text: "DISPLAY 1.", expected: ""},
		{text: "{&x} {util.i}", expected: "util.i"},
	}
	for _, tt := range tests {
		if got := includeRef(tt.text); got != tt.expected {
			t.Errorf("includeRef(%q) = %q, want %q", tt.text, got, tt.expected)
		}
	}
}
