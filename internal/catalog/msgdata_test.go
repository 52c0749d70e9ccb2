package catalog

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseMsgdata(t *testing.T) {
	text := strings.Join([]string{
		`132 "** %1 already exists with %2. (132)" "A unique index already holds this value.\nChange the key."`,
		`    "See the ""index"" definitions."`,
		``,
		`138 "** %1 record not on file. (138)"`,
		"565 \"** Unable to run %1. (565)\" \"\"\r",
	}, "\n")

	entries, err := ParseMsgdata(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseMsgdata() error = %v", err)
	}

	want := []Entry{
		{Code: 132, Text: []string{
			"** %1 already exists with %2. (132)",
			`A unique index already holds this value.\nChange the key.`,
			`See the "index" definitions.`,
		}},
		{Code: 138, Text: []string{"** %1 record not on file. (138)"}},
		{Code: 565, Text: []string{"** Unable to run %1. (565)", ""}},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("ParseMsgdata() =\n%#v\nwant\n%#v", entries, want)
	}

	c := New(entries)
	e, ok := c.Lookup(132)
	if !ok {
		t.Fatal("Lookup(132) missing")
	}
	help := e.Help()
	if len(help) != 2 || help[0] != "A unique index already holds this value.\n\nChange the key." {
		t.Errorf("Help() = %q", help)
	}
}

func TestParseMsgdata_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "bad number", text: `x12 "text"`},
		{name: "continuation first", text: `  "orphan"`},
		{name: "unterminated", text: `12 "open`},
		{name: "unquoted segment", text: `12 bare`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMsgdata(strings.NewReader(tt.text)); !errors.Is(err, ErrMalformedMsgdata) {
				t.Errorf("ParseMsgdata() error = %v, want ErrMalformedMsgdata", err)
			}
		})
	}
}

func TestParseMsgdata_MultiLineSegment(t *testing.T) {
	text := strings.Join([]string{
		`132 "** %1 already exists with %2. (132)" "A unique index already`,
		`holds this value.`,
		``,
		`Change the key." "M"`,
		`138 "** %1 record not on file. (138)"`,
	}, "\n")

	entries, err := ParseMsgdata(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseMsgdata() error = %v", err)
	}
	want := []Entry{
		{Code: 132, Text: []string{
			"** %1 already exists with %2. (132)",
			"A unique index already\nholds this value.\n\nChange the key.",
			"M",
		}},
		{Code: 138, Text: []string{"** %1 record not on file. (138)"}},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("ParseMsgdata() =\n%#v\nwant\n%#v", entries, want)
	}
}

func TestParseMsgdata_UnterminatedReportsOpeningLine(t *testing.T) {
	text := "12 \"closed\"\n13 \"open\nstill open\n"
	_, err := ParseMsgdata(strings.NewReader(text))
	if !errors.Is(err, ErrMalformedMsgdata) {
		t.Fatalf("ParseMsgdata() error = %v, want ErrMalformedMsgdata", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error = %q, want the line the segment opened on", err)
	}
}
