package listing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	maxLineLength     = 64 * 1024
	scannerBufferSize = 256 * 1024
)

// ErrMalformedListing is returned when the include structure of a listing
// cannot be followed.
var ErrMalformedListing = errors.New("malformed debug listing")

var (
	// Listing row, fixed columns as written by COMPILE ... DEBUG-LIST:
	//
	//	{} Line  Blk
	//	 1    12   3 DEFINE VARIABLE cName AS CHARACTER NO-UNDO.
	//
	// Group 1: include depth (blank for the compiled file itself)
	// Group 2: line inside the current file
	// Group 3: block number (may be blank)
	// Group 4: source text
	rowPattern = regexp.MustCompile(`^([ \d]{2}) ([ \d]{5}) ([ \d]{3})(?: (.*))?$`)

	// Include reference inside source text: {inc/helpers.i &arg=1}
	// Preprocessor names ({&name}) and argument references ({1}) are not includes.
	includePattern = regexp.MustCompile(`\{\s*([^\s{}&][^\s{}]*)`)

	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// row is one numbered line of a listing.
type row struct {
	depth int
	line  int
	text  string
}

func parseRow(s string) (row, bool) {
	m := rowPattern.FindStringSubmatch(s)
	if m == nil {
		return row{}, false
	}
	depthField := strings.TrimSpace(m[1])
	lineField := strings.TrimSpace(m[2])
	if lineField == "" {
		return row{}, false
	}

	var r row
	if depthField != "" {
		d, err := strconv.Atoi(depthField)
		if err != nil {
			return row{}, false
		}
		r.depth = d
	}
	n, err := strconv.Atoi(lineField)
	if err != nil || n < 1 {
		return row{}, false
	}
	r.line = n
	r.text = m[4]
	return r, true
}

// includeRef returns the include file referenced by source text, if any.
func includeRef(text string) string {
	for _, m := range includePattern.FindAllStringSubmatch(text, -1) {
		if digitsPattern.MatchString(m[1]) {
			continue
		}
		return m[1]
	}
	return ""
}

// Parse reads a debug listing. Every numbered row is one compiled line,
// numbered from 1 in file order. source names the compiled file itself and
// is used for rows at include depth zero.
func Parse(r io.Reader, source string) (*Listing, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, scannerBufferSize), maxLineLength)

	l := &Listing{Source: source, Lines: make(map[int]Location)}
	files := []string{source}
	pending := "" // include referenced by the previous row
	compiled := 0

	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		r, ok := parseRow(text)
		if !ok {
			continue
		}
		compiled++

		current := len(files) - 1
		switch {
		case r.depth == current+1:
			if pending == "" {
				return nil, fmt.Errorf("%w: compiled line %d enters include depth %d without a reference", ErrMalformedListing, compiled, r.depth)
			}
			files = append(files, pending)
		case r.depth > current:
			return nil, fmt.Errorf("%w: compiled line %d jumps from include depth %d to %d", ErrMalformedListing, compiled, current, r.depth)
		case r.depth < current:
			files = files[:r.depth+1]
		}

		l.Lines[compiled] = Location{File: files[r.depth], Line: r.line}
		pending = includeRef(r.text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading debug listing: %w", err)
	}
	return l, nil
}
