package listing

// Location is a position in original source: the file as named in the
// listing (the artifact source for top-level rows, the include reference
// otherwise) and a one-based line inside it.
type Location struct {
	File string `json:"file" msgpack:"f"`
	Line int    `json:"line" msgpack:"l"`
}

// Listing maps compiled line numbers (one-based) of a single artifact to the
// original source location. A missing key means the compiled line has no
// better location than itself.
type Listing struct {
	Source string           `json:"source" msgpack:"s"`
	Lines  map[int]Location `json:"lines" msgpack:"m"`
}

// Lookup returns the source location for a compiled line.
func (l *Listing) Lookup(compiledLine int) (Location, bool) {
	if l == nil {
		return Location{}, false
	}
	loc, ok := l.Lines[compiledLine]
	return loc, ok
}

// Len returns the number of mapped compiled lines.
func (l *Listing) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Lines)
}
