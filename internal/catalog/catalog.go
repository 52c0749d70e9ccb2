package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Trailing message number, as OpenEdge appends it: "... not available. (132)"
var codePattern = regexp.MustCompile(`\((\d+)\)\s*$`)

// Entry is one message in the catalog. Text[0] is the short message; the
// remaining segments are extended help.
type Entry struct {
	Code int      `json:"msgnum"`
	Text []string `json:"msgtext"`
}

// Short returns the first text segment.
func (e Entry) Short() string {
	if len(e.Text) == 0 {
		return ""
	}
	return e.Text[0]
}

// Help returns the extended help segments with literal \n escapes turned
// into paragraph breaks.
func (e Entry) Help() []string {
	if len(e.Text) < 2 {
		return nil
	}
	help := make([]string, 0, len(e.Text)-1)
	for _, seg := range e.Text[1:] {
		help = append(help, strings.ReplaceAll(seg, `\n`, "\n\n"))
	}
	return help
}

// Catalog maps message numbers to entries. A nil *Catalog behaves as empty.
type Catalog struct {
	entries map[int]Entry
}

// New builds a catalog. Later entries with the same code replace earlier ones.
func New(entries []Entry) *Catalog {
	c := &Catalog{entries: make(map[int]Entry, len(entries))}
	for _, e := range entries {
		c.entries[e.Code] = e
	}
	return c
}

// Lookup returns the entry for code.
func (c *Catalog) Lookup(code int) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	e, ok := c.entries[code]
	return e, ok
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns all entries ordered by code.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ExtractCode returns the message number at the end of a failure message.
// Messages without one are common and are not an error.
func ExtractCode(message string) (int, bool) {
	m := codePattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
