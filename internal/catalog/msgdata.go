package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedMsgdata is returned for msgdata text that cannot be tokenised.
var ErrMalformedMsgdata = errors.New("malformed msgdata")

const (
	maxMsgLineLength  = 256 * 1024
	msgScannerBufSize = 64 * 1024
)

// ParseMsgdata reads message records in the DLC msgdata layout:
//
//	132 "** %1 already exists with %2. (132)" "A unique index ..." "M"
//	    "continued help text"
//
// A record starts with its number in column 0 followed by quoted segments.
// Lines starting with whitespace continue the previous record. Inside a
// segment, a doubled quote stands for one quote, and a segment left open at
// the end of a line continues on the next one, joined by a newline.
func ParseMsgdata(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, msgScannerBufSize), maxMsgLineLength)

	var (
		p      msgdataParser
		lineNo int
	)
	for scanner.Scan() {
		lineNo++
		if err := p.line(strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedMsgdata, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading msgdata: %w", err)
	}
	if p.open != nil {
		return nil, fmt.Errorf("%w: line %d: unterminated segment", ErrMalformedMsgdata, p.openedAt)
	}
	p.flush()
	return p.entries, nil
}

type msgdataParser struct {
	entries []Entry
	cur     *Entry

	// open holds a segment whose closing quote has not been seen yet.
	open     *strings.Builder
	openedAt int
	lines    int
}

func (p *msgdataParser) flush() {
	if p.cur != nil {
		p.entries = append(p.entries, *p.cur)
		p.cur = nil
	}
}

func (p *msgdataParser) line(line string) error {
	p.lines++
	if p.open != nil {
		p.open.WriteByte('\n')
		return p.segments(line, 0)
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}

	rest := line
	if line[0] != ' ' && line[0] != '\t' {
		p.flush()
		numEnd := strings.IndexAny(line, " \t")
		if numEnd < 0 {
			numEnd = len(line)
		}
		code, err := strconv.Atoi(line[:numEnd])
		if err != nil {
			return fmt.Errorf("bad message number %q", line[:numEnd])
		}
		p.cur = &Entry{Code: code}
		rest = line[numEnd:]
	} else if p.cur == nil {
		return errors.New("continuation before first record")
	}
	return p.segments(rest, -1)
}

// segments consumes quoted segments from s. When i is 0 the line starts
// inside the open segment; -1 means between segments.
func (p *msgdataParser) segments(s string, i int) error {
	inside := i == 0
	if i < 0 {
		i = 0
	}
	for {
		if !inside {
			for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
				i++
			}
			if i >= len(s) {
				return nil
			}
			if s[i] != '"' {
				return fmt.Errorf("expected quote at column %d", i+1)
			}
			i++
			p.open = &strings.Builder{}
			p.openedAt = p.lines
		}
		inside = false

		closed := false
		for i < len(s) {
			c := s[i]
			if c == '"' {
				if i+1 < len(s) && s[i+1] == '"' {
					p.open.WriteByte('"')
					i += 2
					continue
				}
				i++
				closed = true
				break
			}
			p.open.WriteByte(c)
			i++
		}
		if !closed {
			return nil
		}
		p.cur.Text = append(p.cur.Text, p.open.String())
		p.open = nil
	}
}
