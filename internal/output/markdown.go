package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/handleui/ablunit/internal/diagnostic"
)

// DefaultOpenCommand is the editor command invoked by stack trace links.
const DefaultOpenCommand = "_ablunit.openStackTrace"

const (
	firstFrameMarker = "--> "
	frameIndent      = "&nbsp;&nbsp;&nbsp; "
)

// MarkdownOpts configures Markdown.
type MarkdownOpts struct {
	// Command is the command link target for resolved frames.
	Command string
}

// Markdown writes d in the editor hover/test-message format: HTML line breaks
// between frames and a command link on every resolved frame. The link
// argument is the URL-encoded JSON string "<file>&<line>".
func Markdown(w io.Writer, d *diagnostic.Diagnostic, opts MarkdownOpts) error {
	command := opts.Command
	if command == "" {
		command = DefaultOpenCommand
	}

	var b strings.Builder
	b.WriteString(d.Message)
	for _, h := range d.Help {
		b.WriteString("\n\n")
		b.WriteString(h)
	}
	b.WriteString("\n\n**" + diagnostic.CallStackHeading + "**\n\n")

	for _, f := range d.Frames {
		b.WriteString("<code>")
		if f.First {
			b.WriteString(firstFrameMarker)
		} else {
			b.WriteString(frameIndent)
		}
		b.WriteString(f.Label())
		if f.Source != nil {
			arg, err := linkArgument(f.Source)
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, " ([%s:%d](command:%s?%s))", f.Source.File, f.Source.Line, command, arg)
		}
		b.WriteString("</code><br>\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func linkArgument(ref *diagnostic.SourceRef) (string, error) {
	target := ref.File
	if ref.Path != "" {
		target = (&url.URL{Scheme: "file", Path: filepath.ToSlash(ref.Path)}).String()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fmt.Sprintf("%s&%d", target, ref.Line)); err != nil {
		return "", fmt.Errorf("encoding link: %w", err)
	}
	return encodeURIComponent(strings.TrimSuffix(buf.String(), "\n")), nil
}

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ),
// the set editor command links are decoded with.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
