// Package render turns evaluation events into wrapped, paragraph-separated
// terminal text.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/jwebster45206/constraint/pkg/eval"
	"github.com/muesli/reflow/wordwrap"
)

// MaxWidth caps the wrap width even on wide terminals.
const MaxWidth = 72

// BulletPrefix starts every list line.
const BulletPrefix = "  - "

var titleStyle = lipgloss.NewStyle().Bold(true)

// DefaultWidth returns MaxWidth or the width of the terminal on stdout,
// whichever is smaller.
func DefaultWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return MaxWidth
	}
	return min(MaxWidth, w)
}

// Renderer writes wrapped text. A blank line separates paragraphs, but only
// once something has been written since the last one. Renderer implements
// eval.Sink.
type Renderer struct {
	w       io.Writer
	width   int
	styled  bool
	written bool
	err     error
}

// New returns a Renderer writing to w. A width of zero or less selects
// DefaultWidth.
func New(w io.Writer, width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth()
	}
	return &Renderer{w: w, width: width}
}

// WithStyle enables terminal styling of titles.
func (r *Renderer) WithStyle(styled bool) *Renderer {
	r.styled = styled
	return r
}

func (r *Renderer) Width() int {
	return r.width
}

// Err returns the first write error.
func (r *Renderer) Err() error {
	return r.err
}

func (r *Renderer) Emit(ev eval.Event) {
	switch ev.Kind {
	case eval.Heading:
		r.PrintParagraph(ev.Text)
	case eval.Line:
		r.Println(BulletPrefix + ev.Text)
	case eval.ParagraphBreak:
		r.StartParagraph()
	}
}

// Title prints a line in bold when styling is enabled.
func (r *Renderer) Title(msg string) {
	if r.styled {
		r.written = true
		r.write(titleStyle.Render(msg))
		return
	}
	r.Println(msg)
}

// Println wraps each line of msg to the renderer width. Continuation lines
// are indented to match the leading run of spaces and dashes, so bullets
// hang. Blank lines are dropped.
func (r *Renderer) Println(msg string) {
	r.written = true
	for _, raw := range strings.Split(msg, "\n") {
		for _, l := range wrap(raw, r.width) {
			r.write(l)
		}
	}
}

// StartParagraph writes a blank line if anything was printed since the
// previous paragraph started.
func (r *Renderer) StartParagraph() {
	if r.written {
		r.write("")
	}
	r.written = false
}

// PrintParagraph starts a paragraph and prints msg in it, if msg is not
// empty.
func (r *Renderer) PrintParagraph(msg string) {
	r.StartParagraph()
	if msg != "" {
		r.Println(msg)
	}
}

func (r *Renderer) write(line string) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintln(r.w, line)
}

func wrap(line string, width int) []string {
	line = strings.TrimRight(line, " \t\r")
	if strings.TrimSpace(line) == "" {
		return nil
	}

	n := indentLen(line)
	prefix, body := line[:n], line[n:]
	if body == "" {
		return []string{line}
	}

	limit := width - n
	if limit < 1 {
		limit = 1
	}
	indent := strings.Repeat(" ", n)

	var out []string
	for i, l := range strings.Split(wordwrap.String(body, limit), "\n") {
		l = strings.TrimRight(l, " ")
		if l == "" {
			continue
		}
		if i == 0 {
			out = append(out, prefix+l)
		} else {
			out = append(out, indent+strings.TrimLeft(l, " "))
		}
	}
	return out
}

func indentLen(s string) int {
	for i, c := range s {
		if c != ' ' && c != '-' {
			return i
		}
	}
	return len(s)
}

// Text renders events to a string, as a Renderer of the given width would
// print them.
func Text(events []eval.Event, width int) string {
	var sb strings.Builder
	r := New(&sb, width)
	for _, ev := range events {
		r.Emit(ev)
	}
	return sb.String()
}
