package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// DefaultWidth is the word-wrap width used when none is given.
const DefaultWidth = 80

// Renderer writes markdown to a terminal.
type Renderer struct {
	out io.Writer
	md  *glamour.TermRenderer
}

// NewRenderer returns a Renderer writing to out. When styled is false the
// output carries no ANSI escapes, which suits pipes and log files.
func NewRenderer(out io.Writer, styled bool, width int) (*Renderer, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	style := glamour.WithStandardStyle(styles.NoTTYStyle)
	if styled {
		style = glamour.WithAutoStyle()
	}

	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("console: creating markdown renderer: %w", err)
	}
	return &Renderer{out: out, md: md}, nil
}

// Markdown renders text. Rendering failures fall back to the raw text.
func (r *Renderer) Markdown(text string) {
	rendered, err := r.md.Render(text)
	if err != nil {
		rendered = text + "\n"
	}
	fmt.Fprint(r.out, rendered)
}

// Println writes a plain line.
func (r *Renderer) Println(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	fmt.Fprint(r.out, line)
}
