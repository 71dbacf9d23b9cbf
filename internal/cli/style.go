package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Title lipgloss.Color
	Cited lipgloss.Color
	Error lipgloss.Color
	Hint  lipgloss.Color
}

var defaultTheme = Theme{
	Title: lipgloss.Color("#5FAFD7"), // light blue
	Cited: lipgloss.Color("#00D787"), // green
	Error: lipgloss.Color("#FF005F"), // red
	Hint:  lipgloss.Color("#6C6C6C"), // dim gray
}

// printer writes styled text to a terminal and plain text elsewhere.
type printer struct {
	w      io.Writer
	styled bool
	theme  Theme
}

func newPrinter(w io.Writer) *printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &printer{w: w, styled: styled, theme: defaultTheme}
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) title(format string, args ...any) {
	style := lipgloss.NewStyle().Foreground(p.theme.Title).Bold(true)
	fmt.Fprintln(p.w, p.render(style, fmt.Sprintf(format, args...)))
}

func (p *printer) cited(format string, args ...any) {
	style := lipgloss.NewStyle().Foreground(p.theme.Cited)
	fmt.Fprintln(p.w, p.render(style, fmt.Sprintf(format, args...)))
}

func (p *printer) errorf(format string, args ...any) {
	style := lipgloss.NewStyle().Foreground(p.theme.Error).Bold(true)
	fmt.Fprintln(p.w, p.render(style, fmt.Sprintf(format, args...)))
}

func (p *printer) hint(format string, args ...any) {
	style := lipgloss.NewStyle().Foreground(p.theme.Hint).Italic(true)
	fmt.Fprintln(p.w, p.render(style, fmt.Sprintf(format, args...)))
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// block prints text indented under a heading, wrapped to the terminal width.
func (p *printer) block(text string) {
	width := 0
	if f, ok := p.w.(*os.File); ok && p.styled {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 8 {
			width = w - 4
		}
	}
	style := lipgloss.NewStyle().PaddingLeft(2)
	if width > 0 {
		style = style.Width(width)
	}
	if !p.styled {
		fmt.Fprintln(p.w, "  "+text)
		return
	}
	fmt.Fprintln(p.w, style.Render(text))
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
