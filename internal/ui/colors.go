package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// styles uses Firefly III's brand blue for titles.
var styles = NewPalette("#1E6581", "#00A65A", "#DD4B39", "#F39C12", "#777777")

// Palette is a small stylesheet of named [lipgloss.Style] fields, one per status.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a palette from the title, success, error, warning and muted colors.
func NewPalette(title, ok, err, warn, muted string) *Palette {
	return &Palette{
		title: NewBold(title).MarginBottom(1),
		ok:    NewBold(ok),
		err:   NewBold(err),
		warn:  NewStyle(warn),
		help:  NewEm(muted),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
