package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles is the default palette for CLI output.
var Styles = NewPalette(Colors{
	Title: "#1DB954",
	OK:    "#04B575",
	Err:   "#FF0000",
	Warn:  "#FFA500",
	Help:  "#626262",
})

// Colors names the foreground color of each [Palette] role.
type Colors struct {
	Title, OK, Err, Warn, Help string
}

// Palette renders CLI output roles with [lipgloss] styles.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(c Colors) *Palette {
	return &Palette{
		title: NewBold(c.Title),
		ok:    NewBold(c.OK),
		err:   NewBold(c.Err),
		warn:  NewStyle(c.Warn),
		help:  NewEm(c.Help),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Done renders a confirmation line body: a check mark followed by msg.
func (p *Palette) Done(msg string) string { return p.OK("✓") + " " + msg }

// Level renders a status dot for a connection level followed by label.
//
// Good is green, degraded is amber and anything else red.
func (p *Palette) Level(level StatusLevel, label string) string {
	switch level {
	case StatusGood:
		return p.OK("●") + " " + label
	case StatusDegraded:
		return p.Warn("●") + " " + label
	default:
		return p.Err("●") + " " + label
	}
}

// StatusLevel grades how usable the session is.
type StatusLevel int

const (
	StatusBad StatusLevel = iota
	StatusDegraded
	StatusGood
)

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
