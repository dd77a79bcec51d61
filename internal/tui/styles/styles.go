package styles

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the resolved styles for one catppuccin flavor.
type Theme struct {
	// Text styles
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Label     lipgloss.Style
	Highlight lipgloss.Style
	Muted     lipgloss.Style
	Dim       lipgloss.Style
	Playing   lipgloss.Style
	Paused    lipgloss.Style
	Alert     lipgloss.Style
	Host      lipgloss.Style

	// Border styles
	BorderStyle   lipgloss.Style
	FocusedBorder lipgloss.Style

	accent lipgloss.Color
	border lipgloss.Color
}

// palette is the subset of a catppuccin flavor the theme draws from.
type palette struct {
	accent, border, text, muted, dim, green, yellow, red, peach string
}

// New builds a theme from a catppuccin flavor name. Unknown names fall back
// to mocha.
func New(flavorName string) Theme {
	var p palette
	switch flavorName {
	case "latte":
		f := catppuccin.Latte
		p = palette{f.Mauve().Hex, f.Surface1().Hex, f.Text().Hex, f.Subtext0().Hex, f.Overlay0().Hex, f.Green().Hex, f.Yellow().Hex, f.Red().Hex, f.Peach().Hex}
	case "frappe":
		f := catppuccin.Frappe
		p = palette{f.Mauve().Hex, f.Surface1().Hex, f.Text().Hex, f.Subtext0().Hex, f.Overlay0().Hex, f.Green().Hex, f.Yellow().Hex, f.Red().Hex, f.Peach().Hex}
	case "macchiato":
		f := catppuccin.Macchiato
		p = palette{f.Mauve().Hex, f.Surface1().Hex, f.Text().Hex, f.Subtext0().Hex, f.Overlay0().Hex, f.Green().Hex, f.Yellow().Hex, f.Red().Hex, f.Peach().Hex}
	default:
		f := catppuccin.Mocha
		p = palette{f.Mauve().Hex, f.Surface1().Hex, f.Text().Hex, f.Subtext0().Hex, f.Overlay0().Hex, f.Green().Hex, f.Yellow().Hex, f.Red().Hex, f.Peach().Hex}
	}

	accent := lipgloss.Color(p.accent)
	border := lipgloss.Color(p.border)
	text := lipgloss.Color(p.text)
	muted := lipgloss.Color(p.muted)
	dim := lipgloss.Color(p.dim)

	return Theme{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(text),
		Subtitle:  lipgloss.NewStyle().Foreground(muted),
		Label:     lipgloss.NewStyle().Foreground(dim),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Muted:     lipgloss.NewStyle().Foreground(muted),
		Dim:       lipgloss.NewStyle().Foreground(dim),
		Playing:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.green)),
		Paused:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.yellow)),
		Alert:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.red)),
		Host:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.peach)),

		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border),
		FocusedBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent),

		accent: accent,
		border: border,
	}
}

// Panel creates a styled panel with optional focus
func (t Theme) Panel(focused bool) lipgloss.Style {
	if focused {
		return t.FocusedBorder.Padding(0, 1)
	}
	return t.BorderStyle.Padding(0, 1)
}

// PanelTitle creates a styled panel title
func (t Theme) PanelTitle(title string, focused bool) string {
	style := t.Label
	if focused {
		style = t.Highlight
	}
	return style.Render(" " + title + " ")
}

// ProgressBar creates a progress bar string
func (t Theme) ProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	filledStyle := lipgloss.NewStyle().Foreground(t.accent)
	emptyStyle := lipgloss.NewStyle().Foreground(t.border)

	return filledStyle.Render(Repeat("━", filled)) +
		emptyStyle.Render(Repeat("─", width-filled))
}

// StatusIcon returns an icon for playback status
func (t Theme) StatusIcon(playing bool) string {
	if playing {
		return t.Playing.Render("▶")
	}
	return t.Paused.Render("⏸")
}

// ProvenanceIcon returns an icon for a track's source catalog.
func ProvenanceIcon(p string) string {
	switch p {
	case "spotify":
		return "🟢"
	case "youtube":
		return "📺"
	default:
		return "🎧"
	}
}

// Repeat repeats a string n times
func Repeat(s string, n int) string {
	result := ""
	for i := 0; i < n; i++ {
		result += s
	}
	return result
}
