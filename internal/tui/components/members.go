package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/auxroom/auxroom/internal/core"
	"github.com/auxroom/auxroom/internal/tui/styles"
)

// Members displays who is in the room.
type Members struct {
	theme    styles.Theme
	selected int
}

// NewMembers creates a new Members component
func NewMembers(theme styles.Theme) *Members {
	return &Members{theme: theme}
}

// SelectNext selects the next member
func (m *Members) SelectNext() {
	m.selected++
}

// SelectPrev selects the previous member
func (m *Members) SelectPrev() {
	if m.selected > 0 {
		m.selected--
	}
}

// Selected returns the selected member index
func (m *Members) Selected() int {
	return m.selected
}

// Render renders the members panel
func (m *Members) Render(users []core.User, selfID string, width, height int, focused bool) string {
	title := m.theme.PanelTitle("Members", focused)

	var content string
	if len(users) == 0 {
		content = m.theme.Muted.Render("Nobody here")
	} else {
		content = m.renderUsers(users, selfID, width-4, height-4, focused)
	}

	panel := m.theme.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (m *Members) renderUsers(users []core.User, selfID string, width, maxLines int, focused bool) string {
	if m.selected >= len(users) {
		m.selected = len(users) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}

	lines := make([]string, 0, len(users))

	for i, user := range users {
		selector := "  "
		if focused && i == m.selected {
			selector = "▸ "
		}

		presence := m.theme.Dim.Render("○")
		if user.IsActive {
			presence = m.theme.Playing.Render("●")
		}

		name := user.Name
		if user.ID == selfID {
			name += " (you)"
		}
		if i == m.selected && focused {
			name = m.theme.Highlight.Render(name)
		}

		role := ""
		if user.IsHost {
			role = m.theme.Host.Render(" ★")
		}

		seen := ""
		if !user.IsActive && user.LastActive > 0 {
			seen = m.theme.Dim.Render("  " + formatTimeAgo(time.UnixMilli(user.LastActive)))
		}

		line := fmt.Sprintf("%s%s %s%s%s", selector, presence, name, role, seen)
		lines = append(lines, line)

		if len(lines) >= maxLines {
			break
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatTimeAgo(t time.Time) string {
	d := time.Since(t)

	if d < time.Minute {
		return "now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return t.Format("Jan 2")
}
