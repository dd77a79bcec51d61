package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/auxroom/auxroom/internal/feed"
	"github.com/auxroom/auxroom/internal/tui/styles"
)

// Activity displays the room's event feed: track changes, chat, reactions,
// joins and leaves.
type Activity struct {
	theme     styles.Theme
	formatter *feed.Formatter
}

// NewActivity creates a new Activity component
func NewActivity(theme styles.Theme) *Activity {
	return &Activity{
		theme:     theme,
		formatter: feed.NewFormatter(feed.WithTimestamp(true)),
	}
}

// Render renders the activity panel. Newest events are at the bottom.
func (a *Activity) Render(events []feed.Event, width, height int, focused bool) string {
	title := a.theme.PanelTitle("Activity", focused)

	var content string
	if len(events) == 0 {
		content = a.theme.Muted.Render("Nothing yet. Press c to chat.")
	} else {
		content = a.renderEvents(events, width-4, height-4)
	}

	panel := a.theme.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (a *Activity) renderEvents(events []feed.Event, width, maxLines int) string {
	if maxLines < 1 {
		maxLines = 1
	}

	start := 0
	if len(events) > maxLines {
		start = len(events) - maxLines
	}

	lines := make([]string, 0, maxLines)
	for _, e := range events[start:] {
		line := truncate(a.formatter.Format(e), width)
		if e.Type == feed.EventMessage {
			lines = append(lines, line)
		} else {
			lines = append(lines, a.theme.Muted.Render(line))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
