package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/auxroom/auxroom/internal/core"
	"github.com/auxroom/auxroom/internal/tui/styles"
)

// NowPlaying displays the room's current track and projected position.
type NowPlaying struct {
	theme styles.Theme
}

// NewNowPlaying creates a new NowPlaying component
func NewNowPlaying(theme styles.Theme) *NowPlaying {
	return &NowPlaying{theme: theme}
}

// Render renders the now playing panel
func (n *NowPlaying) Render(track *core.Track, state *core.PlaybackState, hostName string, reactions map[string]int64, width, height int, focused bool) string {
	title := n.theme.PanelTitle("Now Playing", focused)

	var content string
	if track == nil {
		content = n.theme.Muted.Render("Nothing playing. Add a track to the queue.")
	} else {
		content = n.renderTrack(track, state, hostName, reactions, width-4)
	}

	panel := n.theme.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (n *NowPlaying) renderTrack(track *core.Track, state *core.PlaybackState, hostName string, reactions map[string]int64, width int) string {
	playing := state != nil && state.IsPlaying

	icon := n.theme.StatusIcon(playing)
	titleStyle := n.theme.Title.Width(width - 4)
	title := titleStyle.Render(track.Title)

	artist := n.theme.Subtitle.Render(track.Artist)
	album := n.theme.Dim.Render(track.Album)

	position := state.Projected(time.Now())
	if track.Duration > 0 && position > track.Duration {
		position = track.Duration
	}

	progressWidth := width - 14 // Account for times on either side
	if progressWidth < 10 {
		progressWidth = 10
	}
	percent := 0.0
	if track.Duration > 0 {
		percent = position / track.Duration * 100
	}
	progress := fmt.Sprintf("%s %s %s",
		formatSeconds(position),
		n.theme.ProgressBar(percent, progressWidth),
		formatSeconds(track.Duration))

	source := fmt.Sprintf("%s %s", styles.ProvenanceIcon(string(track.Provenance)), track.SourceURL)
	hostInfo := ""
	if hostName != "" {
		hostInfo = n.theme.Muted.Render("🎙️ hosted by " + hostName)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		icon+" "+title,
		"  "+artist,
		"  "+album,
		"",
		progress,
		"",
		n.theme.Dim.Render(truncate(source, width-2)),
		hostInfo,
		n.renderReactions(reactions, width),
	)
}

// renderReactions shows the room-wide reaction counters, busiest first.
func (n *NowPlaying) renderReactions(reactions map[string]int64, width int) string {
	if len(reactions) == 0 {
		return ""
	}

	type pair struct {
		emoji string
		count int64
	}
	pairs := make([]pair, 0, len(reactions))
	for e, c := range reactions {
		pairs = append(pairs, pair{e, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].emoji < pairs[j].emoji
	})

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s %d", p.emoji, p.count))
	}
	return n.theme.Muted.Render(truncate(strings.Join(parts, "  "), width-2))
}

func formatSeconds(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
