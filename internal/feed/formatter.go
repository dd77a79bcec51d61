package feed

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Formatter formats events for output.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
	template      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// WithTemplate sets a custom format template.
func WithTemplate(tmpl string) FormatterOption {
	return func(f *Formatter) {
		if tmpl != "" {
			t, err := template.New("format").Parse(tmpl)
			if err == nil {
				f.template = t
			}
		}
	}
}

// NewFormatter creates a new formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{
		showEmoji:     true,
		showTimestamp: false,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a string.
func (f *Formatter) Format(e Event) string {
	if f.template != nil {
		return f.formatTemplate(e)
	}
	return f.formatLine(e)
}

func (f *Formatter) formatLine(e Event) string {
	var parts []string

	if f.showTimestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Type))
	}
	parts = append(parts, f.eventDescription(e))

	return strings.Join(parts, " ")
}

func (f *Formatter) formatTemplate(e Event) string {
	data := templateData{
		Type:      eventTypeName(e.Type),
		Emoji:     eventEmoji(e.Type),
		Timestamp: e.Timestamp,
		Time:      e.Timestamp.Format("15:04:05"),
		User:      e.UserName,
		Body:      e.Body,
	}
	if e.Track != nil {
		data.Title = e.Track.Title
		data.Artist = e.Track.Artist
		data.Album = e.Track.Album
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return f.formatLine(e)
	}
	return buf.String()
}

type templateData struct {
	Type      string
	Emoji     string
	Timestamp time.Time
	Time      string
	Title     string
	Artist    string
	Album     string
	User      string
	Body      string
}

// eventDescription returns a human-readable description of the event.
func (f *Formatter) eventDescription(e Event) string {
	trackLabel := func() string {
		if e.Track != nil && e.Track.Title != "" {
			if e.Track.Artist != "" {
				return fmt.Sprintf("%s - %s", e.Track.Artist, e.Track.Title)
			}
			return e.Track.Title
		}
		return ""
	}

	switch e.Type {
	case EventTrackChange:
		if label := trackLabel(); label != "" {
			return "Now playing: " + label
		}
		return "Track changed"

	case EventTrackComplete:
		if label := trackLabel(); label != "" {
			return "Finished: " + label
		}
		return "Track completed"

	case EventTrackSkip:
		if label := trackLabel(); label != "" {
			return "Skipped: " + label
		}
		return "Track skipped"

	case EventPause:
		return "Paused"

	case EventResume:
		return "Resumed"

	case EventSeek:
		if e.Current != nil {
			return "Seeked to " + formatPosition(e.Current.Projected(e.Timestamp))
		}
		return "Seeked"

	case EventJoin:
		return e.UserName + " joined"

	case EventLeave:
		return e.UserName + " left"

	case EventMessage:
		return fmt.Sprintf("%s: %s", e.UserName, e.Body)

	case EventReaction:
		return fmt.Sprintf("%s reacted %s", e.UserName, e.Emoji)

	case EventHostChange:
		return e.Body + " is now the host"

	default:
		return "Unknown event"
	}
}

func formatPosition(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// eventEmoji returns an emoji for the event type.
func eventEmoji(t EventType) string {
	switch t {
	case EventTrackChange:
		return "🎵"
	case EventTrackComplete:
		return "✅"
	case EventTrackSkip:
		return "⏭️"
	case EventPause:
		return "⏸️"
	case EventResume:
		return "▶️"
	case EventSeek:
		return "⏩"
	case EventJoin:
		return "👋"
	case EventLeave:
		return "🚪"
	case EventMessage:
		return "💬"
	case EventReaction:
		return "✨"
	case EventHostChange:
		return "🎙️"
	default:
		return "❓"
	}
}

// eventTypeName returns the name of the event type.
func eventTypeName(t EventType) string {
	switch t {
	case EventTrackChange:
		return "track_change"
	case EventTrackComplete:
		return "track_complete"
	case EventTrackSkip:
		return "track_skip"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventSeek:
		return "seek"
	case EventJoin:
		return "join"
	case EventLeave:
		return "leave"
	case EventMessage:
		return "message"
	case EventReaction:
		return "reaction"
	case EventHostChange:
		return "host_change"
	default:
		return "unknown"
	}
}
