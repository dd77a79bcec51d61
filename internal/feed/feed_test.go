package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/auxroom/auxroom/internal/bus"
	"github.com/auxroom/auxroom/internal/core"
	"github.com/auxroom/auxroom/internal/store"
)

func collect(o *Observer) []Event {
	var out []Event
	for {
		select {
		case e := <-o.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func playback(trackID string, playing bool, pos float64) *core.PlaybackState {
	return &core.PlaybackState{
		TrackID:    trackID,
		IsPlaying:  playing,
		Position:   pos,
		ServerTime: time.Now().UnixMilli(),
	}
}

func TestObserver_FirstSnapshotIsTrackChange(t *testing.T) {
	o := NewObserver()
	track := &core.Track{ID: "t1", Title: "opener", Artist: "band", Duration: 200}

	o.ObserveSnapshot(store.Snapshot{Kind: store.KindCurrent, Current: track})
	o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t1", true, 0)})

	events := collect(o)
	if len(events) != 1 || events[0].Type != EventTrackChange {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Track == nil || events[0].Track.Title != "opener" {
		t.Errorf("track = %+v", events[0].Track)
	}
}

func TestObserver_SkipVersusComplete(t *testing.T) {
	for _, tt := range []struct {
		name    string
		lastPos float64
		want    EventType
	}{
		{"finished naturally", 198, EventTrackComplete},
		{"skipped early", 40, EventTrackSkip},
	} {
		t.Run(tt.name, func(t *testing.T) {
			o := NewObserver()
			first := &core.Track{ID: "t1", Title: "one", Duration: 200}
			second := &core.Track{ID: "t2", Title: "two", Duration: 180}

			o.ObserveSnapshot(store.Snapshot{Kind: store.KindCurrent, Current: first})
			o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t1", true, 0)})
			collect(o)

			o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t1", true, tt.lastPos)})
			collect(o) // position-only updates may read as seeks; not under test

			o.ObserveSnapshot(store.Snapshot{Kind: store.KindCurrent, Current: second})
			o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t2", true, 0)})

			events := collect(o)
			if len(events) != 2 {
				t.Fatalf("events = %+v", events)
			}
			if events[0].Type != tt.want {
				t.Errorf("first event = %v, want %v", events[0].Type, tt.want)
			}
			if events[0].Track == nil || events[0].Track.ID != "t1" {
				t.Errorf("ended track = %+v, want t1", events[0].Track)
			}
			if events[1].Type != EventTrackChange || events[1].Track.ID != "t2" {
				t.Errorf("second event = %+v, want change to t2", events[1])
			}
		})
	}
}

func TestObserver_PauseResumeSeek(t *testing.T) {
	o := NewObserver()
	track := &core.Track{ID: "t1", Duration: 300}
	o.ObserveSnapshot(store.Snapshot{Kind: store.KindCurrent, Current: track})
	o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t1", true, 10)})
	collect(o)

	o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t1", false, 10)})
	events := collect(o)
	if len(events) != 1 || events[0].Type != EventPause {
		t.Fatalf("pause events = %+v", events)
	}

	o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t1", true, 10)})
	events = collect(o)
	if len(events) != 1 || events[0].Type != EventResume {
		t.Fatalf("resume events = %+v", events)
	}

	o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t1", true, 120)})
	events = collect(o)
	if len(events) != 1 || events[0].Type != EventSeek {
		t.Fatalf("seek events = %+v", events)
	}

	// Ordinary heartbeat progress is not a seek.
	o.ObserveSnapshot(store.Snapshot{Kind: store.KindPlayback, Playback: playback("t1", true, 121)})
	if events := collect(o); len(events) != 0 {
		t.Errorf("heartbeat produced events: %+v", events)
	}
}

func TestObserver_BusEvents(t *testing.T) {
	o := NewObserver()

	o.ObserveBus(bus.Event{Type: bus.TypeJoinRoom, UserName: "alice"})
	o.ObserveBus(bus.Event{Type: bus.TypeNewMessage, Message: &core.ChatMessage{UserName: "alice", Body: "hi"}})
	o.ObserveBus(bus.Event{Type: bus.TypeNewReaction, UserName: "bob", Reaction: "🔥"})
	// Control events must not leak into the feed.
	o.ObserveBus(bus.Event{Type: bus.TypePlay})
	o.ObserveBus(bus.Event{Type: bus.TypeSeek})

	events := collect(o)
	if len(events) != 3 {
		t.Fatalf("events = %+v", events)
	}
	want := []EventType{EventJoin, EventMessage, EventReaction}
	for i, e := range events {
		if e.Type != want[i] {
			t.Errorf("event %d = %v, want %v", i, e.Type, want[i])
		}
	}
}

func TestFormatter(t *testing.T) {
	f := NewFormatter(WithEmoji(false))
	now := time.Now()

	tests := []struct {
		e    Event
		want string
	}{
		{Event{Type: EventTrackChange, Timestamp: now, Track: &core.Track{Title: "song", Artist: "band"}}, "Now playing: band - song"},
		{Event{Type: EventPause, Timestamp: now}, "Paused"},
		{Event{Type: EventJoin, Timestamp: now, UserName: "alice"}, "alice joined"},
		{Event{Type: EventMessage, Timestamp: now, UserName: "bob", Body: "tune"}, "bob: tune"},
		{Event{Type: EventReaction, Timestamp: now, UserName: "bob", Emoji: "🔥"}, "bob reacted 🔥"},
	}
	for _, tt := range tests {
		if got := f.Format(tt.e); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.e.Type, got, tt.want)
		}
	}
}

func TestFormatter_TimestampAndTemplate(t *testing.T) {
	ts := time.Date(2026, 3, 1, 21, 30, 5, 0, time.UTC)
	e := Event{Type: EventTrackChange, Timestamp: ts, Track: &core.Track{Title: "song", Artist: "band"}}

	f := NewFormatter(WithEmoji(false), WithTimestamp(true))
	if got := f.Format(e); !strings.HasPrefix(got, "21:30:05 ") {
		t.Errorf("timestamped format = %q", got)
	}

	f = NewFormatter(WithTemplate("{{.Type}}|{{.Artist}}|{{.Title}}"))
	if got := f.Format(e); got != "track_change|band|song" {
		t.Errorf("templated format = %q", got)
	}
}
