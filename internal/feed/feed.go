// Package feed turns raw room updates into a stream of human-readable
// activity events: track changes, pauses, joins, chat, reactions. It powers
// the 'listen' command and the TUI activity pane.
package feed

import (
	"math"
	"sync"
	"time"

	"github.com/auxroom/auxroom/internal/bus"
	"github.com/auxroom/auxroom/internal/core"
	"github.com/auxroom/auxroom/internal/store"
)

// EventType represents the type of room event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventTrackComplete
	EventTrackSkip
	EventPause
	EventResume
	EventSeek
	EventJoin
	EventLeave
	EventMessage
	EventReaction
	EventHostChange
)

// seekJump is how far the projected position must jump, beyond normal
// playback progress, before a snapshot diff is reported as a seek.
const seekJump = 3.0

// Event represents one observed room activity.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Track     *core.Track
	Previous  *core.PlaybackState
	Current   *core.PlaybackState
	UserName  string
	Body      string
	Emoji     string
}

// Observer diffs store snapshots and translates bus events into feed
// events. Playback activity is derived from store snapshots only, so bus
// control events never show up twice.
type Observer struct {
	mu        sync.Mutex
	prev      *core.PlaybackState
	prevTrack *core.Track
	curTrack  *core.Track
	events    chan Event
}

// NewObserver creates an observer. Events are dropped when the channel
// backs up; the feed is presentation, not protocol.
func NewObserver() *Observer {
	return &Observer{events: make(chan Event, 64)}
}

// Events returns the channel of observed room events.
func (o *Observer) Events() <-chan Event {
	return o.events
}

// ObserveSnapshot feeds a store snapshot into the observer.
func (o *Observer) ObserveSnapshot(snap store.Snapshot) {
	switch snap.Kind {
	case store.KindCurrent:
		o.mu.Lock()
		o.curTrack = snap.Current
		o.mu.Unlock()
	case store.KindPlayback:
		if snap.Playback == nil {
			return
		}
		o.mu.Lock()
		prev, prevTrack := o.prev, o.prevTrack
		curr := *snap.Playback
		o.prev = &curr
		o.prevTrack = o.curTrack
		cur := o.curTrack
		o.mu.Unlock()

		for _, e := range diffStates(prev, &curr, prevTrack, cur) {
			o.emit(e)
		}
	}
}

// ObserveBus feeds a bus event into the observer. Playback control events
// are ignored here; their effect arrives through the store.
func (o *Observer) ObserveBus(evt bus.Event) {
	now := time.Now()
	switch evt.Type {
	case bus.TypeJoinRoom:
		o.emit(Event{Type: EventJoin, Timestamp: now, UserName: evt.UserName})
	case bus.TypeLeaveRoom:
		o.emit(Event{Type: EventLeave, Timestamp: now, UserName: evt.UserName})
	case bus.TypeNewMessage:
		if evt.Message != nil {
			o.emit(Event{
				Type:      EventMessage,
				Timestamp: now,
				UserName:  evt.Message.UserName,
				Body:      evt.Message.Body,
			})
		}
	case bus.TypeNewReaction:
		o.emit(Event{Type: EventReaction, Timestamp: now, UserName: evt.UserName, Emoji: evt.Reaction})
	case bus.TypeMessageReaction:
		if evt.MessageReaction != nil {
			o.emit(Event{
				Type:      EventReaction,
				Timestamp: now,
				UserName:  evt.MessageReaction.UserName,
				Emoji:     evt.MessageReaction.Emoji,
			})
		}
	case bus.TypeHostTransferred:
		o.emit(Event{Type: EventHostChange, Timestamp: now, UserName: evt.NewHostID, Body: evt.NewHostID})
	}
}

func (o *Observer) emit(e Event) {
	select {
	case o.events <- e:
	default:
	}
}

// diffStates compares two playback states and returns detected events.
func diffStates(prev, curr *core.PlaybackState, prevTrack, currTrack *core.Track) []Event {
	if curr == nil {
		return nil
	}

	now := time.Now()
	var events []Event

	// First snapshot.
	if prev == nil {
		if curr.HasTrack() {
			events = append(events, Event{
				Type:      EventTrackChange,
				Timestamp: now,
				Current:   curr,
				Track:     currTrack,
			})
		}
		return events
	}

	if prev.TrackID != curr.TrackID {
		eventType := EventTrackChange
		if prev.HasTrack() && wasCompleted(prev, prevTrack) {
			eventType = EventTrackComplete
		} else if prev.HasTrack() {
			eventType = EventTrackSkip
		}
		events = append(events, Event{
			Type:      eventType,
			Timestamp: now,
			Previous:  prev,
			Current:   curr,
			Track:     pickTrack(eventType, prevTrack, currTrack),
		})
		if eventType != EventTrackChange && curr.HasTrack() {
			events = append(events, Event{
				Type:      EventTrackChange,
				Timestamp: now,
				Current:   curr,
				Track:     currTrack,
			})
		}
		return events
	}

	if prev.IsPlaying && !curr.IsPlaying {
		events = append(events, Event{Type: EventPause, Timestamp: now, Previous: prev, Current: curr, Track: currTrack})
	} else if !prev.IsPlaying && curr.IsPlaying {
		events = append(events, Event{Type: EventResume, Timestamp: now, Previous: prev, Current: curr, Track: currTrack})
	} else if math.Abs(curr.Projected(now)-prev.Projected(now)) > seekJump {
		events = append(events, Event{Type: EventSeek, Timestamp: now, Previous: prev, Current: curr, Track: currTrack})
	}

	return events
}

func pickTrack(t EventType, prevTrack, currTrack *core.Track) *core.Track {
	if t == EventTrackComplete || t == EventTrackSkip {
		return prevTrack
	}
	return currTrack
}

// wasCompleted returns true if the track likely finished naturally:
// position within 5% of the end.
func wasCompleted(state *core.PlaybackState, track *core.Track) bool {
	if track == nil || track.Duration == 0 {
		return false
	}
	return state.Position >= track.Duration*0.95
}
