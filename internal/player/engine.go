// Package player implements the local playback engine. It models a single
// track's lifecycle and position; it knows nothing about rooms, queues, or
// other participants. Playback never advances to another track on its own:
// when a track ends the engine stops and reports it through OnEnded.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("player")

// Status is the engine lifecycle state.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Loader opens a track's audio source. Implementations resolve the stream
// and prepare it for playback; the engine only cares whether that worked.
type Loader func(ctx context.Context, track core.Track) error

// Engine tracks a single loaded source and its playback position. Position
// is anchored, not ticked: while playing it is the anchor position plus wall
// time elapsed since the anchor, so reads are cheap and drift-free.
type Engine struct {
	mu       sync.Mutex
	status   Status
	track    *core.Track
	anchor   float64   // position at anchorAt
	anchorAt time.Time // valid while playing

	loader   Loader
	clock    func() time.Time
	endTimer *time.Timer

	onEnded  func(track core.Track)
	onChange func(local bool)
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine creates an empty engine. The loader may be nil, in which case
// every load succeeds immediately (useful for listeners that mirror state
// without opening sources themselves).
func NewEngine(loader Loader, opts ...Option) *Engine {
	e := &Engine{loader: loader, clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnEnded registers the callback fired once when a playing track reaches its
// duration. It runs outside the engine lock.
func (e *Engine) OnEnded(fn func(track core.Track)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnded = fn
}

// OnChange registers the callback fired after every state transition. The
// local flag is true for transitions caused by Load/Play/Pause/Seek and
// false for ApplyRemote corrections.
func (e *Engine) OnChange(fn func(local bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Load prepares a track for playback. Loading the track that is already
// loaded is a no-op unless the previous load failed; callers may re-send
// the current track freely without restarting it.
func (e *Engine) Load(ctx context.Context, track core.Track) error {
	e.mu.Lock()
	if e.track != nil && e.track.ID == track.ID && e.status != StatusFailed {
		e.mu.Unlock()
		return nil
	}
	e.stopEndTimerLocked()
	t := track
	e.track = &t
	e.status = StatusLoading
	e.anchor = 0
	loader := e.loader
	e.mu.Unlock()

	if loader != nil {
		if err := loader(ctx, track); err != nil {
			e.mu.Lock()
			e.status = StatusFailed
			e.mu.Unlock()
			e.fireChange(true)
			return fmt.Errorf("load %q: %w: %v", track.Title, auxerrors.ErrSourceLoad, err)
		}
	}

	e.mu.Lock()
	e.status = StatusPaused
	e.anchor = 0
	e.mu.Unlock()
	e.fireChange(true)
	log.Debugw("loaded track", "track", track.ID, "title", track.Title)
	return nil
}

// Play starts or resumes playback. Playing an ended track restarts it from
// the beginning.
func (e *Engine) Play() error {
	return e.play(true)
}

func (e *Engine) play(local bool) error {
	e.mu.Lock()
	switch e.status {
	case StatusPlaying:
		e.mu.Unlock()
		return nil
	case StatusPaused:
	case StatusEnded:
		e.anchor = 0
	default:
		status := e.status
		e.mu.Unlock()
		return fmt.Errorf("cannot play while %s", status)
	}
	e.status = StatusPlaying
	e.anchorAt = e.clock()
	e.armEndTimerLocked()
	e.mu.Unlock()
	e.fireChange(local)
	return nil
}

// Pause halts playback, folding elapsed time into the position anchor.
func (e *Engine) Pause() error {
	return e.pause(true)
}

func (e *Engine) pause(local bool) error {
	e.mu.Lock()
	switch e.status {
	case StatusPaused, StatusEnded:
		e.mu.Unlock()
		return nil
	case StatusPlaying:
	default:
		status := e.status
		e.mu.Unlock()
		return fmt.Errorf("cannot pause while %s", status)
	}
	e.anchor = e.positionLocked()
	e.status = StatusPaused
	e.stopEndTimerLocked()
	e.mu.Unlock()
	e.fireChange(local)
	return nil
}

// Seek moves the position within the loaded track. Positions beyond the
// track duration are clamped to it; negative positions are rejected.
func (e *Engine) Seek(pos float64) error {
	return e.seek(pos, true)
}

func (e *Engine) seek(pos float64, local bool) error {
	if pos < 0 || pos != pos { // reject negatives and NaN
		return fmt.Errorf("seek to %v: %w", pos, auxerrors.ErrBadPosition)
	}
	e.mu.Lock()
	switch e.status {
	case StatusPlaying, StatusPaused, StatusEnded:
	default:
		status := e.status
		e.mu.Unlock()
		return fmt.Errorf("cannot seek while %s", status)
	}
	if d := e.durationLocked(); d > 0 && pos > d {
		pos = d
	}
	e.anchor = pos
	if e.status == StatusPlaying {
		e.anchorAt = e.clock()
		e.armEndTimerLocked()
	} else if e.status == StatusEnded {
		e.status = StatusPaused
	}
	e.mu.Unlock()
	e.fireChange(local)
	return nil
}

// ApplyRemote forces the engine to match an authoritative playback state.
// Transitions fire OnChange with local=false so the caller's publish path
// can tell its own echoes from genuine local input.
func (e *Engine) ApplyRemote(ctx context.Context, track *core.Track, state core.PlaybackState, now time.Time) error {
	if track != nil {
		if err := e.Load(ctx, *track); err != nil {
			return err
		}
	}
	if err := e.seek(state.Projected(now), false); err != nil {
		return err
	}
	if state.IsPlaying {
		return e.play(false)
	}
	return e.pause(false)
}

// Status returns the current lifecycle state, accounting for tracks that
// ran past their duration since the last transition.
func (e *Engine) Status() Status {
	e.mu.Lock()
	ended := e.checkEndedLocked()
	s := e.status
	e.mu.Unlock()
	if ended != nil {
		e.fireEnded(*ended)
	}
	return s
}

// Position returns the current playback position in seconds.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	ended := e.checkEndedLocked()
	pos := e.positionLocked()
	e.mu.Unlock()
	if ended != nil {
		e.fireEnded(*ended)
	}
	return pos
}

// Track returns a copy of the loaded track, or nil when empty.
func (e *Engine) Track() *core.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.track == nil {
		return nil
	}
	t := *e.track
	return &t
}

// Snapshot reports the engine as a playback state stamped at now.
func (e *Engine) Snapshot(now time.Time) core.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := core.PlaybackState{
		IsPlaying:  e.status == StatusPlaying,
		Position:   e.positionLocked(),
		ServerTime: now.UnixMilli(),
	}
	if e.track != nil {
		st.TrackID = e.track.ID
	}
	return st
}

// Stop unloads the current track and returns the engine to empty.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopEndTimerLocked()
	e.track = nil
	e.status = StatusEmpty
	e.anchor = 0
	e.mu.Unlock()
	e.fireChange(true)
}

func (e *Engine) positionLocked() float64 {
	pos := e.anchor
	if e.status == StatusPlaying {
		pos += e.clock().Sub(e.anchorAt).Seconds()
	}
	if d := e.durationLocked(); d > 0 && pos > d {
		pos = d
	}
	return pos
}

func (e *Engine) durationLocked() float64 {
	if e.track == nil {
		return 0
	}
	return e.track.Duration
}

// checkEndedLocked flips a playing track that ran out to Ended and returns
// the track to report, or nil. The end timer handles the common case; this
// covers reads between the deadline and the timer firing.
func (e *Engine) checkEndedLocked() *core.Track {
	if e.status != StatusPlaying || e.track == nil || e.track.Duration <= 0 {
		return nil
	}
	elapsed := e.anchor + e.clock().Sub(e.anchorAt).Seconds()
	if elapsed < e.track.Duration {
		return nil
	}
	e.anchor = e.track.Duration
	e.status = StatusEnded
	e.stopEndTimerLocked()
	t := *e.track
	return &t
}

func (e *Engine) armEndTimerLocked() {
	e.stopEndTimerLocked()
	if e.track == nil || e.track.Duration <= 0 {
		return
	}
	remaining := e.track.Duration - e.anchor
	if remaining < 0 {
		remaining = 0
	}
	e.endTimer = time.AfterFunc(time.Duration(remaining*float64(time.Second)), e.onEndDeadline)
}

func (e *Engine) stopEndTimerLocked() {
	if e.endTimer != nil {
		e.endTimer.Stop()
		e.endTimer = nil
	}
}

func (e *Engine) onEndDeadline() {
	e.mu.Lock()
	ended := e.checkEndedLocked()
	e.mu.Unlock()
	if ended != nil {
		e.fireEnded(*ended)
	}
}

func (e *Engine) fireEnded(track core.Track) {
	e.mu.Lock()
	fn := e.onEnded
	e.mu.Unlock()
	log.Debugw("track ended", "track", track.ID)
	if fn != nil {
		fn(track)
	}
	e.fireChange(true)
}

func (e *Engine) fireChange(local bool) {
	e.mu.Lock()
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil {
		fn(local)
	}
}
