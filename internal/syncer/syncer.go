// Package syncer keeps a room's playback engines in agreement. The host is
// authoritative: it publishes its playback state to the persistent store
// (full snapshots, refreshed on a heartbeat) and to the ephemeral bus
// (instant but lossy). Listeners never publish playback; they correct their
// local engine toward the host's projected position and otherwise leave it
// alone, so small drift never causes audible seeking.
package syncer

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/auxroom/auxroom/internal/bus"
	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	"github.com/auxroom/auxroom/internal/player"
	"github.com/auxroom/auxroom/internal/store"
)

var log = logging.Logger("syncer")

// stateContent is what makes two published states "the same state". Position
// is included only while paused: a playing track's position advances on its
// own, so heartbeats of an undisturbed playing track hash identically and
// are recognized as refreshes rather than changes.
type stateContent struct {
	TrackID        string
	IsPlaying      bool
	PausedPosition float64
}

// Coordinator synchronizes one participant's engine with the room.
type Coordinator struct {
	store  store.Store
	bus    bus.Bus
	engine *player.Engine
	roomID string
	selfID string
	isHost func() bool

	drift        time.Duration
	heartbeat    time.Duration
	seekThrottle time.Duration
	clock        func() time.Time

	// publishing is the in-flight publish guard: a publish attempted while
	// another is running is dropped, not queued. The dropped state is not
	// lost; the next heartbeat carries it.
	publishing atomic.Bool
	// applying is set while a remote correction drives the engine, so
	// change callbacks from that correction are never mistaken for input.
	applying atomic.Bool

	mu          sync.Mutex
	lastHash    uint64
	lastSeekPub time.Time
	curTrack    *core.Track
}

// Options configures a Coordinator.
type Options struct {
	Store        store.Store
	Bus          bus.Bus
	Engine       *player.Engine
	RoomID       string
	SelfID       string
	IsHost       func() bool
	Drift        time.Duration
	Heartbeat    time.Duration
	SeekThrottle time.Duration
}

// New creates a coordinator for one room session.
func New(opts Options) *Coordinator {
	return &Coordinator{
		store:        opts.Store,
		bus:          opts.Bus,
		engine:       opts.Engine,
		roomID:       opts.RoomID,
		selfID:       opts.SelfID,
		isHost:       opts.IsHost,
		drift:        opts.Drift,
		heartbeat:    opts.Heartbeat,
		seekThrottle: opts.SeekThrottle,
		clock:        time.Now,
	}
}

// Play starts playback and publishes the new state. Host only.
func (c *Coordinator) Play(ctx context.Context) error {
	if !c.isHost() {
		return auxerrors.ErrPermissionDenied
	}
	if err := c.engine.Play(); err != nil {
		return err
	}
	return c.publish(ctx, bus.TypePlay)
}

// Pause halts playback and publishes the new state. Host only.
func (c *Coordinator) Pause(ctx context.Context) error {
	if !c.isHost() {
		return auxerrors.ErrPermissionDenied
	}
	if err := c.engine.Pause(); err != nil {
		return err
	}
	return c.publish(ctx, bus.TypePause)
}

// Seek moves playback and publishes the new position. Rapid seeks, as from
// a held-down key, apply locally every time but publish at most once per
// throttle window; the heartbeat reconciles whatever the throttle dropped.
func (c *Coordinator) Seek(ctx context.Context, pos float64) error {
	if !c.isHost() {
		return auxerrors.ErrPermissionDenied
	}
	if err := c.engine.Seek(pos); err != nil {
		return err
	}

	now := c.clock()
	c.mu.Lock()
	throttled := c.seekThrottle > 0 && now.Sub(c.lastSeekPub) < c.seekThrottle
	if !throttled {
		c.lastSeekPub = now
	}
	c.mu.Unlock()
	if throttled {
		log.Debugw("seek publish throttled", "room", c.roomID, "pos", pos)
		return nil
	}
	return c.publish(ctx, bus.TypeSeek)
}

// SelectTrack makes the track current for the room and starts it from the
// beginning. Selecting the track that is already current is a no-op, so a
// replayed change never restarts playback. Host only. This is the single
// path by which queue navigation reaches playback.
func (c *Coordinator) SelectTrack(ctx context.Context, track core.Track) error {
	if !c.isHost() {
		return auxerrors.ErrPermissionDenied
	}
	if cur := c.engine.Track(); cur != nil && cur.ID == track.ID {
		log.Debugw("track already current, ignoring", "room", c.roomID, "track", track.ID)
		return nil
	}
	if err := c.engine.Load(ctx, track); err != nil {
		return err
	}
	if err := c.engine.Seek(0); err != nil {
		return err
	}
	if err := c.engine.Play(); err != nil {
		return err
	}

	if err := c.store.SetCurrentTrack(ctx, c.roomID, &track); err != nil {
		return auxerrors.WriteFailure("set current track", err)
	}
	c.mu.Lock()
	c.curTrack = &track
	c.mu.Unlock()

	c.announce(ctx, bus.Event{
		Type:    bus.TypeTrackChanged,
		RoomID:  c.roomID,
		UserID:  c.selfID,
		TrackID: track.ID,
	})
	return c.publish(ctx, bus.TypePlaybackStateChanged)
}

// PublishState writes the engine's current state to both transports. It is
// the heartbeat body and the response to a listener's sync request.
func (c *Coordinator) PublishState(ctx context.Context) error {
	if !c.isHost() {
		return auxerrors.ErrPermissionDenied
	}
	return c.publish(ctx, bus.TypePlaybackStateChanged)
}

// RequestSync asks the host for an immediate state publish. Listeners call
// it on join instead of waiting out a heartbeat interval.
func (c *Coordinator) RequestSync(ctx context.Context) error {
	return c.bus.Publish(ctx, bus.Event{
		Type:   bus.TypeSyncRequest,
		RoomID: c.roomID,
		UserID: c.selfID,
	})
}

// publish snapshots the engine and writes it out. The store write always
// happens even for content-identical states, because it restamps
// ServerTime, which is what keeps listener projections honest. The bus
// event is only sent when the content actually changed. The transports are
// independent: a failed store write does not suppress the bus announce,
// and its error is reported only after the announce has gone out.
func (c *Coordinator) publish(ctx context.Context, evtType bus.Type) error {
	if !c.publishing.CompareAndSwap(false, true) {
		log.Debugw("publish already in flight, dropping", "room", c.roomID, "type", evtType)
		return nil
	}
	defer c.publishing.Store(false)

	now := c.clock()
	st := c.engine.Snapshot(now)

	var storeErr error
	if err := c.store.SetPlaybackState(ctx, c.roomID, &st); err != nil {
		log.Warnw("playback state write failed", "room", c.roomID, "err", err)
		storeErr = auxerrors.WriteFailure("publish playback state", err)
	}

	content := stateContent{TrackID: st.TrackID, IsPlaying: st.IsPlaying}
	if !st.IsPlaying {
		content.PausedPosition = st.Position
	}
	hash, err := hashstructure.Hash(content, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	changed := hash != c.lastHash
	c.lastHash = hash
	c.mu.Unlock()

	if !changed && evtType == bus.TypePlaybackStateChanged {
		log.Debugw("state unchanged, heartbeat only", "room", c.roomID, "track", st.TrackID)
		return storeErr
	}

	c.announce(ctx, bus.Event{
		Type:      evtType,
		RoomID:    c.roomID,
		UserID:    c.selfID,
		TrackID:   st.TrackID,
		Position:  st.Position,
		IsPlaying: st.IsPlaying,
		Timestamp: st.ServerTime,
		State:     &st,
	})
	return storeErr
}

// HandleSnapshot feeds a store snapshot into the coordinator. Hosts ignore
// playback snapshots entirely, including echoes of their own writes.
func (c *Coordinator) HandleSnapshot(ctx context.Context, snap store.Snapshot) {
	switch snap.Kind {
	case store.KindCurrent:
		c.mu.Lock()
		c.curTrack = snap.Current
		c.mu.Unlock()
		if !c.isHost() && snap.Current != nil {
			if err := c.engine.Load(ctx, *snap.Current); err != nil {
				log.Warnw("loading current track", "room", c.roomID, "track", snap.Current.ID, "err", err)
			}
		}
	case store.KindPlayback:
		if c.isHost() || snap.Playback == nil {
			return
		}
		c.correct(ctx, *snap.Playback)
	}
}

// HandleEvent feeds a bus event into the coordinator. Events for other
// rooms and echoes of our own events are dropped.
func (c *Coordinator) HandleEvent(ctx context.Context, evt bus.Event) {
	if evt.RoomID != c.roomID || evt.UserID == c.selfID {
		return
	}
	switch evt.Type {
	case bus.TypeSyncRequest:
		if c.isHost() {
			if err := c.PublishState(ctx); err != nil {
				log.Warnw("answering sync request", "room", c.roomID, "err", err)
			}
		}
	case bus.TypePlay, bus.TypePause, bus.TypeSeek, bus.TypeSyncPlayback, bus.TypePlaybackStateChanged:
		if c.isHost() {
			return
		}
		if evt.State != nil {
			c.correct(ctx, *evt.State)
			return
		}
		c.correct(ctx, core.PlaybackState{
			TrackID:    evt.TrackID,
			IsPlaying:  evt.IsPlaying,
			Position:   evt.Position,
			ServerTime: evt.Timestamp,
		})
	case bus.TypeTrackChanged:
		if c.isHost() {
			return
		}
		// The track body travels through the store; nothing to apply yet.
	}
}

// correct moves the local engine toward the host state. A force seek only
// happens when local position has drifted past the threshold; inside it,
// only a play/pause mismatch is fixed, without touching position.
func (c *Coordinator) correct(ctx context.Context, st core.PlaybackState) {
	if !c.applying.CompareAndSwap(false, true) {
		return
	}
	defer c.applying.Store(false)

	now := c.clock()
	track := c.trackFor(ctx, st.TrackID)

	local := c.engine.Track()
	trackChanged := st.TrackID != "" && (local == nil || local.ID != st.TrackID)
	if trackChanged {
		if track == nil {
			log.Debugw("host track unknown yet, waiting for store", "room", c.roomID, "track", st.TrackID)
			return
		}
		if err := c.engine.ApplyRemote(ctx, track, st, now); err != nil {
			log.Warnw("applying host track", "room", c.roomID, "track", st.TrackID, "err", err)
		}
		return
	}
	if !st.HasTrack() {
		return
	}

	projected := st.Projected(now)
	delta := math.Abs(c.engine.Position() - projected)
	if delta > c.drift.Seconds() {
		log.Debugw("drift beyond threshold, seeking", "room", c.roomID, "delta", delta)
		if err := c.engine.ApplyRemote(ctx, nil, st, now); err != nil {
			log.Warnw("drift correction", "room", c.roomID, "err", err)
		}
		return
	}

	playing := c.engine.Status() == player.StatusPlaying
	if st.IsPlaying && !playing {
		if err := c.engine.Play(); err != nil {
			log.Warnw("resuming to match host", "room", c.roomID, "err", err)
		}
	} else if !st.IsPlaying && playing {
		if err := c.engine.Pause(); err != nil {
			log.Warnw("pausing to match host", "room", c.roomID, "err", err)
		}
	}
}

func (c *Coordinator) trackFor(ctx context.Context, trackID string) *core.Track {
	if trackID == "" {
		return nil
	}
	c.mu.Lock()
	cached := c.curTrack
	c.mu.Unlock()
	if cached != nil && cached.ID == trackID {
		return cached
	}
	track, err := c.store.CurrentTrack(ctx, c.roomID)
	if err != nil || track == nil || track.ID != trackID {
		return nil
	}
	c.mu.Lock()
	c.curTrack = track
	c.mu.Unlock()
	return track
}

// RunHeartbeat republishes host state on the heartbeat interval until ctx
// is done. Listeners running it publish nothing.
func (c *Coordinator) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.isHost() {
				continue
			}
			if err := c.publish(ctx, bus.TypePlaybackStateChanged); err != nil {
				log.Warnw("heartbeat publish failed", "room", c.roomID, "err", err)
			}
		}
	}
}

func (c *Coordinator) announce(ctx context.Context, evt bus.Event) {
	if err := c.bus.Publish(ctx, evt); err != nil {
		log.Debugw("announce failed", "room", c.roomID, "type", evt.Type, "err", err)
	}
}
