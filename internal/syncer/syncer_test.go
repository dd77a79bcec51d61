package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/auxroom/auxroom/internal/bus"
	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	"github.com/auxroom/auxroom/internal/player"
	"github.com/auxroom/auxroom/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	store  *store.MemoryStore
	bus    *bus.MemoryBus
	clock  *fakeClock
	engine *player.Engine
	coord  *Coordinator
	host   bool
	events <-chan bus.Event
}

func newHarness(t *testing.T, selfID string, host bool) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		store: store.NewMemory(),
		bus:   bus.NewMemory(),
		clock: &fakeClock{t: time.Unix(50000, 0)},
		host:  host,
	}
	if err := h.store.CreateRoom(ctx, store.Meta{ID: "r1", CreatedBy: "u1"}); err != nil {
		t.Fatal(err)
	}
	h.engine = player.NewEngine(nil, player.WithClock(h.clock.Now))
	h.coord = New(Options{
		Store:        h.store,
		Bus:          h.bus,
		Engine:       h.engine,
		RoomID:       "r1",
		SelfID:       selfID,
		IsHost:       func() bool { return h.host },
		Drift:        1500 * time.Millisecond,
		Heartbeat:    3 * time.Second,
		SeekThrottle: 250 * time.Millisecond,
	})
	h.coord.clock = h.clock.Now

	ch, cancel, err := h.bus.Subscribe(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cancel)
	h.events = ch
	return h
}

func (h *harness) drainEvents() []bus.Event {
	var out []bus.Event
	for {
		select {
		case evt := <-h.events:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func loadPlaying(t *testing.T, h *harness, track core.Track, pos float64) {
	t.Helper()
	ctx := context.Background()
	if err := h.engine.Load(ctx, track); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Seek(pos); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Play(); err != nil {
		t.Fatal(err)
	}
}

func TestCoordinator_HostPublishWritesBothTransports(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u1", true)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 0)
	h.drainEvents()

	if err := h.coord.PublishState(ctx); err != nil {
		t.Fatal(err)
	}

	st, err := h.store.PlaybackState(ctx, "r1")
	if err != nil || st == nil {
		t.Fatalf("store state = %v, %v", st, err)
	}
	if st.TrackID != "t1" || !st.IsPlaying || st.ServerTime != h.clock.Now().UnixMilli() {
		t.Errorf("store state = %+v", st)
	}

	evts := h.drainEvents()
	if len(evts) != 1 || evts[0].Type != bus.TypePlaybackStateChanged || evts[0].State == nil {
		t.Errorf("bus events = %+v", evts)
	}
}

func TestCoordinator_RedundantPublishRefreshesServerTimeOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u1", true)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 0)
	h.drainEvents()

	h.coord.PublishState(ctx)
	first, _ := h.store.PlaybackState(ctx, "r1")
	h.drainEvents()

	// Same track still playing 3s later: a heartbeat, not a change.
	h.clock.Advance(3 * time.Second)
	h.coord.PublishState(ctx)

	second, _ := h.store.PlaybackState(ctx, "r1")
	if second.ServerTime <= first.ServerTime {
		t.Errorf("ServerTime not refreshed: %d then %d", first.ServerTime, second.ServerTime)
	}
	if evts := h.drainEvents(); len(evts) != 0 {
		t.Errorf("redundant publish emitted bus events: %+v", evts)
	}

	// Pausing is a real change again.
	h.coord.Pause(ctx)
	if evts := h.drainEvents(); len(evts) != 1 || evts[0].Type != bus.TypePause {
		t.Errorf("pause events = %+v", evts)
	}
}

func TestCoordinator_ListenerCannotControl(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u2", false)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 0)

	if err := h.coord.Play(ctx); !errors.Is(err, auxerrors.ErrPermissionDenied) {
		t.Errorf("Play err = %v", err)
	}
	if err := h.coord.Pause(ctx); !errors.Is(err, auxerrors.ErrPermissionDenied) {
		t.Errorf("Pause err = %v", err)
	}
	if err := h.coord.Seek(ctx, 10); !errors.Is(err, auxerrors.ErrPermissionDenied) {
		t.Errorf("Seek err = %v", err)
	}
	if err := h.coord.PublishState(ctx); !errors.Is(err, auxerrors.ErrPermissionDenied) {
		t.Errorf("PublishState err = %v", err)
	}
}

func TestCoordinator_DriftWithinThresholdDoesNotSeek(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u2", false)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 10)

	host := core.PlaybackState{
		TrackID:    "t1",
		IsPlaying:  true,
		Position:   10.8,
		ServerTime: h.clock.Now().UnixMilli(),
	}
	h.coord.HandleSnapshot(ctx, store.Snapshot{Kind: store.KindPlayback, Playback: &host})

	if pos := h.engine.Position(); pos != 10 {
		t.Errorf("position = %v, want 10 untouched (0.8s drift is tolerable)", pos)
	}
}

func TestCoordinator_DriftBeyondThresholdForcesSeek(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u2", false)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 10)

	// Host is at 20, stamped 2s ago while playing: projected 22.
	host := core.PlaybackState{
		TrackID:    "t1",
		IsPlaying:  true,
		Position:   20,
		ServerTime: h.clock.Now().Add(-2 * time.Second).UnixMilli(),
	}
	h.coord.HandleSnapshot(ctx, store.Snapshot{Kind: store.KindPlayback, Playback: &host})

	if pos := h.engine.Position(); pos != 22 {
		t.Errorf("position = %v, want forced to projected 22", pos)
	}
	if h.engine.Status() != player.StatusPlaying {
		t.Errorf("status = %v", h.engine.Status())
	}
}

func TestCoordinator_PauseMismatchCorrectedWithoutSeek(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u2", false)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 10)

	host := core.PlaybackState{
		TrackID:    "t1",
		IsPlaying:  false,
		Position:   10.4,
		ServerTime: h.clock.Now().UnixMilli(),
	}
	h.coord.HandleSnapshot(ctx, store.Snapshot{Kind: store.KindPlayback, Playback: &host})

	if h.engine.Status() != player.StatusPaused {
		t.Errorf("status = %v, want paused to match host", h.engine.Status())
	}
	if pos := h.engine.Position(); pos != 10 {
		t.Errorf("position = %v, pause correction must not seek", pos)
	}
}

func TestCoordinator_HostIgnoresPlaybackSnapshots(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u1", true)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 10)

	stale := core.PlaybackState{
		TrackID:    "t1",
		IsPlaying:  false,
		Position:   99,
		ServerTime: h.clock.Now().UnixMilli(),
	}
	h.coord.HandleSnapshot(ctx, store.Snapshot{Kind: store.KindPlayback, Playback: &stale})

	if h.engine.Status() != player.StatusPlaying || h.engine.Position() != 10 {
		t.Errorf("host engine disturbed by store echo: %v at %v",
			h.engine.Status(), h.engine.Position())
	}
}

func TestCoordinator_TrackChangeThroughStore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u2", false)

	track := core.Track{ID: "t1", Title: "opener", Duration: 300}
	h.coord.HandleSnapshot(ctx, store.Snapshot{Kind: store.KindCurrent, Current: &track})

	if got := h.engine.Track(); got == nil || got.ID != "t1" {
		t.Fatalf("engine track = %v", got)
	}

	host := core.PlaybackState{
		TrackID:    "t1",
		IsPlaying:  true,
		Position:   5,
		ServerTime: h.clock.Now().UnixMilli(),
	}
	h.coord.HandleSnapshot(ctx, store.Snapshot{Kind: store.KindPlayback, Playback: &host})

	if h.engine.Status() != player.StatusPlaying || h.engine.Position() != 5 {
		t.Errorf("engine = %v at %v", h.engine.Status(), h.engine.Position())
	}
}

func TestCoordinator_PlaybackForUnknownTrackFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u2", false)

	track := core.Track{ID: "t1", Duration: 300}
	h.store.SetCurrentTrack(ctx, "r1", &track)

	host := core.PlaybackState{
		TrackID:    "t1",
		IsPlaying:  true,
		Position:   5,
		ServerTime: h.clock.Now().UnixMilli(),
	}
	h.coord.HandleSnapshot(ctx, store.Snapshot{Kind: store.KindPlayback, Playback: &host})

	if got := h.engine.Track(); got == nil || got.ID != "t1" {
		t.Errorf("engine track = %v, want fetched from store", got)
	}
}

func TestCoordinator_IgnoresOwnAndForeignEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u2", false)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 10)

	state := &core.PlaybackState{
		TrackID: "t1", IsPlaying: true, Position: 99,
		ServerTime: h.clock.Now().UnixMilli(),
	}

	// Echo of our own event.
	h.coord.HandleEvent(ctx, bus.Event{
		Type: bus.TypeSeek, RoomID: "r1", UserID: "u2", State: state,
	})
	// Event for another room.
	h.coord.HandleEvent(ctx, bus.Event{
		Type: bus.TypeSeek, RoomID: "other", UserID: "u1", State: state,
	})

	if pos := h.engine.Position(); pos != 10 {
		t.Errorf("position = %v, want untouched", pos)
	}

	// A genuine host event does apply.
	h.coord.HandleEvent(ctx, bus.Event{
		Type: bus.TypeSeek, RoomID: "r1", UserID: "u1", State: state,
	})
	if pos := h.engine.Position(); pos != 99 {
		t.Errorf("position = %v, want 99", pos)
	}
}

func TestCoordinator_HostAnswersSyncRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u1", true)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 30)

	h.coord.HandleEvent(ctx, bus.Event{
		Type: bus.TypeSyncRequest, RoomID: "r1", UserID: "u2",
	})

	st, _ := h.store.PlaybackState(ctx, "r1")
	if st == nil || st.TrackID != "t1" || st.Position != 30 {
		t.Errorf("state after sync request = %+v", st)
	}
}

func TestCoordinator_SeekThrottle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u1", true)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 0)
	h.drainEvents()

	h.coord.Seek(ctx, 10)
	h.coord.Seek(ctx, 20)
	h.coord.Seek(ctx, 30)

	// Every seek lands locally.
	if pos := h.engine.Position(); pos != 30 {
		t.Errorf("position = %v", pos)
	}
	// Only the first publishes within the throttle window.
	seeks := 0
	for _, evt := range h.drainEvents() {
		if evt.Type == bus.TypeSeek {
			seeks++
		}
	}
	if seeks != 1 {
		t.Errorf("seek events = %d, want 1", seeks)
	}

	// Past the window the next seek publishes again.
	h.clock.Advance(300 * time.Millisecond)
	h.coord.Seek(ctx, 40)
	seeks = 0
	for _, evt := range h.drainEvents() {
		if evt.Type == bus.TypeSeek {
			seeks++
		}
	}
	if seeks != 1 {
		t.Errorf("seek events after window = %d, want 1", seeks)
	}
}

// unwritableStore refuses playback state writes, as a store does during a
// redis outage. Everything else passes through.
type unwritableStore struct {
	*store.MemoryStore
}

func (s *unwritableStore) SetPlaybackState(ctx context.Context, roomID string, st *core.PlaybackState) error {
	return errors.New("dial tcp: connection refused")
}

func TestCoordinator_StoreOutageDoesNotSilenceBus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u1", true)
	loadPlaying(t, h, core.Track{ID: "t1", Duration: 300}, 0)
	h.drainEvents()

	h.coord.store = &unwritableStore{MemoryStore: h.store}

	err := h.coord.PublishState(ctx)
	if !errors.Is(err, auxerrors.ErrWriteFailed) {
		t.Errorf("err = %v, want ErrWriteFailed", err)
	}

	// The bus is the independent second channel; it must still carry the
	// state even though the store write failed.
	evts := h.drainEvents()
	if len(evts) != 1 || evts[0].Type != bus.TypePlaybackStateChanged || evts[0].State == nil {
		t.Errorf("bus events during store outage = %+v, want one state announce", evts)
	}
}

func TestCoordinator_SelectTrackRepeatIsNoOp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u1", true)

	track := core.Track{ID: "t1", Title: "opener", Duration: 300}
	if err := h.coord.SelectTrack(ctx, track); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(10 * time.Second)
	h.drainEvents()

	if err := h.coord.SelectTrack(ctx, track); err != nil {
		t.Fatal(err)
	}

	if pos := h.engine.Position(); pos != 10 {
		t.Errorf("position = %v, want 10 (reselecting the current track must not restart it)", pos)
	}
	if evts := h.drainEvents(); len(evts) != 0 {
		t.Errorf("reselect emitted events: %+v", evts)
	}
}

func TestCoordinator_SelectTrackPublishesTrackAndState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "u1", true)
	h.drainEvents()

	track := core.Track{ID: "t1", Title: "opener", Duration: 300}
	if err := h.coord.SelectTrack(ctx, track); err != nil {
		t.Fatal(err)
	}

	cur, _ := h.store.CurrentTrack(ctx, "r1")
	if cur == nil || cur.ID != "t1" {
		t.Errorf("current track = %v", cur)
	}
	st, _ := h.store.PlaybackState(ctx, "r1")
	if st == nil || !st.IsPlaying || st.Position != 0 {
		t.Errorf("state = %+v", st)
	}

	types := map[bus.Type]bool{}
	for _, evt := range h.drainEvents() {
		types[evt.Type] = true
	}
	if !types[bus.TypeTrackChanged] || !types[bus.TypePlaybackStateChanged] {
		t.Errorf("event types = %v", types)
	}
}
