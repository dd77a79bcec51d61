// Package session ties one user's room membership together: the playback
// engine, the sync coordinator, the queue, presence, and chat, all bound to
// both transports for the lifetime of the session.
package session

import (
	"context"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/auxroom/auxroom/internal/bus"
	"github.com/auxroom/auxroom/internal/chat"
	"github.com/auxroom/auxroom/internal/config"
	"github.com/auxroom/auxroom/internal/core"
	"github.com/auxroom/auxroom/internal/player"
	"github.com/auxroom/auxroom/internal/queue"
	"github.com/auxroom/auxroom/internal/room"
	"github.com/auxroom/auxroom/internal/store"
	"github.com/auxroom/auxroom/internal/syncer"
)

var log = logging.Logger("session")

// Options carries the dependencies a session is built from.
type Options struct {
	Config *config.Config
	Store  store.Store
	Bus    bus.Bus
	Self   core.User     // stable identity: ID and display name
	Loader player.Loader // may be nil
	// OnUpdate is invoked after any room state changes, from watch and bus
	// goroutines. UIs hang their refresh on it.
	OnUpdate func()
}

// Session is one user's live connection to one room.
type Session struct {
	opts   Options
	roomID string

	Engine *player.Engine
	Sync   *syncer.Coordinator
	Queue  *queue.Manager
	Rooms  *room.Service
	Chat   *chat.Service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	users    map[string]core.User
	queueSn  []core.Track
	messages []core.ChatMessage
	counts   map[string]int64
	current  *core.Track
}

// Create makes a new room and joins it as host.
func Create(ctx context.Context, opts Options, roomName string) (*Session, error) {
	rooms := room.NewService(opts.Store, opts.Bus,
		opts.Config.PresenceRefresh(), opts.Config.PresenceTimeout())
	meta, err := rooms.Create(ctx, roomName, opts.Self.ID, opts.Self.Name)
	if err != nil {
		return nil, err
	}
	return Join(ctx, opts, meta.ID)
}

// Join connects to an existing room. The caller owns the returned session
// and must Close it.
func Join(ctx context.Context, opts Options, roomID string) (*Session, error) {
	s := &Session{
		opts:   opts,
		roomID: roomID,
		users:  make(map[string]core.User),
		counts: make(map[string]int64),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.Rooms = room.NewService(opts.Store, opts.Bus,
		opts.Config.PresenceRefresh(), opts.Config.PresenceTimeout())
	s.Chat = chat.NewService(opts.Store, opts.Bus)
	s.Engine = player.NewEngine(opts.Loader)
	s.Sync = syncer.New(syncer.Options{
		Store:        opts.Store,
		Bus:          opts.Bus,
		Engine:       s.Engine,
		RoomID:       roomID,
		SelfID:       opts.Self.ID,
		IsHost:       s.IsHost,
		Drift:        opts.Config.DriftThreshold(),
		Heartbeat:    opts.Config.Heartbeat(),
		SeekThrottle: opts.Config.SeekThrottle(),
	})
	s.Queue = queue.NewManager(opts.Store, roomID, s.IsHost, s.Sync.SelectTrack)

	self, err := s.Rooms.Join(ctx, roomID, opts.Self.ID, opts.Self.Name)
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.mu.Lock()
	s.users[self.ID] = self
	s.mu.Unlock()

	// When a track runs out the host reports the stopped state; nothing
	// advances the queue automatically.
	s.Engine.OnEnded(func(track core.Track) {
		if !s.IsHost() {
			return
		}
		if err := s.Sync.PublishState(s.ctx); err != nil {
			log.Warnw("publishing ended state", "room", roomID, "err", err)
		}
		s.notify()
	})

	cancelWatch, err := opts.Store.Watch(ctx, roomID, s.handleSnapshot)
	if err != nil {
		s.cancel()
		return nil, err
	}
	events, cancelEvents, err := opts.Bus.Subscribe(ctx, roomID)
	if err != nil {
		cancelWatch()
		s.cancel()
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancelWatch()
		defer cancelEvents()
		for {
			select {
			case <-s.ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				s.handleEvent(evt)
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Rooms.RunPresence(s.ctx, roomID, opts.Self.ID)
	}()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Sync.RunHeartbeat(s.ctx)
	}()

	if !self.IsHost {
		if err := s.Sync.RequestSync(ctx); err != nil {
			log.Debugw("sync request failed", "room", roomID, "err", err)
		}
	}

	log.Infow("session started", "room", roomID, "user", opts.Self.ID, "host", self.IsHost)
	return s, nil
}

func (s *Session) handleSnapshot(snap store.Snapshot) {
	s.mu.Lock()
	switch snap.Kind {
	case store.KindUsers:
		if snap.Users != nil {
			s.users = snap.Users
		}
	case store.KindQueue:
		if snap.Queue != nil {
			s.queueSn = snap.Queue.Tracks
		}
	case store.KindMessages:
		s.messages = snap.Messages
	case store.KindReactions:
		if snap.Reactions != nil {
			s.counts = snap.Reactions
		}
	case store.KindCurrent:
		s.current = snap.Current
	}
	s.mu.Unlock()

	s.Sync.HandleSnapshot(s.ctx, snap)
	s.notify()
}

func (s *Session) handleEvent(evt bus.Event) {
	s.Sync.HandleEvent(s.ctx, evt)

	switch evt.Type {
	case bus.TypeNewMessage:
		if evt.Message != nil {
			s.mu.Lock()
			s.messages = append(s.messages, *evt.Message)
			s.mu.Unlock()
		}
	case bus.TypeNewReaction:
		if evt.Reaction != "" {
			s.mu.Lock()
			s.counts[evt.Reaction]++
			s.mu.Unlock()
		}
	}
	s.notify()
}

func (s *Session) notify() {
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate()
	}
}

// RoomID returns the joined room's id.
func (s *Session) RoomID() string { return s.roomID }

// Self returns this session's identity.
func (s *Session) Self() core.User { return s.opts.Self }

// IsHost reports whether this user currently holds the host role. The role
// is re-read from the store at call time; the watch-fed membership snapshot
// is only the fallback when the store is unreachable.
func (s *Session) IsHost() bool {
	if u, err := s.opts.Store.User(s.ctx, s.roomID, s.opts.Self.ID); err == nil && u != nil {
		return u.IsHost
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[s.opts.Self.ID].IsHost
}

// Users returns the latest membership snapshot.
func (s *Session) Users() map[string]core.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]core.User, len(s.users))
	for id, u := range s.users {
		out[id] = u
	}
	return out
}

// QueueTracks returns the latest queue snapshot in order.
func (s *Session) QueueTracks() []core.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Track, len(s.queueSn))
	copy(out, s.queueSn)
	return out
}

// Messages returns the chat messages seen so far, oldest first.
func (s *Session) Messages() []core.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// ReactionCounts returns the room-wide reaction counters.
func (s *Session) ReactionCounts() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// CurrentTrack returns the room's current track, or nil.
func (s *Session) CurrentTrack() *core.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	t := *s.current
	return &t
}

// Say posts a chat message as this user.
func (s *Session) Say(ctx context.Context, body string) error {
	_, err := s.Chat.Send(ctx, s.roomID, s.opts.Self, body)
	return err
}

// React bumps a room reaction as this user.
func (s *Session) React(ctx context.Context, emoji string) error {
	_, err := s.Chat.React(ctx, s.roomID, s.opts.Self, emoji)
	return err
}

// TransferHost hands the host role to another member.
func (s *Session) TransferHost(ctx context.Context, targetID string) error {
	return s.Rooms.TransferHost(ctx, s.roomID, s.opts.Self.ID, targetID)
}

// Leave marks this user inactive in the room and shuts the session down.
func (s *Session) Leave(ctx context.Context) error {
	err := s.Rooms.Leave(ctx, s.roomID, s.opts.Self.ID)
	s.Close()
	return err
}

// Close stops all background work. It does not announce a leave; use Leave
// for a graceful exit.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
	s.Engine.Stop()
}
