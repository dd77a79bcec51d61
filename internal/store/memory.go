package store

import (
	"context"
	"sync"

	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
)

// MemoryStore is an in-process Store with the same push-on-write snapshot
// behavior as the Redis backend. It backs tests and single-machine rooms.
type MemoryStore struct {
	mu sync.Mutex

	metas     map[string]Meta
	playback  map[string]*core.PlaybackState
	current   map[string]*core.Track
	queues    map[string]*core.Queue
	users     map[string]map[string]core.User
	messages  map[string][]core.ChatMessage
	reactions map[string]map[string]int64
	msgReacts map[string][]core.MessageReaction

	watchers map[string]map[int]WatchFunc
	nextID   int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		metas:     make(map[string]Meta),
		playback:  make(map[string]*core.PlaybackState),
		current:   make(map[string]*core.Track),
		queues:    make(map[string]*core.Queue),
		users:     make(map[string]map[string]core.User),
		messages:  make(map[string][]core.ChatMessage),
		reactions: make(map[string]map[string]int64),
		msgReacts: make(map[string][]core.MessageReaction),
		watchers:  make(map[string]map[int]WatchFunc),
	}
}

// notifyLocked snapshots the subtree and delivers it to every watcher of the
// room. Callers hold s.mu; delivery happens after the copy is taken so the
// callback sees a consistent snapshot but runs without the lock.
func (s *MemoryStore) notifyLocked(roomID string, kind Kind) {
	snap := s.snapshotLocked(roomID, kind)
	fns := make([]WatchFunc, 0, len(s.watchers[roomID]))
	for _, fn := range s.watchers[roomID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
	s.mu.Lock()
}

func (s *MemoryStore) snapshotLocked(roomID string, kind Kind) Snapshot {
	snap := Snapshot{Kind: kind}
	switch kind {
	case KindPlayback:
		if st := s.playback[roomID]; st != nil {
			c := *st
			snap.Playback = &c
		}
	case KindQueue:
		q := core.Queue{}
		if cur := s.queues[roomID]; cur != nil {
			q.Tracks = append(q.Tracks, cur.Tracks...)
		}
		snap.Queue = &q
	case KindUsers:
		users := make(map[string]core.User, len(s.users[roomID]))
		for id, u := range s.users[roomID] {
			users[id] = u
		}
		snap.Users = users
	case KindCurrent:
		if t := s.current[roomID]; t != nil {
			c := *t
			snap.Current = &c
		}
	case KindMessages:
		snap.Messages = append(snap.Messages, s.messages[roomID]...)
	case KindReactions:
		counts := make(map[string]int64, len(s.reactions[roomID]))
		for k, v := range s.reactions[roomID] {
			counts[k] = v
		}
		snap.Reactions = counts
	}
	return snap
}

func (s *MemoryStore) CreateRoom(ctx context.Context, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[meta.ID] = meta
	s.queues[meta.ID] = &core.Queue{}
	return nil
}

func (s *MemoryStore) RoomExists(ctx context.Context, roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.metas[roomID]
	return ok, nil
}

func (s *MemoryStore) RoomMeta(ctx context.Context, roomID string) (*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metas[roomID]
	if !ok {
		return nil, auxerrors.ErrRoomNotFound
	}
	return &meta, nil
}

func (s *MemoryStore) PlaybackState(ctx context.Context, roomID string) (*core.PlaybackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.playback[roomID]
	if st == nil {
		return nil, nil
	}
	c := *st
	return &c, nil
}

func (s *MemoryStore) SetPlaybackState(ctx context.Context, roomID string, st *core.PlaybackState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *st
	s.playback[roomID] = &c
	s.notifyLocked(roomID, KindPlayback)
	return nil
}

func (s *MemoryStore) CurrentTrack(ctx context.Context, roomID string) (*core.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.current[roomID]
	if t == nil {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *MemoryStore) SetCurrentTrack(ctx context.Context, roomID string, t *core.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil {
		s.current[roomID] = nil
	} else {
		c := *t
		s.current[roomID] = &c
	}
	s.notifyLocked(roomID, KindCurrent)
	return nil
}

func (s *MemoryStore) Queue(ctx context.Context, roomID string) (*core.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := core.Queue{}
	if cur := s.queues[roomID]; cur != nil {
		q.Tracks = append(q.Tracks, cur.Tracks...)
	}
	return &q, nil
}

func (s *MemoryStore) AppendTrack(ctx context.Context, roomID string, t core.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[roomID]
	if q == nil {
		q = &core.Queue{}
		s.queues[roomID] = q
	}
	q.Tracks = append(q.Tracks, t)
	s.notifyLocked(roomID, KindQueue)
	return nil
}

func (s *MemoryStore) RemoveTrack(ctx context.Context, roomID, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q := s.queues[roomID]; q != nil {
		next := q.Without(trackID)
		s.queues[roomID] = &next
	}
	s.notifyLocked(roomID, KindQueue)
	return nil
}

func (s *MemoryStore) Users(ctx context.Context, roomID string) (map[string]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make(map[string]core.User, len(s.users[roomID]))
	for id, u := range s.users[roomID] {
		users[id] = u
	}
	return users, nil
}

func (s *MemoryStore) User(ctx context.Context, roomID, userID string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[roomID][userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryStore) PutUser(ctx context.Context, roomID string, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[roomID] == nil {
		s.users[roomID] = make(map[string]core.User)
	}
	s.users[roomID][u.ID] = u
	s.notifyLocked(roomID, KindUsers)
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, roomID string, m core.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[roomID] = append(s.messages[roomID], m)
	s.notifyLocked(roomID, KindMessages)
	return nil
}

func (s *MemoryStore) Messages(ctx context.Context, roomID string, limit int) ([]core.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[roomID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]core.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) IncrReaction(ctx context.Context, roomID, reaction string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reactions[roomID] == nil {
		s.reactions[roomID] = make(map[string]int64)
	}
	s.reactions[roomID][reaction]++
	n := s.reactions[roomID][reaction]
	s.notifyLocked(roomID, KindReactions)
	return n, nil
}

func (s *MemoryStore) Reactions(ctx context.Context, roomID string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64, len(s.reactions[roomID]))
	for k, v := range s.reactions[roomID] {
		counts[k] = v
	}
	return counts, nil
}

func (s *MemoryStore) AddMessageReaction(ctx context.Context, roomID string, r core.MessageReaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgReacts[roomID] = append(s.msgReacts[roomID], r)
	return nil
}

func (s *MemoryStore) MessageReactions(ctx context.Context, roomID, messageID string) ([]core.MessageReaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MessageReaction
	for _, r := range s.msgReacts[roomID] {
		if messageID == "" || r.MessageID == messageID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Watch(ctx context.Context, roomID string, fn WatchFunc) (func(), error) {
	s.mu.Lock()
	if s.watchers[roomID] == nil {
		s.watchers[roomID] = make(map[int]WatchFunc)
	}
	id := s.nextID
	s.nextID++
	s.watchers[roomID][id] = fn

	// Prime the watcher with the current state of the sync-relevant subtrees.
	prime := []Snapshot{
		s.snapshotLocked(roomID, KindPlayback),
		s.snapshotLocked(roomID, KindQueue),
		s.snapshotLocked(roomID, KindUsers),
		s.snapshotLocked(roomID, KindCurrent),
	}
	s.mu.Unlock()

	for _, snap := range prime {
		if snap.Kind == KindPlayback && snap.Playback == nil {
			continue
		}
		fn(snap)
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[roomID], id)
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return cancel, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
