package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	logging "github.com/ipfs/go-log/v2"

	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
)

var log = logging.Logger("store")

// RedisStore implements Store on a Redis backend. Every subtree is one JSON
// value; after each write the subtree kind is published on the room's store
// channel so watchers re-read and receive a full snapshot.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedis creates a store backed by the given Redis connection options.
func NewRedis(addr, password string, db int) *RedisStore {
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewRedisFromClient wraps an existing client (shared with the bus).
func NewRedisFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func roomKey(roomID string, kind string) string {
	return fmt.Sprintf("auxroom:room:%s:%s", roomID, kind)
}

func storeChannel(roomID string) string {
	return fmt.Sprintf("auxroom:room:%s:store", roomID)
}

// notify publishes the changed subtree kind. Delivery is best effort: a
// missed notification is healed by the next one or by the sync heartbeat.
func (s *RedisStore) notify(ctx context.Context, roomID string, kind Kind) {
	if err := s.rdb.Publish(ctx, storeChannel(roomID), string(kind)).Err(); err != nil {
		log.Warnw("store notify failed", "room", roomID, "kind", kind, "err", err)
	}
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return auxerrors.WriteFailure("set "+key, err)
	}
	return nil
}

// getJSON reads key into out, reporting whether the key existed.
func (s *RedisStore) getJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// CreateRoom seeds the room record and its empty subtrees.
func (s *RedisStore) CreateRoom(ctx context.Context, meta Meta) error {
	if err := s.setJSON(ctx, roomKey(meta.ID, "meta"), meta); err != nil {
		return err
	}
	if err := s.setJSON(ctx, roomKey(meta.ID, "queue"), &core.Queue{}); err != nil {
		return err
	}
	return nil
}

func (s *RedisStore) RoomExists(ctx context.Context, roomID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, roomKey(roomID, "meta")).Result()
	if err != nil {
		return false, fmt.Errorf("room exists %s: %w", roomID, err)
	}
	return n > 0, nil
}

func (s *RedisStore) RoomMeta(ctx context.Context, roomID string) (*Meta, error) {
	var meta Meta
	ok, err := s.getJSON(ctx, roomKey(roomID, "meta"), &meta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, auxerrors.ErrRoomNotFound
	}
	return &meta, nil
}

func (s *RedisStore) PlaybackState(ctx context.Context, roomID string) (*core.PlaybackState, error) {
	var st core.PlaybackState
	ok, err := s.getJSON(ctx, roomKey(roomID, "playback"), &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *RedisStore) SetPlaybackState(ctx context.Context, roomID string, st *core.PlaybackState) error {
	if err := s.setJSON(ctx, roomKey(roomID, "playback"), st); err != nil {
		return err
	}
	s.notify(ctx, roomID, KindPlayback)
	return nil
}

func (s *RedisStore) CurrentTrack(ctx context.Context, roomID string) (*core.Track, error) {
	var t core.Track
	ok, err := s.getJSON(ctx, roomKey(roomID, "current"), &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func (s *RedisStore) SetCurrentTrack(ctx context.Context, roomID string, t *core.Track) error {
	if err := s.setJSON(ctx, roomKey(roomID, "current"), t); err != nil {
		return err
	}
	s.notify(ctx, roomID, KindCurrent)
	return nil
}

func (s *RedisStore) Queue(ctx context.Context, roomID string) (*core.Queue, error) {
	var q core.Queue
	if _, err := s.getJSON(ctx, roomKey(roomID, "queue"), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// AppendTrack is a read-modify-write; concurrent appends race and the last
// write wins, which the protocol accepts.
func (s *RedisStore) AppendTrack(ctx context.Context, roomID string, t core.Track) error {
	q, err := s.Queue(ctx, roomID)
	if err != nil {
		return err
	}
	q.Tracks = append(q.Tracks, t)
	if err := s.setJSON(ctx, roomKey(roomID, "queue"), q); err != nil {
		return err
	}
	s.notify(ctx, roomID, KindQueue)
	return nil
}

func (s *RedisStore) RemoveTrack(ctx context.Context, roomID, trackID string) error {
	q, err := s.Queue(ctx, roomID)
	if err != nil {
		return err
	}
	next := q.Without(trackID)
	if err := s.setJSON(ctx, roomKey(roomID, "queue"), &next); err != nil {
		return err
	}
	s.notify(ctx, roomID, KindQueue)
	return nil
}

func (s *RedisStore) Users(ctx context.Context, roomID string) (map[string]core.User, error) {
	raw, err := s.rdb.HGetAll(ctx, roomKey(roomID, "users")).Result()
	if err != nil {
		return nil, fmt.Errorf("get users %s: %w", roomID, err)
	}
	users := make(map[string]core.User, len(raw))
	for id, data := range raw {
		var u core.User
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			log.Warnw("skipping malformed user record", "room", roomID, "user", id, "err", err)
			continue
		}
		users[id] = u
	}
	return users, nil
}

func (s *RedisStore) User(ctx context.Context, roomID, userID string) (*core.User, error) {
	data, err := s.rdb.HGet(ctx, roomKey(roomID, "users"), userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s/%s: %w", roomID, userID, err)
	}
	var u core.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user %s/%s: %w", roomID, userID, err)
	}
	return &u, nil
}

func (s *RedisStore) PutUser(ctx context.Context, roomID string, u core.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.rdb.HSet(ctx, roomKey(roomID, "users"), u.ID, data).Err(); err != nil {
		return auxerrors.WriteFailure("put user "+u.ID, err)
	}
	s.notify(ctx, roomID, KindUsers)
	return nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, roomID string, m core.ChatMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.rdb.RPush(ctx, roomKey(roomID, "messages"), data).Err(); err != nil {
		return auxerrors.WriteFailure("append message", err)
	}
	s.notify(ctx, roomID, KindMessages)
	return nil
}

func (s *RedisStore) Messages(ctx context.Context, roomID string, limit int) ([]core.ChatMessage, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.rdb.LRange(ctx, roomKey(roomID, "messages"), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get messages %s: %w", roomID, err)
	}
	msgs := make([]core.ChatMessage, 0, len(raw))
	for _, data := range raw {
		var m core.ChatMessage
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) IncrReaction(ctx context.Context, roomID, reaction string) (int64, error) {
	n, err := s.rdb.HIncrBy(ctx, roomKey(roomID, "reactions"), reaction, 1).Result()
	if err != nil {
		return 0, auxerrors.WriteFailure("incr reaction "+reaction, err)
	}
	s.notify(ctx, roomID, KindReactions)
	return n, nil
}

func (s *RedisStore) Reactions(ctx context.Context, roomID string) (map[string]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, roomKey(roomID, "reactions")).Result()
	if err != nil {
		return nil, fmt.Errorf("get reactions %s: %w", roomID, err)
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		var n int64
		fmt.Sscan(v, &n)
		out[k] = n
	}
	return out, nil
}

func (s *RedisStore) AddMessageReaction(ctx context.Context, roomID string, r core.MessageReaction) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal message reaction: %w", err)
	}
	field := fmt.Sprintf("%s:%s:%s", r.MessageID, r.Emoji, r.UserID)
	if err := s.rdb.HSet(ctx, roomKey(roomID, "msgreactions"), field, data).Err(); err != nil {
		return auxerrors.WriteFailure("add message reaction", err)
	}
	return nil
}

func (s *RedisStore) MessageReactions(ctx context.Context, roomID, messageID string) ([]core.MessageReaction, error) {
	raw, err := s.rdb.HGetAll(ctx, roomKey(roomID, "msgreactions")).Result()
	if err != nil {
		return nil, fmt.Errorf("get message reactions %s: %w", roomID, err)
	}
	out := make([]core.MessageReaction, 0, len(raw))
	for _, data := range raw {
		var r core.MessageReaction
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			continue
		}
		if messageID == "" || r.MessageID == messageID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Watch subscribes to the room's store channel and delivers a fresh snapshot
// of whichever subtree changed. The current playback, queue, users and
// current-track subtrees are delivered once up front so a new watcher starts
// from the latest state instead of waiting for the next write.
func (s *RedisStore) Watch(ctx context.Context, roomID string, fn WatchFunc) (func(), error) {
	sub := s.rdb.Subscribe(ctx, storeChannel(roomID))
	// Force the subscription onto the wire before we prime, so no change can
	// slip between the primed read and the first notification.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe store %s: %w", roomID, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)

	go func() {
		for _, kind := range []Kind{KindPlayback, KindQueue, KindUsers, KindCurrent} {
			s.deliver(watchCtx, roomID, kind, fn)
		}
		ch := sub.Channel()
		for {
			select {
			case <-watchCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				s.deliver(watchCtx, roomID, Kind(msg.Payload), fn)
			}
		}
	}()

	return func() {
		cancel()
		if err := sub.Close(); err != nil {
			log.Debugw("closing store subscription", "room", roomID, "err", err)
		}
	}, nil
}

// deliver reads one subtree and hands the snapshot to fn. Read errors are
// logged and dropped; the next notification retries naturally.
func (s *RedisStore) deliver(ctx context.Context, roomID string, kind Kind, fn WatchFunc) {
	snap := Snapshot{Kind: kind}
	var err error
	switch kind {
	case KindPlayback:
		snap.Playback, err = s.PlaybackState(ctx, roomID)
		if snap.Playback == nil && err == nil {
			return // nothing published yet
		}
	case KindQueue:
		snap.Queue, err = s.Queue(ctx, roomID)
	case KindUsers:
		snap.Users, err = s.Users(ctx, roomID)
	case KindCurrent:
		snap.Current, err = s.CurrentTrack(ctx, roomID)
	case KindMessages:
		snap.Messages, err = s.Messages(ctx, roomID, 50)
	case KindReactions:
		snap.Reactions, err = s.Reactions(ctx, roomID)
	default:
		return
	}
	if err != nil {
		log.Warnw("snapshot read failed", "room", roomID, "kind", kind, "err", err)
		return
	}
	fn(snap)
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies the backend is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)
