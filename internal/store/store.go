// Package store defines the persisted room state store: a realtime
// key-value tree keyed by room. Clients watch a room and receive full
// snapshots of a subtree whenever any client writes it. The store is
// eventually consistent; writes race and the last write wins.
package store

import (
	"context"

	"github.com/auxroom/auxroom/internal/core"
)

// Kind names a room subtree.
type Kind string

const (
	KindPlayback  Kind = "playback"
	KindQueue     Kind = "queue"
	KindUsers     Kind = "users"
	KindCurrent   Kind = "current"
	KindMessages  Kind = "messages"
	KindReactions Kind = "reactions"
)

// Meta is the room record written at creation time.
type Meta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
}

// Snapshot is a full copy of one subtree, delivered on every change. A slow
// watcher may skip intermediate states entirely; only the latest matters.
type Snapshot struct {
	Kind      Kind
	Playback  *core.PlaybackState
	Queue     *core.Queue
	Users     map[string]core.User
	Current   *core.Track
	Messages  []core.ChatMessage
	Reactions map[string]int64
}

// WatchFunc receives subtree snapshots. It is invoked from the watcher's
// delivery goroutine and must not block for long.
type WatchFunc func(Snapshot)

// Store is the persisted room state store.
//
// Mutation of playback state, current track, and the queue is host-only by
// convention; the store does not enforce it.
type Store interface {
	// Rooms.
	CreateRoom(ctx context.Context, meta Meta) error
	RoomExists(ctx context.Context, roomID string) (bool, error)
	RoomMeta(ctx context.Context, roomID string) (*Meta, error)

	// Playback.
	PlaybackState(ctx context.Context, roomID string) (*core.PlaybackState, error)
	SetPlaybackState(ctx context.Context, roomID string, s *core.PlaybackState) error
	CurrentTrack(ctx context.Context, roomID string) (*core.Track, error)
	SetCurrentTrack(ctx context.Context, roomID string, t *core.Track) error

	// Queue.
	Queue(ctx context.Context, roomID string) (*core.Queue, error)
	AppendTrack(ctx context.Context, roomID string, t core.Track) error
	RemoveTrack(ctx context.Context, roomID, trackID string) error

	// Users.
	Users(ctx context.Context, roomID string) (map[string]core.User, error)
	User(ctx context.Context, roomID, userID string) (*core.User, error)
	PutUser(ctx context.Context, roomID string, u core.User) error

	// Chat and reactions.
	AppendMessage(ctx context.Context, roomID string, m core.ChatMessage) error
	Messages(ctx context.Context, roomID string, limit int) ([]core.ChatMessage, error)
	IncrReaction(ctx context.Context, roomID, reaction string) (int64, error)
	Reactions(ctx context.Context, roomID string) (map[string]int64, error)
	AddMessageReaction(ctx context.Context, roomID string, r core.MessageReaction) error
	// MessageReactions lists per-message reactions, filtered to one message
	// when messageID is non-empty.
	MessageReactions(ctx context.Context, roomID, messageID string) ([]core.MessageReaction, error)

	// Watch subscribes fn to subtree snapshots for one room until cancel is
	// called or ctx is done.
	Watch(ctx context.Context, roomID string, fn WatchFunc) (cancel func(), err error)

	Close() error
}
