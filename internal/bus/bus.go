// Package bus defines the ephemeral room event bus: a low-latency
// publish/subscribe transport with at-most-once, unordered delivery and no
// persistence. Events are a latency optimization; the protocol never relies
// on them for correctness. The store heartbeat is the convergence floor.
package bus

import (
	"context"

	"github.com/auxroom/auxroom/internal/core"
)

// Type names a control event.
type Type string

const (
	TypeJoinRoom             Type = "joinRoom"
	TypeLeaveRoom            Type = "leaveRoom"
	TypePlay                 Type = "play"
	TypePause                Type = "pause"
	TypeSeek                 Type = "seek"
	TypeNextTrack            Type = "nextTrack"
	TypePrevTrack            Type = "prevTrack"
	TypeTrackChanged         Type = "trackChanged"
	TypePlaybackStateChanged Type = "playbackStateChanged"
	TypeSyncRequest          Type = "syncRequest"
	TypeSyncPlayback         Type = "syncPlayback"
	TypeNewMessage           Type = "newMessage"
	TypeNewReaction          Type = "newReaction"
	TypeMessageReaction      Type = "messageReaction"
	TypeHostTransferred      Type = "hostTransferred"
)

// Event is the wire type for every bus message. All events carry the room id;
// handlers must drop events for rooms they are not in, as defense in depth
// against subscriptions that outlive a room session.
type Event struct {
	Type   Type   `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id,omitempty"`

	// Playback control fields.
	TrackID   string              `json:"track_id,omitempty"`
	Position  float64             `json:"position,omitempty"`
	IsPlaying bool                `json:"is_playing,omitempty"`
	Timestamp int64               `json:"timestamp,omitempty"`
	State     *core.PlaybackState `json:"state,omitempty"`

	// Chat and reaction fields.
	UserName        string                `json:"user_name,omitempty"`
	Message         *core.ChatMessage     `json:"message,omitempty"`
	Reaction        string                `json:"reaction,omitempty"`
	MessageReaction *core.MessageReaction `json:"message_reaction,omitempty"`

	// Host transfer fields.
	NewHostID  string `json:"new_host_id,omitempty"`
	PrevHostID string `json:"prev_host_id,omitempty"`
}

// Bus is the ephemeral event transport.
type Bus interface {
	// Publish sends an event to every current subscriber of the event's room.
	// Delivery is at most once; events published while a client is
	// disconnected are lost.
	Publish(ctx context.Context, evt Event) error

	// Subscribe returns a channel of events for the room and a cancel
	// function. The channel is closed on cancel or when ctx is done.
	Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error)

	Close() error
}
