// Package queue coordinates the shared room queue: appending tracks,
// host-only removal, and next/previous selection. Selection follows strict
// queue order with no wraparound; advancing past the last track selects
// nothing and leaves current playback untouched.
package queue

import (
	"context"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	"github.com/auxroom/auxroom/internal/store"
)

var log = logging.Logger("queue")

// SelectFunc makes a track the room's current track and starts it. The
// session wires this to the host publish path so queue selection and
// playback publication stay in one place.
type SelectFunc func(ctx context.Context, track core.Track) error

// Manager mutates and walks a single room's queue.
type Manager struct {
	store    store.Store
	roomID   string
	isHost   func() bool
	onSelect SelectFunc
}

// NewManager creates a queue manager for one room. isHost is consulted at
// call time so role changes take effect without rebuilding the manager.
func NewManager(st store.Store, roomID string, isHost func() bool, onSelect SelectFunc) *Manager {
	return &Manager{store: st, roomID: roomID, isHost: isHost, onSelect: onSelect}
}

// Add appends a track to the queue under a fresh id, so the same song may
// be queued any number of times. When the host adds to a room with nothing
// current, the new track starts playing immediately.
func (m *Manager) Add(ctx context.Context, track core.Track) (core.Track, error) {
	track.ID = uuid.NewString()
	if err := m.store.AppendTrack(ctx, m.roomID, track); err != nil {
		return core.Track{}, auxerrors.WriteFailure("queue track", err)
	}
	log.Debugw("queued track", "room", m.roomID, "track", track.ID, "title", track.Title)

	if !m.isHost() {
		return track, nil
	}
	cur, err := m.store.CurrentTrack(ctx, m.roomID)
	if err != nil {
		return track, err
	}
	if cur != nil {
		return track, nil
	}
	if err := m.onSelect(ctx, track); err != nil {
		return track, err
	}
	return track, nil
}

// Remove deletes a queue entry. Host only. Removing the entry that is
// currently playing does not interrupt playback; the current track simply
// no longer appears in the queue, and the next advance starts from the top.
func (m *Manager) Remove(ctx context.Context, trackID string) error {
	if !m.isHost() {
		return auxerrors.ErrPermissionDenied
	}
	if err := m.store.RemoveTrack(ctx, m.roomID, trackID); err != nil {
		return auxerrors.WriteFailure("remove track", err)
	}
	return nil
}

// Next advances to the track after the current one. With no current track,
// or a current track no longer in the queue, it starts from the top. At the
// end of the queue it returns nil with no error and playback stops.
func (m *Manager) Next(ctx context.Context) (*core.Track, error) {
	return m.step(ctx, func(q core.Queue, curID string) *core.Track {
		return q.NextAfter(curID)
	})
}

// Previous steps back to the track before the current one. At the first
// track, or with no current track, there is nowhere to go and it returns
// nil with no error.
func (m *Manager) Previous(ctx context.Context) (*core.Track, error) {
	return m.step(ctx, func(q core.Queue, curID string) *core.Track {
		return q.PreviousBefore(curID)
	})
}

func (m *Manager) step(ctx context.Context, pick func(core.Queue, string) *core.Track) (*core.Track, error) {
	if !m.isHost() {
		return nil, auxerrors.ErrPermissionDenied
	}
	q, err := m.store.Queue(ctx, m.roomID)
	if err != nil {
		return nil, err
	}
	cur, err := m.store.CurrentTrack(ctx, m.roomID)
	if err != nil {
		return nil, err
	}
	var curID string
	if cur != nil {
		curID = cur.ID
	}
	next := pick(*q, curID)
	if next == nil {
		return nil, nil
	}
	if err := m.onSelect(ctx, *next); err != nil {
		return nil, err
	}
	return next, nil
}

// Tracks returns the queue contents in order.
func (m *Manager) Tracks(ctx context.Context) ([]core.Track, error) {
	q, err := m.store.Queue(ctx, m.roomID)
	if err != nil {
		return nil, err
	}
	return q.Tracks, nil
}
