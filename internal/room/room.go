// Package room implements room lifecycle: creation, membership, host
// transfer, and presence. The store is the source of truth for membership
// and roles; bus events only announce what was already written.
package room

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/auxroom/auxroom/internal/bus"
	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	"github.com/auxroom/auxroom/internal/store"
)

var log = logging.Logger("room")

// Room ids avoid characters that read ambiguously when shared out loud.
const idCharset = "abcdefghjkmnpqrstuvwxyz23456789"
const idLength = 6

// Service manages rooms on a store and announces changes on a bus.
type Service struct {
	store   store.Store
	bus     bus.Bus
	refresh time.Duration
	timeout time.Duration
	clock   func() time.Time
}

// NewService creates a room service. refresh is how often a member renews
// its own presence; timeout is how stale a member may get before any
// observer marks it inactive.
func NewService(st store.Store, b bus.Bus, refresh, timeout time.Duration) *Service {
	return &Service{store: st, bus: b, refresh: refresh, timeout: timeout, clock: time.Now}
}

// NewID returns a fresh shareable room id.
func NewID() (string, error) {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room id: %w", err)
	}
	for i, b := range buf {
		buf[i] = idCharset[int(b)%len(idCharset)]
	}
	return string(buf), nil
}

// Create makes a new room with the given display name and installs the
// creator as its host.
func (s *Service) Create(ctx context.Context, name, creatorID, creatorName string) (store.Meta, error) {
	id, err := NewID()
	if err != nil {
		return store.Meta{}, err
	}
	now := s.clock()
	meta := store.Meta{ID: id, Name: name, CreatedBy: creatorID, CreatedAt: now.UnixMilli()}
	if err := s.store.CreateRoom(ctx, meta); err != nil {
		return store.Meta{}, auxerrors.WriteFailure("create room", err)
	}
	host := core.User{
		ID:         creatorID,
		Name:       creatorName,
		IsHost:     true,
		IsActive:   true,
		LastActive: now.UnixMilli(),
	}
	if err := s.store.PutUser(ctx, id, host); err != nil {
		return store.Meta{}, auxerrors.WriteFailure("register host", err)
	}
	log.Infow("created room", "room", id, "name", name, "host", creatorID)
	return meta, nil
}

// Join adds the user to the room, or refreshes them if already a member.
// Joining is idempotent: a returning member keeps their role, so a host who
// disconnects and rejoins is still the host. A creator returning to a room
// that has no host reclaims it.
func (s *Service) Join(ctx context.Context, roomID, userID, userName string) (core.User, error) {
	meta, err := s.store.RoomMeta(ctx, roomID)
	if err != nil {
		return core.User{}, err
	}
	users, err := s.store.Users(ctx, roomID)
	if err != nil {
		return core.User{}, err
	}

	now := s.clock().UnixMilli()
	u := core.User{ID: userID, Name: userName, IsActive: true, LastActive: now}
	if prev, ok := users[userID]; ok {
		u.IsHost = prev.IsHost
		if userName == "" {
			u.Name = prev.Name
		}
	}
	if !u.IsHost && meta.CreatedBy == userID && !hasHost(users, userID) {
		u.IsHost = true
	}

	if err := s.store.PutUser(ctx, roomID, u); err != nil {
		return core.User{}, auxerrors.WriteFailure("join room", err)
	}
	s.announce(ctx, bus.Event{
		Type:     bus.TypeJoinRoom,
		RoomID:   roomID,
		UserID:   userID,
		UserName: u.Name,
	})
	log.Infow("joined room", "room", roomID, "user", userID, "host", u.IsHost)
	return u, nil
}

// Leave marks the user inactive. The membership record is kept so a
// returning user gets their role back; nothing is deleted.
func (s *Service) Leave(ctx context.Context, roomID, userID string) error {
	u, err := s.store.User(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return auxerrors.ErrNotInRoom
	}
	u.IsActive = false
	u.LastActive = s.clock().UnixMilli()
	if err := s.store.PutUser(ctx, roomID, *u); err != nil {
		return auxerrors.WriteFailure("leave room", err)
	}
	s.announce(ctx, bus.Event{
		Type:     bus.TypeLeaveRoom,
		RoomID:   roomID,
		UserID:   userID,
		UserName: u.Name,
	})
	return nil
}

// TransferHost hands the host role from the caller to another member. The
// caller's role is re-read from the store at call time rather than trusted
// from session state. The old flag is cleared before the new one is set, so
// a failure between the writes leaves the room hostless, never dual-hosted;
// ReconcileHosts repairs the hostless case.
func (s *Service) TransferHost(ctx context.Context, roomID, callerID, targetID string) error {
	caller, err := s.store.User(ctx, roomID, callerID)
	if err != nil {
		return err
	}
	if caller == nil {
		return auxerrors.ErrNotInRoom
	}
	if !caller.IsHost {
		return auxerrors.ErrPermissionDenied
	}
	target, err := s.store.User(ctx, roomID, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return auxerrors.ErrUserNotFound
	}
	if targetID == callerID {
		return nil
	}

	caller.IsHost = false
	if err := s.store.PutUser(ctx, roomID, *caller); err != nil {
		return auxerrors.WriteFailure("clear host", err)
	}
	target.IsHost = true
	if err := s.store.PutUser(ctx, roomID, *target); err != nil {
		return auxerrors.WriteFailure("set host", err)
	}

	s.announce(ctx, bus.Event{
		Type:       bus.TypeHostTransferred,
		RoomID:     roomID,
		UserID:     callerID,
		NewHostID:  targetID,
		PrevHostID: callerID,
	})
	log.Infow("transferred host", "room", roomID, "from", callerID, "to", targetID)
	return nil
}

// Touch renews the user's presence stamp.
func (s *Service) Touch(ctx context.Context, roomID, userID string) error {
	u, err := s.store.User(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return auxerrors.ErrNotInRoom
	}
	u.IsActive = true
	u.LastActive = s.clock().UnixMilli()
	if err := s.store.PutUser(ctx, roomID, *u); err != nil {
		return auxerrors.WriteFailure("refresh presence", err)
	}
	return nil
}

// Sweep marks members inactive whose presence stamp is older than the
// timeout. Any member may run it; writes are idempotent so concurrent
// sweeps are harmless. It reports whether an active host was lost.
func (s *Service) Sweep(ctx context.Context, roomID string) (hostLost bool, err error) {
	users, err := s.store.Users(ctx, roomID)
	if err != nil {
		return false, err
	}
	now := s.clock()
	for _, u := range users {
		if !u.IsActive || u.SeenWithin(s.timeout, now) {
			continue
		}
		u.IsActive = false
		if err := s.store.PutUser(ctx, roomID, u); err != nil {
			return hostLost, auxerrors.WriteFailure("expire member", err)
		}
		if u.IsHost {
			hostLost = true
		}
		log.Debugw("expired member", "room", roomID, "user", u.ID)
	}
	return hostLost, nil
}

// ReconcileHosts restores the one-host invariant. With exactly one active
// host it does nothing. Otherwise it elects the active member with the
// smallest id, which every client computes identically, so concurrent
// reconcilers converge on the same winner.
func (s *Service) ReconcileHosts(ctx context.Context, roomID string) error {
	users, err := s.store.Users(ctx, roomID)
	if err != nil {
		return err
	}

	var active []core.User
	hosts := 0
	for _, u := range users {
		if u.IsActive {
			active = append(active, u)
			if u.IsHost {
				hosts++
			}
		}
	}
	if hosts == 1 || len(active) == 0 {
		return nil
	}

	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	winner := active[0]

	for _, u := range users {
		if u.IsHost && u.ID != winner.ID {
			u.IsHost = false
			if err := s.store.PutUser(ctx, roomID, u); err != nil {
				return auxerrors.WriteFailure("clear host", err)
			}
		}
	}
	if !winner.IsHost {
		winner.IsHost = true
		if err := s.store.PutUser(ctx, roomID, winner); err != nil {
			return auxerrors.WriteFailure("set host", err)
		}
	}

	s.announce(ctx, bus.Event{
		Type:      bus.TypeHostTransferred,
		RoomID:    roomID,
		NewHostID: winner.ID,
	})
	log.Infow("reconciled hosts", "room", roomID, "host", winner.ID, "was", hosts)
	return nil
}

// RunPresence renews this user's presence on the refresh interval, sweeps
// for stale members, and reconciles hosts. It blocks until ctx is done.
func (s *Service) RunPresence(ctx context.Context, roomID, userID string) {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Touch(ctx, roomID, userID); err != nil {
				log.Warnw("presence refresh failed", "room", roomID, "err", err)
				continue
			}
			if _, err := s.Sweep(ctx, roomID); err != nil {
				log.Warnw("presence sweep failed", "room", roomID, "err", err)
				continue
			}
			// The host can also vanish outside this sweep: a graceful
			// leave, or another member's sweep expiring it. Reconcile runs
			// every cycle and no-ops while exactly one host is active.
			if err := s.ReconcileHosts(ctx, roomID); err != nil {
				log.Warnw("host reconcile failed", "room", roomID, "err", err)
			}
		}
	}
}

// Members returns the room's users sorted by name for display.
func (s *Service) Members(ctx context.Context, roomID string) ([]core.User, error) {
	users, err := s.store.Users(ctx, roomID)
	if err != nil {
		return nil, err
	}
	out := make([]core.User, 0, len(users))
	for _, u := range users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func hasHost(users map[string]core.User, except string) bool {
	for _, u := range users {
		if u.IsHost && u.ID != except {
			return true
		}
	}
	return false
}

// Bus announcements are best effort; the store write already happened and
// watchers will converge from it.
func (s *Service) announce(ctx context.Context, evt bus.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Debugw("announce failed", "type", evt.Type, "room", evt.RoomID, "err", err)
	}
}
