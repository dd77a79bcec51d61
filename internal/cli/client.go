package cli

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/auxroom/auxroom/internal/bus"
	"github.com/auxroom/auxroom/internal/chat"
	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	"github.com/auxroom/auxroom/internal/identity"
	"github.com/auxroom/auxroom/internal/player"
	"github.com/auxroom/auxroom/internal/queue"
	"github.com/auxroom/auxroom/internal/room"
	"github.com/auxroom/auxroom/internal/store"
	"github.com/auxroom/auxroom/internal/syncer"
)

// loadSelf returns the stable local identity, creating one on first use.
// The --name flag renames it persistently.
func loadSelf() (core.User, error) {
	storage, err := identity.NewStorage("")
	if err != nil {
		return core.User{}, err
	}
	id, err := storage.LoadOrCreate(userName)
	if err != nil {
		return core.User{}, err
	}
	return core.User{ID: id.ID, Name: id.Name}, nil
}

// openBackend connects both transports over one Redis client.
func openBackend(ctx context.Context) (*store.RedisStore, *bus.RedisBus, func(), error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	st := store.NewRedisFromClient(rdb)
	if err := st.Ping(ctx); err != nil {
		rdb.Close()
		return nil, nil, nil, auxerrors.WithSuggestion(err,
			"check that Redis is reachable at "+cfg.Redis.Addr+" (redis.addr in ~/.auxroomrc)")
	}
	b := bus.NewRedisFromClient(rdb)
	return st, b, func() { _ = rdb.Close() }, nil
}

// requireRoom resolves the room to operate on: an explicit argument wins,
// otherwise the room recorded by the last create/join.
func requireRoom(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	roomID, err := identity.CurrentRoom()
	if err != nil {
		return "", err
	}
	if roomID == "" {
		return "", auxerrors.WithSuggestion(auxerrors.ErrNotInRoom,
			"join a room first: auxroom join <room-id>")
	}
	return roomID, nil
}

// control is the short-lived wiring a one-shot command drives a room with.
// The engine is primed from the store so host commands act on the room's
// real position, not a cold engine.
type control struct {
	store  *store.RedisStore
	bus    *bus.RedisBus
	engine *player.Engine
	sync   *syncer.Coordinator
	queue  *queue.Manager
	rooms  *room.Service
	chat   *chat.Service
	roomID string
	self   core.User
	close  func()
}

func openControl(ctx context.Context, args []string) (*control, error) {
	roomID, err := requireRoom(args)
	if err != nil {
		return nil, err
	}
	self, err := loadSelf()
	if err != nil {
		return nil, err
	}
	st, b, closeFn, err := openBackend(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := st.RoomMeta(ctx, roomID); err != nil {
		closeFn()
		return nil, err
	}
	member, err := st.User(ctx, roomID, self.ID)
	if err != nil {
		closeFn()
		return nil, err
	}
	if member == nil {
		closeFn()
		return nil, auxerrors.WithSuggestion(auxerrors.ErrNotInRoom,
			"join this room first: auxroom join "+roomID)
	}

	// Role is read from the store per call, so a transfer that happened
	// since the last command is honored.
	isHost := func() bool {
		u, err := st.User(ctx, roomID, self.ID)
		return err == nil && u != nil && u.IsHost
	}

	engine := player.NewEngine(nil)
	if cur, err := st.CurrentTrack(ctx, roomID); err == nil && cur != nil {
		if pb, err := st.PlaybackState(ctx, roomID); err == nil && pb != nil {
			if err := engine.ApplyRemote(ctx, cur, *pb, time.Now()); err != nil {
				log.Debugw("priming engine from store", "room", roomID, "err", err)
			}
		} else if err := engine.Load(ctx, *cur); err != nil {
			log.Debugw("loading current track", "room", roomID, "err", err)
		}
	}

	coord := syncer.New(syncer.Options{
		Store:        st,
		Bus:          b,
		Engine:       engine,
		RoomID:       roomID,
		SelfID:       self.ID,
		IsHost:       isHost,
		Drift:        cfg.DriftThreshold(),
		Heartbeat:    cfg.Heartbeat(),
		SeekThrottle: cfg.SeekThrottle(),
	})

	return &control{
		store:  st,
		bus:    b,
		engine: engine,
		sync:   coord,
		queue:  queue.NewManager(st, roomID, isHost, coord.SelectTrack),
		rooms:  room.NewService(st, b, cfg.PresenceRefresh(), cfg.PresenceTimeout()),
		chat:   chat.NewService(st, b),
		roomID: roomID,
		self:   self,
		close:  closeFn,
	}, nil
}
