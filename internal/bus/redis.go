package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("bus")

// RedisBus implements Bus on Redis PUBSUB, which matches the required
// contract exactly: at-most-once, unordered, nothing retained.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedis creates a bus backed by the given Redis connection options.
func NewRedis(addr, password string, db int) *RedisBus {
	return &RedisBus{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewRedisFromClient wraps an existing client (shared with the store).
func NewRedisFromClient(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func eventChannel(roomID string) string {
	return fmt.Sprintf("auxroom:room:%s:events", roomID)
}

func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.Type, err)
	}
	if err := b.rdb.Publish(ctx, eventChannel(evt.RoomID), data).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", evt.Type, evt.RoomID, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error) {
	sub := b.rdb.Subscribe(ctx, eventChannel(roomID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe events %s: %w", roomID, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan Event, 64)

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					log.Warnw("dropping malformed event", "room", roomID, "err", err)
					continue
				}
				select {
				case out <- evt:
				default:
					// Subscriber is slow; losing events is allowed, the
					// next store snapshot reconverges it.
					log.Debugw("subscriber full, dropping event", "room", roomID, "type", evt.Type)
				}
			}
		}
	}()

	stop := func() {
		cancel()
		if err := sub.Close(); err != nil {
			log.Debugw("closing event subscription", "room", roomID, "err", err)
		}
	}
	return out, stop, nil
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

var _ Bus = (*RedisBus)(nil)
