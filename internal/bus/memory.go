package bus

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus used by tests and single-machine rooms.
// Fan-out mirrors the ephemeral contract: each subscriber gets a buffered
// channel and events are dropped, never queued, when it is full.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
	closed bool
}

// NewMemory creates an empty in-memory bus.
func NewMemory() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]chan Event)}
}

func (b *MemoryBus) Publish(ctx context.Context, evt Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[evt.RoomID] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, roomID string) (<-chan Event, func(), error) {
	b.mu.Lock()
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[int]chan Event)
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subs[roomID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[roomID][id]; ok {
				delete(b.subs[roomID], id)
				close(ch)
			}
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, room := range b.subs {
		for id, ch := range room {
			delete(room, id)
			close(ch)
		}
	}
	return nil
}

var _ Bus = (*MemoryBus)(nil)
