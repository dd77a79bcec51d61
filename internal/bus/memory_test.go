package bus

import (
	"context"
	"testing"
	"time"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestMemoryBus_PublishReachesRoomSubscribers(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()

	ch1, cancel1, err := b.Subscribe(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel1()

	ch2, cancel2, _ := b.Subscribe(ctx, "r1")
	defer cancel2()

	other, cancelOther, _ := b.Subscribe(ctx, "r2")
	defer cancelOther()

	b.Publish(ctx, Event{Type: TypePlay, RoomID: "r1", TrackID: "t1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		evt := recvEvent(t, ch)
		if evt.Type != TypePlay || evt.TrackID != "t1" {
			t.Errorf("event = %+v", evt)
		}
	}

	select {
	case evt := <-other:
		t.Errorf("r2 subscriber received r1 event: %+v", evt)
	default:
	}
}

func TestMemoryBus_CancelClosesChannel(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()

	ch, cancel, _ := b.Subscribe(ctx, "r1")
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}

	// Publishing after cancel must not panic or block.
	b.Publish(ctx, Event{Type: TypePause, RoomID: "r1"})
}

func TestMemoryBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()

	_, cancel, _ := b.Subscribe(ctx, "r1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		// More events than the subscriber buffer holds.
		for i := 0; i < 200; i++ {
			b.Publish(ctx, Event{Type: TypeSeek, RoomID: "r1", Position: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestMemoryBus_ContextCancelUnsubscribes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewMemory()

	ch, _, _ := b.Subscribe(ctx, "r1")
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // closed as expected
			}
		case <-deadline:
			t.Fatal("channel not closed after context cancel")
		}
	}
}
