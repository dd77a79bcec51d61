package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/auxroom/auxroom/internal/bus"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	"github.com/auxroom/auxroom/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService() (*Service, *store.MemoryStore, *fakeClock) {
	st := store.NewMemory()
	clk := &fakeClock{t: time.Unix(10000, 0)}
	s := NewService(st, bus.NewMemory(), 30*time.Second, 60*time.Second)
	s.clock = clk.Now
	return s, st, clk
}

func TestNewID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatal(err)
		}
		if len(id) != idLength {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		for _, r := range id {
			if (r < 'a' || r > 'z') && (r < '2' || r > '9') {
				t.Fatalf("id %q contains %q", id, r)
			}
		}
		seen[id] = true
	}
	if len(seen) < 95 {
		t.Errorf("only %d distinct ids in 100 draws", len(seen))
	}
}

func TestService_CreateInstallsHost(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestService()

	meta, err := s.Create(ctx, "friday", "u1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if meta.CreatedBy != "u1" || meta.Name != "friday" {
		t.Errorf("meta = %+v", meta)
	}

	u, _ := st.User(ctx, meta.ID, "u1")
	if u == nil || !u.IsHost || !u.IsActive {
		t.Errorf("creator = %+v, want active host", u)
	}
}

func TestService_JoinIsIdempotentAndKeepsRole(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService()
	meta, _ := s.Create(ctx, "r", "u1", "alice")

	// A listener joins twice; second join must not change anything material.
	u, err := s.Join(ctx, meta.ID, "u2", "bob")
	if err != nil || u.IsHost {
		t.Fatalf("first join = %+v, %v", u, err)
	}
	u, err = s.Join(ctx, meta.ID, "u2", "bob")
	if err != nil || u.IsHost || !u.IsActive {
		t.Errorf("second join = %+v, %v", u, err)
	}

	// The host leaves and rejoins under the same identity: still host.
	s.Leave(ctx, meta.ID, "u1")
	u, _ = s.Join(ctx, meta.ID, "u1", "alice")
	if !u.IsHost {
		t.Error("host lost role across rejoin")
	}
}

func TestService_JoinUnknownRoom(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService()
	if _, err := s.Join(ctx, "nosuch", "u1", "alice"); !errors.Is(err, auxerrors.ErrRoomNotFound) {
		t.Errorf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestService_CreatorReclaimsHostlessRoom(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestService()
	meta, _ := s.Create(ctx, "r", "u1", "alice")
	s.Join(ctx, meta.ID, "u2", "bob")

	// Simulate the host record losing its flag (failed transfer).
	u1, _ := st.User(ctx, meta.ID, "u1")
	u1.IsHost = false
	st.PutUser(ctx, meta.ID, *u1)

	u, err := s.Join(ctx, meta.ID, "u1", "alice")
	if err != nil || !u.IsHost {
		t.Errorf("creator rejoin = %+v, %v, want host reclaimed", u, err)
	}

	// But not while someone else holds host.
	s.TransferHost(ctx, meta.ID, "u1", "u2")
	u, _ = s.Join(ctx, meta.ID, "u1", "alice")
	if u.IsHost {
		t.Error("creator stole host from u2")
	}
}

func TestService_LeavePreservesRecord(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestService()
	meta, _ := s.Create(ctx, "r", "u1", "alice")

	if err := s.Leave(ctx, meta.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	u, _ := st.User(ctx, meta.ID, "u1")
	if u == nil {
		t.Fatal("membership record deleted on leave")
	}
	if u.IsActive || !u.IsHost {
		t.Errorf("after leave = %+v, want inactive but still host", u)
	}

	if err := s.Leave(ctx, meta.ID, "stranger"); !errors.Is(err, auxerrors.ErrNotInRoom) {
		t.Errorf("leave by non-member err = %v", err)
	}
}

func TestService_TransferHost(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestService()
	meta, _ := s.Create(ctx, "r", "u1", "alice")
	s.Join(ctx, meta.ID, "u2", "bob")

	if err := s.TransferHost(ctx, meta.ID, "u2", "u1"); !errors.Is(err, auxerrors.ErrPermissionDenied) {
		t.Errorf("non-host transfer err = %v", err)
	}
	if err := s.TransferHost(ctx, meta.ID, "u1", "ghost"); !errors.Is(err, auxerrors.ErrUserNotFound) {
		t.Errorf("transfer to stranger err = %v", err)
	}
	if err := s.TransferHost(ctx, meta.ID, "stranger", "u2"); !errors.Is(err, auxerrors.ErrNotInRoom) {
		t.Errorf("transfer by stranger err = %v", err)
	}

	if err := s.TransferHost(ctx, meta.ID, "u1", "u2"); err != nil {
		t.Fatal(err)
	}
	u1, _ := st.User(ctx, meta.ID, "u1")
	u2, _ := st.User(ctx, meta.ID, "u2")
	if u1.IsHost || !u2.IsHost {
		t.Errorf("after transfer: u1.IsHost=%t u2.IsHost=%t", u1.IsHost, u2.IsHost)
	}

	// Self-transfer is a no-op, not an error.
	if err := s.TransferHost(ctx, meta.ID, "u2", "u2"); err != nil {
		t.Errorf("self transfer err = %v", err)
	}
}

func TestService_SweepExpiresStaleMembers(t *testing.T) {
	ctx := context.Background()
	s, st, clk := newTestService()
	meta, _ := s.Create(ctx, "r", "u1", "alice")
	s.Join(ctx, meta.ID, "u2", "bob")

	clk.Advance(45 * time.Second)
	s.Touch(ctx, meta.ID, "u2") // only bob refreshes
	clk.Advance(30 * time.Second)

	hostLost, err := s.Sweep(ctx, meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !hostLost {
		t.Error("stale host not reported")
	}

	u1, _ := st.User(ctx, meta.ID, "u1")
	u2, _ := st.User(ctx, meta.ID, "u2")
	if u1.IsActive {
		t.Error("stale member still active after sweep")
	}
	if !u2.IsActive {
		t.Error("fresh member expired")
	}
}

func TestService_ReconcileHosts(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestService()
	meta, _ := s.Create(ctx, "r", "b-user", "bea")
	s.Join(ctx, meta.ID, "a-user", "ann")
	s.Join(ctx, meta.ID, "c-user", "cal")

	// One host: reconcile leaves everything alone.
	if err := s.ReconcileHosts(ctx, meta.ID); err != nil {
		t.Fatal(err)
	}
	u, _ := st.User(ctx, meta.ID, "b-user")
	if !u.IsHost {
		t.Fatal("reconcile disturbed a healthy room")
	}

	// Two hosts: smallest active id wins.
	c, _ := st.User(ctx, meta.ID, "c-user")
	c.IsHost = true
	st.PutUser(ctx, meta.ID, *c)
	s.ReconcileHosts(ctx, meta.ID)

	hosts := []string{}
	for _, id := range []string{"a-user", "b-user", "c-user"} {
		if u, _ := st.User(ctx, meta.ID, id); u.IsHost {
			hosts = append(hosts, id)
		}
	}
	if len(hosts) != 1 || hosts[0] != "a-user" {
		t.Errorf("hosts after reconcile = %v, want [a-user]", hosts)
	}

	// Zero hosts with only some members active: smallest active id wins.
	a, _ := st.User(ctx, meta.ID, "a-user")
	a.IsHost = false
	a.IsActive = false
	st.PutUser(ctx, meta.ID, *a)
	s.ReconcileHosts(ctx, meta.ID)
	u, _ = st.User(ctx, meta.ID, "b-user")
	if !u.IsHost {
		t.Errorf("hostless reconcile did not elect b-user")
	}
}

func TestService_PresenceCycleRepairsGracefulHostLeave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := store.NewMemory()
	s := NewService(st, bus.NewMemory(), 5*time.Millisecond, 60*time.Second)

	meta, _ := s.Create(ctx, "r", "u1", "alice")
	s.Join(ctx, meta.ID, "u2", "bob")

	// A graceful leave marks the host inactive directly; no sweep ever
	// reports it as lost. The presence cycle must still elect a new host.
	if err := s.Leave(ctx, meta.ID, "u1"); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunPresence(ctx, meta.ID, "u2")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		u, _ := st.User(ctx, meta.ID, "u2")
		if u != nil && u.IsHost {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("remaining member never became host")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestService_JoinAnnouncesOnBus(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	b := bus.NewMemory()
	s := NewService(st, b, 30*time.Second, 60*time.Second)

	meta, _ := s.Create(ctx, "r", "u1", "alice")
	ch, cancel, _ := b.Subscribe(ctx, meta.ID)
	defer cancel()

	s.Join(ctx, meta.ID, "u2", "bob")

	select {
	case evt := <-ch:
		if evt.Type != bus.TypeJoinRoom || evt.UserID != "u2" || evt.UserName != "bob" {
			t.Errorf("event = %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no join event published")
	}
}
