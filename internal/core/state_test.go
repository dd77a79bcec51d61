package core

import (
	"testing"
	"time"
)

func TestProjected(t *testing.T) {
	now := time.UnixMilli(1_700_000_010_000)

	testCases := []struct {
		name  string
		state *PlaybackState
		want  float64
	}{
		{
			"playing advances by elapsed time",
			&PlaybackState{TrackID: "a", IsPlaying: true, Position: 10, ServerTime: now.UnixMilli() - 2000},
			12,
		},
		{
			"paused stays put",
			&PlaybackState{TrackID: "a", IsPlaying: false, Position: 10, ServerTime: now.UnixMilli() - 2000},
			10,
		},
		{
			"nil state projects to zero",
			nil,
			0,
		},
		{
			"never negative",
			&PlaybackState{TrackID: "a", IsPlaying: true, Position: -5, ServerTime: now.UnixMilli()},
			0,
		},
		{
			"zero server time is not projected",
			&PlaybackState{TrackID: "a", IsPlaying: true, Position: 7},
			7,
		},
	}

	for _, tc := range testCases {
		got := tc.state.Projected(now)
		if got != tc.want {
			t.Errorf("%s: Projected = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUserRole(t *testing.T) {
	host := &User{ID: "u1", IsHost: true}
	listener := &User{ID: "u2"}
	if host.Role() != RoleHost {
		t.Errorf("host Role = %v, want RoleHost", host.Role())
	}
	if listener.Role() != RoleListener {
		t.Errorf("listener Role = %v, want RoleListener", listener.Role())
	}
	var nobody *User
	if nobody.Role() != RoleListener {
		t.Errorf("nil user Role = %v, want RoleListener", nobody.Role())
	}
}

func TestSeenWithin(t *testing.T) {
	now := time.UnixMilli(1_700_000_100_000)
	fresh := &User{LastActive: now.UnixMilli() - 30_000}
	stale := &User{LastActive: now.UnixMilli() - 61_000}

	if !fresh.SeenWithin(time.Minute, now) {
		t.Errorf("user seen 30s ago should be within a 60s window")
	}
	if stale.SeenWithin(time.Minute, now) {
		t.Errorf("user seen 61s ago should be outside a 60s window")
	}
	if (&User{}).SeenWithin(time.Minute, now) {
		t.Errorf("user with no heartbeat should never be within a window")
	}
}
