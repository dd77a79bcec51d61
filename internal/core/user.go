package core

import "time"

// Role is a client's capability in a room, re-derived from the store on
// every mutation attempt rather than cached locally.
type Role string

const (
	RoleHost     Role = "host"
	RoleListener Role = "listener"
)

// User is one member of a room. Exactly one user should have IsHost set at
// any consistent read; the store cannot enforce that atomically, so the
// lifecycle layer reconciles when it observes zero or multiple hosts.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsHost     bool   `json:"is_host"`
	IsActive   bool   `json:"is_active"`
	LastActive int64  `json:"last_active"` // unix milliseconds
}

// Role returns the user's capability.
func (u *User) Role() Role {
	if u != nil && u.IsHost {
		return RoleHost
	}
	return RoleListener
}

// SeenWithin reports whether the user's presence heartbeat is fresher than
// the given window.
func (u *User) SeenWithin(window time.Duration, now time.Time) bool {
	if u == nil || u.LastActive == 0 {
		return false
	}
	return now.UnixMilli()-u.LastActive <= window.Milliseconds()
}
