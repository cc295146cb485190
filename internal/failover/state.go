package failover

import (
	"sync"

	"github.com/dreamware/herald/internal/cluster"
)

// Role is the instance's position in the active/passive pair.
type Role string

const (
	// RoleActive means the instance serves traffic.
	RoleActive Role = "ACTIVE"
	// RolePassive means the instance is a standby probing its peer.
	RolePassive Role = "PASSIVE"
)

// State holds the alive flag and role behind one lock.
// Thread-safe: All methods are safe for concurrent access.
type State struct {
	role  Role
	alive bool
	mu    sync.RWMutex
}

// NewState creates a live state with the given role.
func NewState(role Role) *State {
	return &State{role: role, alive: true}
}

// Alive reports whether the instance accepts non-control traffic.
func (s *State) Alive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alive
}

// Active reports whether the instance holds the active role.
func (s *State) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role == RoleActive
}

// Role returns the current role.
func (s *State) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetAlive sets the alive flag and reports whether it changed.
func (s *State) SetAlive(alive bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.alive != alive
	s.alive = alive
	return changed
}

// Promote moves the instance to the active role. It reports false when the
// instance was already active. There is no inverse.
func (s *State) Promote() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == RoleActive {
		return false
	}
	s.role = RoleActive
	return true
}

// Health returns the body served by GET /health.
func (s *State) Health() cluster.HealthResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := cluster.StatusAlive
	if !s.alive {
		status = cluster.StatusDead
	}
	return cluster.HealthResponse{Status: status, Active: s.role == RoleActive}
}
