// Package membership maps user identifiers to the set of notification
// groups they follow.
//
// Membership never creates groups in the notification registry. A group
// named here comes into existence only when something subscribes to it or
// notifies it.
package membership

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Store holds user → group-set mappings in memory.
// Uses sync.RWMutex for thread-safe concurrent access.
type Store struct {
	users map[string]map[string]struct{} // user → set of group names
	mu    sync.RWMutex
}

// NewStore creates an empty membership store.
func NewStore() *Store {
	return &Store{
		users: make(map[string]map[string]struct{}),
	}
}

// SetGroups replaces the user's groups with groups, dropping duplicates and
// empty names. Returns the resulting set.
func (s *Store) SetGroups(user string, groups []string) []string {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if g != "" {
			set[g] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user] = set
	return sortedKeys(set)
}

// AddToGroup adds the user to group. Adding an existing membership is a no-op.
// Returns the user's groups after the change.
func (s *Store) AddToGroup(user, group string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[user]
	if !ok {
		set = make(map[string]struct{})
		s.users[user] = set
	}
	set[group] = struct{}{}
	return sortedKeys(set)
}

// RemoveFromGroup removes the user from group. Removing a group the user is
// not in is a no-op. Returns the user's groups after the change.
func (s *Store) RemoveFromGroup(user, group string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[user]
	if !ok {
		return []string{}
	}
	delete(set, group)
	return sortedKeys(set)
}

// Groups returns the user's groups. Unknown users have none.
func (s *Store) Groups(user string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.users[user])
}

// ListAll returns a copy of every user's groups. Later mutations do not
// affect the returned map.
func (s *Store) ListAll() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.users))
	for user, set := range s.users {
		out[user] = sortedKeys(set)
	}
	return out
}

// sortedKeys copies a set into a sorted, non-nil slice.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
