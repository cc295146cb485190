package notify

import (
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// group is the versioned record behind a group name.
// All fields are protected by Registry.mu.
type group struct {
	changedAt time.Time     // Time of the last signal
	wake      chan struct{} // Closed and replaced on every signal
	name      string
	version   uint64 // Monotonic, starts at 0
}

// Group is a point-in-time copy of a group's record.
type Group struct {
	ChangedAt time.Time `json:"changed_at"`
	Name      string    `json:"name"`
	Version   uint64    `json:"version"`
}

// Registry owns one versioned record per group name and the single lock
// used to wait on version changes.
//
// The registry never exposes its map. Callers go through GetOrCreate,
// Signal, SignalAll and Handle.WaitForChange, which keeps baseline capture
// and wait entry inside the same critical section.
//
// Thread-safe: All methods are safe for concurrent access.
type Registry struct {
	groups map[string]*group
	now    func() time.Time
	mu     sync.Mutex
}

// Handle is a stable reference to a named group. Handles stay valid for
// the life of the registry because groups are never deleted.
type Handle struct {
	reg *Registry
	g   *group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]*group),
		now:    time.Now,
	}
}

// GetOrCreate returns the handle for name, creating the group at version 0
// if it has never been referenced.
//
// Example:
//
//	h := reg.GetOrCreate("frontend")
//	baseline := h.Version()
//	changed, v := h.WaitForChange(baseline, time.Now().Add(25*time.Second))
func (r *Registry) GetOrCreate(name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Handle{reg: r, g: r.getOrCreateLocked(name)}
}

func (r *Registry) getOrCreateLocked(name string) *group {
	g, ok := r.groups[name]
	if !ok {
		g = &group{
			name:      name,
			changedAt: r.now(),
			wake:      make(chan struct{}),
		}
		r.groups[name] = g
	}
	return g
}

// Signal bumps the named group's version and wakes every goroutine parked
// on it. Unknown names are created first. Returns the new version.
func (r *Registry) Signal(name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signalLocked(r.getOrCreateLocked(name))
}

func (r *Registry) signalLocked(g *group) uint64 {
	g.version++
	g.changedAt = r.now()
	close(g.wake)
	g.wake = make(chan struct{})
	return g.version
}

// SignalAll signals every group known at the moment of the call and
// returns their names in sorted order. Groups created after the snapshot
// is taken are not signaled by this call.
func (r *Registry) SignalAll() []string {
	names := r.Names()
	for _, name := range names {
		r.Signal(name)
	}
	return names
}

// Names returns the sorted names of all known groups.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	r.mu.Unlock()

	slices.Sort(names)
	return names
}

// Lookup returns a copy of the named group's record without creating it.
func (r *Registry) Lookup(name string) (Group, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	if !ok {
		return Group{}, false
	}
	return Group{Name: g.name, Version: g.version, ChangedAt: g.changedAt}, true
}

// Len returns the number of known groups.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// Name returns the group name the handle refers to.
func (h *Handle) Name() string {
	return h.g.name
}

// Version returns the group's current version. Use it to capture the
// baseline passed to WaitForChange.
func (h *Handle) Version() uint64 {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	return h.g.version
}

// Signal is Registry.Signal for the handle's group.
func (h *Handle) Signal() uint64 {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	return h.reg.signalLocked(h.g)
}

// WaitForChange blocks until the group's version exceeds baseline or the
// deadline passes.
//
// The version check and the capture of the wake channel happen under the
// registry lock, so a signal that lands between the caller reading the
// baseline and entering the wait is still observed: either the version has
// already moved, or the captured channel is the one that signal closes.
//
// Returns:
//   - changed: false only when the deadline was reached without an advance
//   - version: the version observed when returning
func (h *Handle) WaitForChange(baseline uint64, deadline time.Time) (bool, uint64) {
	for {
		h.reg.mu.Lock()
		version := h.g.version
		wake := h.g.wake
		h.reg.mu.Unlock()

		if version > baseline {
			return true, version
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, version
		}

		timer := time.NewTimer(remaining)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
