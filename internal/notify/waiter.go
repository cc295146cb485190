package notify

import (
	"time"
)

// DefaultTimeout is how long a subscription waits before reporting no change.
const DefaultTimeout = 25 * time.Second

// StateReader exposes the server flags included in subscription snapshots.
type StateReader interface {
	Alive() bool
	Active() bool
}

// GroupLister resolves the groups a user belongs to.
type GroupLister interface {
	Groups(user string) []string
}

// Snapshot is the server state observed when a subscription returns.
type Snapshot struct {
	Alive  bool
	Active bool
}

// Outcome is the result of a single-group subscription.
type Outcome struct {
	Group    string
	Snapshot Snapshot
	Version  uint64
	Changed  bool
}

// UserOutcome is the result of a multi-group subscription.
type UserOutcome struct {
	UserID        string
	NotifiedGroup string   // Winning group, empty when nothing changed
	AllGroups     []string // Membership captured at entry
	Snapshot      Snapshot
	Version       uint64
	Changed       bool
}

// Waiter is the read side of the notification engine.
type Waiter struct {
	reg     *Registry
	members GroupLister
	state   StateReader
	timeout time.Duration
}

// NewWaiter creates a waiter. A non-positive timeout selects DefaultTimeout.
func NewWaiter(reg *Registry, members GroupLister, state StateReader, timeout time.Duration) *Waiter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Waiter{reg: reg, members: members, state: state, timeout: timeout}
}

// Timeout returns the default subscription timeout.
func (w *Waiter) Timeout() time.Duration {
	return w.timeout
}

func (w *Waiter) snapshot() Snapshot {
	return Snapshot{Alive: w.state.Alive(), Active: w.state.Active()}
}

// SubscribeGroup waits for the next signal on name. The baseline is the
// version at entry, so signals that completed before the call are not
// replayed.
func (w *Waiter) SubscribeGroup(name string, timeout time.Duration) Outcome {
	if timeout <= 0 {
		timeout = w.timeout
	}
	deadline := time.Now().Add(timeout)

	h := w.reg.GetOrCreate(name)
	changed, version := h.WaitForChange(h.Version(), deadline)

	out := Outcome{Group: name, Version: version, Changed: changed}
	if changed {
		out.Snapshot = w.snapshot()
	}
	return out
}

type waitResult struct {
	group   string
	version uint64
	changed bool
}

// SubscribeUser waits on every group the user belongs to and returns on
// the first one that changes.
//
// One goroutine waits per group, all sharing one deadline. The result
// channel holds one slot per group, so goroutines that lose the race
// deliver into the buffer and exit at the latest on the deadline.
//
// A user with no groups blocks until the deadline and reports no change.
func (w *Waiter) SubscribeUser(userID string, timeout time.Duration) UserOutcome {
	if timeout <= 0 {
		timeout = w.timeout
	}
	deadline := time.Now().Add(timeout)

	groups := w.members.Groups(userID)
	out := UserOutcome{UserID: userID, AllGroups: groups}

	if len(groups) == 0 {
		time.Sleep(time.Until(deadline))
		return out
	}

	results := make(chan waitResult, len(groups))
	for _, name := range groups {
		// Baselines are captured here, before the goroutines start, so the
		// whole set is anchored at entry.
		h := w.reg.GetOrCreate(name)
		baseline := h.Version()
		go func() {
			changed, version := h.WaitForChange(baseline, deadline)
			results <- waitResult{group: h.Name(), version: version, changed: changed}
		}()
	}

	for range groups {
		res := <-results
		if res.changed {
			out.Changed = true
			out.NotifiedGroup = res.group
			out.Version = res.version
			out.Snapshot = w.snapshot()
			return out
		}
	}
	return out
}
