package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeState struct {
	alive, active bool
}

func (f fakeState) Alive() bool  { return f.alive }
func (f fakeState) Active() bool { return f.active }

type fakeMembers struct {
	mu     sync.Mutex
	groups map[string][]string
}

func (f *fakeMembers) Groups(user string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.groups[user]...)
}

func newTestWaiter(members map[string][]string) (*Registry, *Waiter) {
	reg := NewRegistry()
	w := NewWaiter(reg, &fakeMembers{groups: members}, fakeState{alive: true, active: true}, time.Second)
	return reg, w
}

// TestNewWaiterDefaultTimeout verifies the fallback timeout.
func TestNewWaiterDefaultTimeout(t *testing.T) {
	w := NewWaiter(NewRegistry(), &fakeMembers{}, fakeState{}, 0)
	assert.Equal(t, DefaultTimeout, w.Timeout())
}

// TestSubscribeGroupChange verifies a notified group returns with a snapshot.
func TestSubscribeGroupChange(t *testing.T) {
	reg, w := newTestWaiter(nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		reg.Signal("frontend")
	}()

	out := w.SubscribeGroup("frontend", time.Second)
	assert.True(t, out.Changed)
	assert.Equal(t, "frontend", out.Group)
	assert.Equal(t, uint64(1), out.Version)
	assert.Equal(t, Snapshot{Alive: true, Active: true}, out.Snapshot)
}

// TestSubscribeGroupTimeout verifies the no-change path and lazy creation.
func TestSubscribeGroupTimeout(t *testing.T) {
	reg, w := newTestWaiter(nil)

	start := time.Now()
	out := w.SubscribeGroup("never", 100*time.Millisecond)

	assert.False(t, out.Changed)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	_, ok := reg.Lookup("never")
	assert.True(t, ok, "subscribe creates the group")
}

// TestSubscribeGroupNoReplay verifies that a notify completed before the
// subscription started is not reported.
func TestSubscribeGroupNoReplay(t *testing.T) {
	reg, w := newTestWaiter(nil)
	reg.Signal("g")

	out := w.SubscribeGroup("g", 60*time.Millisecond)
	assert.False(t, out.Changed)
}

// TestSubscribeUserRace verifies the first changed group wins.
func TestSubscribeUserRace(t *testing.T) {
	reg, w := newTestWaiter(map[string][]string{
		"alice": {"backend", "frontend"},
	})

	go func() {
		time.Sleep(100 * time.Millisecond)
		reg.Signal("backend")
	}()

	start := time.Now()
	out := w.SubscribeUser("alice", 10*time.Second)
	elapsed := time.Since(start)

	require.True(t, out.Changed)
	assert.Equal(t, "backend", out.NotifiedGroup)
	assert.ElementsMatch(t, []string{"frontend", "backend"}, out.AllGroups)
	assert.Equal(t, "alice", out.UserID)
	assert.Less(t, elapsed, 2*time.Second, "should return well before the timeout")
}

// TestSubscribeUserTimeout verifies no change across all groups.
func TestSubscribeUserTimeout(t *testing.T) {
	_, w := newTestWaiter(map[string][]string{
		"bob": {"a", "b", "c"},
	})

	start := time.Now()
	out := w.SubscribeUser("bob", 100*time.Millisecond)

	assert.False(t, out.Changed)
	assert.Empty(t, out.NotifiedGroup)
	assert.Len(t, out.AllGroups, 3)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

// TestSubscribeUserUnknown verifies that a user without groups times out
// instead of failing.
func TestSubscribeUserUnknown(t *testing.T) {
	reg, w := newTestWaiter(nil)

	start := time.Now()
	out := w.SubscribeUser("ghost", 80*time.Millisecond)

	assert.False(t, out.Changed)
	assert.Empty(t, out.AllGroups)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 0, reg.Len())
}

// TestSubscribeUserSimultaneous verifies exactly one winner is reported
// when several groups change together.
func TestSubscribeUserSimultaneous(t *testing.T) {
	reg, w := newTestWaiter(map[string][]string{
		"carol": {"x", "y"},
	})

	go func() {
		time.Sleep(50 * time.Millisecond)
		reg.SignalAll()
	}()

	out := w.SubscribeUser("carol", time.Second)
	require.True(t, out.Changed)
	assert.Contains(t, []string{"x", "y"}, out.NotifiedGroup)
}

// TestDispatcherNotify verifies single and all-group notifies.
func TestDispatcherNotify(t *testing.T) {
	logger, _ := test.NewNullLogger()
	reg := NewRegistry()
	d := NewDispatcher(reg, logger)

	res := d.Notify("frontend")
	assert.False(t, res.All)
	assert.Equal(t, []string{"frontend"}, res.Groups)
	assert.Equal(t, uint64(1), res.Version)

	reg.GetOrCreate("backend")
	res = d.Notify(AllGroups)
	assert.True(t, res.All)
	assert.Equal(t, []string{"backend", "frontend"}, res.Groups)

	_, ok := reg.Lookup(AllGroups)
	assert.False(t, ok, "the reserved name is never materialized")

	d.Signal(StatusGroup)
	g, ok := reg.Lookup(StatusGroup)
	require.True(t, ok)
	assert.Equal(t, uint64(1), g.Version)
}
