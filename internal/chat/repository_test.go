package chat

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/herald/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	r := NewRepository(storage.NewMemoryStore())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	return r
}

func mustLogin(t *testing.T, r *Repository, name string) User {
	t.Helper()
	u, _, err := r.Login(name)
	require.NoError(t, err)
	return u
}

// TestLogin tests find-or-create semantics
func TestLogin(t *testing.T) {
	r := newTestRepo(t)

	alice, created, err := r.Login("alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), alice.ID)
	assert.Equal(t, "alice", alice.Username)

	again, created, err := r.Login("  alice ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, alice, again)

	bob := mustLogin(t, r, "bob")
	assert.Equal(t, int64(2), bob.ID)

	got, err := r.User(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, got)

	_, err = r.User(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestLoginValidation tests username validation
func TestLoginValidation(t *testing.T) {
	r := newTestRepo(t)

	tests := []struct {
		name     string
		username string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"too long", strings.Repeat("a", MaxUsernameLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.Login(tt.username)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

// TestCreateGroup tests group creation and membership
func TestCreateGroup(t *testing.T) {
	r := newTestRepo(t)
	alice := mustLogin(t, r, "alice")
	bob := mustLogin(t, r, "bob")

	g, err := r.CreateGroup("Alice and Friends", alice.ID, []string{"bob", "alice", "bob", ""})
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.ID)
	assert.Equal(t, "Alice and Friends", g.Name)
	assert.Equal(t, alice.ID, g.CreatorID)
	assert.Equal(t, []int64{alice.ID, bob.ID}, g.Members)

	for _, u := range []User{alice, bob} {
		groups, err := r.UserGroups(u.ID)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, g.ID, groups[0].ID)
	}

	members, err := r.GroupMembers(g.ID)
	require.NoError(t, err)
	assert.Equal(t, []User{alice, bob}, members)
}

// TestCreateGroupErrors tests the error classes of CreateGroup
func TestCreateGroupErrors(t *testing.T) {
	r := newTestRepo(t)
	alice := mustLogin(t, r, "alice")
	_, err := r.CreateGroup("General", alice.ID, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		group   string
		creator int64
		members []string
		want    error
	}{
		{"empty name", "", alice.ID, nil, ErrInvalid},
		{"long name", strings.Repeat("g", MaxGroupNameLen+1), alice.ID, nil, ErrInvalid},
		{"unknown creator", "Other", 42, nil, ErrNotFound},
		{"unknown member", "Other", alice.ID, []string{"mallory"}, ErrNotFound},
		{"duplicate name ignoring case", "gEnErAl", alice.ID, nil, ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateGroup(tt.group, tt.creator, tt.members)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unicode name", func(t *testing.T) {
		g, err := r.CreateGroup("Test Group 🚀 with émojis", alice.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "Test Group 🚀 with émojis", g.Name)
	})
}

// TestUserGroupsOrder tests that groups are listed in id order
func TestUserGroupsOrder(t *testing.T) {
	r := newTestRepo(t)
	alice := mustLogin(t, r, "alice")
	mustLogin(t, r, "bob")

	for i, name := range []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten", "eleven"} {
		members := []string{}
		if i%2 == 0 {
			members = append(members, "bob")
		}
		_, err := r.CreateGroup(name, alice.ID, members)
		require.NoError(t, err)
	}

	groups, err := r.UserGroups(alice.ID)
	require.NoError(t, err)
	require.Len(t, groups, 11)
	for i := range groups {
		assert.Equal(t, int64(i+1), groups[i].ID)
	}

	bobGroups, err := r.UserGroups(2)
	require.NoError(t, err)
	assert.Len(t, bobGroups, 6)

	_, err = r.UserGroups(77)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestMessages tests sending and listing messages
func TestMessages(t *testing.T) {
	r := newTestRepo(t)
	alice := mustLogin(t, r, "alice")
	bob := mustLogin(t, r, "bob")
	carol := mustLogin(t, r, "carol")
	g, err := r.CreateGroup("room", alice.ID, []string{"bob"})
	require.NoError(t, err)

	m1, err := r.SendMessage(g.ID, alice.ID, "hello")
	require.NoError(t, err)
	m2, err := r.SendMessage(g.ID, bob.ID, "hi alice")
	require.NoError(t, err)
	assert.Less(t, m1.ID, m2.ID)
	assert.Equal(t, g.ID, m2.GroupID)
	assert.Equal(t, r.now().UTC(), m2.Timestamp)

	msgs, err := r.Messages(g.ID)
	require.NoError(t, err)
	assert.Equal(t, []Message{m1, m2}, msgs)

	t.Run("errors", func(t *testing.T) {
		_, err := r.SendMessage(g.ID, alice.ID, "   ")
		assert.ErrorIs(t, err, ErrInvalid)

		_, err = r.SendMessage(g.ID, alice.ID, strings.Repeat("x", MaxMessageLen+1))
		assert.ErrorIs(t, err, ErrInvalid)

		_, err = r.SendMessage(g.ID, carol.ID, "let me in")
		assert.ErrorIs(t, err, ErrInvalid)

		_, err = r.SendMessage(999, alice.ID, "nobody home")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = r.SendMessage(g.ID, 999, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = r.Messages(999)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = r.GroupMembers(999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty group lists no messages", func(t *testing.T) {
		quiet, err := r.CreateGroup("quiet", alice.ID, nil)
		require.NoError(t, err)
		msgs, err := r.Messages(quiet.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.NotNil(t, msgs)
	})
}

// TestRepositoryPebble runs a short flow against the pebble backend and
// reopens it to check persistence
func TestRepositoryPebble(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.OpenPebble(dir, true)
	require.NoError(t, err)

	r := NewRepository(store)
	alice := mustLogin(t, r, "alice")
	g, err := r.CreateGroup("persisted", alice.ID, nil)
	require.NoError(t, err)
	_, err = r.SendMessage(g.ID, alice.ID, "still here")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = storage.OpenPebble(dir, true)
	require.NoError(t, err)
	defer store.Close()
	r = NewRepository(store)

	again, created, err := r.Login("alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, alice.ID, again.ID)

	msgs, err := r.Messages(g.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "still here", msgs[0].Text)

	bob := mustLogin(t, r, "bob")
	assert.Equal(t, int64(2), bob.ID, "sequences survive reopen")
}

// TestConcurrentLogin verifies that concurrent logins of one name create
// exactly one user
func TestConcurrentLogin(t *testing.T) {
	r := newTestRepo(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := map[int64]int{}
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, c, err := r.Login("dup")
			assert.NoError(t, err)
			mu.Lock()
			ids[u.ID]++
			if c {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 1, created)
}
