package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/dreamware/herald/internal/storage"
)

// Limits on user supplied text, in runes.
const (
	MaxUsernameLen  = 64
	MaxGroupNameLen = 128
	MaxMessageLen   = 4000
)

// Key layout. Ids are zero padded so that lexical order is numeric order.
const (
	seqUsers    = "seq/users"
	seqGroups   = "seq/groups"
	seqMessages = "seq/messages"

	prefixUsers      = "users/"
	prefixUsernames  = "usernames/"
	prefixGroups     = "groups/"
	prefixGroupNames = "groupnames/"
	prefixUserGroups = "usergroups/"
	prefixMessages   = "messages/"
)

// User is a chat participant.
type User struct {
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	ID        int64     `json:"user_id"`
}

// Group is a named chat room.
type Group struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"group_name"`
	Members   []int64   `json:"members"` // Member user ids, ascending
	ID        int64     `json:"group_id"`
	CreatorID int64     `json:"creator_id"`
}

// Message is one chat line.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	ID        int64     `json:"message_id"`
	GroupID   int64     `json:"chat_id"`
	SenderID  int64     `json:"user_id"`
}

// Repository stores users, groups and messages as JSON records in a
// storage.Store.
// Thread-safe: compound operations are serialized by mu.
type Repository struct {
	store storage.Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewRepository creates a repository backed by store.
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Login returns the user called username, creating it first if needed.
// created reports whether a new user was made.
func (r *Repository) Login(username string) (User, bool, error) {
	username = strings.TrimSpace(username)
	if err := checkText("username", username, MaxUsernameLen); err != nil {
		return User{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok, err := r.indexLookup(prefixUsernames + username); err != nil {
		return User{}, false, err
	} else if ok {
		u, err := r.user(id)
		return u, false, err
	}

	id, err := r.nextID(seqUsers)
	if err != nil {
		return User{}, false, err
	}
	u := User{ID: id, Username: username, CreatedAt: r.now().UTC()}
	if err := r.putJSON(userKey(id), u); err != nil {
		return User{}, false, err
	}
	if err := r.putIndex(prefixUsernames+username, id); err != nil {
		return User{}, false, err
	}
	return u, true, nil
}

// User returns the user with the given id.
func (r *Repository) User(id int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user(id)
}

// CreateGroup creates a group named name owned by creatorID. members are
// usernames added alongside the creator, who is always a member. Group
// names are unique ignoring case.
func (r *Repository) CreateGroup(name string, creatorID int64, members []string) (Group, error) {
	name = strings.TrimSpace(name)
	if err := checkText("group name", name, MaxGroupNameLen); err != nil {
		return Group{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.user(creatorID); err != nil {
		return Group{}, err
	}

	nameKey := prefixGroupNames + strings.ToLower(name)
	if _, ok, err := r.indexLookup(nameKey); err != nil {
		return Group{}, err
	} else if ok {
		return Group{}, conflictf("group %q", name)
	}

	ids := []int64{creatorID}
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		id, ok, err := r.indexLookup(prefixUsernames + m)
		if err != nil {
			return Group{}, err
		}
		if !ok {
			return Group{}, notFoundf("user %q", m)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	id, err := r.nextID(seqGroups)
	if err != nil {
		return Group{}, err
	}
	g := Group{ID: id, Name: name, CreatorID: creatorID, Members: ids, CreatedAt: r.now().UTC()}
	if err := r.putJSON(groupKey(id), g); err != nil {
		return Group{}, err
	}
	if err := r.putIndex(nameKey, id); err != nil {
		return Group{}, err
	}
	for _, uid := range ids {
		if err := r.store.Put(userGroupKey(uid, id), nil); err != nil {
			return Group{}, errors.Wrap(err, "chat: index membership")
		}
	}
	return g, nil
}

// Group returns the group with the given id.
func (r *Repository) Group(id int64) (Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.group(id)
}

// UserGroups lists the groups userID belongs to in id order.
func (r *Repository) UserGroups(userID int64) ([]Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.user(userID); err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("%s%020d/", prefixUserGroups, userID)
	keys, err := r.store.ListPrefix(prefix)
	if err != nil {
		return nil, errors.Wrap(err, "chat: list user groups")
	}

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		gid, err := strconv.ParseInt(strings.TrimPrefix(k, prefix), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "chat: bad index key %s", k)
		}
		g, err := r.group(gid)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// GroupMembers returns the users in groupID ordered by id.
func (r *Repository) GroupMembers(groupID int64) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.group(groupID)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(g.Members))
	for _, uid := range g.Members {
		u, err := r.user(uid)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// SendMessage appends a message from senderID to groupID. The sender must
// be a member of the group.
func (r *Repository) SendMessage(groupID, senderID int64, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, invalidf("message text is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return Message{}, invalidf("message text exceeds %d characters", MaxMessageLen)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.group(groupID)
	if err != nil {
		return Message{}, err
	}
	if _, err := r.user(senderID); err != nil {
		return Message{}, err
	}
	if _, found := slices.BinarySearch(g.Members, senderID); !found {
		return Message{}, invalidf("user %d is not a member of group %d", senderID, groupID)
	}

	id, err := r.nextID(seqMessages)
	if err != nil {
		return Message{}, err
	}
	m := Message{ID: id, GroupID: groupID, SenderID: senderID, Text: text, Timestamp: r.now().UTC()}
	if err := r.putJSON(messageKey(groupID, id), m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Messages returns the messages of groupID ordered by id.
func (r *Repository) Messages(groupID int64) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.group(groupID); err != nil {
		return nil, err
	}
	keys, err := r.store.ListPrefix(fmt.Sprintf("%s%020d/", prefixMessages, groupID))
	if err != nil {
		return nil, errors.Wrap(err, "chat: list messages")
	}
	msgs := make([]Message, 0, len(keys))
	for _, k := range keys {
		var m Message
		if err := r.getJSON(k, &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r *Repository) user(id int64) (User, error) {
	var u User
	if err := r.getJSON(userKey(id), &u); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return User{}, notFoundf("user %d", id)
		}
		return User{}, err
	}
	return u, nil
}

func (r *Repository) group(id int64) (Group, error) {
	var g Group
	if err := r.getJSON(groupKey(id), &g); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return Group{}, notFoundf("group %d", id)
		}
		return Group{}, err
	}
	return g, nil
}

// nextID increments and returns the counter stored under key. Callers hold mu.
func (r *Repository) nextID(key string) (int64, error) {
	var cur int64
	raw, err := r.store.Get(key)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return 0, errors.Wrapf(err, "chat: read sequence %s", key)
	default:
		if cur, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
			return 0, errors.Wrapf(err, "chat: corrupt sequence %s", key)
		}
	}
	cur++
	if err := r.store.Put(key, []byte(strconv.FormatInt(cur, 10))); err != nil {
		return 0, errors.Wrapf(err, "chat: write sequence %s", key)
	}
	return cur, nil
}

func (r *Repository) indexLookup(key string) (int64, bool, error) {
	raw, err := r.store.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "chat: read index %s", key)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "chat: corrupt index %s", key)
	}
	return id, true, nil
}

func (r *Repository) putIndex(key string, id int64) error {
	if err := r.store.Put(key, []byte(strconv.FormatInt(id, 10))); err != nil {
		return errors.Wrapf(err, "chat: write index %s", key)
	}
	return nil
}

func (r *Repository) getJSON(key string, out any) error {
	raw, err := r.store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return err
		}
		return errors.Wrapf(err, "chat: get %s", key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "chat: decode %s", key)
	}
	return nil
}

func (r *Repository) putJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "chat: encode %s", key)
	}
	if err := r.store.Put(key, raw); err != nil {
		return errors.Wrapf(err, "chat: put %s", key)
	}
	return nil
}

func checkText(field, value string, max int) error {
	if value == "" {
		return invalidf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return invalidf("%s exceeds %d characters", field, max)
	}
	return nil
}

func userKey(id int64) string  { return fmt.Sprintf("%s%020d", prefixUsers, id) }
func groupKey(id int64) string { return fmt.Sprintf("%s%020d", prefixGroups, id) }

func userGroupKey(userID, groupID int64) string {
	return fmt.Sprintf("%s%020d/%020d", prefixUserGroups, userID, groupID)
}

func messageKey(groupID, id int64) string {
	return fmt.Sprintf("%s%020d/%020d", prefixMessages, groupID, id)
}
