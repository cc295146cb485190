// Package chat persists users, chat groups and messages on top of a
// storage.Store.
//
// Records are JSON encoded under an ordered key layout:
//
//	seq/{users,groups,messages}        id counters
//	users/<id>                         User
//	usernames/<username>               user id
//	groups/<id>                        Group
//	groupnames/<lower(name)>           group id
//	usergroups/<user id>/<group id>    membership index
//	messages/<group id>/<message id>   Message
//
// Ids are zero padded to twenty digits, so a prefix scan returns records
// in id order on every backend.
//
// Errors wrap one of ErrInvalid, ErrNotFound or ErrConflict when the cause
// is the request rather than the backend.
package chat
