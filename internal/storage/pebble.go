package storage

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// PebbleStore implements Store on a Pebble database directory.
// Pebble handles its own synchronization; PebbleStore adds none.
type PebbleStore struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

// OpenPebble opens or creates a Pebble database in dir. When sync is true
// every write waits for the WAL to reach disk.
func OpenPebble(dir string, sync bool) (*PebbleStore, error) {
	if dir == "" {
		return nil, errors.New("pebble: data directory is required")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "pebble: open %s", dir)
	}
	opts := pebble.NoSync
	if sync {
		opts = pebble.Sync
	}
	return &PebbleStore{db: db, writeOpts: opts}, nil
}

// Get copies the value stored under key
func (p *PebbleStore) Get(key string) ([]byte, error) {
	val, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrapf(err, "pebble: get %s", key)
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// Put stores value under key
func (p *PebbleStore) Put(key string, value []byte) error {
	if err := p.db.Set([]byte(key), value, p.writeOpts); err != nil {
		return errors.Wrapf(err, "pebble: put %s", key)
	}
	return nil
}

// Delete removes key; deleting a missing key succeeds
func (p *PebbleStore) Delete(key string) error {
	if err := p.db.Delete([]byte(key), p.writeOpts); err != nil {
		return errors.Wrapf(err, "pebble: delete %s", key)
	}
	return nil
}

// ListPrefix iterates keys in [prefix, prefixEnd) in ascending order
func (p *PebbleStore) ListPrefix(prefix string) ([]string, error) {
	opts := &pebble.IterOptions{LowerBound: []byte(prefix)}
	if upper := prefixEnd([]byte(prefix)); upper != nil {
		opts.UpperBound = upper
	}
	iter, err := p.db.NewIter(opts)
	if err != nil {
		return nil, errors.Wrap(err, "pebble: new iterator")
	}
	defer iter.Close()

	keys := make([]string, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "pebble: iterate")
	}
	return keys, nil
}

// Stats walks the whole keyspace
func (p *PebbleStore) Stats() StoreStats {
	var stats StoreStats
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return stats
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		stats.Keys++
		stats.Bytes += len(iter.Value())
	}
	return stats
}

// Close flushes and closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// prefixEnd returns the smallest key greater than every key with the given
// prefix, or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
