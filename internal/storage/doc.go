// Package storage defines the key-value interface behind herald's chat
// data and provides an in-memory and a Pebble implementation.
//
// # Overview
//
// Only the chat repository persists anything. Notification groups,
// memberships and failover state live only in memory and never pass
// through this package.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          chat.Repository            │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│           storage.Store             │
//	│ Get Put Delete ListPrefix Stats     │
//	└─────────────────────────────────────┘
//	          │                 │
//	          ▼                 ▼
//	┌──────────────┐   ┌──────────────┐
//	│ MemoryStore  │   │ PebbleStore  │
//	│ (default)    │   │ (--data-dir) │
//	└──────────────┘   └──────────────┘
//
// # Semantics
//
// Both backends agree on:
//   - Get returns ErrKeyNotFound for missing keys and a private copy of the
//     value otherwise.
//   - Delete of a missing key succeeds.
//   - ListPrefix returns matching keys in ascending byte order, which lets
//     callers page records by zero padded ids.
//
// MemoryStore guards a map with a sync.RWMutex. PebbleStore relies on
// Pebble's own concurrency; with sync enabled every write waits for the
// WAL to reach disk.
//
// # Testing
//
// store_test.go runs one conformance suite against every backend, using
// t.TempDir() for Pebble.
package storage
