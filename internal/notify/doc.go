// Package notify implements herald's long-poll notification engine: a
// registry of versioned groups, a dispatcher that bumps versions, and a
// waiter that blocks subscribers until a version moves or a deadline passes.
//
// # Overview
//
// Every group is a name plus a monotonically increasing version. A notify
// bumps the version and wakes every parked subscriber; a subscriber records
// the version it saw on entry and returns as soon as the group moves past
// it. A version value therefore answers one question: has at least one
// notify happened since V?
//
// # Architecture
//
//	 POST /notify/{group}            GET /subscribe/...
//	        │                                │
//	        ▼                                ▼
//	┌──────────────┐                ┌──────────────┐
//	│  Dispatcher  │                │    Waiter    │
//	│  Notify()    │                │  Subscribe*  │
//	└──────┬───────┘                └──────┬───────┘
//	       │ Signal / SignalAll            │ GetOrCreate / WaitForChange
//	       ▼                               ▼
//	┌─────────────────────────────────────────────┐
//	│                  Registry                    │
//	│   name → {version, changedAt, wake chan}    │
//	│   one sync.Mutex                            │
//	└─────────────────────────────────────────────┘
//
// # Wake Mechanism
//
// Go's sync.Cond cannot wait with a deadline, so each group carries a wake
// channel instead. Signal closes the channel (waking every receiver) and
// installs a fresh one, all under the registry lock. A waiter reads the
// version and the current channel in one critical section:
//
//   - version > baseline: return immediately
//   - otherwise: select on the captured channel and a deadline timer
//
// A signal that happens after the read closes exactly the channel the
// waiter holds, so no wakeup is lost. Spurious wakes (a signal for a
// version the waiter already counted) simply loop.
//
// # Multi-group Subscriptions
//
// SubscribeUser fans out one goroutine per group of the user and returns
// the first group that reports a change. Losers are not cancelled; each
// writes into a buffered result channel and exits on its own deadline.
//
// # Reserved Names
//
//   - "all": Dispatcher.Notify signals every group that exists at call time
//   - "default": the status group, signaled on fall/revive/promotion and the
//     default target of /subscribe/status
package notify
