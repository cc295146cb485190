// Package cluster provides the wire types and HTTP/JSON helpers herald
// instances use to talk to each other and that the CLI uses to talk to a
// server.
//
// # Overview
//
// Herald runs as a pair: one active instance serving traffic and one
// passive standby probing it. The only inter-node protocol is the health
// endpoint:
//
//	┌──────────────┐   GET /health    ┌──────────────┐
//	│   passive    │ ───────────────▶ │    active    │
//	│  (standby)   │ ◀─────────────── │   (primary)  │
//	└──────────────┘ {status,active}  └──────────────┘
//
// A probe succeeds only when the peer answers 200 with
// {"status":"alive","active":true}. Transport errors, non-2xx codes and a
// peer that reports itself dead or passive all count as failures.
//
// # Helpers
//
//   - GetJSON / GetJSONWith: GET with status code passthrough; 204 means
//     "no body" rather than a decode error, which long-poll clients rely on
//   - PostJSON: POST a JSON body, optionally decoding the response
//   - CheckHealth: the probe used by the failover coordinator
//   - BaseURL: accepts host:port or full URLs
//
// Non-2xx responses surface as *StatusError so callers can branch on the
// code with errors.As.
//
// # Concurrency
//
// All helpers are stateless and safe for concurrent use. The shared client
// has a 5 second timeout; the failover coordinator passes its own client
// with the configured probe timeout.
package cluster
