// Package api exposes a herald instance over HTTP.
//
// # Overview
//
// The server is a gorilla/mux router wrapped in two middlewares. CORS runs
// first and answers every OPTIONS preflight with 204. The request logger
// runs second: it assigns an X-Request-ID and writes one log line per
// request.
//
//	client ──▶ cors ──▶ requestLog ──▶ mux.Router ──▶ gated(handler)
//	                                       │
//	                    /health /fall /revive (never gated)
//
// # Routes
//
// Long polling:
//   - GET /subscribe/status?group=g[&timeout=d]
//   - GET /subscribe/user?user_id=u[&timeout=d]
//
// Both return 200 with the post-change snapshot, or 204 when the timeout
// passes first. timeout accepts a Go duration or whole seconds.
//
// Notification and membership:
//   - POST /notify/{group}, where {group} may be "all"
//   - GET /groups, GET /users
//   - GET|POST /user/{id}/groups
//   - POST|DELETE /user/{id}/groups/{group}
//
// Chat:
//   - POST /login, POST /create-chat, POST /send
//   - GET /chats?userId=, /messages?chatId=, /group-users?groupId=
//
// POST /send also signals the notification group "chat-{id}".
//
// # Errors
//
// Every error body is {"error": "..."}. While the node is marked down all
// gated routes answer 503. Chat errors map to 400, 404 and 409 by their
// sentinel; anything unclassified is logged and answered with a generic
// 500.
package api
