// Package websocket pushes battle updates to browsers and other watchers.
//
// A Hub groups connections by session id. Clients connect to
// /ws?session=<id> and receive JSON frames; anything they send is read and
// discarded so that pings and close frames are handled.
//
// Frames:
//
//	{"session_id": "...", "event": "state_update", "state": {...}}
//	{"session_id": "...", "event": "action_result", "state": {...}, "data": <service.ActionResult>}
//	{"session_id": "...", "event": "session_deleted"}
//
// A new connection first receives the session's current state.
//
// Concurrency:
//
// Registration, removal and delivery all run on the goroutine started by
// Run. Broadcast methods only enqueue, so the HTTP layer can call them while
// it holds a session lock. Clients that cannot keep up are dropped. When the
// context passed to Run is cancelled every connection is closed and later
// broadcasts are discarded.
//
// Usage:
//
//	hub := websocket.NewHub(log)
//	go hub.Run(ctx)
//
//	hub.BroadcastResult(sessionID, result)
package websocket
