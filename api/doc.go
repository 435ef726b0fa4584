// Package api exposes the battle service over HTTP.
//
// Sessions:
//   - POST   /api/sessions              {"config_id": "corridor"} creates a battle and starts round 1
//   - GET    /api/sessions              ?sort=created|accessed&order=asc|desc&limit=N&config=ID
//   - GET    /api/sessions/{id}
//   - DELETE /api/sessions/{id}
//
// Battle:
//   - GET  /api/sessions/{id}/state
//   - POST /api/sessions/{id}/select     {"unit": 2}, unit 0 clears the selection
//   - POST /api/sessions/{id}/move       {"x": 3, "y": 4}
//   - POST /api/sessions/{id}/end-action
//   - POST /api/sessions/{id}/new-round
//   - GET  /api/sessions/{id}/reachable
//   - GET  /api/sessions/{id}/path?x=3&y=4
//
// Scenarios:
//   - GET  /api/configs
//   - GET  /api/configs/{id}
//   - POST /api/configs?id=arena.yaml   body is a scenario; the id defaults to its name
//
// Intents always answer 200 with a service.ActionResult. A rejected intent
// has success false and a code such as "tile_occupied"; the battle is left
// unchanged. Other failures answer {"error": "...", "code": "..."} with 404
// for unknown sessions or scenarios, 400 for malformed input and 409 for
// queries that do not fit the current turn.
//
// Successful intents are pushed to websocket watchers of the session, who
// connect on /ws?session={id}.
package api
