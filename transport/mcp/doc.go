// Package mcp exposes the battle REST API as Model Context Protocol tools so
// that AI agents can play.
//
// The Client holds no battle state. Every tool call becomes one REST request
// against a running server and the JSON response is rendered as text.
//
// Tools:
//   - create_session, list_sessions, list_configs
//   - battle_state: board with row and column indices, turn and units
//   - select_unit, move_unit, end_action, new_round: player intents
//   - reachable_tiles, find_path: movement previews for the selected unit
//
// A rejected intent comes back as a tool error whose text names the reason,
// so agents can tell it apart from a successful action.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
