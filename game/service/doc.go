// Package service provides the business logic layer for the Tactics Grid server.
//
// The service package implements:
//   - Multi-session battle management
//   - Player intents (select, move, end action, new round) per session
//   - Reachability and path queries for the selected unit
//   - Scenario listing, loading and saving
//
// Core Interfaces:
//
// BattleService is the main service interface used by the transports.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads and validates scenarios.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine. Each session owns one engine.Battle guarded by the session's
// lock, so concurrent requests against the same battle are applied one at a
// time while different sessions proceed in parallel.
//
// Usage:
//
//	sessionMgr := session.NewManager(log)
//	configMgr, _ := config.NewManager("configs", log)
//	battleService := service.NewBattleService(sessionMgr, configMgr, log)
//
//	info, err := battleService.CreateSession(ctx, "corridor")
//	if err != nil {
//		return err
//	}
//
//	result, err := battleService.SelectUnit(ctx, info.ID, 1)
//
// Intent Results:
//
// Intents return an ActionResult holding the battle state and the engine
// events the intent produced. A rule violation (occupied tile, insufficient
// movement, wrong faction) is not an error: the result carries Success false
// and a stable error code, and the battle is left unchanged.
package service
