// Package config provides scenario management for the Tactics Grid server.
//
// The config package handles:
//   - Loading battle scenarios from JSON or YAML files
//   - Scenario validation through the engine's rules
//   - Default scenario selection
//   - Scenario discovery, listing and saving
//
// Scenario Format:
//
// Scenarios live in a single directory, one file per scenario. The file name
// without its extension is the scenario id used to create sessions. Each
// scenario defines:
//   - Board width and height
//   - An optional layout using '.' floor, '#' wall, 'A' ally and 'E' enemy
//   - Additional walls and units with per-unit move ranges
//   - An optional seed for reproducible queue order and AI choices
//
// Usage:
//
//	manager, err := config.NewManager("configs", log)
//	if err != nil {
//		log.Fatal().Err(err).Msg("config")
//	}
//
//	battleConfig, err := manager.LoadConfig("corridor")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// Default Scenario:
//
// The default scenario is the "default" file when present, else the first
// valid file, else the built-in 10x10 skirmish. It is always available under
// the id "default".
package config
