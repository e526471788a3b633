// Package config provides custom ruleset management for the game server.
//
// The config package handles:
//   - Loading rulesets from JSON files
//   - Ruleset validation and caching
//   - Ruleset discovery and listing
//   - Resolving a variant name to a full rule configuration
//
// Ruleset Format:
//
// Rulesets are stored as JSON files in the rulesets directory. Each file is
// a serialized rules.Config defining:
//   - Player count bounds and turn pacing (countdown, turn timeout)
//   - Bonus rules (extra roll on six, bonus turn on capture, capture reward)
//   - Penalties (timeout life loss, missed-turn elimination threshold)
//   - Disconnect grace window
//   - Optional move and score caps with a prize split
//
// Built-in Variants:
//
// CLASSIC, QUICK, and KILL are compiled-in presets in the rules package and
// never touch disk. This manager only serves the CUSTOM variant, which
// references a ruleset file by name at room creation.
//
// Usage:
//
//	manager, err := config.NewManager("rulesets")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Resolve what a room creation request asked for
//	cfg, err := manager.Resolve(rules.Custom, "tournament")
//
//	// List available rulesets
//	infos, err := manager.List()
//
// Validation:
//
// Every loaded ruleset passes rules.Validate before it is cached; files
// that fail to parse or validate are skipped by List and rejected by Load.
package config
