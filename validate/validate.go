// Command validate provides a small CLI that validates custom ruleset JSON
// files in a rulesets directory. It checks:
//   - JSON structure and the hard constraints enforced at load time
//   - Player bounds against what the board geometry supports
//   - Prize split totals and ordering
//   - Pacing sanity (turn timeouts, countdown, reconnect grace)
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ludoroyale/game-server/game/rules"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Notes contains informational messages; otherwise it
// accumulates the validation errors that were found. Warnings are non-fatal
// either way.
type ValidationResult struct {
	File     string
	Valid    bool
	Notes    []string
	Warnings []string
}

// validateRuleset loads and validates a single ruleset JSON file. Hard
// constraints come from the rules package; the extra lint checks here catch
// configurations that are legal but almost certainly unintended.
func validateRuleset(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Notes = append(result.Notes, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var cfg rules.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		result.Valid = false
		result.Notes = append(result.Notes, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := rules.Validate(&cfg); err != nil {
		result.Valid = false
		result.Notes = append(result.Notes, err.Error())
		return result
	}

	// Lint checks beyond the load-time constraints.
	if cfg.Name == "" {
		result.Warnings = append(result.Warnings, "name is empty; listings will show the filename instead")
	}
	if cfg.TurnTimeoutSec < 5 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("turn_timeout_sec %d is very tight; players on slow connections will time out constantly", cfg.TurnTimeoutSec))
	}
	if cfg.TurnTimeoutSec > 300 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("turn_timeout_sec %d means one absent player can stall a game for minutes per turn", cfg.TurnTimeoutSec))
	}
	if cfg.CountdownSec == 0 {
		result.Warnings = append(result.Warnings, "countdown_sec 0 starts games instantly; late joiners get no warning")
	}
	if cfg.ReconnectGraceSec < cfg.TurnTimeoutSec {
		result.Warnings = append(result.Warnings, fmt.Sprintf("reconnect_grace_sec %d is shorter than the turn timeout %d; a dropped player forfeits before their turn would even expire", cfg.ReconnectGraceSec, cfg.TurnTimeoutSec))
	}
	if cfg.MissedTurnLimit == 0 && !cfg.TimeoutLifePenalty {
		result.Warnings = append(result.Warnings, "no missed_turn_limit and no timeout_life_penalty; an AFK player is never eliminated")
	}
	for i := 1; i < len(cfg.PrizeSplit); i++ {
		if cfg.PrizeSplit[i] > cfg.PrizeSplit[i-1] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("prize_split rank %d pays more than rank %d", i+1, i))
		}
	}
	if len(cfg.PrizeSplit) > cfg.MaxPlayers {
		result.Warnings = append(result.Warnings, fmt.Sprintf("prize_split has %d ranks but only %d players can be seated", len(cfg.PrizeSplit), cfg.MaxPlayers))
	}

	result.Notes = append(result.Notes, fmt.Sprintf("Name: %s", cfg.Name))
	result.Notes = append(result.Notes, fmt.Sprintf("Players: %d-%d", cfg.MinPlayers, cfg.MaxPlayers))
	result.Notes = append(result.Notes, fmt.Sprintf("Pacing: %ds countdown, %ds turns, %ds reconnect grace", cfg.CountdownSec, cfg.TurnTimeoutSec, cfg.ReconnectGraceSec))
	if cfg.MoveCap > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf("Move cap: %d", cfg.MoveCap))
	}
	if cfg.Lives > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf("Lives: %d (timeout penalty: %v)", cfg.Lives, cfg.TimeoutLifePenalty))
	}
	if len(cfg.PrizeSplit) > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf("Prize split: %v", cfg.PrizeSplit))
	}

	return result
}

// main scans the ruleset directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	rulesetDir := flag.String("dir", "rulesets", "Directory containing ruleset JSON files")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*rulesetDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding ruleset files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No ruleset files found in %s\n", *rulesetDir)
		return
	}

	allValid := true
	for _, file := range files {
		result := validateRuleset(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("VALID")
			for _, note := range result.Notes {
				fmt.Println("  " + note)
			}
		} else {
			fmt.Println("INVALID")
			allValid = false
			for _, note := range result.Notes {
				fmt.Println("  ! " + note)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Println("  warning: " + warning)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("All rulesets are valid")
	} else {
		fmt.Println("Some rulesets have errors")
		os.Exit(1)
	}
}
