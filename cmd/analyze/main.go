// Command analyze prints quick, human-readable pacing heuristics about rule
// configurations: estimated game length, worst-case wall-clock duration, and
// prize split sanity. It covers the built-in variants plus any custom ruleset
// files in the rulesets directory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ludoroyale/game-server/game/board"
	"github.com/ludoroyale/game-server/game/rules"
)

// Analysis summarizes pacing heuristics for one configuration.
type Analysis struct {
	Name string

	// EstimatedMoves is a rough expected number of committed moves for a
	// full game at MaxPlayers, ignoring captures.
	EstimatedMoves int

	// WorstCaseDuration assumes every turn runs to the timeout.
	WorstCaseDuration time.Duration

	// CappedByMoves is set when the move cap is likely to end the game
	// before anyone finishes all tokens.
	CappedByMoves bool
}

// averageRoll is the expected value of a fair die.
const averageRoll = 3.5

// estimateMovesPerPlayer estimates committed moves for one player to bring
// every token from home to the finish: each token needs a six to enter
// (expected six rolls) and then walks the full path at the average roll.
func estimateMovesPerPlayer() int {
	entryRolls := 6
	walkMoves := int(float64(board.FinishIndex)/averageRoll) + 1
	return rules.TokensPerPlayer * (entryRolls + walkMoves)
}

// analyze computes pacing heuristics for a configuration.
func analyze(name string, cfg rules.Config) Analysis {
	perPlayer := estimateMovesPerPlayer()
	total := perPlayer * cfg.MaxPlayers

	a := Analysis{
		Name:              name,
		EstimatedMoves:    total,
		WorstCaseDuration: time.Duration(total*cfg.TurnTimeoutSec) * time.Second,
	}
	if cfg.MoveCap > 0 && cfg.MoveCap < total {
		a.CappedByMoves = true
		a.WorstCaseDuration = time.Duration(cfg.MoveCap*cfg.TurnTimeoutSec) * time.Second
	}
	return a
}

func printAnalysis(cfg rules.Config, a Analysis) {
	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Players: %d-%d\n", cfg.MinPlayers, cfg.MaxPlayers)
	fmt.Printf("Pacing: %ds countdown, %ds turns, %ds reconnect grace\n",
		cfg.CountdownSec, cfg.TurnTimeoutSec, cfg.ReconnectGraceSec)
	fmt.Printf("Estimated moves (full game, %d players): ~%d\n", cfg.MaxPlayers, a.EstimatedMoves)
	fmt.Printf("Worst-case duration (every turn times out): %s\n", a.WorstCaseDuration)

	if a.CappedByMoves {
		fmt.Printf("Move cap %d will usually end the game on points before anyone finishes\n", cfg.MoveCap)
	} else if cfg.MoveCap > 0 {
		fmt.Printf("Move cap %d is above the estimate; it only guards runaway games\n", cfg.MoveCap)
	}

	if cfg.Lives > 0 {
		fmt.Printf("Lives: %d (timeout penalty: %v)\n", cfg.Lives, cfg.TimeoutLifePenalty)
	}
	if len(cfg.PrizeSplit) > 0 {
		fmt.Printf("Prize split:")
		for rank, share := range cfg.PrizeSplit {
			fmt.Printf(" #%d=%d%%", rank+1, share)
		}
		fmt.Println()
	}
}

func main() {
	rulesetDir := flag.String("dir", "rulesets", "Directory containing custom ruleset JSON files")
	flag.Parse()

	for _, variant := range []rules.Variant{rules.Classic, rules.Quick, rules.Kill} {
		cfg, err := rules.VariantConfig(variant)
		if err != nil {
			fmt.Printf("Error loading variant %s: %v\n", variant, err)
			continue
		}
		fmt.Printf("\n=== Analyzing variant %s ===\n", variant)
		printAnalysis(cfg, analyze(string(variant), cfg))
	}

	files, err := filepath.Glob(filepath.Join(*rulesetDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding ruleset files: %v\n", err)
		return
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeFile(file)
	}
}

func analyzeFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		return
	}

	var cfg rules.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		fmt.Printf("Error parsing JSON: %v\n", err)
		return
	}
	if err := rules.Validate(&cfg); err != nil {
		fmt.Printf("Invalid ruleset: %v\n", err)
		return
	}

	name := cfg.Name
	if name == "" {
		name = filepath.Base(path)
	}
	printAnalysis(cfg, analyze(name, cfg))
}
