package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ludoroyale/game-server/game/rules"
)

var (
	ErrRulesetNotFound = errors.New("ruleset not found")
	ErrInvalidRuleset  = errors.New("invalid ruleset")
)

// RulesetInfo describes one loadable ruleset for listing endpoints.
type RulesetInfo struct {
	Filename    string `json:"filename"`
	RulesetID   string `json:"ruleset_id"` // identifier to use at room creation
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MinPlayers  int    `json:"min_players"`
	MaxPlayers  int    `json:"max_players"`
}

// Manager loads and caches custom rulesets from a directory of JSON files.
// Sessions created with the CUSTOM variant reference rulesets by name.
type Manager struct {
	rulesetDir string
	rulesets   map[string]*rules.Config
	mu         sync.RWMutex
}

// NewManager creates a ruleset manager over the given directory.
func NewManager(rulesetDir string) (*Manager, error) {
	if _, err := os.Stat(rulesetDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("ruleset directory does not exist: %s", rulesetDir)
	}

	return &Manager{
		rulesetDir: rulesetDir,
		rulesets:   make(map[string]*rules.Config),
	}, nil
}

// Load loads a ruleset by name, caching the parsed result.
func (m *Manager) Load(name string) (*rules.Config, error) {
	m.mu.RLock()
	if cfg, exists := m.rulesets[name]; exists {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cfg, exists := m.rulesets[name]; exists {
		return cfg, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}
	rulesetPath := filepath.Join(m.rulesetDir, filename)

	data, err := os.ReadFile(rulesetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRulesetNotFound
		}
		return nil, fmt.Errorf("failed to read ruleset file: %w", err)
	}

	var cfg rules.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset: %w", err)
	}

	if err := rules.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleset, err)
	}

	m.rulesets[name] = &cfg
	return &cfg, nil
}

// List returns information about every valid ruleset in the directory.
// Files that fail to parse or validate are skipped.
func (m *Manager) List() ([]*RulesetInfo, error) {
	entries, err := os.ReadDir(m.rulesetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset directory: %w", err)
	}

	var infos []*RulesetInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		cfg, err := m.Load(name)
		if err != nil {
			continue
		}

		infos = append(infos, &RulesetInfo{
			Filename:    entry.Name(),
			RulesetID:   name,
			Name:        cfg.Name,
			Description: cfg.Description,
			MinPlayers:  cfg.MinPlayers,
			MaxPlayers:  cfg.MaxPlayers,
		})
	}

	return infos, nil
}

// Save writes a ruleset to disk and updates the cache. Used by the admin
// endpoint so operators can add rulesets without restarting.
func (m *Manager) Save(name string, cfg *rules.Config) error {
	if err := rules.Validate(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRuleset, err)
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}
	rulesetPath := filepath.Join(m.rulesetDir, filename)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ruleset: %w", err)
	}
	if err := os.WriteFile(rulesetPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write ruleset file: %w", err)
	}

	m.mu.Lock()
	m.rulesets[name] = cfg
	m.mu.Unlock()

	return nil
}

// RefreshCache drops all cached rulesets so the next Load re-reads disk.
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rulesets = make(map[string]*rules.Config)
}

// Resolve maps a variant plus optional ruleset name to a full configuration.
// Built-in variants ignore the name; CUSTOM requires one.
func (m *Manager) Resolve(variant rules.Variant, rulesetName string) (rules.Config, error) {
	if variant != rules.Custom {
		return rules.VariantConfig(variant)
	}
	if rulesetName == "" {
		return rules.Config{}, fmt.Errorf("%w: custom variant requires a ruleset name", ErrInvalidRuleset)
	}
	cfg, err := m.Load(rulesetName)
	if err != nil {
		return rules.Config{}, err
	}
	return *cfg, nil
}
