package rules

import "testing"

func TestVariantConfig_Presets(t *testing.T) {
	for _, v := range Variants() {
		t.Run(string(v), func(t *testing.T) {
			cfg, err := VariantConfig(v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := Validate(&cfg); err != nil {
				t.Errorf("preset for %s should validate: %v", v, err)
			}
		})
	}
}

func TestVariantConfig_Unknown(t *testing.T) {
	if _, err := VariantConfig(Variant("BLITZ")); err == nil {
		t.Fatal("expected error for unknown variant")
	}
	// CUSTOM has no preset; its configs come from the config manager.
	if _, err := VariantConfig(Custom); err == nil {
		t.Fatal("expected error for CUSTOM preset lookup")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, _ := VariantConfig(Classic)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"classic preset", func(c *Config) {}, false},
		{"min below supported", func(c *Config) { c.MinPlayers = 1 }, true},
		{"max above supported", func(c *Config) { c.MaxPlayers = 5 }, true},
		{"min above max", func(c *Config) { c.MinPlayers = 4; c.MaxPlayers = 2 }, true},
		{"zero turn timeout", func(c *Config) { c.TurnTimeoutSec = 0 }, true},
		{"zero six limit", func(c *Config) { c.ConsecutiveSixLimit = 0 }, true},
		{"zero grace window", func(c *Config) { c.ReconnectGraceSec = 0 }, true},
		{"negative capture reward", func(c *Config) { c.CaptureReward = -1 }, true},
		{"life penalty without lives", func(c *Config) { c.TimeoutLifePenalty = true; c.Lives = 0 }, true},
		{"prize split not 100", func(c *Config) { c.PrizeSplit = []int{60, 30} }, true},
		{"negative prize share", func(c *Config) { c.PrizeSplit = []int{110, -10} }, true},
		{"valid two-way split", func(c *Config) { c.PrizeSplit = []int{70, 30} }, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(&cfg)
			err := Validate(&cfg)
			if test.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !test.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
