package config

import (
	"encoding/json"
	"fmt"
	"os"

	"atlas-game-engine/algorithm"
)

// Load reads and validates a GameConfig from a JSON file at path.
func Load(path string, reg *algorithm.Registry) (GameConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return GameConfig{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg GameConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return GameConfig{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := Validate(cfg, reg); err != nil {
		return GameConfig{}, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks referential integrity of a GameConfig: every stat key
// referenced by classes, gear defs, set bonuses, and clamps must be listed
// in Stats; every algorithm id must resolve in the registry. Validation
// failures are reported so bad config fails fast at boot rather than
// mid-transaction.
func Validate(cfg GameConfig, reg *algorithm.Registry) error {
	if cfg.GameConfigID == "" {
		return fmt.Errorf("gameConfigId is required")
	}
	if cfg.MaxLevel < 1 {
		return fmt.Errorf("maxLevel must be >= 1")
	}
	if len(cfg.Stats) == 0 {
		return fmt.Errorf("stats must be non-empty")
	}

	for classID, class := range cfg.Classes {
		for statID := range class.BaseStats {
			if !cfg.HasStat(statID) {
				return fmt.Errorf("class %q baseStats references undeclared stat %q", classID, statID)
			}
		}
	}

	for defID, def := range cfg.GearDefs {
		for statID := range def.BaseStats {
			if !cfg.HasStat(statID) {
				return fmt.Errorf("gearDef %q baseStats references undeclared stat %q", defID, statID)
			}
		}
		for _, pattern := range def.EquipPatterns {
			for _, slot := range pattern {
				if !cfg.HasSlot(slot) {
					return fmt.Errorf("gearDef %q equipPatterns references undeclared slot %q", defID, slot)
				}
			}
		}
		if def.Restrictions != nil {
			if len(def.Restrictions.AllowedClasses) > 0 && len(def.Restrictions.BlockedClasses) > 0 {
				return fmt.Errorf("gearDef %q restrictions: allowedClasses and blockedClasses are mutually exclusive", defID)
			}
		}
	}

	for setID, set := range cfg.Sets {
		for i, bonus := range set.Bonuses {
			for statID := range bonus.BonusStats {
				if !cfg.HasStat(statID) {
					return fmt.Errorf("set %q bonuses[%d] references undeclared stat %q", setID, i, statID)
				}
			}
		}
	}

	for statID := range cfg.StatClamps {
		if !cfg.HasStat(statID) {
			return fmt.Errorf("statClamps references undeclared stat %q", statID)
		}
	}

	if reg != nil {
		if !reg.HasGrowth(cfg.Algorithms.Growth.AlgorithmID) {
			return fmt.Errorf("algorithms.growth references unknown algorithm %q", cfg.Algorithms.Growth.AlgorithmID)
		}
		if !reg.HasCost(cfg.Algorithms.LevelCostCharacter.AlgorithmID) {
			return fmt.Errorf("algorithms.levelCostCharacter references unknown algorithm %q", cfg.Algorithms.LevelCostCharacter.AlgorithmID)
		}
		if !reg.HasCost(cfg.Algorithms.LevelCostGear.AlgorithmID) {
			return fmt.Errorf("algorithms.levelCostGear references unknown algorithm %q", cfg.Algorithms.LevelCostGear.AlgorithmID)
		}
	}

	return nil
}

// SingleStore resolves only the one GameConfig it was built with. The
// engine currently boots from a single CONFIG_PATH, so every instance
// shares one active config; SingleStore is the ConfigStore implementation
// the dispatcher and HTTP layer consult.
type SingleStore struct {
	cfg GameConfig
}

// NewSingleStore wraps cfg as a ConfigStore.
func NewSingleStore(cfg GameConfig) SingleStore {
	return SingleStore{cfg: cfg}
}

// Get returns cfg if gameConfigID matches its GameConfigID.
func (s SingleStore) Get(gameConfigID string) (GameConfig, bool) {
	if gameConfigID != s.cfg.GameConfigID {
		return GameConfig{}, false
	}
	return s.cfg, true
}

// Active returns the wrapped config directly.
func (s SingleStore) Active() GameConfig {
	return s.cfg
}
