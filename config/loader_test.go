package config

import (
	"testing"

	"atlas-game-engine/algorithm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalConfig() GameConfig {
	return GameConfig{
		GameConfigID: "config_minimal",
		MaxLevel:     99,
		Stats:        []string{"strength", "hp"},
		Slots:        []string{"weapon", "offhand"},
		Classes: map[string]Class{
			"warrior": {BaseStats: map[string]int{"strength": 5, "hp": 20}},
		},
		GearDefs: map[string]GearDef{
			"sword_basic": {
				BaseStats:     map[string]int{"strength": 3},
				EquipPatterns: [][]string{{"weapon"}},
			},
			"greatsword": {
				BaseStats:     map[string]int{"strength": 5, "hp": 5},
				EquipPatterns: [][]string{{"weapon", "offhand"}},
			},
			"elite_sword": {
				BaseStats:     map[string]int{"strength": 3},
				EquipPatterns: [][]string{{"weapon"}},
				Restrictions: &Restrictions{
					AllowedClasses:       []string{"warrior"},
					RequiredCharacterLvl: 3,
				},
			},
			"cursed_blade": {
				BaseStats:     map[string]int{"strength": 3},
				EquipPatterns: [][]string{{"weapon"}},
				Restrictions: &Restrictions{
					BlockedClasses: []string{"warrior"},
				},
			},
		},
		Algorithms: Algorithms{
			Growth:             Algorithm{AlgorithmID: "linear", Params: map[string]any{"perLevelMultiplier": 0.1, "additivePerLevel": map[string]any{"hp": 1}}},
			LevelCostCharacter: Algorithm{AlgorithmID: "flat"},
			LevelCostGear:      Algorithm{AlgorithmID: "flat"},
		},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	reg := algorithm.NewRegistry()
	err := Validate(minimalConfig(), reg)
	require.NoError(t, err)
}

func TestValidateRejectsUndeclaredStat(t *testing.T) {
	reg := algorithm.NewRegistry()
	cfg := minimalConfig()
	cfg.Classes["mage"] = Class{BaseStats: map[string]int{"mana": 10}}

	err := Validate(cfg, reg)
	assert.Error(t, err)
}

func TestValidateRejectsMutuallyExclusiveRestrictions(t *testing.T) {
	reg := algorithm.NewRegistry()
	cfg := minimalConfig()
	def := cfg.GearDefs["sword_basic"]
	def.Restrictions = &Restrictions{AllowedClasses: []string{"warrior"}, BlockedClasses: []string{"mage"}}
	cfg.GearDefs["sword_basic"] = def

	err := Validate(cfg, reg)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownAlgorithm(t *testing.T) {
	reg := algorithm.NewRegistry()
	cfg := minimalConfig()
	cfg.Algorithms.Growth.AlgorithmID = "does_not_exist"

	err := Validate(cfg, reg)
	assert.Error(t, err)
}
