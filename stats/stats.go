// Package stats implements the derived-stats projection pipeline: class
// base stats scaled by the growth algorithm, summed with distinct equipped
// gear (also growth-scaled), plus flat set bonuses, then clamped (spec
// §4.6).
package stats

import (
	"fmt"

	"atlas-game-engine/algorithm"
	"atlas-game-engine/config"
	"atlas-game-engine/instance"
)

// ErrCharacterNotFound is returned when characterId doesn't exist on the
// player.
var ErrCharacterNotFound = fmt.Errorf("character not found")

// Compute returns the final, clamped stat map for a character.
func Compute(player instance.Player, characterID string, cfg config.GameConfig, reg *algorithm.Registry) (map[string]int, error) {
	character, ok := player.Characters[characterID]
	if !ok {
		return nil, ErrCharacterNotFound
	}

	classBase := algorithm.StatMap{}
	if class, ok := cfg.Classes[character.ClassID]; ok {
		for _, statID := range cfg.Stats {
			classBase[statID] = class.BaseStats[statID]
		}
	} else {
		for _, statID := range cfg.Stats {
			classBase[statID] = 0
		}
	}

	growthAlgo := cfg.Algorithms.Growth
	classScaled, err := reg.ApplyGrowth(growthAlgo.AlgorithmID, classBase, character.Level, growthAlgo.Params)
	if err != nil {
		return nil, fmt.Errorf("growth(class): %w", err)
	}

	final := map[string]int{}
	for _, statID := range cfg.Stats {
		final[statID] = classScaled[statID]
	}

	setPieceCounts := map[string]int{}
	for _, gearID := range character.DistinctEquippedGearIDs() {
		gearInstance, ok := player.Gear[gearID]
		if !ok {
			continue
		}
		gearDef, ok := cfg.GearDefs[gearInstance.GearDefID]
		if !ok {
			continue
		}

		gearBase := algorithm.StatMap{}
		for _, statID := range cfg.Stats {
			gearBase[statID] = gearDef.BaseStats[statID]
		}
		gearScaled, err := reg.ApplyGrowth(growthAlgo.AlgorithmID, gearBase, gearInstance.Level, growthAlgo.Params)
		if err != nil {
			return nil, fmt.Errorf("growth(gear %s): %w", gearID, err)
		}
		for _, statID := range cfg.Stats {
			final[statID] += gearScaled[statID]
		}

		if gearDef.SetID != "" {
			pieceCount := gearDef.SetPieceCount
			if pieceCount == 0 {
				pieceCount = 1
			}
			setPieceCounts[gearDef.SetID] += pieceCount
		}
	}

	for setID, count := range setPieceCounts {
		set, ok := cfg.Sets[setID]
		if !ok {
			continue
		}
		for _, bonus := range set.Bonuses {
			if bonus.Pieces > count {
				continue
			}
			for statID, v := range bonus.BonusStats {
				final[statID] += v
			}
		}
	}

	for statID, clamp := range cfg.StatClamps {
		v, ok := final[statID]
		if !ok {
			continue
		}
		if clamp.Min != nil && v < *clamp.Min {
			v = *clamp.Min
		}
		if clamp.Max != nil && v > *clamp.Max {
			v = *clamp.Max
		}
		final[statID] = v
	}

	return final, nil
}
