// Package migrate reshapes a restored GameState to the currently active
// GameConfig before it re-enters the live store (spec §4.8). Every rule is
// idempotent and migration never fails the restore.
package migrate

import (
	"fmt"

	"atlas-game-engine/config"
	"atlas-game-engine/instance"
)

// Warning records one corrective action the migrator took.
type Warning struct {
	Rule       string `json:"rule"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Detail     string `json:"detail"`
}

// Migrate applies the seven ordered migration rules to state in place and
// returns the accumulated warnings.
func Migrate(state instance.GameState, cfg config.GameConfig) (instance.GameState, []Warning) {
	var warnings []Warning

	// 1. gameConfigId fixup.
	if state.GameConfigID != cfg.GameConfigID {
		warnings = append(warnings, Warning{Rule: "gameConfigId", EntityType: "gameState", EntityID: "", Detail: fmt.Sprintf("restored gameConfigId %q replaced with active %q", state.GameConfigID, cfg.GameConfigID)})
		state.GameConfigID = cfg.GameConfigID
	}

	for playerID, player := range state.Players {
		// 2. Drop characters with unknown classId.
		for characterID, character := range player.Characters {
			if _, ok := cfg.Classes[character.ClassID]; !ok {
				warnings = append(warnings, Warning{Rule: "unknownClass", EntityType: "character", EntityID: characterID, Detail: fmt.Sprintf("classId %q not in current config", character.ClassID)})
				delete(player.Characters, characterID)
			}
		}

		// 3. Clamp character level.
		for characterID, character := range player.Characters {
			clamped := character.Level
			if clamped < 1 {
				clamped = 1
			}
			if clamped > cfg.MaxLevel {
				clamped = cfg.MaxLevel
			}
			if clamped != character.Level {
				warnings = append(warnings, Warning{Rule: "clampLevel", EntityType: "character", EntityID: characterID, Detail: fmt.Sprintf("level %d clamped to %d", character.Level, clamped)})
				character.Level = clamped
				player.Characters[characterID] = character
			}
		}

		// 4. Drop gear with unknown gearDefId; clear referencing equip slots.
		for gearID, gear := range player.Gear {
			if _, ok := cfg.GearDefs[gear.GearDefID]; !ok {
				warnings = append(warnings, Warning{Rule: "unknownGearDef", EntityType: "gear", EntityID: gearID, Detail: fmt.Sprintf("gearDefId %q not in current config", gear.GearDefID)})
				delete(player.Gear, gearID)
				for characterID, character := range player.Characters {
					changed := false
					for slot, g := range character.Equipped {
						if g == gearID {
							delete(character.Equipped, slot)
							changed = true
						}
					}
					if changed {
						player.Characters[characterID] = character
					}
				}
			}
		}

		// 5. Drop equipped entries referencing unknown slots or gear.
		for characterID, character := range player.Characters {
			changed := false
			for slot, gearID := range character.Equipped {
				_, gearExists := player.Gear[gearID]
				if !cfg.HasSlot(slot) || !gearExists {
					warnings = append(warnings, Warning{Rule: "orphanedEquip", EntityType: "character", EntityID: characterID, Detail: fmt.Sprintf("slot %q -> gear %q no longer valid", slot, gearID)})
					delete(character.Equipped, slot)
					changed = true
				}
			}
			if changed {
				player.Characters[characterID] = character
			}
		}

		// 6. Reconcile gear.equippedBy from the character side (source of truth).
		equippedByCharacter := map[string]string{}
		for characterID, character := range player.Characters {
			for _, gearID := range character.DistinctEquippedGearIDs() {
				equippedByCharacter[gearID] = characterID
			}
		}
		for gearID, gear := range player.Gear {
			wantCharacterID, isEquipped := equippedByCharacter[gearID]
			switch {
			case isEquipped && (gear.EquippedBy == nil || *gear.EquippedBy != wantCharacterID):
				warnings = append(warnings, Warning{Rule: "reconcileEquippedBy", EntityType: "gear", EntityID: gearID, Detail: fmt.Sprintf("equippedBy set to %q to match character side", wantCharacterID)})
				id := wantCharacterID
				gear.EquippedBy = &id
				player.Gear[gearID] = gear
			case !isEquipped && gear.EquippedBy != nil:
				warnings = append(warnings, Warning{Rule: "reconcileEquippedBy", EntityType: "gear", EntityID: gearID, Detail: "equippedBy cleared: not referenced by any character"})
				gear.EquippedBy = nil
				player.Gear[gearID] = gear
			}
		}

		// 7. Backfill missing resources maps.
		for characterID, character := range player.Characters {
			if character.Resources == nil {
				character.Resources = map[string]int{}
				player.Characters[characterID] = character
			}
		}
		if player.Resources == nil {
			player.Resources = map[string]int{}
		}

		state.Players[playerID] = player
	}

	return state, warnings
}
