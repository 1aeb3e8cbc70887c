package tx

import (
	"encoding/json"
	"fmt"

	"atlas-game-engine/algorithm"
	"atlas-game-engine/auth"
	"atlas-game-engine/config"
	"atlas-game-engine/instance"
)

// registerBuiltinHandlers installs the ten transaction handlers defined by
// the engine (spec §4.5).
func (d *Dispatcher) registerBuiltinHandlers() {
	d.handlers["CreateActor"] = handleCreateActor
	d.handlers["CreatePlayer"] = handleCreatePlayer
	d.handlers["CreateCharacter"] = handleCreateCharacter
	d.handlers["CreateGear"] = handleCreateGear
	d.handlers["EquipGear"] = handleEquipGear
	d.handlers["UnequipGear"] = handleUnequipGear
	d.handlers["LevelUpCharacter"] = handleLevelUpCharacter
	d.handlers["LevelUpGear"] = handleLevelUpGear
	d.handlers["GrantResources"] = handleGrantResources
	d.handlers["GrantCharacterResources"] = handleGrantCharacterResources
}

func badPayload(msg string) Outcome {
	return rejected("INVALID_BODY", msg)
}

// --- CreateActor ---

type createActorPayload struct {
	ActorID string `json:"actorId"`
	APIKey  string `json:"apiKey"`
}

func handleCreateActor(s *instance.GameState, _ auth.Principal, _ config.GameConfig, _ *algorithm.Registry, body json.RawMessage) Outcome {
	var p createActorPayload
	if err := json.Unmarshal(body, &p); err != nil || p.ActorID == "" || p.APIKey == "" {
		return badPayload("actorId and apiKey are required")
	}

	if _, exists := s.Actors[p.ActorID]; exists {
		return rejected(ErrAlreadyExists, fmt.Sprintf("actor %q already exists", p.ActorID))
	}
	if s.DuplicateAPIKey(p.APIKey) {
		return rejected(ErrDuplicateAPIKey, "apiKey already in use by another actor")
	}

	s.Actors[p.ActorID] = instance.Actor{APIKey: p.APIKey, PlayerIDs: []string{}}
	return accepted()
}

// --- CreatePlayer ---

type createPlayerPayload struct {
	PlayerID string `json:"playerId"`
}

func handleCreatePlayer(s *instance.GameState, principal auth.Principal, _ config.GameConfig, _ *algorithm.Registry, body json.RawMessage) Outcome {
	var p createPlayerPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" {
		return badPayload("playerId is required")
	}

	if _, exists := s.Players[p.PlayerID]; exists {
		return rejected(ErrAlreadyExists, fmt.Sprintf("player %q already exists", p.PlayerID))
	}

	s.Players[p.PlayerID] = instance.NewPlayer()

	actor := s.Actors[principal.ActorID]
	actor.PlayerIDs = append(actor.PlayerIDs, p.PlayerID)
	s.Actors[principal.ActorID] = actor

	return accepted()
}

// --- CreateCharacter ---

type createCharacterPayload struct {
	PlayerID    string `json:"playerId"`
	CharacterID string `json:"characterId"`
	ClassID     string `json:"classId"`
}

func handleCreateCharacter(s *instance.GameState, principal auth.Principal, cfg config.GameConfig, _ *algorithm.Registry, body json.RawMessage) Outcome {
	var p createCharacterPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" || p.CharacterID == "" || p.ClassID == "" {
		return badPayload("playerId, characterId and classId are required")
	}

	player, ok := s.Players[p.PlayerID]
	if !ok {
		return rejected(ErrPlayerNotFound, fmt.Sprintf("player %q not found", p.PlayerID))
	}
	if !principal.OwnsPlayer(p.PlayerID) {
		return rejected(ErrOwnershipViolation, fmt.Sprintf("actor does not own player %q", p.PlayerID))
	}
	if _, exists := player.Characters[p.CharacterID]; exists {
		return rejected(ErrAlreadyExists, fmt.Sprintf("character %q already exists", p.CharacterID))
	}
	if _, ok := cfg.Classes[p.ClassID]; !ok {
		return rejected(ErrInvalidConfigReference, fmt.Sprintf("unknown classId %q", p.ClassID))
	}

	player.Characters[p.CharacterID] = instance.Character{
		ClassID:   p.ClassID,
		Level:     1,
		Equipped:  map[string]string{},
		Resources: map[string]int{},
	}
	s.Players[p.PlayerID] = player
	return accepted()
}

// --- CreateGear ---

type createGearPayload struct {
	PlayerID  string `json:"playerId"`
	GearID    string `json:"gearId"`
	GearDefID string `json:"gearDefId"`
}

func handleCreateGear(s *instance.GameState, principal auth.Principal, cfg config.GameConfig, _ *algorithm.Registry, body json.RawMessage) Outcome {
	var p createGearPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" || p.GearID == "" || p.GearDefID == "" {
		return badPayload("playerId, gearId and gearDefId are required")
	}

	player, ok := s.Players[p.PlayerID]
	if !ok {
		return rejected(ErrPlayerNotFound, fmt.Sprintf("player %q not found", p.PlayerID))
	}
	if !principal.OwnsPlayer(p.PlayerID) {
		return rejected(ErrOwnershipViolation, fmt.Sprintf("actor does not own player %q", p.PlayerID))
	}
	if _, exists := player.Gear[p.GearID]; exists {
		return rejected(ErrAlreadyExists, fmt.Sprintf("gear %q already exists", p.GearID))
	}
	if _, ok := cfg.GearDefs[p.GearDefID]; !ok {
		return rejected(ErrInvalidConfigReference, fmt.Sprintf("unknown gearDefId %q", p.GearDefID))
	}

	player.Gear[p.GearID] = instance.GearInstance{GearDefID: p.GearDefID, Level: 1, EquippedBy: nil}
	s.Players[p.PlayerID] = player
	return accepted()
}

// --- EquipGear ---

type equipGearPayload struct {
	PlayerID    string   `json:"playerId"`
	CharacterID string   `json:"characterId"`
	GearID      string   `json:"gearId"`
	SlotPattern []string `json:"slotPattern,omitempty"`
	Swap        bool     `json:"swap,omitempty"`
}

func handleEquipGear(s *instance.GameState, principal auth.Principal, cfg config.GameConfig, _ *algorithm.Registry, body json.RawMessage) Outcome {
	var p equipGearPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" || p.CharacterID == "" || p.GearID == "" {
		return badPayload("playerId, characterId and gearId are required")
	}

	player, ok := s.Players[p.PlayerID]
	if !ok {
		return rejected(ErrPlayerNotFound, fmt.Sprintf("player %q not found", p.PlayerID))
	}
	if !principal.OwnsPlayer(p.PlayerID) {
		return rejected(ErrOwnershipViolation, fmt.Sprintf("actor does not own player %q", p.PlayerID))
	}

	gear, ok := player.Gear[p.GearID]
	if !ok {
		return rejected(ErrGearNotFound, fmt.Sprintf("gear %q not found", p.GearID))
	}
	character, ok := player.Characters[p.CharacterID]
	if !ok {
		return rejected(ErrCharacterNotFound, fmt.Sprintf("character %q not found", p.CharacterID))
	}
	if gear.EquippedBy != nil {
		return rejected(ErrGearAlreadyEquipped, fmt.Sprintf("gear %q already equipped", p.GearID))
	}

	gearDef, ok := cfg.GearDefs[gear.GearDefID]
	if !ok {
		return infraError(ErrInvalidConfigReference, fmt.Sprintf("gear %q references unknown gearDef %q", p.GearID, gear.GearDefID))
	}

	slots, outcome := selectEquipSlots(p, character, gearDef, cfg)
	if outcome != nil {
		return *outcome
	}

	if outcome := checkRestrictions(gearDef.Restrictions, character, gear); outcome != nil {
		return *outcome
	}

	if p.Swap {
		for slot, occupant := range character.Equipped {
			inSlotSet := false
			for _, sl := range slots {
				if sl == slot {
					inSlotSet = true
					break
				}
			}
			if !inSlotSet {
				continue
			}
			if occupied, ok := player.Gear[occupant]; ok {
				occupied.EquippedBy = nil
				player.Gear[occupant] = occupied
			}
			delete(character.Equipped, slot)
		}
	}

	for _, slot := range slots {
		character.Equipped[slot] = p.GearID
	}
	characterID := p.CharacterID
	gear.EquippedBy = &characterID
	player.Gear[p.GearID] = gear
	player.Characters[p.CharacterID] = character
	s.Players[p.PlayerID] = player

	return accepted()
}

// selectEquipSlots resolves the slot set EquipGear should write to, per the
// explicit slotPattern or the first free pattern.
func selectEquipSlots(p equipGearPayload, character instance.Character, gearDef config.GearDef, cfg config.GameConfig) ([]string, *Outcome) {
	if len(p.SlotPattern) > 0 {
		for _, slot := range p.SlotPattern {
			if !cfg.HasSlot(slot) {
				o := rejected(ErrInvalidSlot, fmt.Sprintf("unknown slot %q", slot))
				return nil, &o
			}
		}
		for _, pattern := range gearDef.EquipPatterns {
			if samePattern(pattern, p.SlotPattern) {
				return p.SlotPattern, nil
			}
		}
		o := rejected(ErrPatternMismatch, "slotPattern is not one of the gear definition's equipPatterns")
		return nil, &o
	}

	for _, pattern := range gearDef.EquipPatterns {
		allFree := true
		for _, slot := range pattern {
			if _, occupied := character.Equipped[slot]; occupied {
				allFree = false
				break
			}
		}
		if allFree {
			return pattern, nil
		}
	}
	o := rejected(ErrSlotOccupied, "no equipPattern has every slot free")
	return nil, &o
}

func samePattern(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]bool{}
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}

// checkRestrictions evaluates a gear definition's restrictions in the
// fixed order required by the spec: allowedClasses, blockedClasses,
// requiredCharacterLevel, maxLevelDelta.
func checkRestrictions(r *config.Restrictions, character instance.Character, gear instance.GearInstance) *Outcome {
	if r == nil {
		return nil
	}

	if len(r.AllowedClasses) > 0 && !contains(r.AllowedClasses, character.ClassID) {
		o := rejected(ErrRestrictionFailed, fmt.Sprintf("class %q is not in allowedClasses", character.ClassID))
		return &o
	}
	if len(r.BlockedClasses) > 0 && contains(r.BlockedClasses, character.ClassID) {
		o := rejected(ErrRestrictionFailed, fmt.Sprintf("class %q is blocked", character.ClassID))
		return &o
	}
	if r.RequiredCharacterLvl > 0 && character.Level < r.RequiredCharacterLvl {
		o := rejected(ErrRestrictionFailed, fmt.Sprintf("character level %d below required %d", character.Level, r.RequiredCharacterLvl))
		return &o
	}
	if r.MaxLevelDelta != nil && gear.Level > character.Level+*r.MaxLevelDelta {
		o := rejected(ErrRestrictionFailed, fmt.Sprintf("gear level %d exceeds character level %d + maxLevelDelta %d", gear.Level, character.Level, *r.MaxLevelDelta))
		return &o
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// --- UnequipGear ---

type unequipGearPayload struct {
	PlayerID    string  `json:"playerId"`
	GearID      string  `json:"gearId"`
	CharacterID *string `json:"characterId,omitempty"`
}

func handleUnequipGear(s *instance.GameState, principal auth.Principal, _ config.GameConfig, _ *algorithm.Registry, body json.RawMessage) Outcome {
	var p unequipGearPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" || p.GearID == "" {
		return badPayload("playerId and gearId are required")
	}

	player, ok := s.Players[p.PlayerID]
	if !ok {
		return rejected(ErrPlayerNotFound, fmt.Sprintf("player %q not found", p.PlayerID))
	}
	if !principal.OwnsPlayer(p.PlayerID) {
		return rejected(ErrOwnershipViolation, fmt.Sprintf("actor does not own player %q", p.PlayerID))
	}

	gear, ok := player.Gear[p.GearID]
	if !ok {
		return rejected(ErrGearNotFound, fmt.Sprintf("gear %q not found", p.GearID))
	}
	if gear.EquippedBy == nil {
		return rejected(ErrGearNotEquipped, fmt.Sprintf("gear %q is not equipped", p.GearID))
	}
	if p.CharacterID != nil && *p.CharacterID != *gear.EquippedBy {
		return rejected(ErrCharacterMismatch, "characterId does not match the equipping character")
	}

	character := player.Characters[*gear.EquippedBy]
	for slot, gearID := range character.Equipped {
		if gearID == p.GearID {
			delete(character.Equipped, slot)
		}
	}
	player.Characters[*gear.EquippedBy] = character

	gear.EquippedBy = nil
	player.Gear[p.GearID] = gear
	s.Players[p.PlayerID] = player

	return accepted()
}

// --- LevelUpCharacter ---

type levelUpCharacterPayload struct {
	PlayerID    string `json:"playerId"`
	CharacterID string `json:"characterId"`
	Levels      *int   `json:"levels,omitempty"`
}

func handleLevelUpCharacter(s *instance.GameState, principal auth.Principal, cfg config.GameConfig, reg *algorithm.Registry, body json.RawMessage) Outcome {
	var p levelUpCharacterPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" || p.CharacterID == "" {
		return badPayload("playerId and characterId are required")
	}
	levels := 1
	if p.Levels != nil {
		levels = *p.Levels
	}
	if levels < 1 {
		return badPayload("levels must be a positive integer")
	}

	player, ok := s.Players[p.PlayerID]
	if !ok {
		return rejected(ErrPlayerNotFound, fmt.Sprintf("player %q not found", p.PlayerID))
	}
	if !principal.OwnsPlayer(p.PlayerID) {
		return rejected(ErrOwnershipViolation, fmt.Sprintf("actor does not own player %q", p.PlayerID))
	}
	character, ok := player.Characters[p.CharacterID]
	if !ok {
		return rejected(ErrCharacterNotFound, fmt.Sprintf("character %q not found", p.CharacterID))
	}
	if character.Level+levels > cfg.MaxLevel {
		return rejected(ErrMaxLevelReached, fmt.Sprintf("level %d + %d exceeds maxLevel %d", character.Level, levels, cfg.MaxLevel))
	}

	algo := cfg.Algorithms.LevelCostCharacter
	costFn := func(target int, params map[string]any) (algorithm.CostMap, error) {
		return reg.ApplyCost(algo.AlgorithmID, target, params)
	}
	total, err := algorithm.TotalCost(costFn, algo.Params, character.Level, levels)
	if err != nil {
		return infraError(ErrInvalidConfigReference, err.Error())
	}
	playerCost, characterCost, err := algorithm.SplitScopedCost(total)
	if err != nil {
		return rejected(ErrInvalidCostResourceKey, err.Error())
	}

	if !walletCovers(player.Resources, playerCost) || !walletCovers(character.Resources, characterCost) {
		return rejected(ErrInsufficientResources, "insufficient resources to level up")
	}

	deductWallet(player.Resources, playerCost)
	deductWallet(character.Resources, characterCost)
	character.Level += levels
	player.Characters[p.CharacterID] = character
	s.Players[p.PlayerID] = player

	return accepted()
}

// --- LevelUpGear ---

type levelUpGearPayload struct {
	PlayerID    string  `json:"playerId"`
	GearID      string  `json:"gearId"`
	Levels      *int    `json:"levels,omitempty"`
	CharacterID *string `json:"characterId,omitempty"`
}

func handleLevelUpGear(s *instance.GameState, principal auth.Principal, cfg config.GameConfig, reg *algorithm.Registry, body json.RawMessage) Outcome {
	var p levelUpGearPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" || p.GearID == "" {
		return badPayload("playerId and gearId are required")
	}
	levels := 1
	if p.Levels != nil {
		levels = *p.Levels
	}
	if levels < 1 {
		return badPayload("levels must be a positive integer")
	}

	player, ok := s.Players[p.PlayerID]
	if !ok {
		return rejected(ErrPlayerNotFound, fmt.Sprintf("player %q not found", p.PlayerID))
	}
	if !principal.OwnsPlayer(p.PlayerID) {
		return rejected(ErrOwnershipViolation, fmt.Sprintf("actor does not own player %q", p.PlayerID))
	}
	gear, ok := player.Gear[p.GearID]
	if !ok {
		return rejected(ErrGearNotFound, fmt.Sprintf("gear %q not found", p.GearID))
	}
	if gear.Level+levels > cfg.MaxLevel {
		return rejected(ErrMaxLevelReached, fmt.Sprintf("level %d + %d exceeds maxLevel %d", gear.Level, levels, cfg.MaxLevel))
	}

	algo := cfg.Algorithms.LevelCostGear
	costFn := func(target int, params map[string]any) (algorithm.CostMap, error) {
		return reg.ApplyCost(algo.AlgorithmID, target, params)
	}
	total, err := algorithm.TotalCost(costFn, algo.Params, gear.Level, levels)
	if err != nil {
		return infraError(ErrInvalidConfigReference, err.Error())
	}
	playerCost, characterCost, err := algorithm.SplitScopedCost(total)
	if err != nil {
		return rejected(ErrInvalidCostResourceKey, err.Error())
	}

	var character instance.Character
	var characterID string
	if len(characterCost) > 0 {
		if p.CharacterID == nil || *p.CharacterID == "" {
			return rejected(ErrCharacterRequired, "levelCostGear includes character-scoped cost but no characterId was given")
		}
		characterID = *p.CharacterID
		c, ok := player.Characters[characterID]
		if !ok {
			return rejected(ErrCharacterNotFound, fmt.Sprintf("character %q not found", characterID))
		}
		character = c
	}

	if !walletCovers(player.Resources, playerCost) || (len(characterCost) > 0 && !walletCovers(character.Resources, characterCost)) {
		return rejected(ErrInsufficientResources, "insufficient resources to level up")
	}

	deductWallet(player.Resources, playerCost)
	if len(characterCost) > 0 {
		deductWallet(character.Resources, characterCost)
		player.Characters[characterID] = character
	}
	gear.Level += levels
	player.Gear[p.GearID] = gear
	s.Players[p.PlayerID] = player

	return accepted()
}

func walletCovers(wallet map[string]int, cost map[string]int) bool {
	for k, v := range cost {
		if wallet[k] < v {
			return false
		}
	}
	return true
}

func deductWallet(wallet map[string]int, cost map[string]int) {
	for k, v := range cost {
		wallet[k] -= v
	}
}

// --- GrantResources ---

type grantResourcesPayload struct {
	PlayerID  string         `json:"playerId"`
	Resources map[string]int `json:"resources"`
}

func handleGrantResources(s *instance.GameState, _ auth.Principal, _ config.GameConfig, _ *algorithm.Registry, body json.RawMessage) Outcome {
	var p grantResourcesPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" {
		return badPayload("playerId is required")
	}

	player, ok := s.Players[p.PlayerID]
	if !ok {
		return rejected(ErrPlayerNotFound, fmt.Sprintf("player %q not found", p.PlayerID))
	}

	for k, v := range p.Resources {
		player.Resources[k] += v
	}
	s.Players[p.PlayerID] = player
	return accepted()
}

// --- GrantCharacterResources ---

type grantCharacterResourcesPayload struct {
	PlayerID    string         `json:"playerId"`
	CharacterID string         `json:"characterId"`
	Resources   map[string]int `json:"resources"`
}

func handleGrantCharacterResources(s *instance.GameState, _ auth.Principal, _ config.GameConfig, _ *algorithm.Registry, body json.RawMessage) Outcome {
	var p grantCharacterResourcesPayload
	if err := json.Unmarshal(body, &p); err != nil || p.PlayerID == "" || p.CharacterID == "" {
		return badPayload("playerId and characterId are required")
	}

	player, ok := s.Players[p.PlayerID]
	if !ok {
		return rejected(ErrPlayerNotFound, fmt.Sprintf("player %q not found", p.PlayerID))
	}
	character, ok := player.Characters[p.CharacterID]
	if !ok {
		return rejected(ErrCharacterNotFound, fmt.Sprintf("character %q not found", p.CharacterID))
	}

	for k, v := range p.Resources {
		character.Resources[k] += v
	}
	player.Characters[p.CharacterID] = character
	s.Players[p.PlayerID] = player
	return accepted()
}
