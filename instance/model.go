// Package instance holds the typed game state entities and the per-instance
// store that serializes all mutating access to a single GameState.
package instance

import "atlas-game-engine/idempotency"

// GearInstance is a leveled instance of a gear definition, owned by a
// Player and optionally equipped onto one of that player's Characters.
type GearInstance struct {
	GearDefID  string  `json:"gearDefId"`
	Level      int     `json:"level"`
	EquippedBy *string `json:"equippedBy"`
}

// Character is a leveled character belonging to a Player.
type Character struct {
	ClassID   string            `json:"classId"`
	Level     int               `json:"level"`
	Equipped  map[string]string `json:"equipped"`  // slotId -> gearId
	Resources map[string]int    `json:"resources"` // character-scoped wallet
}

// Player owns characters, gear, and a wallet.
type Player struct {
	Characters map[string]Character    `json:"characters"`
	Gear       map[string]GearInstance `json:"gear"`
	Resources  map[string]int          `json:"resources"`
}

// NewPlayer constructs an empty Player.
func NewPlayer() Player {
	return Player{
		Characters: map[string]Character{},
		Gear:       map[string]GearInstance{},
		Resources:  map[string]int{},
	}
}

// Actor is a credential principal owning a list of players.
type Actor struct {
	APIKey    string   `json:"apiKey"`
	PlayerIDs []string `json:"playerIds"`
}

// OwnsPlayer reports whether playerID is among the actor's owned players.
func (a Actor) OwnsPlayer(playerID string) bool {
	for _, id := range a.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// GameState is the canonical, mutable state of one game instance.
type GameState struct {
	GameConfigID string                     `json:"gameConfigId"`
	StateVersion uint64                     `json:"stateVersion"`
	Players      map[string]Player          `json:"players"`
	Actors       map[string]Actor           `json:"actors"`
	TxIDCache    []idempotency.Entry        `json:"txIdCache,omitempty"`
}

// NewGameState constructs a fresh, empty GameState under the given config.
func NewGameState(gameConfigID string) GameState {
	return GameState{
		GameConfigID: gameConfigID,
		StateVersion: 0,
		Players:      map[string]Player{},
		Actors:       map[string]Actor{},
	}
}

// ActorByAPIKey finds the actor (and its id) whose apiKey matches token.
func (s GameState) ActorByAPIKey(token string) (string, Actor, bool) {
	for id, a := range s.Actors {
		if a.APIKey == token {
			return id, a, true
		}
	}
	return "", Actor{}, false
}

// DuplicateAPIKey reports whether any actor already holds apiKey.
func (s GameState) DuplicateAPIKey(apiKey string) bool {
	_, _, ok := s.ActorByAPIKey(apiKey)
	return ok
}

// DistinctEquippedGearIDs returns the set of distinct gear ids equipped
// across a character's slots (a multi-slot gear piece counts once).
func (c Character) DistinctEquippedGearIDs() []string {
	seen := map[string]bool{}
	ids := make([]string, 0, len(c.Equipped))
	for _, gearID := range c.Equipped {
		if !seen[gearID] {
			seen[gearID] = true
			ids = append(ids, gearID)
		}
	}
	return ids
}
