package httpapi

import (
	"atlas-game-engine/instance"

	"github.com/Chronicle20/atlas-model/model"
)

// CharacterRestModel is the wire projection of a Character, keyed by its
// id rather than nested under a map so the player projection has a
// deterministic, orderable shape.
type CharacterRestModel struct {
	CharacterID string            `json:"characterId"`
	ClassID     string            `json:"classId"`
	Level       int               `json:"level"`
	Equipped    map[string]string `json:"equipped"`
	Resources   map[string]int    `json:"resources"`
}

// GearRestModel is the wire projection of a GearInstance.
type GearRestModel struct {
	GearID     string  `json:"gearId"`
	GearDefID  string  `json:"gearDefId"`
	Level      int     `json:"level"`
	EquippedBy *string `json:"equippedBy,omitempty"`
}

// PlayerRestModel is the wire projection of a Player returned by
// GET /:inst/state/player/:playerId.
type PlayerRestModel struct {
	PlayerID   string                `json:"playerId"`
	Characters []CharacterRestModel  `json:"characters"`
	Gear       []GearRestModel       `json:"gear"`
	Resources  map[string]int        `json:"resources"`
}

type characterEntry struct {
	id        string
	character instance.Character
}

type gearEntry struct {
	id   string
	gear instance.GearInstance
}

func transformCharacter(e characterEntry) (CharacterRestModel, error) {
	return CharacterRestModel{
		CharacterID: e.id,
		ClassID:     e.character.ClassID,
		Level:       e.character.Level,
		Equipped:    e.character.Equipped,
		Resources:   e.character.Resources,
	}, nil
}

func transformGear(e gearEntry) (GearRestModel, error) {
	return GearRestModel{
		GearID:     e.id,
		GearDefID:  e.gear.GearDefID,
		Level:      e.gear.Level,
		EquippedBy: e.gear.EquippedBy,
	}, nil
}

// buildPlayerRestModel projects a Player into its wire shape using
// atlas-model's Provider pipeline: SliceMap/FixedProvider/ParallelMap
// transforming a slice of domain entries into a slice of response models.
func buildPlayerRestModel(playerID string, p instance.Player) (PlayerRestModel, error) {
	characterEntries := make([]characterEntry, 0, len(p.Characters))
	for id, c := range p.Characters {
		characterEntries = append(characterEntries, characterEntry{id: id, character: c})
	}
	characters, err := model.SliceMap(transformCharacter)(model.FixedProvider(characterEntries))(model.ParallelMap())()
	if err != nil {
		return PlayerRestModel{}, err
	}

	gearEntries := make([]gearEntry, 0, len(p.Gear))
	for id, g := range p.Gear {
		gearEntries = append(gearEntries, gearEntry{id: id, gear: g})
	}
	gear, err := model.SliceMap(transformGear)(model.FixedProvider(gearEntries))(model.ParallelMap())()
	if err != nil {
		return PlayerRestModel{}, err
	}

	return PlayerRestModel{
		PlayerID:   playerID,
		Characters: characters,
		Gear:       gear,
		Resources:  p.Resources,
	}, nil
}
