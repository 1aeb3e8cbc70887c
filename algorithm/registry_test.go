package algorithm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowthFlat(t *testing.T) {
	r := NewRegistry()
	out, err := r.ApplyGrowth("flat", StatMap{"strength": 5, "hp": 20}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, StatMap{"strength": 5, "hp": 20}, out)
}

func TestGrowthLinear(t *testing.T) {
	r := NewRegistry()
	params := map[string]any{
		"perLevelMultiplier": 0.1,
		"additivePerLevel":   map[string]any{"hp": 1},
	}

	out, err := r.ApplyGrowth("linear", StatMap{"strength": 5, "hp": 20}, 3, params)
	require.NoError(t, err)
	assert.Equal(t, 6, out["strength"])  // floor(5*1.2) = 6
	assert.Equal(t, 26, out["hp"])       // floor(20*1.2 + 2) = 26
}

func TestGrowthLinearClampsLevel(t *testing.T) {
	r := NewRegistry()
	params := map[string]any{"perLevelMultiplier": 0.5}
	out, err := r.ApplyGrowth("linear", StatMap{"strength": 10}, 0, params)
	require.NoError(t, err)
	assert.Equal(t, 10, out["strength"])
}

func TestGrowthLinearMissingParam(t *testing.T) {
	r := NewRegistry()
	_, err := r.ApplyGrowth("linear", StatMap{"strength": 10}, 2, nil)
	assert.Error(t, err)
}

func TestGrowthExponential(t *testing.T) {
	r := NewRegistry()
	out, err := r.ApplyGrowth("exponential", StatMap{"strength": 10}, 3, map[string]any{"exponent": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 40, out["strength"]) // 10 * 2^2
}

func TestUnknownGrowth(t *testing.T) {
	r := NewRegistry()
	_, err := r.ApplyGrowth("nope", StatMap{}, 1, nil)
	var unknown ErrUnknownAlgorithm
	assert.ErrorAs(t, err, &unknown)
}

func TestCostLinear(t *testing.T) {
	r := NewRegistry()
	params := map[string]any{"resourceId": "gold", "base": 100.0, "perLevel": 50.0}

	out, err := r.ApplyCost("linear_cost", 1, params)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = r.ApplyCost("linear_cost", 2, params)
	require.NoError(t, err)
	assert.Equal(t, 100, out["gold"])

	out, err = r.ApplyCost("linear_cost", 3, params)
	require.NoError(t, err)
	assert.Equal(t, 150, out["gold"])
}

func TestCostMixedLinearAndTotal(t *testing.T) {
	r := NewRegistry()
	params := map[string]any{
		"costs": []any{
			map[string]any{"scope": "character", "resourceId": "xp", "base": 100.0, "perLevel": 50.0},
			map[string]any{"scope": "player", "resourceId": "gold", "base": 10.0, "perLevel": 5.0},
		},
	}

	fn := func(target int, p map[string]any) (CostMap, error) {
		return r.ApplyCost("mixed_linear_cost", target, p)
	}

	total, err := TotalCost(fn, params, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 250, total["character.xp"])
	assert.Equal(t, 25, total["player.gold"])

	playerCost, characterCost, err := SplitScopedCost(total)
	require.NoError(t, err)
	assert.Equal(t, 25, playerCost["gold"])
	assert.Equal(t, 250, characterCost["xp"])
}

func TestSplitScopedCostRejectsBadKey(t *testing.T) {
	_, _, err := SplitScopedCost(CostMap{"gold": 5})
	assert.Error(t, err)
}
