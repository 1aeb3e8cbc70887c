package instance

import (
	"testing"

	"atlas-game-engine/audit"
	"atlas-game-engine/idempotency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutOrCreateIsIdempotent(t *testing.T) {
	m := NewManager(10)
	h1 := m.PutOrCreate("inst1", "cfg1")
	h2 := m.PutOrCreate("inst1", "cfg2")
	assert.Same(t, h1, h2)
}

func TestWithLockMutatesInPlace(t *testing.T) {
	m := NewManager(10)
	h := m.PutOrCreate("inst1", "cfg1")

	err := h.WithLock(func(s *GameState, idemp *idempotency.Store, _ *audit.Log) error {
		s.Players["p1"] = NewPlayer()
		s.StateVersion++
		return nil
	})
	require.NoError(t, err)

	snap := h.Snapshot()
	assert.Equal(t, uint64(1), snap.StateVersion)
	_, ok := snap.Players["p1"]
	assert.True(t, ok)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m := NewManager(10)
	h := m.PutOrCreate("inst1", "cfg1")

	_ = h.WithLock(func(s *GameState, _ *idempotency.Store, _ *audit.Log) error {
		p := NewPlayer()
		p.Resources["gold"] = 10
		s.Players["p1"] = p
		return nil
	})

	snap := h.Snapshot()
	snap.Players["p1"].Resources["gold"] = 999

	_ = h.WithLock(func(s *GameState, _ *idempotency.Store, _ *audit.Log) error {
		assert.Equal(t, 10, s.Players["p1"].Resources["gold"])
		return nil
	})
}
