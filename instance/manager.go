package instance

import (
	"sync"

	"atlas-game-engine/audit"
	"atlas-game-engine/idempotency"
)

// Handle owns one GameState and serializes all access to it behind a
// mutex, so that transactions against one instance are totally ordered and
// stats reads see either fully pre- or fully post-transaction state.
// Different instances use independent Handles and never contend.
type Handle struct {
	mu    sync.Mutex
	state GameState
	idemp *idempotency.Store
	audit *audit.Log
}

// NewHandle wraps state in a fresh Handle with its own idempotency store
// and grant audit log, the latter sharing the former's bounded FIFO
// capacity and eviction policy.
func NewHandle(state GameState, idempotencyCapacity int) *Handle {
	store := idempotency.NewStore(idempotencyCapacity)
	for _, e := range state.TxIDCache {
		store.Record(e.TxID, e.StatusCode, e.Body)
	}
	return &Handle{state: state, idemp: store, audit: audit.NewLog(idempotencyCapacity)}
}

// WithLock runs fn with exclusive access to the instance's state,
// idempotency store, and grant audit log. fn may mutate *GameState in
// place; the returned error is propagated to the caller but never leaves
// the state half-mutated from the caller's perspective since fn runs
// fully under the lock.
func (h *Handle) WithLock(fn func(s *GameState, idemp *idempotency.Store, auditLog *audit.Log) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(&h.state, h.idemp, h.audit)
}

// AuditEntries returns the instance's grant audit trail in FIFO order.
// Nothing serves this externally yet; it exists as a seam for a future
// audit endpoint.
func (h *Handle) AuditEntries() []audit.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.audit.Entries()
}

// Snapshot returns a deep-enough value copy of the state for consistent
// point-in-time persistence, taken under the writer's lock. File I/O must
// happen outside this call so the writer is never blocked on disk.
func (h *Handle) Snapshot() GameState {
	h.mu.Lock()
	defer h.mu.Unlock()

	cp := h.state
	cp.Players = make(map[string]Player, len(h.state.Players))
	for id, p := range h.state.Players {
		cp.Players[id] = clonePlayer(p)
	}
	cp.Actors = make(map[string]Actor, len(h.state.Actors))
	for id, a := range h.state.Actors {
		pids := make([]string, len(a.PlayerIDs))
		copy(pids, a.PlayerIDs)
		cp.Actors[id] = Actor{APIKey: a.APIKey, PlayerIDs: pids}
	}
	cp.TxIDCache = h.idemp.Entries()
	return cp
}

func clonePlayer(p Player) Player {
	cp := Player{
		Characters: make(map[string]Character, len(p.Characters)),
		Gear:       make(map[string]GearInstance, len(p.Gear)),
		Resources:  make(map[string]int, len(p.Resources)),
	}
	for id, c := range p.Characters {
		equipped := make(map[string]string, len(c.Equipped))
		for k, v := range c.Equipped {
			equipped[k] = v
		}
		resources := make(map[string]int, len(c.Resources))
		for k, v := range c.Resources {
			resources[k] = v
		}
		cp.Characters[id] = Character{ClassID: c.ClassID, Level: c.Level, Equipped: equipped, Resources: resources}
	}
	for id, g := range p.Gear {
		var equippedBy *string
		if g.EquippedBy != nil {
			v := *g.EquippedBy
			equippedBy = &v
		}
		cp.Gear[id] = GearInstance{GearDefID: g.GearDefID, Level: g.Level, EquippedBy: equippedBy}
	}
	for k, v := range p.Resources {
		cp.Resources[k] = v
	}
	return cp
}

// Manager owns one Handle per gameInstanceId.
type Manager struct {
	mu                    sync.RWMutex
	handles               map[string]*Handle
	idempotencyCapacity   int
}

// NewManager constructs an empty Manager.
func NewManager(idempotencyCapacity int) *Manager {
	return &Manager{
		handles:             map[string]*Handle{},
		idempotencyCapacity: idempotencyCapacity,
	}
}

// Get returns the Handle for gameInstanceId, if it exists.
func (m *Manager) Get(gameInstanceID string) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[gameInstanceID]
	return h, ok
}

// Put installs (or replaces) the Handle for gameInstanceId, e.g. at
// startup after restore-time migration.
func (m *Manager) Put(gameInstanceID string, state GameState) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := NewHandle(state, m.idempotencyCapacity)
	m.handles[gameInstanceID] = h
	return h
}

// PutOrCreate returns the existing Handle for gameInstanceId, or creates a
// fresh empty one under gameConfigId if none exists yet.
func (m *Manager) PutOrCreate(gameInstanceID, gameConfigID string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.handles[gameInstanceID]; ok {
		return h
	}
	h := NewHandle(NewGameState(gameConfigID), m.idempotencyCapacity)
	m.handles[gameInstanceID] = h
	return h
}

// All returns a snapshot of every (gameInstanceId, Handle) pair, for the
// periodic snapshot flush task.
func (m *Manager) All() map[string]*Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Handle, len(m.handles))
	for id, h := range m.handles {
		out[id] = h
	}
	return out
}
