// Package snapshot persists GameState values to disk and restores them,
// per the atomic-write / validate-then-skip discipline of spec §4.7.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"atlas-game-engine/instance"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Manager writes and loads per-instance GameState snapshots under a
// directory, one file named "<gameInstanceId>.json" per instance.
type Manager struct {
	l   logrus.FieldLogger
	dir string
}

// NewManager constructs a Manager rooted at dir. The directory is created
// if it does not already exist.
func NewManager(l logrus.FieldLogger, dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create directory: %w", err)
	}
	return &Manager{l: l, dir: dir}, nil
}

// Validate performs the structural checks required of a snapshot before
// it is written or after it is read: a non-empty gameConfigId, and every
// gear's non-nil equippedBy naming a character of the same player whose
// equipped map holds that gear. Equipped entries whose gear has a nil or
// different equippedBy are not checked.
func Validate(s instance.GameState) error {
	if s.GameConfigID == "" {
		return fmt.Errorf("gameConfigId must not be empty")
	}
	for playerID, player := range s.Players {
		for gearID, gear := range player.Gear {
			if gear.EquippedBy == nil {
				continue
			}
			character, ok := player.Characters[*gear.EquippedBy]
			if !ok {
				return fmt.Errorf("player %q gear %q: equippedBy references unknown character %q", playerID, gearID, *gear.EquippedBy)
			}
			found := false
			for _, g := range character.Equipped {
				if g == gearID {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("player %q gear %q: equippedBy set but not present in character %q's equipped map", playerID, gearID, *gear.EquippedBy)
			}
		}
	}
	return nil
}

func (m *Manager) path(gameInstanceID string) string {
	return filepath.Join(m.dir, gameInstanceID+".json")
}

// Write serializes state and atomically replaces <gameInstanceId>.json.
// A validation failure is logged and the write skipped; it never returns
// an error the caller must handle since the dispatcher must never block
// on snapshot I/O.
func (m *Manager) Write(gameInstanceID string, state instance.GameState) {
	if err := Validate(state); err != nil {
		m.l.WithField("game_instance_id", gameInstanceID).WithError(err).Warn("skipping snapshot write: invalid state")
		return
	}

	body, err := json.Marshal(state)
	if err != nil {
		m.l.WithField("game_instance_id", gameInstanceID).WithError(err).Warn("skipping snapshot write: marshal failed")
		return
	}

	target := m.path(gameInstanceID)
	tmp := fmt.Sprintf("%s.%s.tmp", target, uuid.New().String())
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		m.l.WithField("game_instance_id", gameInstanceID).WithError(err).Warn("skipping snapshot write: write tmp failed")
		return
	}
	if err := os.Rename(tmp, target); err != nil {
		m.l.WithField("game_instance_id", gameInstanceID).WithError(err).Warn("skipping snapshot write: rename failed")
		_ = os.Remove(tmp)
	}
}

// Load scans the snapshot directory and returns every valid
// (gameInstanceId, GameState) pair found. Non-".json" names are skipped
// silently; unreadable, malformed and invalid files are logged and skipped.
// Load never fails startup.
func (m *Manager) Load() map[string]instance.GameState {
	out := map[string]instance.GameState{}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.l.WithError(err).Warn("snapshot: could not read directory, starting with no restored instances")
		return out
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		gameInstanceID := strings.TrimSuffix(entry.Name(), ".json")

		body, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			m.l.WithField("file", entry.Name()).WithError(err).Warn("snapshot: skipping unreadable file")
			continue
		}

		var state instance.GameState
		if err := json.Unmarshal(body, &state); err != nil {
			m.l.WithField("file", entry.Name()).WithError(err).Warn("snapshot: skipping malformed file")
			continue
		}
		if err := Validate(state); err != nil {
			m.l.WithField("file", entry.Name()).WithError(err).Warn("snapshot: skipping invalid state")
			continue
		}

		out[gameInstanceID] = state
	}

	return out
}

// FlushTask is a tasks.Task that periodically snapshots every live
// instance. It is registered with tasks.Register so it runs on its own
// goroutine, independent of the dispatcher's critical path.
type FlushTask struct {
	mgr      *Manager
	handles  func() map[string]*instance.Handle
	interval time.Duration
}

// NewFlushTask constructs a FlushTask. handles is called on every tick to
// get the live set of instance handles (instance.Manager.All).
func NewFlushTask(mgr *Manager, handles func() map[string]*instance.Handle, interval time.Duration) *FlushTask {
	return &FlushTask{mgr: mgr, handles: handles, interval: interval}
}

// Run snapshots every live instance once. Each instance's point-in-time
// copy is taken under its own writer lock; the disk write happens outside
// any lock.
func (t *FlushTask) Run() {
	for gameInstanceID, h := range t.handles() {
		state := h.Snapshot()
		t.mgr.Write(gameInstanceID, state)
	}
}

// SleepTime implements tasks.Task.
func (t *FlushTask) SleepTime() time.Duration {
	return t.interval
}
