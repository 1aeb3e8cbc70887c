// Package audit implements the bounded, in-memory grant audit trail: a
// record of every GrantResources/GrantCharacterResources mutation,
// retained under the same FIFO eviction policy as the idempotency cache.
package audit

import "atlas-game-engine/idempotency"

// Record is one grant mutation's audit entry, keyed by the granting
// transaction's txId.
type Record struct {
	TxID        string         `json:"txId"`
	PlayerID    string         `json:"playerId"`
	CharacterID *string        `json:"characterId,omitempty"`
	Resources   map[string]int `json:"resources"`
	Actor       string         `json:"actor"`
}

// Log is a bounded FIFO of grant audit records. It is not safe for
// concurrent use without external synchronization; callers hold the
// owning instance's serialization lock while calling Append/Entries, the
// same discipline idempotency.Store requires.
type Log struct {
	fifo *idempotency.BoundedFIFO[Record]
}

// NewLog constructs an empty Log with the given capacity.
func NewLog(capacity int) *Log {
	return &Log{fifo: idempotency.NewBoundedFIFO[Record](capacity)}
}

// Append records r under its TxID, unless that txId was already recorded
// (a replayed grant is never double-audited). If capacity is exceeded,
// the oldest audit record is evicted.
func (l *Log) Append(r Record) {
	l.fifo.RecordIfAbsent(r.TxID, r)
}

// Entries returns the audit trail in FIFO (insertion) order. Nothing in
// this phase exposes it externally; it is a seam for a future audit
// endpoint.
func (l *Log) Entries() []Record {
	return l.fifo.Values()
}

// Len returns the number of audit records currently held.
func (l *Log) Len() int {
	return l.fifo.Len()
}
