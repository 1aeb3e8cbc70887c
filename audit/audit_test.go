package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndEntries(t *testing.T) {
	l := NewLog(10)
	l.Append(Record{TxID: "tx1", PlayerID: "p1", Resources: map[string]int{"gold": 10}, Actor: "admin"})
	l.Append(Record{TxID: "tx2", PlayerID: "p1", Resources: map[string]int{"xp": 5}, Actor: "admin"})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "tx1", entries[0].TxID)
	assert.Equal(t, "tx2", entries[1].TxID)
}

func TestAppendIsNoOpOnDuplicateTxID(t *testing.T) {
	l := NewLog(10)
	l.Append(Record{TxID: "tx1", PlayerID: "p1", Resources: map[string]int{"gold": 10}, Actor: "admin"})
	l.Append(Record{TxID: "tx1", PlayerID: "p2", Resources: map[string]int{"gold": 999}, Actor: "admin"})

	require.Equal(t, 1, l.Len())
	assert.Equal(t, "p1", l.Entries()[0].PlayerID)
}

func TestFIFOEvictionSharedWithIdempotencyStore(t *testing.T) {
	l := NewLog(2)
	l.Append(Record{TxID: "tx1", PlayerID: "p1"})
	l.Append(Record{TxID: "tx2", PlayerID: "p1"})
	l.Append(Record{TxID: "tx3", PlayerID: "p1"})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "tx2", entries[0].TxID)
	assert.Equal(t, "tx3", entries[1].TxID)
}
