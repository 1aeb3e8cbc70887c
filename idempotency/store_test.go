package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndGet(t *testing.T) {
	s := NewStore(10)

	_, ok := s.Get("tx1")
	assert.False(t, ok)

	s.Record("tx1", 200, []byte(`{"ok":true}`))
	e, ok := s.Get("tx1")
	require.True(t, ok)
	assert.Equal(t, 200, e.StatusCode)
	assert.Equal(t, []byte(`{"ok":true}`), e.Body)
}

func TestRecordIsNoOpOnReplay(t *testing.T) {
	s := NewStore(10)
	s.Record("tx1", 200, []byte("first"))
	s.Record("tx1", 500, []byte("second"))

	e, _ := s.Get("tx1")
	assert.Equal(t, 200, e.StatusCode)
	assert.Equal(t, []byte("first"), e.Body)
}

func TestFIFOEviction(t *testing.T) {
	s := NewStore(2)
	s.Record("tx1", 200, nil)
	s.Record("tx2", 200, nil)
	s.Record("tx3", 200, nil)

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("tx1")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = s.Get("tx2")
	assert.True(t, ok)
	_, ok = s.Get("tx3")
	assert.True(t, ok)
}

func TestEntriesPreservesInsertionOrder(t *testing.T) {
	s := NewStore(10)
	s.Record("a", 200, nil)
	s.Record("b", 200, nil)
	s.Record("c", 200, nil)

	ids := make([]string, 0, 3)
	for _, e := range s.Entries() {
		ids = append(ids, e.TxID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRestoreTruncatesToCapacity(t *testing.T) {
	s := NewStore(10)
	s.Record("a", 200, nil)
	s.Record("b", 200, nil)
	s.Record("c", 200, nil)

	restored := s.Restore(s.Entries(), 2)
	assert.Equal(t, 2, restored.Len())
	_, ok := restored.Get("a")
	assert.False(t, ok)
	_, ok = restored.Get("c")
	assert.True(t, ok)
}

func TestBoundedFIFOGenericOverAnyValueType(t *testing.T) {
	b := NewBoundedFIFO[int](2)
	b.RecordIfAbsent("a", 1)
	b.RecordIfAbsent("b", 2)
	b.RecordIfAbsent("c", 3)

	assert.Equal(t, 2, b.Len())
	_, ok := b.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	v, ok := b.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []int{2, 3}, b.Values())
}
