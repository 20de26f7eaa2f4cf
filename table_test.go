package linkedmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func requireCorruptPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, errCorrupt)
	}()
	fn()
}

func newTestTable(n int) *table[int, string] {
	t := newTable[int, string](0, "v0", nil, 0)
	for i := 1; i < n; i++ {
		t.insert(i, "v")
	}
	return t
}

func TestTable_NewTable(t *testing.T) {
	tbl := newTable[string, int]("k", 1, nil, 0)
	require.Equal(t, 1, tbl.len())
	require.Equal(t, tbl.head, tbl.tail)
	n := tbl.nodes.at(tbl.head)
	require.Equal(t, nilRef, n.prev)
	require.Equal(t, nilRef, n.next)
	require.Equal(t, "k", n.key)
	require.Equal(t, defaultMinTableLen, len(tbl.buckets))
	require.NoError(t, tbl.verify())
}

func TestTable_InsertLinks(t *testing.T) {
	tbl := newTestTable(3)
	a, b, c := tbl.find(0), tbl.find(1), tbl.find(2)
	require.Equal(t, a, tbl.head)
	require.Equal(t, c, tbl.tail)
	require.Equal(t, b, tbl.nodes.at(a).next)
	require.Equal(t, a, tbl.nodes.at(b).prev)
	require.Equal(t, c, tbl.nodes.at(b).next)
	require.Equal(t, b, tbl.nodes.at(c).prev)
	require.NoError(t, tbl.verify())
}

func TestTable_RemoveLastEntry(t *testing.T) {
	tbl := newTestTable(1)
	v, ok, err := tbl.remove(0)
	require.ErrorIs(t, err, errLastEntry)
	require.True(t, ok)
	require.Equal(t, "v0", v)
	require.Equal(t, 0, tbl.len())
}

func TestTable_RemoveAbsent(t *testing.T) {
	tbl := newTestTable(2)
	_, ok, err := tbl.remove(7)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, tbl.len())
	require.NoError(t, tbl.verify())
}

func TestTable_RemoveAnchors(t *testing.T) {
	tbl := newTestTable(3)
	_, _, err := tbl.remove(0)
	require.NoError(t, err)
	require.Equal(t, tbl.find(1), tbl.head)
	require.Equal(t, nilRef, tbl.nodes.at(tbl.head).prev)

	_, _, err = tbl.remove(2)
	require.NoError(t, err)
	require.Equal(t, tbl.find(1), tbl.tail)
	require.Equal(t, tbl.head, tbl.tail)
	require.NoError(t, tbl.verify())
}

func TestTable_ReverseSwapsAnchors(t *testing.T) {
	tbl := newTestTable(4)
	head, tail := tbl.head, tbl.tail
	tbl.reverse()
	require.Equal(t, tail, tbl.head)
	require.Equal(t, head, tbl.tail)
	require.NoError(t, tbl.verify())
}

func TestTable_Resize(t *testing.T) {
	tbl := newTestTable(10000)
	require.Equal(t, 10000, tbl.len())
	require.LessOrEqual(t, float64(tbl.len()), float64(len(tbl.buckets))*mapLoadFactor)
	require.Equal(t, 0, len(tbl.buckets)&(len(tbl.buckets)-1))
	require.NoError(t, tbl.verify())
}

func TestTable_SlotReuse(t *testing.T) {
	tbl := newTestTable(3)
	used := tbl.nodes.used
	r := tbl.find(1)
	_, _, err := tbl.remove(1)
	require.NoError(t, err)
	tbl.insert(3, "v3")
	require.Equal(t, used, tbl.nodes.used)
	require.Equal(t, r, tbl.find(3))
	require.NoError(t, tbl.verify())
}

func TestTable_PopFront(t *testing.T) {
	tbl := newTestTable(2)
	k, v, next := tbl.popFront(tbl.head)
	require.Equal(t, 0, k)
	require.Equal(t, "v0", v)
	require.Equal(t, tbl.find(1), next)
	require.Equal(t, next, tbl.head)
	require.NoError(t, tbl.verify())

	k, _, next = tbl.popFront(tbl.head)
	require.Equal(t, 1, k)
	require.Equal(t, nilRef, next)
	require.Equal(t, 0, tbl.len())

	requireCorruptPanic(t, func() {
		tbl := newTestTable(2)
		tbl.popFront(tbl.tail)
	})
}

func TestTable_Clone(t *testing.T) {
	tbl := newTestTable(50)
	c := tbl.clone()
	c.insert(100, "new")
	_, _, err := c.remove(0)
	require.NoError(t, err)
	require.Equal(t, 50, tbl.len())
	require.Equal(t, nilRef, tbl.find(100))
	require.NotEqual(t, nilRef, tbl.find(0))
	require.NoError(t, tbl.verify())
	require.NoError(t, c.verify())
}

func TestTable_VerifyDetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(tbl *table[int, string])
	}{
		{"head has prev", func(tbl *table[int, string]) {
			tbl.nodes.at(tbl.head).prev = tbl.tail
		}},
		{"tail has next", func(tbl *table[int, string]) {
			tbl.nodes.at(tbl.tail).next = tbl.head
		}},
		{"broken back link", func(tbl *table[int, string]) {
			tbl.nodes.at(tbl.find(2)).prev = tbl.find(0)
		}},
		{"short list", func(tbl *table[int, string]) {
			tbl.nodes.at(tbl.find(1)).next = nilRef
			tbl.tail = tbl.find(1)
		}},
		{"stale hash", func(tbl *table[int, string]) {
			tbl.nodes.at(tbl.find(3)).hash++
		}},
		{"miscount", func(tbl *table[int, string]) {
			tbl.count++
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTestTable(4)
			require.NoError(t, tbl.verify())
			tt.corrupt(tbl)
			require.ErrorIs(t, tbl.verify(), errCorrupt)
		})
	}
}

func TestTable_RemoveFailsFastOnBrokenAnchor(t *testing.T) {
	requireCorruptPanic(t, func() {
		tbl := newTestTable(3)
		tbl.nodes.at(tbl.find(1)).prev = nilRef
		tbl.remove(1)
	})
	requireCorruptPanic(t, func() {
		tbl := newTestTable(3)
		tbl.nodes.at(tbl.find(1)).next = nilRef
		tbl.remove(1)
	})
}
