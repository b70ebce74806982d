package gomxf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorderIndexMandatoryFieldsRequiredForCompletion(t *testing.T) {
	r := newReorderIndex(0, 0)

	require.NoError(t, r.SetEntry(0, 0x40, 0, nil))
	assert.Equal(t, 0, r.GetEntryCount())

	require.NoError(t, r.SetStreamOffset(0, 1000))
	assert.Equal(t, 1, r.GetEntryCount())
}

func TestReorderIndexOutOfOrderCompletionStopsAtGap(t *testing.T) {
	r := newReorderIndex(0, 0)

	require.NoError(t, r.SetEntry(0, 0x40, 0, nil))
	require.NoError(t, r.SetStreamOffset(1, 100))
	require.NoError(t, r.SetEntry(1, 0x00, 0, nil))
	assert.Equal(t, 0, r.GetEntryCount(), "position 0 still lacks its stream offset")

	require.NoError(t, r.SetStreamOffset(0, 0))
	assert.Equal(t, 2, r.GetEntryCount(), "completing position 0 unblocks the prefix through position 1")
}

func TestReorderIndexTemporalOffsetNotMandatory(t *testing.T) {
	r := newReorderIndex(0, 0)

	require.NoError(t, r.SetEntry(0, 0x40, -2, nil))
	require.NoError(t, r.SetStreamOffset(0, 500))
	assert.Equal(t, 1, r.GetEntryCount())

	require.NoError(t, r.SetTemporalOffset(0, 3))
	assert.Equal(t, 1, r.GetEntryCount())
}

func TestReorderIndexRejectsPositionBeforeFirst(t *testing.T) {
	r := newReorderIndex(0, 0)
	require.NoError(t, r.SetEntry(5, 0x40, 0, nil))

	err := r.SetEntry(3, 0x00, 0, nil)
	require.Error(t, err)
	assert.IsType(t, OutOfRangeError{}, err)
}

func TestReorderIndexCommitEntriesShiftsBuffer(t *testing.T) {
	table := NewIndexTable()
	require.NoError(t, table.DefineDeltaArrayFromElementSizes([]uint32{0}))

	r := newReorderIndex(0, 0)
	require.NoError(t, r.SetEntry(0, 0x40, 0, nil))
	require.NoError(t, r.SetStreamOffset(0, 0))
	require.NoError(t, r.SetEntry(1, 0x00, 0, nil))
	require.NoError(t, r.SetStreamOffset(1, 1000))
	require.NoError(t, r.SetEntry(2, 0x00, 0, nil))
	require.NoError(t, r.SetStreamOffset(2, 2000))
	require.Equal(t, 3, r.GetEntryCount())

	n, err := r.CommitEntries(table, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, r.GetEntryCount())
	assert.EqualValues(t, 2, r.firstPosition)

	seg, ok := table.GetSegment(0)
	require.True(t, ok)
	e0, err := seg.Entry(0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, e0.StreamOffset)
	e1, err := seg.Entry(1)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, e1.StreamOffset)

	_, err = seg.Entry(2)
	assert.Error(t, err)

	n2, err := r.CommitEntries(table, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, n2)
	seg2, ok := table.GetSegment(2)
	require.True(t, ok)
	e2, err := seg2.Entry(int(2 - seg2.StartPosition))
	require.NoError(t, err)
	assert.EqualValues(t, 2000, e2.StreamOffset)
}

func TestReorderIndexSliceAndPosTableSlots(t *testing.T) {
	r := newReorderIndex(1, 1)
	require.NoError(t, r.SetEntry(0, 0x40, 0, []Rational{{Num: 1, Den: 2}}))
	require.NoError(t, r.SetStreamOffset(0, 77))
	assert.Equal(t, 1, r.GetEntryCount())

	table := NewIndexTable()
	require.NoError(t, table.DefineDeltaArrayFromEntries([]DeltaEntry{
		{Slice: 0, PosTableIndex: 0, ElementDelta: 0},
		{Slice: 1, PosTableIndex: 1, ElementDelta: 4},
	}))
	n, err := r.CommitEntries(table, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	seg, ok := table.GetSegment(0)
	require.True(t, ok)
	e, err := seg.Entry(0)
	require.NoError(t, err)
	assert.EqualValues(t, 77, e.StreamOffset)
	require.Len(t, e.PosTable, 1)
	assert.Equal(t, Rational{Num: 1, Den: 2}, e.PosTable[0])
}
