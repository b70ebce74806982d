package gomxf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario A.
func TestLookupCBR(t *testing.T) {
	table := NewIndexTable()
	table.EditUnitByteCount = 16384
	require.NoError(t, table.DefineDeltaArrayFromEntries([]DeltaEntry{
		{Slice: 0, PosTableIndex: 0, ElementDelta: 0},
	}))

	pos := table.Lookup(42, 0, true)
	assert.EqualValues(t, 42, pos.ThisPos)
	assert.EqualValues(t, 688128, pos.Location)
	assert.True(t, pos.Exact)
	assert.False(t, pos.OtherPos)
	assert.EqualValues(t, 0, pos.Flags)
}

func buildVBRTable(t *testing.T) *IndexTable {
	table := NewIndexTable()
	require.NoError(t, table.DefineDeltaArrayFromElementSizes([]uint32{0}))
	require.NoError(t, table.AddIndexEntry(0, 0, 0, 0x40, 0, nil, nil))
	require.NoError(t, table.AddIndexEntry(1, 0, 0, 0x00, 1000, nil, nil))
	require.NoError(t, table.AddIndexEntry(2, 0, 0, 0x80, 2100, nil, nil))
	return table
}

// Scenario B.
func TestLookupVBRExact(t *testing.T) {
	table := buildVBRTable(t)
	pos := table.Lookup(1, 0, true)
	assert.EqualValues(t, 1, pos.ThisPos)
	assert.EqualValues(t, 1000, pos.Location)
	assert.True(t, pos.Exact)
	assert.EqualValues(t, 0x00, pos.Flags)
}

// Scenario C.
func TestLookupVBRMissWithHint(t *testing.T) {
	table := buildVBRTable(t)
	pos := table.Lookup(5, 0, true)
	assert.EqualValues(t, 2, pos.ThisPos)
	assert.EqualValues(t, 2100, pos.Location)
	assert.False(t, pos.Exact)
	assert.True(t, pos.OtherPos)
}

// Scenario D.
func TestLookupTemporalReorder(t *testing.T) {
	table := NewIndexTable()
	require.NoError(t, table.DefineDeltaArrayFromElementSizes([]uint32{0}))
	require.NoError(t, table.AddIndexEntry(0, 2, 0, 0, 0, nil, nil))
	require.NoError(t, table.AddIndexEntry(1, -1, 0, 0, 500, nil, nil))
	require.NoError(t, table.AddIndexEntry(2, -1, 0, 0, 1500, nil, nil))

	pos := table.Lookup(0, 0, true)
	assert.True(t, pos.Exact)
	assert.EqualValues(t, 1500, pos.Location)
	assert.EqualValues(t, 2, pos.TemporalOffset)

	posNoReorder := table.Lookup(0, 0, false)
	assert.EqualValues(t, 0, posNoReorder.Location)
}

func TestLookupEmptyTableReturnsLowestSentinel(t *testing.T) {
	table := NewIndexTable()
	require.NoError(t, table.DefineDeltaArrayFromElementSizes([]uint32{0}))
	pos := table.Lookup(5, 0, true)
	assert.Equal(t, IndexLowest, pos.ThisPos)
	assert.False(t, pos.Exact)
	assert.False(t, pos.OtherPos)
}

func TestAddIndexEntryRejectsDuplicate(t *testing.T) {
	table := buildVBRTable(t)
	err := table.AddIndexEntry(1, 0, 0, 0, 1234, nil, nil)
	require.Error(t, err)
	assert.IsType(t, AlreadyExistsError{}, err)
}

func TestAddIndexEntrySparseCreatesNewSegment(t *testing.T) {
	table := buildVBRTable(t)
	require.NoError(t, table.AddIndexEntry(10, 0, 0, 0, 9999, nil, nil))
	_, ok := table.GetSegment(3)
	assert.False(t, ok)
	seg, ok := table.GetSegment(10)
	require.True(t, ok)
	assert.EqualValues(t, 10, seg.StartPosition)
}

func TestIndexTableUpdateAndCorrect(t *testing.T) {
	table := buildVBRTable(t)
	require.NoError(t, table.Update(1, 5000))
	e, err := func() (IndexEntry, error) {
		seg, _ := table.GetSegment(1)
		return seg.Entry(1)
	}()
	require.NoError(t, err)
	assert.EqualValues(t, 5000, e.StreamOffset)

	require.NoError(t, table.Correct(1, 3, -1, 0x20))
	seg, _ := table.GetSegment(1)
	e2, err := seg.Entry(1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, e2.TemporalOffset)
	assert.EqualValues(t, -1, e2.KeyFrameOffset)
	assert.EqualValues(t, 0x20, e2.Flags)
	assert.EqualValues(t, 5000, e2.StreamOffset) // untouched
}

func TestIndexTableDurationVBR(t *testing.T) {
	table := buildVBRTable(t)
	assert.EqualValues(t, 3, table.Duration())
}

func TestIndexTableDurationCBR(t *testing.T) {
	table := NewIndexTable()
	table.EditUnitByteCount = 100
	assert.EqualValues(t, 0, table.Duration())
}

func TestIndexTablePurgeDeletesWholeSegmentsOnly(t *testing.T) {
	table := NewIndexTable()
	require.NoError(t, table.DefineDeltaArrayFromElementSizes([]uint32{0}))
	require.NoError(t, table.AddIndexEntry(0, 0, 0, 0, 0, nil, nil))
	require.NoError(t, table.AddIndexEntry(1, 0, 0, 0, 1, nil, nil))
	require.NoError(t, table.AddIndexEntry(10, 0, 0, 0, 10, nil, nil))

	table.Purge(0, 1)
	_, ok := table.GetSegment(0)
	assert.False(t, ok)
	_, ok = table.GetSegment(10)
	assert.True(t, ok)
}

func TestIndexTableWriteToAndAddSegmentsRoundTrip(t *testing.T) {
	src := buildVBRTable(t)

	var buf bytes.Buffer
	n, err := src.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), n)

	dst := NewIndexTable()
	require.NoError(t, dst.AddSegments(buf.Bytes()))

	for _, eu := range []int64{0, 1, 2} {
		want := src.Lookup(eu, 0, true)
		got := dst.Lookup(eu, 0, true)
		assert.Equal(t, want, got)
	}
}

func TestDefineDeltaArrayFailsAfterSegmentsExist(t *testing.T) {
	table := buildVBRTable(t)
	err := table.DefineDeltaArrayFromElementSizes([]uint32{0, 4})
	require.Error(t, err)
	assert.IsType(t, InvalidStateError{}, err)
}
