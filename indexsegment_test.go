package gomxf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSegmentAppendAndEntry(t *testing.T) {
	table := NewIndexTable()
	require.NoError(t, table.DefineDeltaArrayFromElementSizes([]uint32{0}))
	seg, err := table.AddSegment(10)
	require.NoError(t, err)

	require.NoError(t, seg.AppendEntry(IndexEntry{
		TemporalOffset: 1,
		KeyFrameOffset: -2,
		Flags:          0x40,
		StreamOffset:   1000,
	}))
	require.EqualValues(t, 1, seg.EntryCount())
	assert.True(t, seg.Contains(10))
	assert.False(t, seg.Contains(11))
	assert.EqualValues(t, 11, seg.NextPosition())

	e, err := seg.Entry(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, e.StreamOffset)
	assert.EqualValues(t, 0x40, e.Flags)
}

func TestIndexSegmentAppendEntryArityMismatch(t *testing.T) {
	table := NewIndexTable()
	require.NoError(t, table.DefineDeltaArrayFromEntries([]DeltaEntry{
		{Slice: 1, ElementDelta: 0},
	}))
	seg, err := table.AddSegment(0)
	require.NoError(t, err)

	err = seg.AppendEntry(IndexEntry{})
	require.Error(t, err)
	assert.IsType(t, ArityMismatchError{}, err)
}

func TestIndexSegmentUpdateStreamOffset(t *testing.T) {
	table := NewIndexTable()
	seg, err := table.AddSegment(0)
	require.NoError(t, err)
	require.NoError(t, seg.AppendEntry(IndexEntry{StreamOffset: 10}))

	require.NoError(t, seg.UpdateStreamOffset(0, 99))
	e, err := seg.Entry(0)
	require.NoError(t, err)
	assert.EqualValues(t, 99, e.StreamOffset)
}

func TestIndexSegmentEncodeDecodeRoundTrip(t *testing.T) {
	table := NewIndexTable()
	table.EditRate = Rational{Num: 25, Den: 1}
	table.IndexSID = 2
	table.BodySID = 1
	require.NoError(t, table.DefineDeltaArrayFromElementSizes([]uint32{0, 4}))

	seg, err := table.AddSegment(0)
	require.NoError(t, err)
	require.NoError(t, seg.AppendEntry(IndexEntry{
		TemporalOffset: 2,
		KeyFrameOffset: 0,
		Flags:          0x80,
		StreamOffset:   512,
		SliceOffsets:   []uint32{128},
	}))
	require.NoError(t, seg.AppendEntry(IndexEntry{
		StreamOffset: 700,
		SliceOffsets: []uint32{50},
	}))

	payload := seg.encodeWire(table.EditRate, table.IndexSID, table.BodySID, table.EditUnitByteCount)
	w, err := decodeIndexSegmentWire(payload, 2)
	require.NoError(t, err)

	assert.Equal(t, table.EditRate, w.EditRate)
	assert.EqualValues(t, table.IndexSID, w.IndexSID)
	assert.EqualValues(t, table.BodySID, w.BodySID)
	assert.EqualValues(t, 0, w.StartPosition)
	assert.EqualValues(t, 2, w.Duration)
	assert.EqualValues(t, 2, w.Segment.EntryCount())

	got0, err := w.Segment.Entry(0)
	require.NoError(t, err)
	want0, err := seg.Entry(0)
	require.NoError(t, err)
	assert.Equal(t, want0, got0)

	got1, err := w.Segment.Entry(1)
	require.NoError(t, err)
	want1, err := seg.Entry(1)
	require.NoError(t, err)
	assert.Equal(t, want1, got1)
}

func TestDecodeIndexSegmentWireMissingDeltaArray(t *testing.T) {
	var payload []byte
	payload = EncodeLocalSet(payload, localStartPosition, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	_, err := decodeIndexSegmentWire(payload, 2)
	require.Error(t, err)
	assert.IsType(t, MalformedError{}, err)
}
