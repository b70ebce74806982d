package gomxf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaArrayFromElementSizesSliceBoundary(t *testing.T) {
	sizes := []uint32{100, 200, 0, 50, 75}
	d := NewDeltaArrayFromElementSizes(sizes)

	want := []DeltaEntry{
		{Slice: 0, ElementDelta: 0},
		{Slice: 0, ElementDelta: 100},
		{Slice: 0, ElementDelta: 300},
		{Slice: 1, ElementDelta: 0},
		{Slice: 1, ElementDelta: 50},
	}
	require.Len(t, d.Entries, len(want))
	assert.Equal(t, want, d.Entries)
	assert.Equal(t, 1, d.NSL)
	assert.Equal(t, 0, d.NPE)
	assert.Equal(t, 15, d.EntrySize())
}

func TestDeltaArrayFromEntriesDerivesNPE(t *testing.T) {
	d := NewDeltaArrayFromEntries([]DeltaEntry{
		{PosTableIndex: 0, Slice: 0, ElementDelta: 0},
		{PosTableIndex: 2, Slice: 1, ElementDelta: 4},
	})
	assert.Equal(t, 1, d.NSL)
	assert.Equal(t, 2, d.NPE)
	assert.Equal(t, 11+4*1+8*2, d.EntrySize())
}

func TestDeltaArrayEncodeDecodeRoundTrip(t *testing.T) {
	d := NewDeltaArrayFromEntries([]DeltaEntry{
		{PosTableIndex: 1, Slice: 0, ElementDelta: 0},
		{PosTableIndex: 0, Slice: 1, ElementDelta: 40},
	})
	encoded := d.encode()

	decoded, n, err := decodeDeltaArray(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)
	assert.Equal(t, d.Entries, decoded.Entries)
	assert.Equal(t, d.NSL, decoded.NSL)
	assert.Equal(t, d.NPE, decoded.NPE)
}

func TestDecodeDeltaArrayRejectsWrongItemSize(t *testing.T) {
	bad := EncodeBatch(7, [][]byte{make([]byte, 7)})
	_, _, err := decodeDeltaArray(bad)
	require.Error(t, err)
	assert.IsType(t, MalformedError{}, err)
}
