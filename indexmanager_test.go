package gomxf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario F.
func TestIndexManagerOutOfOrderTemporalCompletion(t *testing.T) {
	m := NewIndexManager()

	m.SetTemporalOffset(10, 3)
	require.NoError(t, m.SetOffset(0, 13, 9999, 0, 0x00))

	r := m.managed[13]
	require.NotNil(t, r)
	assert.EqualValues(t, -3, r.temporalDiff)
	assert.NotZero(t, r.status&statusTemporalDiff)
}

func TestIndexManagerCBRDetection(t *testing.T) {
	m := NewIndexManager()
	m.AddSubStream(0, 100)
	require.NoError(t, m.SetOffset(1, 0, 0, 0, 0))
	require.NoError(t, m.SetOffset(1, 1, 100, 0, 0))
	assert.True(t, m.IsCBR())

	require.NoError(t, m.SetOffset(1, 2, 500, 0, 0))
	assert.False(t, m.IsCBR())
}

func TestIndexManagerForceVBRIsPermanent(t *testing.T) {
	m := NewIndexManager()
	m.ForceVBR()
	assert.False(t, m.IsCBR())
}

func TestIndexManagerOfferEditUnitRespectsLatch(t *testing.T) {
	m := NewIndexManager()
	accepted := m.OfferEditUnit(0, 5, 0, 0)
	assert.False(t, accepted)

	m.AcceptNext()
	accepted = m.OfferEditUnit(0, 5, 0, 0x40)
	assert.True(t, accepted)

	accepted = m.OfferEditUnit(0, 6, 0, 0)
	assert.False(t, accepted)

	accepted = m.OfferEditUnit(0, 5, -1, 0)
	assert.True(t, accepted) // record for 5 already exists
}

func TestIndexManagerLogNextAndReadLog(t *testing.T) {
	m := NewIndexManager()
	id := m.LogNext()
	assert.Equal(t, IndexLowest, m.ReadLog(id))

	require.NoError(t, func() error {
		_, err := m.OfferOffset(0, 7, 100, 0, 0)
		return err
	}())
	assert.EqualValues(t, 7, m.ReadLog(id))
}

func TestIndexManagerMakeIndexCBR(t *testing.T) {
	m := NewIndexManager()
	m.streams[0].elementSize = 1000
	m.AddSubStream(0, 500)

	table := m.MakeIndex()
	assert.EqualValues(t, 1500, table.EditUnitByteCount)
}

func TestIndexManagerAddEntriesToIndexBreaksOnGap(t *testing.T) {
	m := NewIndexManager()
	m.ForceVBR()

	require.NoError(t, m.SetOffset(0, 0, 0, 0, 0x40))
	require.NoError(t, m.SetOffset(0, 1, 100, 0, 0))
	require.NoError(t, m.SetOffset(0, 5, 500, 0, 0))

	table := m.MakeIndex()
	n, err := m.AddEntriesToIndex(false, table, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, ok := table.GetSegment(0)
	assert.True(t, ok)
	_, ok = table.GetSegment(5)
	assert.True(t, ok)
	_, ok = table.GetSegment(2)
	assert.False(t, ok)
}

func TestIndexManagerFlushDeletesRecords(t *testing.T) {
	m := NewIndexManager()
	require.NoError(t, m.SetOffset(0, 1, 10, 0, 0))
	require.NoError(t, m.SetOffset(0, 2, 20, 0, 0))
	m.Flush(1, 1)
	_, ok := m.managed[1]
	assert.False(t, ok)
	_, ok = m.managed[2]
	assert.True(t, ok)
}

func TestIndexManagerSubRangeOffsetAndIndexDuration(t *testing.T) {
	m := NewIndexManager()
	m.SetSubRangeOffset(1000)
	assert.EqualValues(t, 1000, m.GetSubRangeOffset())

	m.SetIndexDuration(42)
	m.ForceVBR()
	table := m.MakeIndex()
	assert.EqualValues(t, 0, table.indexDuration) // VBR: MakeIndex only applies duration for CBR

	m2 := NewIndexManager()
	m2.SetIndexDuration(42)
	table2 := m2.MakeIndex()
	assert.EqualValues(t, 42, table2.indexDuration)
}

func TestIndexManagerAcceptProvisional(t *testing.T) {
	m := NewIndexManager()
	_, ok := m.AcceptProvisional()
	assert.False(t, ok)

	m.SetProvisional(4, -1, 0x40)
	eu, ok := m.AcceptProvisional()
	require.True(t, ok)
	assert.EqualValues(t, 4, eu)
	assert.EqualValues(t, -1, m.managed[4].keyOffset)
	assert.EqualValues(t, 0x40, m.managed[4].flags)

	_, ok = m.AcceptProvisional()
	assert.False(t, ok)
}
