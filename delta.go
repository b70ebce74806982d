package gomxf

import "encoding/binary"

// deltaEntrySize is the fixed wire size of a single DeltaEntry: one byte
// PosTableIndex, one byte Slice, four bytes ElementDelta.
const deltaEntrySize = 6

// DeltaEntry describes where one sub-element of an edit unit lives: which
// slice it falls in, which pos-table slot (if any) carries its fractional
// offset, and its byte delta within that slice.
type DeltaEntry struct {
	PosTableIndex int8
	Slice         uint8
	ElementDelta  uint32
}

func (d DeltaEntry) encode(dst []byte) {
	dst[0] = byte(d.PosTableIndex)
	dst[1] = d.Slice
	binary.BigEndian.PutUint32(dst[2:6], d.ElementDelta)
}

func decodeDeltaEntry(src []byte) DeltaEntry {
	return DeltaEntry{
		PosTableIndex: int8(src[0]),
		Slice:         src[1],
		ElementDelta:  binary.BigEndian.Uint32(src[2:6]),
	}
}

// DeltaArray describes the intra-edit-unit layout shared by a table (or one
// of its segments): one DeltaEntry per sub-element, plus the NSL/NPE/entry
// size derived from it.
type DeltaArray struct {
	Entries []DeltaEntry
	NSL     int // max(Slice) over Entries
	NPE     int // max(PosTableIndex, 0) over Entries
}

// EntrySize is the size in bytes of one packed IndexEntry under this delta
// array: 11 + 4*NSL + 8*NPE.
func (d DeltaArray) EntrySize() int {
	return 11 + 4*d.NSL + 8*d.NPE
}

func (d *DeltaArray) recompute() {
	nsl, npe := 0, 0
	for _, e := range d.Entries {
		if int(e.Slice) > nsl {
			nsl = int(e.Slice)
		}
		if int(e.PosTableIndex) > npe {
			npe = int(e.PosTableIndex)
		}
	}
	d.NSL = nsl
	d.NPE = npe
}

// NewDeltaArrayFromEntries copies entries and derives NSL/NPE/entry size.
func NewDeltaArrayFromEntries(entries []DeltaEntry) DeltaArray {
	d := DeltaArray{Entries: append([]DeltaEntry(nil), entries...)}
	d.recompute()
	return d
}

// NewDeltaArrayFromElementSizes builds one DeltaEntry per element size. A
// running byte accumulator starts at 0; for entry i, ElementDelta is set to
// the accumulator, then the accumulator advances by sizes[i]. A zero size
// that isn't the last element marks the end of a slice: the accumulator
// resets and subsequent entries move to the next slice. All PosTableIndex
// values are 0.
func NewDeltaArrayFromElementSizes(sizes []uint32) DeltaArray {
	entries := make([]DeltaEntry, len(sizes))
	var delta uint32
	var slice uint8
	for i, size := range sizes {
		entries[i] = DeltaEntry{
			PosTableIndex: 0,
			Slice:         slice,
			ElementDelta:  delta,
		}
		delta += size
		if size == 0 && i != len(sizes)-1 {
			delta = 0
			slice++
		}
	}
	d := DeltaArray{Entries: entries}
	d.recompute()
	return d
}

// encode renders the delta entry array as a Batch: 4-byte count, 4-byte
// element size (always deltaEntrySize), then count*6 bytes.
func (d DeltaArray) encode() []byte {
	elems := make([][]byte, len(d.Entries))
	for i, e := range d.Entries {
		var buf [deltaEntrySize]byte
		e.encode(buf[:])
		elems[i] = buf[:]
	}
	return EncodeBatch(deltaEntrySize, elems)
}

func (d DeltaArray) encodedSize() int {
	return 8 + len(d.Entries)*deltaEntrySize
}

// decodeDeltaArray parses a Batch of DeltaEntry and returns the array plus
// the number of bytes consumed.
func decodeDeltaArray(src []byte) (DeltaArray, int, error) {
	b, err := DecodeBatch(src)
	if err != nil {
		return DeltaArray{}, 0, err
	}
	if b.Len != deltaEntrySize {
		return DeltaArray{}, 0, MalformedError{Reason: "delta entry size field is not 6"}
	}
	entries := make([]DeltaEntry, len(b.Elements))
	for i, el := range b.Elements {
		entries[i] = decodeDeltaEntry(el)
	}
	d := DeltaArray{Entries: entries}
	d.recompute()
	return d, 8 + len(b.Elements)*deltaEntrySize, nil
}
