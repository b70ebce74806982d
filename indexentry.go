package gomxf

import "encoding/binary"

// IndexEntry is the logical, unpacked form of one index table record. It is
// never stored this way inside a segment (see packed byte layout below);
// it's the shape handed to and returned from the append/lookup API.
type IndexEntry struct {
	TemporalOffset int8
	KeyFrameOffset int8
	Flags          uint8
	StreamOffset   uint64
	SliceOffsets   []uint32
	PosTable       []Rational
}

// entrySizeFor returns the packed wire size of an index entry for the given
// NSL/NPE: 11 + 4*NSL + 8*NPE.
func entrySizeFor(nsl, npe int) int {
	return 11 + 4*nsl + 8*npe
}

// encodeIndexEntry packs entry into dst (which must be exactly
// entrySizeFor(nsl, npe) bytes) per the wire layout:
// temporal_offset(i8) | key_frame_offset(i8) | flags(u8) | stream_offset(u64) |
// slice_offset(u32)*nsl | pos_entry(rational)*npe.
func encodeIndexEntry(dst []byte, entry IndexEntry, nsl, npe int) {
	dst[0] = byte(entry.TemporalOffset)
	dst[1] = byte(entry.KeyFrameOffset)
	dst[2] = entry.Flags
	binary.BigEndian.PutUint64(dst[3:11], entry.StreamOffset)
	off := 11
	for i := 0; i < nsl; i++ {
		var v uint32
		if i < len(entry.SliceOffsets) {
			v = entry.SliceOffsets[i]
		}
		binary.BigEndian.PutUint32(dst[off:off+4], v)
		off += 4
	}
	for i := 0; i < npe; i++ {
		var r Rational
		if i < len(entry.PosTable) {
			r = entry.PosTable[i]
		}
		r.encode(dst[off : off+8])
		off += 8
	}
}

// decodeIndexEntry unpacks an index entry from exactly entrySizeFor(nsl, npe)
// bytes of src.
func decodeIndexEntry(src []byte, nsl, npe int) IndexEntry {
	e := IndexEntry{
		TemporalOffset: int8(src[0]),
		KeyFrameOffset: int8(src[1]),
		Flags:          src[2],
		StreamOffset:   binary.BigEndian.Uint64(src[3:11]),
	}
	off := 11
	if nsl > 0 {
		e.SliceOffsets = make([]uint32, nsl)
		for i := 0; i < nsl; i++ {
			e.SliceOffsets[i] = binary.BigEndian.Uint32(src[off : off+4])
			off += 4
		}
	}
	if npe > 0 {
		e.PosTable = make([]Rational, npe)
		for i := 0; i < npe; i++ {
			e.PosTable[i] = decodeRational(src[off : off+8])
			off += 8
		}
	}
	return e
}

// writeStreamOffset rewrites only the 8-byte stream_offset field of a packed
// entry in place, used by IndexSegment.UpdateStreamOffset.
func writeStreamOffset(entryBytes []byte, offset uint64) {
	binary.BigEndian.PutUint64(entryBytes[3:11], offset)
}

func readStreamOffset(entryBytes []byte) uint64 {
	return binary.BigEndian.Uint64(entryBytes[3:11])
}
