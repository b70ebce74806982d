package gomxf

import "encoding/binary"

// Local tags for the fields of an IndexTableSegment, matching the SMPTE-377M
// registered static local tags for that set. Every payload, whether written
// here or read from a file, is decoded and encoded with these fixed tags; no
// primer pack is consulted.
const (
	localEditRate          uint16 = 0x3F0B
	localStartPosition     uint16 = 0x3F0C
	localDuration          uint16 = 0x3F0D
	localEditUnitByteCount uint16 = 0x3F05
	localIndexSID          uint16 = 0x3F06
	localBodySID           uint16 = 0x3F07
	localSliceCount        uint16 = 0x3F08
	localPosTableCount     uint16 = 0x3F0E
	localDeltaEntryArray   uint16 = 0x3F09
	localIndexEntryArray   uint16 = 0x3F0A
)

// IndexSegment is a contiguous run of index entries starting at StartPosition,
// in essence (stream) order. It owns a copy of the DeltaArray in effect when
// it was created and a packed byte buffer of entries sized by that array's
// EntrySize.
//
// parent is a non-owning back-reference: an IndexTable owns its segments
// exclusively, and a segment never needs to keep its table alive (see design
// notes on the weak-reference requirement from the source specification).
type IndexSegment struct {
	parent        *IndexTable
	StartPosition int64
	Delta         DeltaArray

	entries    []byte
	entryCount uint32
}

func newIndexSegment(parent *IndexTable, startPosition int64) *IndexSegment {
	return &IndexSegment{
		parent:        parent,
		StartPosition: startPosition,
		Delta:         NewDeltaArrayFromEntries(parent.BaseDelta.Entries),
	}
}

// EntryCount returns the number of entries currently stored.
func (s *IndexSegment) EntryCount() uint32 { return s.entryCount }

// EntrySize returns the wire size of one packed entry in this segment.
func (s *IndexSegment) EntrySize() int { return s.Delta.EntrySize() }

// NextPosition is the edit unit one past the last entry in this segment —
// where the next AppendEntry call must land.
func (s *IndexSegment) NextPosition() int64 {
	return s.StartPosition + int64(s.entryCount)
}

// Contains reports whether editUnit falls within this segment's range.
func (s *IndexSegment) Contains(editUnit int64) bool {
	return editUnit >= s.StartPosition && editUnit < s.NextPosition()
}

// AppendEntry validates arity against the segment's DeltaArray and appends a
// packed entry at the end.
func (s *IndexSegment) AppendEntry(entry IndexEntry) error {
	nsl, npe := s.Delta.NSL, s.Delta.NPE
	if len(entry.SliceOffsets) != nsl && !(nsl == 0 && len(entry.SliceOffsets) == 0) {
		return ArityMismatchError{Field: "slice_offsets", Want: nsl, Got: len(entry.SliceOffsets)}
	}
	if len(entry.PosTable) != npe && !(npe == 0 && len(entry.PosTable) == 0) {
		return ArityMismatchError{Field: "pos_table", Want: npe, Got: len(entry.PosTable)}
	}
	size := entrySizeFor(nsl, npe)
	buf := make([]byte, size)
	encodeIndexEntry(buf, entry, nsl, npe)
	s.entries = append(s.entries, buf...)
	s.entryCount++
	return nil
}

// AppendRawEntries bulk-appends count pre-packed entries of size bytes each,
// used when decoding a segment from the wire. size must match the segment's
// current EntrySize and len(data) must equal count*size.
func (s *IndexSegment) AppendRawEntries(count uint32, size int, data []byte) error {
	if size != s.EntrySize() {
		return MalformedError{Reason: "entry size field disagrees with delta array"}
	}
	if len(data) != int(count)*size {
		return MalformedError{Reason: "entry array length disagrees with declared count"}
	}
	s.entries = append(s.entries, data...)
	s.entryCount += count
	return nil
}

func (s *IndexSegment) entryBytes(i int) ([]byte, error) {
	if i < 0 || i >= int(s.entryCount) {
		return nil, OutOfRangeError{EditUnit: s.StartPosition + int64(i)}
	}
	size := s.EntrySize()
	off := i * size
	return s.entries[off : off+size], nil
}

// Entry reads the logical entry at index i (0-based within the segment).
func (s *IndexSegment) Entry(i int) (IndexEntry, error) {
	b, err := s.entryBytes(i)
	if err != nil {
		return IndexEntry{}, err
	}
	return decodeIndexEntry(b, s.Delta.NSL, s.Delta.NPE), nil
}

// UpdateStreamOffset rewrites the stream_offset field of the entry for
// editUnit in place, without touching any other field.
func (s *IndexSegment) UpdateStreamOffset(editUnit int64, newOffset uint64) error {
	i := int(editUnit - s.StartPosition)
	b, err := s.entryBytes(i)
	if err != nil {
		return err
	}
	writeStreamOffset(b, newOffset)
	return nil
}

// segmentWire holds the table-level fields carried alongside a segment's own
// entries on the wire. A decoded segment does not apply these to its parent
// table itself — the caller (IndexTable.AddSegmentFromBytes) decides whether
// to adopt them.
type segmentWire struct {
	EditRate          Rational
	StartPosition     int64
	Duration          int64
	EditUnitByteCount uint32
	IndexSID          uint32
	BodySID           uint32
	Segment           *IndexSegment
}

// encodeWire renders this segment as a complete IndexTableSegment local-set
// payload, stamped with the owning table's identifying fields.
func (s *IndexSegment) encodeWire(editRate Rational, indexSID, bodySID, editUnitByteCount uint32) []byte {
	buf := make([]byte, 0, 128+len(s.entries))

	var rateBuf [rationalSize]byte
	editRate.encode(rateBuf[:])
	buf = EncodeLocalSet(buf, localEditRate, rateBuf[:])

	var i64Buf [8]byte
	binary.BigEndian.PutUint64(i64Buf[:], uint64(s.StartPosition))
	buf = EncodeLocalSet(buf, localStartPosition, i64Buf[:])

	binary.BigEndian.PutUint64(i64Buf[:], uint64(s.entryCount))
	buf = EncodeLocalSet(buf, localDuration, i64Buf[:])

	var u32Buf [4]byte
	binary.BigEndian.PutUint32(u32Buf[:], editUnitByteCount)
	buf = EncodeLocalSet(buf, localEditUnitByteCount, u32Buf[:])

	binary.BigEndian.PutUint32(u32Buf[:], indexSID)
	buf = EncodeLocalSet(buf, localIndexSID, u32Buf[:])

	binary.BigEndian.PutUint32(u32Buf[:], bodySID)
	buf = EncodeLocalSet(buf, localBodySID, u32Buf[:])

	buf = EncodeLocalSet(buf, localSliceCount, []byte{byte(s.Delta.NSL)})
	buf = EncodeLocalSet(buf, localPosTableCount, []byte{byte(s.Delta.NPE)})

	buf = EncodeLocalSet(buf, localDeltaEntryArray, s.Delta.encode())

	if editUnitByteCount == 0 {
		entryBatch := EncodeBatch(s.EntrySize(), chunkBytes(s.entries, s.EntrySize()))
		buf = EncodeLocalSet(buf, localIndexEntryArray, entryBatch)
	}

	return buf
}

func chunkBytes(data []byte, size int) [][]byte {
	if size == 0 {
		return nil
	}
	n := len(data) / size
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = data[i*size : (i+1)*size]
	}
	return out
}

// decodeIndexSegmentWire parses one IndexTableSegment local-set payload
// (lenBytes is always 2 in this implementation; see ParseLocalSets).
func decodeIndexSegmentWire(payload []byte, lenBytes int) (*segmentWire, error) {
	items, err := ParseLocalSets(payload, lenBytes)
	if err != nil {
		return nil, err
	}

	w := &segmentWire{}
	seg := &IndexSegment{}
	haveDelta := false

	for _, it := range items {
		switch it.Tag {
		case localEditRate:
			if len(it.Value) != rationalSize {
				return nil, MalformedError{Reason: "IndexEditRate wrong size"}
			}
			w.EditRate = decodeRational(it.Value)
		case localStartPosition:
			if len(it.Value) != 8 {
				return nil, MalformedError{Reason: "IndexStartPosition wrong size"}
			}
			w.StartPosition = int64(binary.BigEndian.Uint64(it.Value))
			seg.StartPosition = w.StartPosition
		case localDuration:
			if len(it.Value) != 8 {
				return nil, MalformedError{Reason: "IndexDuration wrong size"}
			}
			w.Duration = int64(binary.BigEndian.Uint64(it.Value))
		case localEditUnitByteCount:
			if len(it.Value) != 4 {
				return nil, MalformedError{Reason: "EditUnitByteCount wrong size"}
			}
			w.EditUnitByteCount = binary.BigEndian.Uint32(it.Value)
		case localIndexSID:
			if len(it.Value) != 4 {
				return nil, MalformedError{Reason: "IndexSID wrong size"}
			}
			w.IndexSID = binary.BigEndian.Uint32(it.Value)
		case localBodySID:
			if len(it.Value) != 4 {
				return nil, MalformedError{Reason: "BodySID wrong size"}
			}
			w.BodySID = binary.BigEndian.Uint32(it.Value)
		case localSliceCount, localPosTableCount:
			// Derived from the DeltaEntryArray itself; carried on the wire
			// for informational/validation purposes only.
		case localDeltaEntryArray:
			d, _, derr := decodeDeltaArray(it.Value)
			if derr != nil {
				return nil, derr
			}
			seg.Delta = d
			haveDelta = true
		case localIndexEntryArray:
			b, berr := DecodeBatch(it.Value)
			if berr != nil {
				return nil, berr
			}
			if !haveDelta {
				return nil, MalformedError{Reason: "IndexEntryArray before DeltaEntryArray"}
			}
			if b.Len != entrySizeFor(seg.Delta.NSL, seg.Delta.NPE) {
				return nil, MalformedError{Reason: "IndexEntryArray item size disagrees with delta array"}
			}
			for _, el := range b.Elements {
				seg.entries = append(seg.entries, el...)
			}
			seg.entryCount = uint32(b.N)
		default:
			// Unknown local tag: ignored, matching the host decoder's
			// general tolerance of unrecognized keys.
		}
	}

	if !haveDelta {
		return nil, MalformedError{Reason: "index table segment missing DeltaEntryArray"}
	}

	w.Segment = seg
	return w, nil
}
