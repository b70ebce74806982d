package gomxf

import (
	"bytes"
	"io"
	"math"
	"sort"
)

// IndexLowest is the sentinel ThisPos value for a lookup that found nothing
// addressable: no segment precedes the requested edit unit at all.
const IndexLowest = int64(math.MinInt64)

// IndexPos is the result of an IndexTable.Lookup. Exact reports whether
// Location addresses the requested edit unit directly; when false and
// OtherPos is true, ThisPos names the nearest preceding entry actually found
// (the "hint" case: past the end of known entries). KeyLocation is resolved
// one hop only — if the keyframe it names is itself not locally addressable,
// KeyLocation is -1.
type IndexPos struct {
	ThisPos        int64
	Location       int64
	PosOffset      Rational
	Exact          bool
	OtherPos       bool
	Offset         bool
	KeyFrameOffset int8
	TemporalOffset int8
	KeyLocation    int64
	Flags          uint8
}

// noKeyLocation is the "not resolvable" sentinel for IndexPos.KeyLocation.
const noKeyLocation = int64(-1)

// IndexTable is the ordered collection of index segments for one essence
// stream (one IndexSID/BodySID pair), plus the CBR shortcut fields that let
// Lookup skip the segment map entirely when the essence is constant bit
// rate. Segments are stored disjoint and ordered by StartPosition; the table
// never rewrites a segment's range, only appends within it or replaces its
// per-entry fields in place.
type IndexTable struct {
	IndexSID          uint32
	BodySID           uint32
	EditRate          Rational
	EditUnitByteCount uint32
	BaseDelta         DeltaArray
	Reorder           *ReorderIndex

	segments      map[int64]*IndexSegment
	order         []int64
	indexDuration int64
	log           Logger
}

// NewIndexTable returns an empty table with no CBR shortcut and a discard
// logger.
func NewIndexTable() *IndexTable {
	return &IndexTable{
		segments: make(map[int64]*IndexSegment),
		log:      Discard,
	}
}

// SetLogger installs l for diagnostic output (e.g. Purge). Nil is rejected
// in favor of Discard.
func (t *IndexTable) SetLogger(l Logger) {
	if l == nil {
		l = Discard
	}
	t.log = l.Named("index_table")
}

// DefineDeltaArrayFromEntries sets the table's base delta array explicitly.
// It fails once any segment exists, since segments already carry their own
// copy taken at creation time.
func (t *IndexTable) DefineDeltaArrayFromEntries(entries []DeltaEntry) error {
	if len(t.segments) > 0 {
		return InvalidStateError{Reason: "cannot redefine delta array once segments exist"}
	}
	t.BaseDelta = NewDeltaArrayFromEntries(entries)
	return nil
}

// DefineDeltaArrayFromElementSizes derives the base delta array from a list
// of per-sub-item element sizes, per the zero-size slice boundary rule (see
// NewDeltaArrayFromElementSizes).
func (t *IndexTable) DefineDeltaArrayFromElementSizes(sizes []uint32) error {
	if len(t.segments) > 0 {
		return InvalidStateError{Reason: "cannot redefine delta array once segments exist"}
	}
	t.BaseDelta = NewDeltaArrayFromElementSizes(sizes)
	return nil
}

func (t *IndexTable) insertSegment(seg *IndexSegment) {
	t.segments[seg.StartPosition] = seg
	idx := sort.Search(len(t.order), func(i int) bool { return t.order[i] >= seg.StartPosition })
	t.order = append(t.order, 0)
	copy(t.order[idx+1:], t.order[idx:])
	t.order[idx] = seg.StartPosition
}

// floorSegment returns the segment with the greatest StartPosition <=
// editUnit, if any. Because segments are disjoint and stored in ascending
// start order, this is also the segment with the greatest end position not
// exceeding editUnit.
func (t *IndexTable) floorSegment(editUnit int64) (*IndexSegment, bool) {
	idx := sort.Search(len(t.order), func(i int) bool { return t.order[i] > editUnit })
	if idx == 0 {
		return nil, false
	}
	return t.segments[t.order[idx-1]], true
}

// GetSegment returns the segment containing editUnit, if one exists.
func (t *IndexTable) GetSegment(editUnit int64) (*IndexSegment, bool) {
	seg, ok := t.floorSegment(editUnit)
	if !ok || !seg.Contains(editUnit) {
		return nil, false
	}
	return seg, true
}

// AddSegment locates or creates the segment starting exactly at
// startPosition. Calling it twice with the same startPosition is a no-op
// that returns the existing segment.
func (t *IndexTable) AddSegment(startPosition int64) (*IndexSegment, error) {
	if seg, ok := t.segments[startPosition]; ok {
		return seg, nil
	}
	seg := newIndexSegment(t, startPosition)
	t.insertSegment(seg)
	return seg, nil
}

// AddSegmentFromBytes decodes one IndexTableSegment local-set payload and
// adds it to the table. A CBR payload (EditUnitByteCount != 0) updates the
// table's shortcut fields and returns a nil segment — CBR tables carry no
// segments of their own, per AddIndexEntry and Lookup's fast path.
func (t *IndexTable) AddSegmentFromBytes(data []byte, lenBytes int) (*IndexSegment, error) {
	w, err := decodeIndexSegmentWire(data, lenBytes)
	if err != nil {
		return nil, err
	}

	if t.EditRate.IsZero() {
		t.EditRate = w.EditRate
	}
	if t.IndexSID == 0 {
		t.IndexSID = w.IndexSID
	}
	if t.BodySID == 0 {
		t.BodySID = w.BodySID
	}
	if len(t.BaseDelta.Entries) == 0 {
		t.BaseDelta = NewDeltaArrayFromEntries(w.Segment.Delta.Entries)
	}

	if w.EditUnitByteCount > 0 {
		t.EditUnitByteCount = w.EditUnitByteCount
		if w.Duration > 0 {
			t.indexDuration = w.Duration
		}
		return nil, nil
	}

	if _, exists := t.segments[w.Segment.StartPosition]; exists {
		return nil, AlreadyExistsError{StartPosition: w.Segment.StartPosition}
	}
	w.Segment.parent = t
	t.insertSegment(w.Segment)
	return w.Segment, nil
}

// AddSegments iterates a byte blob containing zero or more complete
// IndexTableSegment KLV packets back to back (as found in an index
// partition) and adds each one. Non-index KLVs in the blob are skipped.
func (t *IndexTable) AddSegments(chunk []byte) error {
	r := bytes.NewReader(chunk)
	max := int64(len(chunk))
	at := int64(0)
	for at < max {
		k, err := ReadKLV(r, at, max)
		if err != nil {
			return err
		}
		if isIndexTable(k.Key) {
			payload := make([]byte, k.Length)
			if _, err := r.ReadAt(payload, k.ValueStart); err != nil {
				return err
			}
			if _, err := t.AddSegmentFromBytes(payload, 2); err != nil {
				return err
			}
		}
		at += k.Size()
	}
	return nil
}

// AddIndexEntry appends one entry at editUnit, locating or creating its
// segment. It fails if editUnit already has an entry: callers wanting to
// overwrite fields use Update or Correct instead.
func (t *IndexTable) AddIndexEntry(editUnit int64, temporalOffset, keyFrameOffset int8, flags uint8, streamOffset uint64, sliceOffsets []uint32, posTable []Rational) error {
	floor, ok := t.floorSegment(editUnit)

	var seg *IndexSegment
	switch {
	case ok && floor.Contains(editUnit):
		return AlreadyExistsError{StartPosition: editUnit}
	case ok && floor.NextPosition() == editUnit:
		seg = floor
	default:
		var err error
		seg, err = t.AddSegment(editUnit)
		if err != nil {
			return err
		}
	}

	return seg.AppendEntry(IndexEntry{
		TemporalOffset: temporalOffset,
		KeyFrameOffset: keyFrameOffset,
		Flags:          flags,
		StreamOffset:   streamOffset,
		SliceOffsets:   sliceOffsets,
		PosTable:       posTable,
	})
}

// Update rewrites the stream_offset of an existing entry in place.
func (t *IndexTable) Update(editUnit int64, streamOffset uint64) error {
	seg, ok := t.GetSegment(editUnit)
	if !ok {
		return OutOfRangeError{EditUnit: editUnit}
	}
	return seg.UpdateStreamOffset(editUnit, streamOffset)
}

// Correct rewrites temporal_offset, key_frame_offset and flags of an
// existing entry in place, leaving stream_offset and the slice/pos-table
// arrays untouched.
func (t *IndexTable) Correct(editUnit int64, temporalOffset, keyFrameOffset int8, flags uint8) error {
	seg, ok := t.GetSegment(editUnit)
	if !ok {
		return OutOfRangeError{EditUnit: editUnit}
	}
	b, err := seg.entryBytes(int(editUnit - seg.StartPosition))
	if err != nil {
		return err
	}
	b[0] = byte(temporalOffset)
	b[1] = byte(keyFrameOffset)
	b[2] = flags
	return nil
}

// Purge discards whole segments that fall entirely within [first, last].
// A segment that only partially overlaps the range is kept untouched.
func (t *IndexTable) Purge(first, last int64) {
	newOrder := make([]int64, 0, len(t.order))
	for _, key := range t.order {
		seg := t.segments[key]
		endIncl := seg.StartPosition + int64(seg.EntryCount()) - 1
		if seg.StartPosition >= first && endIncl <= last {
			delete(t.segments, key)
			t.log.Debug("purged segment", "start", seg.StartPosition, "count", seg.EntryCount())
			continue
		}
		newOrder = append(newOrder, key)
	}
	t.order = newOrder
}

// Duration returns the highest addressable edit unit plus one. For a CBR
// table it returns the duration recorded on its defining segment (0 if
// none was ever set); for VBR it's the end of the last segment.
func (t *IndexTable) Duration() int64 {
	if t.EditUnitByteCount > 0 {
		return t.indexDuration
	}
	max := int64(0)
	for _, key := range t.order {
		seg := t.segments[key]
		end := seg.StartPosition + int64(seg.EntryCount())
		if end > max {
			max = end
		}
	}
	t.indexDuration = max
	return max
}

// WriteTo serializes every segment as a complete IndexTableSegment KLV
// packet, in ascending StartPosition order, and returns the number of bytes
// written. CBR tables (no segments) write nothing.
func (t *IndexTable) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, key := range t.order {
		seg := t.segments[key]
		payload := seg.encodeWire(t.EditRate, t.IndexSID, t.BodySID, t.EditUnitByteCount)

		n, err := w.Write(IndexTableSegmentKey[:])
		total += int64(n)
		if err != nil {
			return total, err
		}
		n, err = w.Write(EncodeBERLength(int64(len(payload))))
		total += int64(n)
		if err != nil {
			return total, err
		}
		n, err = w.Write(payload)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// EnableReorder lazily creates the table's ReorderIndex staging buffer,
// sized to this table's current base delta array.
func (t *IndexTable) EnableReorder() *ReorderIndex {
	if t.Reorder == nil {
		t.Reorder = newReorderIndex(t.BaseDelta.NSL, t.BaseDelta.NPE)
	}
	return t.Reorder
}

// GetReorder returns the table's ReorderIndex, or nil if EnableReorder was
// never called.
func (t *IndexTable) GetReorder() *ReorderIndex {
	return t.Reorder
}

func elementOffset(delta DeltaArray, e IndexEntry, subItem int) int64 {
	if len(delta.Entries) == 0 || subItem < 0 || subItem >= len(delta.Entries) {
		return 0
	}
	d := delta.Entries[subItem]
	var sliceStart uint32
	if d.Slice > 0 && int(d.Slice)-1 < len(e.SliceOffsets) {
		sliceStart = e.SliceOffsets[d.Slice-1]
	}
	return int64(sliceStart) + int64(d.ElementDelta)
}

// resolveKeyLocation looks up the stream offset of the edit unit named by
// editUnit+keyFrameOffset, one hop only: if that edit unit is itself not
// locally addressable, it returns noKeyLocation rather than chasing further.
func (t *IndexTable) resolveKeyLocation(editUnit int64, keyFrameOffset int8) int64 {
	target := editUnit + int64(keyFrameOffset)
	seg, ok := t.floorSegment(target)
	if !ok || !seg.Contains(target) {
		return noKeyLocation
	}
	e, err := seg.Entry(int(target - seg.StartPosition))
	if err != nil {
		return noKeyLocation
	}
	return int64(e.StreamOffset)
}

// Lookup resolves the byte location of sub-item subItem of editUnit.
//
// For a CBR table (EditUnitByteCount != 0) this is an O(1) arithmetic
// computation using the base delta array and always reports Exact.
//
// For a VBR table it finds the segment whose range contains editUnit. If
// none does but a preceding segment exists, it returns the last known entry
// of that segment as a hint (Exact false, OtherPos true) rather than
// failing outright. When reorder is true and the resolved entry carries a
// non-zero TemporalOffset, the entry actually addressed is the one at
// index+TemporalOffset (the presentation-order entry pointing at its
// decode-order predecessor); KeyLocation is always resolved against the
// original requested editUnit plus the resolved entry's KeyFrameOffset.
func (t *IndexTable) Lookup(editUnit int64, subItem int, reorder bool) IndexPos {
	if t.EditUnitByteCount > 0 {
		location := editUnit*int64(t.EditUnitByteCount) + int64(elementOffset(t.BaseDelta, IndexEntry{}, subItem))
		return IndexPos{
			ThisPos:     editUnit,
			Location:    location,
			Exact:       true,
			KeyLocation: location,
		}
	}

	seg, ok := t.floorSegment(editUnit)
	if !ok {
		return IndexPos{ThisPos: IndexLowest, KeyLocation: noKeyLocation}
	}

	if !seg.Contains(editUnit) {
		last := int(seg.EntryCount()) - 1
		if last < 0 {
			return IndexPos{ThisPos: IndexLowest, KeyLocation: noKeyLocation}
		}
		e, _ := seg.Entry(last)
		hintPos := seg.StartPosition + int64(last)
		return IndexPos{
			ThisPos:     hintPos,
			Location:    int64(e.StreamOffset) + elementOffset(seg.Delta, e, subItem),
			OtherPos:    true,
			KeyLocation: t.resolveKeyLocation(hintPos, e.KeyFrameOffset),
		}
	}

	i := int(editUnit - seg.StartPosition)
	e, err := seg.Entry(i)
	if err != nil {
		return IndexPos{ThisPos: IndexLowest, KeyLocation: noKeyLocation}
	}

	resolved := e
	resolvedIdx := i
	if reorder && e.TemporalOffset != 0 {
		j := i + int(e.TemporalOffset)
		if j >= 0 && j < int(seg.EntryCount()) {
			if ej, jerr := seg.Entry(j); jerr == nil {
				resolved = ej
				resolvedIdx = j
			}
		}
	}

	pos := IndexPos{
		ThisPos:        seg.StartPosition + int64(resolvedIdx),
		Location:       int64(resolved.StreamOffset) + elementOffset(seg.Delta, resolved, subItem),
		Exact:          true,
		KeyFrameOffset: resolved.KeyFrameOffset,
		TemporalOffset: e.TemporalOffset,
		Flags:          resolved.Flags,
		KeyLocation:    t.resolveKeyLocation(editUnit, resolved.KeyFrameOffset),
	}

	if subItem >= 0 && subItem < len(seg.Delta.Entries) {
		pti := int(seg.Delta.Entries[subItem].PosTableIndex)
		if pti > 0 && pti <= len(resolved.PosTable) {
			pos.PosOffset = resolved.PosTable[pti-1]
			pos.Offset = true
		}
	}

	return pos
}
