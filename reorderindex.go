package gomxf

import "encoding/binary"

// ReorderIndex is a packed staging buffer for index entries whose fields
// arrive out of order and from independent sources: flags and the anchor
// (key frame) offset from one pass, the stream offset from another, and an
// optional temporal offset from a third. Entries are indexed by position
// relative to firstPosition, the position of the first entry ever touched.
//
// An entry counts toward CompleteEntryCount only once it has both mandatory
// fields (flags, anchor offset, stream offset) set, and only as part of the
// unbroken prefix starting at firstPosition — a later entry completing
// before an earlier one does not advance the count.
type ReorderIndex struct {
	nsl, npe      int
	entrySize     int
	entries       []byte
	status        []uint8
	completeCount int
	count         int
	firstPosition int64
	haveFirst     bool
}

const (
	reorderHasFields   uint8 = 1 << 0 // flags, anchor offset, pos table set via SetEntry
	reorderHasStream   uint8 = 1 << 1 // stream offset set via SetStreamOffset
	reorderHasTemporal uint8 = 1 << 2 // temporal offset set via SetTemporalOffset
	reorderMandatory          = reorderHasFields | reorderHasStream
)

func newReorderIndex(nsl, npe int) *ReorderIndex {
	return &ReorderIndex{nsl: nsl, npe: npe, entrySize: entrySizeFor(nsl, npe)}
}

func (r *ReorderIndex) slot(pos int64) int {
	if !r.haveFirst {
		r.firstPosition = pos
		r.haveFirst = true
	}
	return int(pos - r.firstPosition)
}

func (r *ReorderIndex) ensure(idx int) {
	needEntries := (idx + 1) * r.entrySize
	if len(r.entries) < needEntries {
		r.entries = append(r.entries, make([]byte, needEntries-len(r.entries))...)
	}
	if len(r.status) < idx+1 {
		r.status = append(r.status, make([]uint8, idx+1-len(r.status))...)
	}
	if idx+1 > r.count {
		r.count = idx + 1
	}
}

func (r *ReorderIndex) advanceComplete() {
	for r.completeCount < r.count && r.status[r.completeCount]&reorderMandatory == reorderMandatory {
		r.completeCount++
	}
}

// SetEntry sets the flags and key frame (anchor) offset of the entry at
// pos, plus its pos-table slots if any.
func (r *ReorderIndex) SetEntry(pos int64, flags uint8, keyFrameOffset int8, posTable []Rational) error {
	idx := r.slot(pos)
	if idx < 0 {
		return OutOfRangeError{EditUnit: pos}
	}
	r.ensure(idx)
	off := idx * r.entrySize
	r.entries[off+1] = byte(keyFrameOffset)
	r.entries[off+2] = flags
	if r.npe > 0 {
		pOff := off + 11 + 4*r.nsl
		for i := 0; i < r.npe; i++ {
			var rat Rational
			if i < len(posTable) {
				rat = posTable[i]
			}
			rat.encode(r.entries[pOff+i*8 : pOff+i*8+8])
		}
	}
	r.status[idx] |= reorderHasFields
	r.advanceComplete()
	return nil
}

// SetStreamOffset sets the stream offset of the entry at pos.
func (r *ReorderIndex) SetStreamOffset(pos int64, streamOffset uint64) error {
	idx := r.slot(pos)
	if idx < 0 {
		return OutOfRangeError{EditUnit: pos}
	}
	r.ensure(idx)
	off := idx * r.entrySize
	binary.BigEndian.PutUint64(r.entries[off+3:off+11], streamOffset)
	r.status[idx] |= reorderHasStream
	r.advanceComplete()
	return nil
}

// SetTemporalOffset sets the temporal offset of the entry at pos. Unlike
// the other two setters, this field is not mandatory for completeness.
func (r *ReorderIndex) SetTemporalOffset(pos int64, temporalOffset int8) error {
	idx := r.slot(pos)
	if idx < 0 {
		return OutOfRangeError{EditUnit: pos}
	}
	r.ensure(idx)
	r.entries[idx*r.entrySize] = byte(temporalOffset)
	r.status[idx] |= reorderHasTemporal
	return nil
}

// GetEntryCount returns the number of entries forming a complete, unbroken
// prefix starting at firstPosition.
func (r *ReorderIndex) GetEntryCount() int {
	return r.completeCount
}

// CommitEntries appends up to count (or all, if count < 0) complete prefix
// entries into table via AddIndexEntry, then discards them from the buffer
// and advances firstPosition. It returns the number actually committed.
func (r *ReorderIndex) CommitEntries(table *IndexTable, count int) (int, error) {
	avail := r.completeCount
	if count >= 0 && count < avail {
		avail = count
	}
	for i := 0; i < avail; i++ {
		off := i * r.entrySize
		entry := decodeIndexEntry(r.entries[off:off+r.entrySize], r.nsl, r.npe)
		eu := r.firstPosition + int64(i)
		if err := table.AddIndexEntry(eu, entry.TemporalOffset, entry.KeyFrameOffset, entry.Flags, entry.StreamOffset, entry.SliceOffsets, entry.PosTable); err != nil {
			return i, err
		}
	}
	if avail > 0 {
		r.entries = r.entries[avail*r.entrySize:]
		r.status = r.status[avail:]
		r.count -= avail
		r.completeCount -= avail
		r.firstPosition += int64(avail)
	}
	return avail, nil
}
