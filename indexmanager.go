package gomxf

// Per-EU status bits for IndexManager's internal records.
const (
	statusStreamOffset uint8 = 1 << 0
	statusTemporal     uint8 = 1 << 1
	statusTemporalDiff uint8 = 1 << 2
)

// managedRecord is one EU's accumulated state. StreamOffset holds one slot
// per stream (main stream at index 0).
type managedRecord struct {
	status         uint8
	flags          uint8
	keyOffset      int8
	temporalOffset int8
	temporalDiff   int8
	streamOffset   []uint64
}

// subStream describes one registered sub-stream: its pos-table slot and
// element size, used when computing CBR detection and MakeIndex's delta
// array.
type subStream struct {
	posTableIndex int8
	elementSize   uint32
}

// IndexManager is the staged builder that accepts offers of per-EU
// information out of order and asynchronously, and emits a finalized
// IndexTable once records are complete. See AddEntriesToIndex for the
// commit path and SetTemporalOffset for cross-reference draining.
type IndexManager struct {
	MasterStream int

	BodySID  uint32
	IndexSID uint32
	EditRate Rational

	streams []subStream // index 0 is the implicit main stream

	managed map[int64]*managedRecord

	unsatisfiedTemporalOffsets map[int64]int8
	unsatisfiedTemporalDiffs   map[int64]int8

	acceptNextEntry bool

	entryLog     map[int]int64
	nextLogID    int
	pendingLogID int

	provisionalEU  int64
	provisionalSet bool
	provisional    managedRecord

	dataIsCBR      bool
	forcedVBR      bool
	subRangeOffset int64
	indexDuration  int64
	durationSet    bool

	valueRelativeIndexing bool

	log Logger
}

// NewIndexManager creates a manager for one main stream (ID 0), initially
// assumed CBR until an offer disagrees with that assumption.
func NewIndexManager() *IndexManager {
	return &IndexManager{
		streams:                    []subStream{{posTableIndex: 0, elementSize: 0}},
		managed:                    make(map[int64]*managedRecord),
		unsatisfiedTemporalOffsets: make(map[int64]int8),
		unsatisfiedTemporalDiffs:   make(map[int64]int8),
		entryLog:                   make(map[int]int64),
		pendingLogID:               -1,
		dataIsCBR:                  true,
		log:                        Discard,
	}
}

// SetLogger installs l for diagnostic output. Nil is rejected in favor of
// Discard.
func (m *IndexManager) SetLogger(l Logger) {
	if l == nil {
		l = Discard
	}
	m.log = l.Named("index_manager")
}

// AddSubStream registers a sub-stream with the given pos-table index and
// per-EU element size, returning its stream ID (always ≥ 1; ID 0 is the
// implicit main stream).
func (m *IndexManager) AddSubStream(posTableIndex int8, elementSize uint32) int {
	m.streams = append(m.streams, subStream{posTableIndex: posTableIndex, elementSize: elementSize})
	return len(m.streams) - 1
}

// SetPosTableIndex changes the pos-table index of an already-registered
// stream.
func (m *IndexManager) SetPosTableIndex(streamID int, posTableIndex int8) error {
	if streamID < 0 || streamID >= len(m.streams) {
		return OutOfRangeError{EditUnit: int64(streamID)}
	}
	m.streams[streamID].posTableIndex = posTableIndex
	return nil
}

// SetMasterStream designates which stream may modify flags and key offset.
func (m *IndexManager) SetMasterStream(streamID int) {
	m.MasterStream = streamID
}

func (m *IndexManager) record(eu int64) *managedRecord {
	r, ok := m.managed[eu]
	if ok {
		return r
	}
	r = &managedRecord{streamOffset: make([]uint64, len(m.streams))}
	m.managed[eu] = r

	if delta, ok := m.unsatisfiedTemporalOffsets[eu]; ok {
		r.temporalOffset = delta
		r.status |= statusTemporal
		delete(m.unsatisfiedTemporalOffsets, eu)
	}
	if diff, ok := m.unsatisfiedTemporalDiffs[eu]; ok {
		r.temporalDiff = diff
		r.status |= statusTemporalDiff
		delete(m.unsatisfiedTemporalDiffs, eu)
	}
	return r
}

func (m *IndexManager) checkCBR(streamID int, eu int64, offset uint64) {
	if m.forcedVBR || !m.dataIsCBR {
		return
	}
	var total uint32
	for _, s := range m.streams {
		total += s.elementSize
	}
	if offset != uint64(eu)*uint64(total) {
		m.dataIsCBR = false
	}
}

// AddEditUnit unconditionally records flags and key offset for eu on
// stream_id == MasterStream; other streams leave those fields untouched.
// It does not set a stream offset.
func (m *IndexManager) AddEditUnit(streamID int, eu int64, keyOffset int8, flags uint8) {
	r := m.record(eu)
	if streamID == m.MasterStream {
		r.flags = flags
		r.keyOffset = keyOffset
	}
}

// SetOffset records flags, key offset (as AddEditUnit does) and also writes
// the stream's slot in the offset array, setting the stream-offset status
// bit.
func (m *IndexManager) SetOffset(streamID int, eu int64, offset uint64, keyOffset int8, flags uint8) error {
	if streamID < 0 || streamID >= len(m.streams) {
		return OutOfRangeError{EditUnit: int64(streamID)}
	}
	m.checkCBR(streamID, eu, offset)
	r := m.record(eu)
	if streamID == m.MasterStream {
		r.flags = flags
		r.keyOffset = keyOffset
	}
	r.streamOffset[streamID] = offset
	r.status |= statusStreamOffset
	return nil
}

// OfferEditUnit is AddEditUnit's conditional counterpart: it acts only if
// accept_next_entry is latched or eu already has a record. Returns whether
// it acted.
func (m *IndexManager) OfferEditUnit(streamID int, eu int64, keyOffset int8, flags uint8) bool {
	if !m.shouldAccept(eu) {
		return false
	}
	m.AddEditUnit(streamID, eu, keyOffset, flags)
	m.consumeAcceptLatch(eu)
	return true
}

// OfferOffset is SetOffset's conditional counterpart.
func (m *IndexManager) OfferOffset(streamID int, eu int64, offset uint64, keyOffset int8, flags uint8) (bool, error) {
	if !m.shouldAccept(eu) {
		return false, nil
	}
	if err := m.SetOffset(streamID, eu, offset, keyOffset, flags); err != nil {
		return false, err
	}
	m.consumeAcceptLatch(eu)
	return true, nil
}

func (m *IndexManager) shouldAccept(eu int64) bool {
	if m.acceptNextEntry {
		return true
	}
	_, ok := m.managed[eu]
	return ok
}

func (m *IndexManager) consumeAcceptLatch(eu int64) {
	m.acceptNextEntry = false
	if m.pendingLogID >= 0 {
		m.entryLog[m.pendingLogID] = eu
		m.pendingLogID = -1
	}
}

// AcceptNext latches the manager to accept the next offer regardless of
// whether a record already exists for its EU.
func (m *IndexManager) AcceptNext() {
	m.acceptNextEntry = true
}

// SetTemporalOffset writes temporal_offset = delta at eu, and the inverse
// temporal_diff = -delta at eu+delta if that record exists; otherwise the
// diff is parked in unsatisfiedTemporalDiffs until eu+delta's record is
// created. Symmetric handling covers the case where eu's own record does
// not exist yet (temporal_offset is parked in unsatisfiedTemporalOffsets).
func (m *IndexManager) SetTemporalOffset(eu int64, delta int8) {
	if r, ok := m.managed[eu]; ok {
		r.temporalOffset = delta
		r.status |= statusTemporal
	} else {
		m.unsatisfiedTemporalOffsets[eu] = delta
	}

	target := eu + int64(delta)
	if tr, ok := m.managed[target]; ok {
		tr.temporalDiff = -delta
		tr.status |= statusTemporalDiff
	} else {
		m.unsatisfiedTemporalDiffs[target] = -delta
	}
}

// OfferTemporalOffset is SetTemporalOffset's conditional counterpart.
func (m *IndexManager) OfferTemporalOffset(eu int64, delta int8) bool {
	if !m.shouldAccept(eu) {
		return false
	}
	m.SetTemporalOffset(eu, delta)
	m.consumeAcceptLatch(eu)
	return true
}

// SetKeyOffset writes key_offset at eu unconditionally.
func (m *IndexManager) SetKeyOffset(eu int64, keyOffset int8) {
	m.record(eu).keyOffset = keyOffset
}

// OfferKeyOffset is SetKeyOffset's conditional counterpart.
func (m *IndexManager) OfferKeyOffset(eu int64, keyOffset int8) bool {
	if !m.shouldAccept(eu) {
		return false
	}
	m.SetKeyOffset(eu, keyOffset)
	m.consumeAcceptLatch(eu)
	return true
}

// SetProvisional stages a record for eu without linking it into the
// manager's committed data, for writers that want to inspect it before
// deciding to keep it.
func (m *IndexManager) SetProvisional(eu int64, keyOffset int8, flags uint8) {
	m.provisionalEU = eu
	m.provisionalSet = true
	m.provisional = managedRecord{flags: flags, keyOffset: keyOffset, streamOffset: make([]uint64, len(m.streams))}
}

// AcceptProvisional promotes the single staged provisional entry into the
// manager's committed data, returning its EU. If nothing is staged it
// returns IndexLowest and false.
func (m *IndexManager) AcceptProvisional() (int64, bool) {
	if !m.provisionalSet {
		return IndexLowest, false
	}
	eu := m.provisionalEU
	r := m.record(eu)
	r.flags = m.provisional.flags
	r.keyOffset = m.provisional.keyOffset
	m.provisionalSet = false
	return eu, true
}

// LogNext reserves a log slot so the next accepted EU (via the offer_*
// family) is recorded in the log. Returns the log ID to pass to ReadLog.
func (m *IndexManager) LogNext() int {
	id := m.nextLogID
	m.nextLogID++
	m.entryLog[id] = IndexLowest
	m.pendingLogID = id
	m.AcceptNext()
	return id
}

// ReadLog returns the EU recorded against id, or IndexLowest if none has
// been recorded yet.
func (m *IndexManager) ReadLog(id int) int64 {
	eu, ok := m.entryLog[id]
	if !ok {
		return IndexLowest
	}
	return eu
}

// Flush deletes records in [first, last]. It does not touch any
// already-finalized IndexTable.
func (m *IndexManager) Flush(first, last int64) {
	for eu := range m.managed {
		if eu >= first && eu <= last {
			delete(m.managed, eu)
		}
	}
}

// FirstAvailable returns the lowest EU with both the stream-offset and
// temporal-diff status bits set.
func (m *IndexManager) FirstAvailable() (int64, bool) {
	best := IndexLowest
	found := false
	const want = statusStreamOffset | statusTemporalDiff
	for eu, r := range m.managed {
		if r.status&want != want {
			continue
		}
		if !found || eu < best {
			best = eu
			found = true
		}
	}
	return best, found
}

// LastAvailable returns the highest EU that is part of an unbroken run,
// starting from the lowest available EU, where every record has both the
// stream-offset and temporal-diff status bits set.
func (m *IndexManager) LastAvailable() (int64, bool) {
	first, ok := m.FirstAvailable()
	if !ok {
		return IndexLowest, false
	}
	const want = statusStreamOffset | statusTemporalDiff
	eu := first
	for {
		r, ok := m.managed[eu]
		if !ok || r.status&want != want {
			break
		}
		eu++
	}
	return eu - 1, true
}

// ForceVBR permanently disables CBR detection.
func (m *IndexManager) ForceVBR() {
	m.forcedVBR = true
	m.dataIsCBR = false
}

// IsCBR reports the manager's current CBR determination.
func (m *IndexManager) IsCBR() bool {
	return m.dataIsCBR
}

// SetValueRelativeIndexing stores the pass-through flag; the manager does
// not itself apply it.
func (m *IndexManager) SetValueRelativeIndexing(v bool) {
	m.valueRelativeIndexing = v
}

// GetValueRelativeIndexing returns the pass-through flag set by
// SetValueRelativeIndexing.
func (m *IndexManager) GetValueRelativeIndexing() bool {
	return m.valueRelativeIndexing
}

// SetSubRangeOffset sets the EU offset that AddEntriesToIndex adds to each
// entry's EU when this manager indexes a sub-range of a longer essence
// stream. MakeIndex does not use it.
func (m *IndexManager) SetSubRangeOffset(eu int64) {
	m.subRangeOffset = eu
}

// GetSubRangeOffset returns the offset set by SetSubRangeOffset.
func (m *IndexManager) GetSubRangeOffset() int64 {
	return m.subRangeOffset
}

// SetIndexDuration forces the duration recorded in a CBR table's
// IndexDuration field, independent of the managed data.
func (m *IndexManager) SetIndexDuration(d int64) {
	m.indexDuration = d
	m.durationSet = true
}

func (m *IndexManager) totalElementSize() uint32 {
	var total uint32
	for _, s := range m.streams {
		total += s.elementSize
	}
	return total
}

// MakeIndex returns a finalized IndexTable. A CBR determination yields a
// table with EditUnitByteCount set and zero segments; otherwise an empty
// VBR table is returned, ready for AddEntriesToIndex.
func (m *IndexManager) MakeIndex() *IndexTable {
	t := NewIndexTable()
	t.BodySID = m.BodySID
	t.IndexSID = m.IndexSID
	t.EditRate = m.EditRate

	sizes := make([]uint32, len(m.streams))
	for i, s := range m.streams {
		sizes[i] = s.elementSize
	}
	_ = t.DefineDeltaArrayFromElementSizes(sizes)
	for i, s := range m.streams {
		if i < len(t.BaseDelta.Entries) {
			t.BaseDelta.Entries[i].PosTableIndex = s.posTableIndex
		}
	}
	t.BaseDelta.recompute()

	if m.dataIsCBR {
		t.EditUnitByteCount = m.totalElementSize()
		if m.durationSet {
			t.indexDuration = m.indexDuration
		}
	}
	return t
}

// AddEntriesToIndex walks managed records in ascending EU order over
// [firstEU, lastEU] and appends entries to table for every record whose
// status has the stream-offset bit, and the temporal-diff bit if
// reordering is in effect, set. If undoReorder is true, the emitted entry's
// stream offset is taken from the record at EU e+temporal_offset(e) rather
// than e itself — writing entries in display order, reversing the
// reordering applied on the wire. Segments break on any gap in the EU
// sequence. Returns the count of entries added.
func (m *IndexManager) AddEntriesToIndex(undoReorder bool, table *IndexTable, firstEU, lastEU int64) (int, error) {
	count := 0
	for eu := firstEU; eu <= lastEU; eu++ {
		r, ok := m.managed[eu]
		if !ok {
			continue
		}
		want := statusStreamOffset
		if undoReorder {
			want |= statusTemporalDiff
		}
		if r.status&want != want {
			continue
		}

		src := r
		if undoReorder {
			srcEU := eu + int64(r.temporalOffset)
			if sr, ok := m.managed[srcEU]; ok {
				src = sr
			}
		}

		nominal := eu + m.subRangeOffset
		var mainOffset uint64
		if len(src.streamOffset) > 0 {
			mainOffset = src.streamOffset[0]
		}

		var sliceOffsets []uint32
		if table.BaseDelta.NSL > 0 {
			sliceOffsets = make([]uint32, table.BaseDelta.NSL)
		}
		for i := 1; i < len(src.streamOffset) && i < len(table.BaseDelta.Entries); i++ {
			d := table.BaseDelta.Entries[i]
			if d.Slice > 0 && int(d.Slice)-1 < len(sliceOffsets) {
				sliceOffsets[d.Slice-1] = uint32(src.streamOffset[i] - mainOffset)
			}
		}

		if err := table.AddIndexEntry(nominal, r.temporalOffset, r.keyOffset, r.flags, mainOffset, sliceOffsets, nil); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
