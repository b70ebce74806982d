package gomxf

import (
	"bytes"
	"fmt"
	"io"
)

// KLVData is the human-inspection view of one decoded KLV, used by the
// View CLI path.
type KLVData interface {
	Known() bool
	IsFill() bool
	View() string
}

// genericKLVData is the fallback view for any KLV not specifically
// understood (a recognized-but-opaque metadata set, or a Fill Item).
type genericKLVData struct {
	name string
	fill bool
	raw  []byte
}

func (g genericKLVData) Known() bool  { return g.name != KLVUnknown }
func (g genericKLVData) IsFill() bool { return g.fill }
func (g genericKLVData) View() string {
	if g.fill {
		return "Fill Item"
	}
	return fmt.Sprintf("%s: % x", g.name, g.raw)
}

// indexKLVData is the view for a decoded IndexTableSegment.
type indexKLVData struct {
	segment *segmentWire
}

func (d indexKLVData) Known() bool  { return true }
func (d indexKLVData) IsFill() bool { return false }
func (d indexKLVData) View() string {
	s := d.segment
	return fmt.Sprintf(
		"IndexTableSegment: indexSID=%d bodySID=%d start=%d duration=%d editUnitByteCount=%d nsl=%d npe=%d entries=%d",
		s.IndexSID, s.BodySID, s.StartPosition, s.Duration, s.EditUnitByteCount,
		s.Segment.Delta.NSL, s.Segment.Delta.NPE, s.Segment.EntryCount())
}

// Decode4View builds one KLVData per KLV for display, decoding
// IndexTableSegments fully and leaving everything else as a raw-bytes view.
func Decode4View(r io.ReaderAt, ks KLVs) ([]KLVData, error) {
	out := make([]KLVData, len(ks))
	for i, k := range ks {
		if bytes.Equal(k.Key, KeyFillItem[:]) {
			out[i] = genericKLVData{name: "Fill Item", fill: true}
			continue
		}

		name := recognizeKey(k.Key)

		if isIndexTable(k.Key) {
			raw, err := readData(r, k)
			if err != nil {
				return nil, err
			}
			w, err := decodeIndexSegmentWire(raw, 2)
			if err == nil {
				out[i] = indexKLVData{segment: w}
				continue
			}
			out[i] = genericKLVData{name: name, raw: raw}
			continue
		}

		raw, err := readData(r, k)
		if err != nil {
			return nil, err
		}
		out[i] = genericKLVData{name: name, raw: raw}
	}
	return out, nil
}
