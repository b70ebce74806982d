package gomxf

import (
	"encoding/binary"
	"fmt"
)

// Batch is a compound type comprising multiple individual elements where the elements
// are unordered, the type is defined, the count of items is explicit and the size of each
// item is fixed. The Batch consists of a header of 8 bytes followed by the Batch elements.
// The first 4 bytes of the header define the number of elements in the Batch.
// The last 4 bytes of the header define the length of each element.
type Batch struct {
	N        int
	Len      int
	Elements [][]byte
}

// ParseBatch parses the bytes into a Batch with the elements untouched.
func ParseBatch(data []byte) (b Batch) {
	b.N = int(binary.BigEndian.Uint32(data[:4]))
	b.Len = int(binary.BigEndian.Uint32(data[4:8]))
	offset := 8
	for i := 0; i < b.N; i++ {
		b.Elements = append(b.Elements, data[offset:offset+b.Len])
		offset += b.Len
	}
	return b
}

// DecodeBatch is ParseBatch with bounds checking, for callers (such as the
// index table codec) that must never panic on malformed input.
func DecodeBatch(data []byte) (Batch, error) {
	if len(data) < 8 {
		return Batch{}, MalformedError{Reason: "batch header truncated"}
	}
	n := int(binary.BigEndian.Uint32(data[:4]))
	l := int(binary.BigEndian.Uint32(data[4:8]))
	if n < 0 || l < 0 || len(data) < 8+n*l {
		return Batch{}, MalformedError{Reason: "batch element count exceeds buffer"}
	}
	b := Batch{N: n, Len: l}
	offset := 8
	for i := 0; i < n; i++ {
		b.Elements = append(b.Elements, data[offset:offset+l])
		offset += l
	}
	return b, nil
}

// EncodeBatch renders elements (each exactly elemSize bytes) as a Batch:
// 4-byte count, 4-byte element size, then the elements back to back.
func EncodeBatch(elemSize int, elements [][]byte) []byte {
	buf := make([]byte, 8+len(elements)*elemSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(elements)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(elemSize))
	off := 8
	for _, el := range elements {
		copy(buf[off:off+elemSize], el)
		off += elemSize
	}
	return buf
}

// LocalSet is a set where each Item is encoded using a locally unique tag value of the
// same length. An MXF Set employing 2-byte Local Tag encoding, and either 2-byte or
// BER length.
type LocalSet struct {
	Tag   uint16
	Len   int
	Value []byte
}

// ParseLocalSets parses the bytes into some LocalSet with lenBytes length.
// TODO: support BER length; only the standard 2-byte length is implemented.
func ParseLocalSets(bs []byte, lenBytes int) ([]LocalSet, error) {
	if lenBytes != 2 {
		return nil, MalformedError{Reason: "BER length not supported yet"}
	}
	i := 0
	n := len(bs)
	ret := make([]LocalSet, 0)
	for {
		if n-i < 2+lenBytes {
			break
		}
		l := int(binary.BigEndian.Uint16(bs[i+2 : i+2+lenBytes]))
		if i+2+lenBytes+l > n {
			return nil, MalformedError{Reason: "local set value exceeds buffer"}
		}
		ret = append(ret, LocalSet{
			Tag:   binary.BigEndian.Uint16(bs[i : i+2]),
			Len:   l,
			Value: bs[i+2+lenBytes : i+2+lenBytes+l],
		})

		i += (4 + l)
	}
	return ret, nil
}

// EncodeLocalSet appends one tag/length/value triple (2-byte tag, 2-byte
// length) to dst and returns the extended slice.
func EncodeLocalSet(dst []byte, tag uint16, value []byte) []byte {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], tag)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(value)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, value...)
	return dst
}

// View renders a LocalSet for human inspection.
func (s LocalSet) View() string {
	return fmt.Sprintf("tag=0x%04x len=%d value=% x", s.Tag, s.Len, s.Value)
}
