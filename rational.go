package gomxf

import "encoding/binary"

// Rational is a (numerator, denominator) pair used for edit rates and
// pos-table fractional offsets. It is always encoded as two big-endian
// int32s on the wire, 8 bytes total.
type Rational struct {
	Num int32
	Den int32
}

const rationalSize = 8

func (r Rational) encode(dst []byte) {
	binary.BigEndian.PutUint32(dst[0:4], uint32(r.Num))
	binary.BigEndian.PutUint32(dst[4:8], uint32(r.Den))
}

func decodeRational(src []byte) Rational {
	return Rational{
		Num: int32(binary.BigEndian.Uint32(src[0:4])),
		Den: int32(binary.BigEndian.Uint32(src[4:8])),
	}
}

// IsZero reports whether the rational is the zero value, used to detect an
// edit rate that has not yet been set.
func (r Rational) IsZero() bool {
	return r.Num == 0 && r.Den == 0
}
