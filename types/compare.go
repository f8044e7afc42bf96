package types

import (
	"bytes"
	"encoding/binary"
	"math"
)

// CompareTyped compares two fixed-width encodings of the same declared
// type: INT32 and FLOAT32 by native value, FIXED_STRING by raw byte
// comparison over the full declared length (no trimming, embedded NULs
// preserved). Plain bytes.Compare alone
// would order little-endian fixed-width integers and floats incorrectly.
func CompareTyped(t ColType, a, b []byte) int {
	switch t {
	case TypeInt32:
		va := int32(binary.LittleEndian.Uint32(a))
		vb := int32(binary.LittleEndian.Uint32(b))
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		default:
			return 0
		}
	case TypeFloat32:
		va := math.Float32frombits(binary.LittleEndian.Uint32(a))
		vb := math.Float32frombits(binary.LittleEndian.Uint32(b))
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		default:
			return 0
		}
	default: // TypeFixedString
		return bytes.Compare(a, b)
	}
}
