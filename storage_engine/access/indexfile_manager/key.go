package indexfile

import (
	"encoding/binary"

	"coredb/types"
)

// EncodeKey concatenates column values in a composite index's declared
// column order into the single comparable []byte a B+ tree key is.
func EncodeKey(vals []types.Value) []byte {
	var buf []byte
	for _, v := range vals {
		buf = append(buf, v.Raw...)
	}
	return buf
}

// EncodeRid packs a Rid into the fixed 12-byte value a B+ tree leaf stores:
// PageNo (int64) followed by SlotNo (int32).
func EncodeRid(rid types.Rid) []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint64(b[0:8], uint64(rid.PageNo))
	binary.LittleEndian.PutUint32(b[8:12], uint32(rid.SlotNo))
	return b
}

// DecodeRid is the inverse of EncodeRid.
func DecodeRid(b []byte) types.Rid {
	return types.Rid{
		PageNo: int64(binary.LittleEndian.Uint64(b[0:8])),
		SlotNo: int(int32(binary.LittleEndian.Uint32(b[8:12]))),
	}
}

// TypedComparator builds a composite-key comparator for an index over
// columns of the given types and byte lengths (in index-column order).
// Plain bytes.Compare over the concatenated encoding would order
// little-endian fixed-width integers and floats incorrectly, so each
// segment is decoded and compared according to its declared type.
func TypedComparator(colTypes []types.ColType, colLens []int) func(a, b []byte) int {
	return func(a, b []byte) int {
		offset := 0
		for i, t := range colTypes {
			l := colLens[i]
			c := types.CompareTyped(t, a[offset:offset+l], b[offset:offset+l])
			if c != 0 {
				return c
			}
			offset += l
		}
		return 0
	}
}
