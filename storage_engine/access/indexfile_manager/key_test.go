package indexfile

import (
	"encoding/binary"
	"testing"

	"coredb/types"
)

func encInt(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestEncodeDecodeRid(t *testing.T) {
	tests := []types.Rid{
		{PageNo: 1, SlotNo: 0},
		{PageNo: 1 << 40, SlotNo: 250},
		{PageNo: 0, SlotNo: 0},
	}
	for _, rid := range tests {
		if got := DecodeRid(EncodeRid(rid)); got != rid {
			t.Fatalf("rid round trip: got %v, want %v", got, rid)
		}
	}
}

func TestEncodeKeyConcatenatesColumns(t *testing.T) {
	key := EncodeKey([]types.Value{
		{Type: types.TypeInt32, Raw: encInt(7)},
		{Type: types.TypeFixedString, Raw: []byte("abcd")},
	})
	if len(key) != 8 {
		t.Fatalf("composite key length %d, want 8", len(key))
	}
	if string(key[4:]) != "abcd" {
		t.Fatalf("second column not appended: %q", key)
	}
}

// The typed comparator must order each segment by its declared type —
// negative ints sort below positive ones even though their little-endian
// bytes do not.
func TestTypedComparatorMultiColumn(t *testing.T) {
	cmp := TypedComparator(
		[]types.ColType{types.TypeInt32, types.TypeFixedString},
		[]int{4, 4},
	)

	mk := func(a int32, b string) []byte {
		return append(encInt(a), []byte(b)...)
	}

	tests := []struct {
		a, b []byte
		want int
	}{
		{mk(1, "aaaa"), mk(2, "aaaa"), -1},
		{mk(-5, "zzzz"), mk(1, "aaaa"), -1}, // leading column decides
		{mk(3, "aaaa"), mk(3, "bbbb"), -1},  // tie broken by second column
		{mk(3, "bbbb"), mk(3, "bbbb"), 0},
		{mk(3, "bbbb"), mk(3, "aaaa"), 1},
	}
	for i, tt := range tests {
		got := cmp(tt.a, tt.b)
		switch {
		case tt.want < 0 && got >= 0,
			tt.want > 0 && got <= 0,
			tt.want == 0 && got != 0:
			t.Fatalf("case %d: cmp = %d, want sign %d", i, got, tt.want)
		}
	}
}
