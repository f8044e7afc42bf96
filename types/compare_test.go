package types

import (
	"encoding/binary"
	"math"
	"testing"
)

func encI32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func encF32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func TestCompareTypedInt(t *testing.T) {
	tests := []struct {
		a, b int32
		want int
	}{
		{1, 2, -1},
		{2, 1, 1},
		{5, 5, 0},
		{-3, 2, -1}, // sign matters; raw byte order would get this wrong
		{-1, -2, 1},
		{math.MinInt32, math.MaxInt32, -1},
	}
	for _, tt := range tests {
		if got := CompareTyped(TypeInt32, encI32(tt.a), encI32(tt.b)); got != tt.want {
			t.Fatalf("CompareTyped(INT32, %d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareTypedFloat(t *testing.T) {
	tests := []struct {
		a, b float32
		want int
	}{
		{1.5, 2.5, -1},
		{2.5, 1.5, 1},
		{0.25, 0.25, 0},
		{-1.5, 0.5, -1},
	}
	for _, tt := range tests {
		if got := CompareTyped(TypeFloat32, encF32(tt.a), encF32(tt.b)); got != tt.want {
			t.Fatalf("CompareTyped(FLOAT32, %v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareTypedFixedString(t *testing.T) {
	// Full declared length, no trimming: embedded NULs participate.
	a := []byte{'a', 0, 0, 'z'}
	b := []byte{'a', 0, 0, 'y'}
	if got := CompareTyped(TypeFixedString, a, b); got <= 0 {
		t.Fatalf("embedded-NUL comparison ignored the tail: %d", got)
	}
	if got := CompareTyped(TypeFixedString, a, a); got != 0 {
		t.Fatalf("equal strings compare to %d", got)
	}
}

func TestComputeLayoutAssignsOffsets(t *testing.T) {
	tab := ComputeLayout("t", []ColMeta{
		{Name: "a", Type: TypeInt32, Len: 4},
		{Name: "b", Type: TypeFixedString, Len: 8},
		{Name: "c", Type: TypeFloat32, Len: 4},
	})
	if tab.RecordSize != 16 {
		t.Fatalf("record size %d, want 16", tab.RecordSize)
	}
	wantOffsets := []int{0, 4, 12}
	for i, col := range tab.Columns {
		if col.Offset != wantOffsets[i] {
			t.Fatalf("column %s offset %d, want %d", col.Name, col.Offset, wantOffsets[i])
		}
		if col.TableName != "t" {
			t.Fatalf("column %s missing table name", col.Name)
		}
	}

	if _, err := tab.Col("b"); err != nil {
		t.Fatalf("lookup of existing column: %v", err)
	}
	if _, err := tab.Col("zz"); err == nil {
		t.Fatalf("lookup of missing column should fail")
	}
}

func TestRidOrdering(t *testing.T) {
	tests := []struct {
		a, b Rid
		want bool
	}{
		{Rid{1, 0}, Rid{1, 1}, true},
		{Rid{1, 5}, Rid{2, 0}, true},
		{Rid{2, 0}, Rid{1, 5}, false},
		{Rid{1, 1}, Rid{1, 1}, false},
	}
	for _, tt := range tests {
		if got := tt.a.Less(tt.b); got != tt.want {
			t.Fatalf("%v < %v = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
	if !EndRid.IsEnd() {
		t.Fatalf("EndRid should report IsEnd")
	}
	if (Rid{PageNo: 1, SlotNo: 0}).IsEnd() {
		t.Fatalf("live rid reports IsEnd")
	}
}
