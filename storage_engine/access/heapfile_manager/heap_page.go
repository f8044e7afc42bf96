package heapfile

import (
	"encoding/binary"
	"fmt"

	"coredb/storage_engine/page"
	"coredb/types"
)

/*
Heap page binary layout (all values little-endian), fixed-length records
addressed through a free-slot bitmap rather than a slotted directory:

	Offset  Size  Field
	──────────────────────────────────────────────────────
	0       8     LastAppliedLSN   uint64 — shared convention, first in every page type
	8       1     PageType         uint8  — stamped by DiskManager on write
	9       4     NextFreePage     int32  — next page in this file's free list, or -1
	13      2     NumRecords       uint16 — live records on this page
	──────────────────────────────────────────────────────
	15            HeapHeaderSize

	[ header 15B ][ bitmap ⌈records_per_page/8⌉B ][ slots: records_per_page * record_size ]

A record's slot is free iff its bit is 0. recordsPerPage and the bitmap
size are never stored on the page — they are a pure function of the
table's fixed record size, recomputed by every caller from the schema the
heap file was opened with.
*/

const (
	heapOffLSN          = 0
	heapOffNextFreePage = 9
	heapOffNumRecords   = 13

	// HeapHeaderSize is the fixed header size in bytes; the bitmap starts
	// immediately after it.
	HeapHeaderSize = 15
)

// ComputeHeapLayout returns the number of fixed-length records a page can
// hold and the bitmap size (in bytes) needed to track them, for a given
// record size. It solves for the largest n such that
//
//	n*recordSize + ceil(n/8) <= PageSize - HeapHeaderSize
func ComputeHeapLayout(recordSize int) (recordsPerPage, bitmapSize int) {
	if recordSize <= 0 {
		return 0, 0
	}
	available := page.PageSize - HeapHeaderSize
	n := (available * 8) / (8*recordSize + 1)
	for n > 0 && n*recordSize+(n+7)/8 > available {
		n--
	}
	return n, (n + 7) / 8
}

func bitmapOffset() int { return HeapHeaderSize }

func slotsOffset(bitmapSize int) int { return HeapHeaderSize + bitmapSize }

func slotOffset(bitmapSize, recordSize, slotNo int) int {
	return slotsOffset(bitmapSize) + slotNo*recordSize
}

func isBitSet(pg *page.Page, slotNo int) bool {
	byteN := slotNo / 8
	bitN := uint(slotNo % 8)
	b := pg.Data[bitmapOffset()+byteN]
	return (b>>(7-bitN))&1 == 1
}

func setBit(pg *page.Page, slotNo int, v bool) {
	byteN := slotNo / 8
	bitN := uint(slotNo % 8)
	off := bitmapOffset() + byteN
	if v {
		pg.Data[off] |= 1 << (7 - bitN)
	} else {
		pg.Data[off] &^= 1 << (7 - bitN)
	}
}

// InitHeapPage stamps a fresh heap-page header onto pg.Data. The bitmap and
// slot region are left zeroed — every record.sNo starts free.
func InitHeapPage(pg *page.Page) {
	for i := 1; i < page.PageSize; i++ {
		pg.Data[i] = 0
	}
	binary.LittleEndian.PutUint64(pg.Data[heapOffLSN:], 0)
	SetNextFreePage(pg, int32(types.InvalidPageID))
	setNumRecords(pg, 0)
	pg.LSN = 0
	pg.IsDirty = true
}

func GetNextFreePage(pg *page.Page) int32 {
	return int32(binary.LittleEndian.Uint32(pg.Data[heapOffNextFreePage:]))
}

func SetNextFreePage(pg *page.Page, v int32) {
	binary.LittleEndian.PutUint32(pg.Data[heapOffNextFreePage:], uint32(v))
	pg.IsDirty = true
}

func GetNumRecords(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[heapOffNumRecords:])
}

func setNumRecords(pg *page.Page, n uint16) {
	binary.LittleEndian.PutUint16(pg.Data[heapOffNumRecords:], n)
}

func GetLastAppliedLSN(pg *page.Page) uint64 {
	return binary.LittleEndian.Uint64(pg.Data[heapOffLSN:])
}

func SetLastAppliedLSN(pg *page.Page, lsn uint64) {
	binary.LittleEndian.PutUint64(pg.Data[heapOffLSN:], lsn)
	pg.LSN = lsn
	pg.IsDirty = true
}

// IsSlotUsed reports whether slotNo's bit is set.
func IsSlotUsed(pg *page.Page, slotNo int) bool {
	return isBitSet(pg, slotNo)
}

// InsertRecord writes data into the first free slot on pg and returns its
// slot number. data must be exactly recordSize bytes.
func InsertRecord(pg *page.Page, recordSize int, data []byte) (int, error) {
	if len(data) != recordSize {
		return 0, fmt.Errorf("InsertRecord: data length %d does not match record size %d", len(data), recordSize)
	}
	recordsPerPage, bitmapSize := ComputeHeapLayout(recordSize)
	for slotNo := 0; slotNo < recordsPerPage; slotNo++ {
		if isBitSet(pg, slotNo) {
			continue
		}
		off := slotOffset(bitmapSize, recordSize, slotNo)
		copy(pg.Data[off:off+recordSize], data)
		setBit(pg, slotNo, true)
		setNumRecords(pg, GetNumRecords(pg)+1)
		pg.IsDirty = true
		return slotNo, nil
	}
	return 0, fmt.Errorf("InsertRecord: %w", types.ErrPageFull)
}

// GetRecord returns a copy of the record at slotNo.
func GetRecord(pg *page.Page, recordSize, slotNo int) ([]byte, error) {
	if !isBitSet(pg, slotNo) {
		return nil, fmt.Errorf("GetRecord: %w: slot %d", types.ErrRecordNotFound, slotNo)
	}
	_, bitmapSize := ComputeHeapLayout(recordSize)
	off := slotOffset(bitmapSize, recordSize, slotNo)
	out := make([]byte, recordSize)
	copy(out, pg.Data[off:off+recordSize])
	return out, nil
}

// DeleteRecord clears slotNo's bit. The bytes themselves are left in place
// until overwritten by a later InsertRecord into the same slot.
func DeleteRecord(pg *page.Page, slotNo int) error {
	if !isBitSet(pg, slotNo) {
		return fmt.Errorf("DeleteRecord: %w: slot %d", types.ErrRecordNotFound, slotNo)
	}
	setBit(pg, slotNo, false)
	setNumRecords(pg, GetNumRecords(pg)-1)
	pg.IsDirty = true
	return nil
}

// UpdateRecord overwrites the record at slotNo in place. Fixed-length
// records always fit their original allocation, so unlike a slotted page
// there is no relocate-on-grow case.
func UpdateRecord(pg *page.Page, recordSize, slotNo int, data []byte) error {
	if len(data) != recordSize {
		return fmt.Errorf("UpdateRecord: data length %d does not match record size %d", len(data), recordSize)
	}
	if !isBitSet(pg, slotNo) {
		return fmt.Errorf("UpdateRecord: %w: slot %d", types.ErrRecordNotFound, slotNo)
	}
	_, bitmapSize := ComputeHeapLayout(recordSize)
	off := slotOffset(bitmapSize, recordSize, slotNo)
	copy(pg.Data[off:off+recordSize], data)
	pg.IsDirty = true
	return nil
}
