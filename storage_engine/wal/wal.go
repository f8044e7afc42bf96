// Package wal is the minimal interface the buffer pool depends on for its
// write-ahead rule. The log manager proper is an external collaborator;
// this package is the interface it crosses into the core plus two small
// implementations, not a recovery subsystem. No replay or checkpoint logic
// lives here.
package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer is what bufferpool.BufferPool needs: the LSN up to which the log
// is durable, and a way to append a record and learn its assigned LSN.
// A page may not be flushed or evicted while its LSN exceeds FlushedLSN().
type Writer interface {
	Append(payload []byte) (lsn uint64, err error)
	Sync() error
	FlushedLSN() uint64
}

// NullWAL never blocks a flush: FlushedLSN always reports "everything is
// durable". It stands in for the recovery component when the caller has no
// actual log to coordinate with, which is the common case for this core
// in isolation.
type NullWAL struct{}

func (NullWAL) Append([]byte) (uint64, error) { return 0, nil }
func (NullWAL) Sync() error                   { return nil }
func (NullWAL) FlushedLSN() uint64            { return ^uint64(0) }

// SegmentSize bounds a single on-disk log segment before a new one should
// be opened. This module never rolls segments itself (no checkpoint/replay
// driver exists here) but Segment honors the limit via IsFull for whatever
// out-of-core component eventually does.
const SegmentSize = 64 * 1024 * 1024

// Segment is a single append-only log file plus a monotonic LSN counter.
// Append writes to the OS buffer without fsync, Sync forces durability,
// and lsn/size bookkeeping happens under one mutex.
type Segment struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	size     int64
	nextLSN  uint64
	flushed  uint64
}

// OpenSegment creates or reopens an append-only WAL segment file at
// basePath/wal_<id>.log.
func OpenSegment(id uint64, basePath string) (*Segment, error) {
	path := filepath.Join(basePath, fmt.Sprintf("wal_%016x.log", id))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("OpenSegment: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("OpenSegment: %w", err)
	}

	return &Segment{file: f, path: path, size: stat.Size(), nextLSN: 1}, nil
}

// Append writes a length-prefixed payload and returns the LSN assigned to
// it. No fsync occurs here — the record is durable only after Sync.
func (s *Segment) Append(payload []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return 0, fmt.Errorf("Append: segment not open")
	}

	record := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(record[:4], uint32(len(payload)))
	copy(record[4:], payload)
	n, err := s.file.Write(record)
	if err != nil {
		return 0, fmt.Errorf("Append: %w", err)
	}
	s.size += int64(n)

	lsn := s.nextLSN
	s.nextLSN++
	return lsn, nil
}

// Sync forces the OS buffer to disk and advances FlushedLSN to the last
// LSN handed out by Append.
func (s *Segment) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("Sync: segment not open")
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("Sync: %w", err)
	}
	s.flushed = s.nextLSN - 1
	return nil
}

func (s *Segment) FlushedLSN() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushed
}

func (s *Segment) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size >= SegmentSize
}

func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
