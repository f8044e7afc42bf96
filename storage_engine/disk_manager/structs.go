package diskmanager

import (
	"os"
	"sync"
)

// ############################################# FILE DESCRIPTOR ###########################################

type PageKey struct {
	FileID   uint32
	LocalNum int64
}

// FileDescriptor is one open heap, index, or log file tracked by the disk
// manager.
type FileDescriptor struct {
	FileID     uint32
	FilePath   string
	File       *os.File
	NextPageID int64 // Next available page ID within this file
	mu         sync.RWMutex
}

// ############################################# DISK MANAGER #############################################

// DiskManager owns all disk I/O and file handles for one open database.
type DiskManager struct {
	files      map[uint32]*FileDescriptor // fileID -> file descriptor
	nextFileID uint32                     // only OpenFile consumes this; heap and
	// index files always use OpenFileWithID with the catalog's fileID.
	globalPageMap map[int64]uint32  // globalPageID -> fileID mapping
	localToGlobal map[PageKey]int64 // // (fileID, localNum) → globalPageID
	mu            sync.RWMutex
}
