package catalog

import (
	"sync"

	"coredb/types"

	"github.com/dgraph-io/ristretto/v2"
)

// TableFileMapping records which disk_manager file IDs back a table: one
// for its heap file and one per secondary index, keyed by the index's
// comma-joined column list. Every index gets its own file ID because each
// B+ tree lives in its own file and the disk manager's global page IDs
// embed the file ID.
type TableFileMapping struct {
	HeapFileID   uint32            `json:"heap_file_id"`
	IndexFileIDs map[string]uint32 `json:"index_file_ids"`
}

// CatalogManager owns the engine session's schema registry — operators
// borrow TabMeta values from it — and persists it as per-table JSON files
// under the database directory. A
// ristretto cache sits in front of the on-disk schema files so that the
// hot path (every operator construction calls GetTableSchema) doesn't
// re-read and re-unmarshal JSON on every lookup; the JSON files remain the
// durable source of truth and the cache is populated lazily on miss.
type CatalogManager struct {
	dbRoot        string
	currDb        string
	TableToFileId map[string]TableFileMapping
	nextFileID    uint32

	schemaCache *ristretto.Cache[string, *types.TabMeta]

	mu sync.RWMutex
}
