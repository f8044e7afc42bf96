// Package storageengine wires the buffer pool, heap/index access layers,
// lock manager, and transaction manager into a single session object: a
// Catalog value owned by the engine session, with every operator borrowing
// from it rather than reaching into process-wide globals. It is the storage-and-execution
// core's entry point — building the plan trees the (out-of-scope) SQL
// layer would otherwise assemble directly is left to callers, who compose
// executor.Executor values over what this package exposes.
package storageengine

import (
	"fmt"
	"os"
	"path/filepath"

	heapfile "coredb/storage_engine/access/heapfile_manager"
	indexfile "coredb/storage_engine/access/indexfile_manager"
	"coredb/storage_engine/bufferpool"
	"coredb/storage_engine/catalog"
	diskmanager "coredb/storage_engine/disk_manager"
	"coredb/storage_engine/lock"
	txn "coredb/storage_engine/transaction_manager"
	"coredb/storage_engine/wal"
	"coredb/types"
)

// DefaultBufferPoolFrames is the pool size for a freshly opened database;
// callers needing a different budget use UseDatabaseWithCapacity.
const DefaultBufferPoolFrames = 100

// StorageEngine is the process-wide session: one open database at a time,
// with every subsystem the core depends on reachable from here.
type StorageEngine struct {
	DbRoot string

	CatalogManager *catalog.CatalogManager
	DiskManager    *diskmanager.DiskManager
	BufferPool     *bufferpool.BufferPool
	HeapManager    *heapfile.HeapFileManager
	IndexManager   *indexfile.IndexFileManager
	LockManager    *lock.LockManager
	TxnManager     *txn.TxnManager

	currDb string
}

// NewStorageEngine creates the session rooted at dbRoot (one directory per
// database) and its catalog manager. No database is open yet — call
// CreateDatabase/UseDatabase before touching tables.
func NewStorageEngine(dbRoot string) (*StorageEngine, error) {
	if err := os.MkdirAll(dbRoot, 0755); err != nil {
		return nil, fmt.Errorf("NewStorageEngine: failed to create db root: %w", err)
	}
	catalogManager, err := catalog.NewCatalogManager(dbRoot)
	if err != nil {
		return nil, fmt.Errorf("NewStorageEngine: failed to init catalog manager: %w", err)
	}
	txnManager, err := txn.NewTxnManager()
	if err != nil {
		return nil, fmt.Errorf("NewStorageEngine: failed to init transaction manager: %w", err)
	}
	return &StorageEngine{
		DbRoot:         dbRoot,
		CatalogManager: catalogManager,
		LockManager:    lock.NewLockManager(),
		TxnManager:     txnManager,
	}, nil
}

// CreateDatabase makes a fresh, empty database directory under DbRoot.
func (se *StorageEngine) CreateDatabase(dbName string) error {
	if dbName == "" {
		return fmt.Errorf("CreateDatabase: %w: name is empty", types.ErrDatabaseNotFound)
	}
	dbPath := filepath.Join(se.DbRoot, dbName)
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("CreateDatabase: %w: %s", types.ErrDatabaseExists, dbName)
	}
	if err := os.MkdirAll(filepath.Join(dbPath, "tables"), 0755); err != nil {
		return fmt.Errorf("CreateDatabase: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dbPath, "indexes"), 0755); err != nil {
		return fmt.Errorf("CreateDatabase: %w", err)
	}
	return nil
}

// UseDatabase closes whatever database is currently open and wires fresh
// disk manager / buffer pool / heap / index managers onto dbName, then
// reloads the catalog's table-to-file mapping and preloads every table's
// schema and index. WAL recovery itself (replaying log records to rebuild
// in-flight state) belongs to the recovery component — the buffer pool
// here is wired to wal.NullWAL, which never blocks a flush, so the
// pin-and-dirty discipline is exercised without pulling in a log replayer.
func (se *StorageEngine) UseDatabase(dbName string) error {
	return se.UseDatabaseWithCapacity(dbName, DefaultBufferPoolFrames)
}

// UseDatabaseWithCapacity is UseDatabase with an explicit buffer pool
// frame budget.
func (se *StorageEngine) UseDatabaseWithCapacity(dbName string, frames int) error {
	if dbName == "" {
		return fmt.Errorf("UseDatabase: %w: name is empty", types.ErrDatabaseNotFound)
	}
	dbPath := filepath.Join(se.DbRoot, dbName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("UseDatabase: %w: %s", types.ErrDatabaseNotFound, dbName)
	}

	se.closeCurrentDatabase()

	diskManager := diskmanager.NewDiskManager()
	bufferPool := bufferpool.NewBufferPool(frames, diskManager)
	bufferPool.SetWALManager(wal.NullWAL{})

	tablesDir := filepath.Join(dbPath, "tables")
	heapManager, err := heapfile.NewHeapFileManager(tablesDir, diskManager, bufferPool)
	if err != nil {
		return fmt.Errorf("UseDatabase: %w", err)
	}

	indexDir := filepath.Join(dbPath, "indexes")
	indexManager, err := indexfile.NewIndexFileManager(indexDir, diskManager, bufferPool)
	if err != nil {
		return fmt.Errorf("UseDatabase: failed to init index manager: %w", err)
	}

	se.DiskManager = diskManager
	se.BufferPool = bufferPool
	se.HeapManager = heapManager
	se.IndexManager = indexManager
	se.currDb = dbName

	se.CatalogManager.SetCurrentDatabase(dbName)
	if err := se.CatalogManager.LoadTableFileMapping(); err != nil {
		return fmt.Errorf("UseDatabase: failed to load table mappings: %w", err)
	}
	if err := se.CatalogManager.LoadAllTableSchemas(); err != nil {
		return fmt.Errorf("UseDatabase: %w", err)
	}

	for tableName, mapping := range se.CatalogManager.GetAllTableMappings() {
		tab, err := se.CatalogManager.GetTableSchema(tableName)
		if err != nil {
			return fmt.Errorf("UseDatabase: %w", err)
		}
		if _, err := se.HeapManager.LoadHeapFile(mapping.HeapFileID, tableName, tab.RecordSize); err != nil {
			return fmt.Errorf("UseDatabase: failed to load heap file for %s: %w", tableName, err)
		}
		for _, idx := range tab.Indexes {
			indexFileID, err := se.CatalogManager.GetIndexFileIDFor(tableName, idx.Cols)
			if err != nil {
				return fmt.Errorf("UseDatabase: %w", err)
			}
			if err := se.IndexManager.LoadIndex(tab, idx, indexFileID); err != nil {
				return fmt.Errorf("UseDatabase: failed to load index for %s: %w", tableName, err)
			}
		}
	}

	return nil
}

func (se *StorageEngine) closeCurrentDatabase() {
	if se.BufferPool != nil {
		_ = se.BufferPool.FlushAllPages()
	}
	if se.IndexManager != nil {
		_ = se.IndexManager.CloseAll()
	}
	if se.DiskManager != nil {
		_ = se.DiskManager.CloseAll()
	}
	se.DiskManager = nil
	se.BufferPool = nil
	se.HeapManager = nil
	se.IndexManager = nil
	se.currDb = ""
}

// Close flushes and releases the currently open database, if any.
func (se *StorageEngine) Close() error {
	se.closeCurrentDatabase()
	return nil
}

// RequireDatabase returns an error unless a database is open.
func (se *StorageEngine) RequireDatabase() error {
	if se.currDb == "" || se.HeapManager == nil {
		return fmt.Errorf("RequireDatabase: %w: no database selected", types.ErrDatabaseNotFound)
	}
	return nil
}

// CreateTable registers tab's schema with the catalog and creates its
// backing heap file plus, for every declared index, its B+ tree file —
// the DDL counterpart to the executors' read/write paths. tab's column
// offsets and RecordSize must already be set via types.ComputeLayout.
func (se *StorageEngine) CreateTable(tab types.TabMeta) error {
	if err := se.RequireDatabase(); err != nil {
		return err
	}
	if se.CatalogManager.TableExists(tab.Name) {
		return fmt.Errorf("CreateTable: %w: %s", types.ErrTableExists, tab.Name)
	}

	heapFileID, err := se.CatalogManager.RegisterNewTable(tab)
	if err != nil {
		return fmt.Errorf("CreateTable: %w", err)
	}
	if err := se.HeapManager.CreateHeapfile(tab.Name, int(heapFileID), tab.RecordSize); err != nil {
		_ = se.CatalogManager.UnregisterTable(tab.Name)
		return fmt.Errorf("CreateTable: failed to create heap file: %w", err)
	}
	for _, idx := range tab.Indexes {
		indexFileID, err := se.CatalogManager.GetIndexFileIDFor(tab.Name, idx.Cols)
		if err != nil {
			_ = se.CatalogManager.UnregisterTable(tab.Name)
			return fmt.Errorf("CreateTable: %w", err)
		}
		if _, err := se.IndexManager.GetOrCreateIndex(tab, idx, indexFileID); err != nil {
			_ = se.CatalogManager.UnregisterTable(tab.Name)
			return fmt.Errorf("CreateTable: failed to create index %v: %w", idx.Cols, err)
		}
	}
	return nil
}

// CreateIndex adds a new secondary index to an existing table, persisting
// the definition through the catalog and opening its B+ tree file.
func (se *StorageEngine) CreateIndex(tableName string, idx types.IndexMeta) error {
	if err := se.RequireDatabase(); err != nil {
		return err
	}
	if err := se.CatalogManager.AddIndex(tableName, idx); err != nil {
		return fmt.Errorf("CreateIndex: %w", err)
	}
	tab, err := se.CatalogManager.GetTableSchema(tableName)
	if err != nil {
		return fmt.Errorf("CreateIndex: %w", err)
	}
	indexFileID, err := se.CatalogManager.GetIndexFileIDFor(tableName, idx.Cols)
	if err != nil {
		return fmt.Errorf("CreateIndex: %w", err)
	}
	if _, err := se.IndexManager.GetOrCreateIndex(tab, idx, indexFileID); err != nil {
		return fmt.Errorf("CreateIndex: %w", err)
	}
	return nil
}
