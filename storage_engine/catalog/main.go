package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"coredb/types"

	"github.com/dgraph-io/ristretto/v2"
)

/*
This file is the main access point of the Catalog Manager. It maintains
the database's schema registry and persists it to disk: per-table schema
files plus the table-to-fileID mapping. Everything it hands operators is
the in-memory types.TabMeta shape operators consume; the JSON
serialization grammar is this package's own business and stable only
across open/close of the same build.
*/

func NewCatalogManager(dbRoot string) (*CatalogManager, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *types.TabMeta]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("NewCatalogManager: failed to init schema cache: %w", err)
	}

	return &CatalogManager{
		dbRoot:        dbRoot,
		nextFileID:    1,
		TableToFileId: make(map[string]TableFileMapping),
		schemaCache:   cache,
	}, nil
}

func (cm *CatalogManager) SetCurrentDatabase(newDb string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.currDb = newDb
	cm.schemaCache.Clear()
}

func (cm *CatalogManager) TableExists(tableName string) bool {
	_, err := cm.GetTableSchema(tableName)
	return err == nil
}

// GetTableSchema returns the in-memory TabMeta for a table, consulting the
// ristretto cache first and falling back to the on-disk schema file on a
// miss. A hit avoids re-parsing JSON on every operator construction — the
// dominant caller of this method is SeqScanExecutor/IndexScanExecutor
// setup, which runs once per operator, once per query.
func (cm *CatalogManager) GetTableSchema(name string) (types.TabMeta, error) {
	cm.mu.RLock()
	currDb := cm.currDb
	cm.mu.RUnlock()

	if currDb == "" {
		return types.TabMeta{}, fmt.Errorf("GetTableSchema: no database selected")
	}

	if tab, ok := cm.schemaCache.Get(name); ok {
		return *tab, nil
	}

	schemaPath := filepath.Join(cm.dbRoot, currDb, "tables", name+"_schema.json")

	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return types.TabMeta{}, fmt.Errorf("GetTableSchema: %w: %s", types.ErrTableNotFound, name)
	}

	var tab types.TabMeta
	if err := json.Unmarshal(data, &tab); err != nil {
		return types.TabMeta{}, fmt.Errorf("GetTableSchema: failed to parse schema for table %q: %w", name, err)
	}

	cm.schemaCache.Set(name, &tab, int64(len(data)))
	cm.schemaCache.Wait()

	return tab, nil
}

// RegisterNewTable allocates a heap file ID plus one index file ID per
// declared index for a fresh table, persists its schema, and caches it.
// Record offsets/RecordSize must already be computed (types.ComputeLayout)
// before calling this.
func (cm *CatalogManager) RegisterNewTable(tab types.TabMeta) (heapFileID uint32, err error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.TableToFileId == nil {
		cm.TableToFileId = make(map[string]TableFileMapping)
	}

	heapFileID = cm.nextFileID
	cm.nextFileID++
	indexIDs := make(map[string]uint32, len(tab.Indexes))
	for _, idx := range tab.Indexes {
		indexIDs[strings.Join(idx.Cols, ",")] = cm.nextFileID
		cm.nextFileID++
	}

	cm.TableToFileId[tab.Name] = TableFileMapping{HeapFileID: heapFileID, IndexFileIDs: indexIDs}

	if err := cm.persistSchema(tab); err != nil {
		return 0, err
	}
	if err := cm.PersistTableMapping(); err != nil {
		return 0, err
	}
	if err := cm.persistNextFileID(); err != nil {
		return 0, err
	}

	cm.schemaCache.Set(tab.Name, &tab, int64(tab.RecordSize))
	cm.schemaCache.Wait()

	return heapFileID, nil
}

// AddIndex appends a new index definition to a table's schema and persists
// the change — the catalog-side half of CREATE INDEX; the B+ tree file
// itself is created by the index file manager.
func (cm *CatalogManager) AddIndex(tableName string, idx types.IndexMeta) error {
	tab, err := cm.GetTableSchema(tableName)
	if err != nil {
		return fmt.Errorf("AddIndex: %w", err)
	}
	for _, existing := range tab.Indexes {
		if strings.Join(existing.Cols, ",") == strings.Join(idx.Cols, ",") {
			return fmt.Errorf("AddIndex: %w: %s(%v)", types.ErrIndexExists, tableName, idx.Cols)
		}
	}
	for i := range tab.Columns {
		for _, c := range idx.Cols {
			if tab.Columns[i].Name == c {
				tab.Columns[i].IsIndexed = true
			}
		}
	}
	tab.Indexes = append(tab.Indexes, idx)

	cm.mu.Lock()
	mapping, exists := cm.TableToFileId[tableName]
	if !exists {
		cm.mu.Unlock()
		return fmt.Errorf("AddIndex: %w: %s", types.ErrTableNotFound, tableName)
	}
	if mapping.IndexFileIDs == nil {
		mapping.IndexFileIDs = make(map[string]uint32)
	}
	mapping.IndexFileIDs[strings.Join(idx.Cols, ",")] = cm.nextFileID
	cm.nextFileID++
	cm.TableToFileId[tableName] = mapping
	if err := cm.PersistTableMapping(); err != nil {
		cm.mu.Unlock()
		return err
	}
	if err := cm.persistNextFileID(); err != nil {
		cm.mu.Unlock()
		return err
	}
	cm.mu.Unlock()

	if err := cm.persistSchema(tab); err != nil {
		return err
	}
	cm.mu.Lock()
	cm.schemaCache.Set(tab.Name, &tab, int64(tab.RecordSize))
	cm.schemaCache.Wait()
	cm.mu.Unlock()
	return nil
}

// DropIndex removes an index definition matching the given columns.
func (cm *CatalogManager) DropIndex(tableName string, cols []string) error {
	tab, err := cm.GetTableSchema(tableName)
	if err != nil {
		return fmt.Errorf("DropIndex: %w", err)
	}
	key := strings.Join(cols, ",")
	found := false
	kept := tab.Indexes[:0]
	for _, idx := range tab.Indexes {
		if strings.Join(idx.Cols, ",") == key {
			found = true
			continue
		}
		kept = append(kept, idx)
	}
	if !found {
		return fmt.Errorf("DropIndex: %w: %s(%v)", types.ErrIndexNotFound, tableName, cols)
	}
	tab.Indexes = kept

	cm.mu.Lock()
	if mapping, exists := cm.TableToFileId[tableName]; exists {
		delete(mapping.IndexFileIDs, key)
		cm.TableToFileId[tableName] = mapping
		if err := cm.PersistTableMapping(); err != nil {
			cm.mu.Unlock()
			return err
		}
	}
	cm.mu.Unlock()

	if err := cm.persistSchema(tab); err != nil {
		return err
	}
	cm.mu.Lock()
	cm.schemaCache.Set(tab.Name, &tab, int64(tab.RecordSize))
	cm.schemaCache.Wait()
	cm.mu.Unlock()
	return nil
}

func (cm *CatalogManager) UnregisterTable(tableName string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.TableToFileId[tableName]; !exists {
		return fmt.Errorf("UnregisterTable: %w: %s", types.ErrTableNotFound, tableName)
	}

	delete(cm.TableToFileId, tableName)
	cm.schemaCache.Del(tableName)

	schemaPath := filepath.Join(cm.dbRoot, cm.currDb, "tables", tableName+"_schema.json")
	if err := os.Remove(schemaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("UnregisterTable: failed to delete schema file: %w", err)
	}

	if err := cm.PersistTableMapping(); err != nil {
		return err
	}
	return cm.persistNextFileID()
}

func (cm *CatalogManager) persistSchema(tab types.TabMeta) error {
	schemaDir := filepath.Join(cm.dbRoot, cm.currDb, "tables")
	if err := os.MkdirAll(schemaDir, 0755); err != nil {
		return fmt.Errorf("persistSchema: %w", err)
	}

	data, err := json.MarshalIndent(tab, "", "  ")
	if err != nil {
		return fmt.Errorf("persistSchema: %w", err)
	}

	schemaPath := filepath.Join(schemaDir, tab.Name+"_schema.json")
	return os.WriteFile(schemaPath, data, 0644)
}

func (cm *CatalogManager) PersistTableMapping() error {
	metaDir := filepath.Join(cm.dbRoot, cm.currDb, "metadata")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return fmt.Errorf("PersistTableMapping: %w", err)
	}
	data, err := json.MarshalIndent(cm.TableToFileId, "", "  ")
	if err != nil {
		return fmt.Errorf("PersistTableMapping: %w", err)
	}
	return os.WriteFile(filepath.Join(metaDir, "table_file_mapping.json"), data, 0644)
}

func (cm *CatalogManager) persistNextFileID() error {
	metaDir := filepath.Join(cm.dbRoot, cm.currDb, "metadata")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return fmt.Errorf("persistNextFileID: %w", err)
	}
	data, err := json.MarshalIndent(cm.nextFileID, "", "  ")
	if err != nil {
		return fmt.Errorf("persistNextFileID: %w", err)
	}
	return os.WriteFile(filepath.Join(metaDir, "next_file_id.json"), data, 0644)
}

func (cm *CatalogManager) GetTableFileID(tableName string) (uint32, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	mapping, exists := cm.TableToFileId[tableName]
	if !exists {
		return 0, fmt.Errorf("GetTableFileID: %w: %s", types.ErrTableNotFound, tableName)
	}
	return mapping.HeapFileID, nil
}

// GetIndexFileIDFor returns the file ID backing one specific index of a
// table, identified by its column list.
func (cm *CatalogManager) GetIndexFileIDFor(tableName string, cols []string) (uint32, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	mapping, exists := cm.TableToFileId[tableName]
	if !exists {
		return 0, fmt.Errorf("GetIndexFileIDFor: %w: %s", types.ErrTableNotFound, tableName)
	}
	id, exists := mapping.IndexFileIDs[strings.Join(cols, ",")]
	if !exists {
		return 0, fmt.Errorf("GetIndexFileIDFor: %w: %s(%v)", types.ErrIndexNotFound, tableName, cols)
	}
	return id, nil
}

func (cm *CatalogManager) LoadTableFileMapping() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	metaDir := filepath.Join(cm.dbRoot, cm.currDb, "metadata")
	cm.TableToFileId = make(map[string]TableFileMapping)

	data, err := os.ReadFile(filepath.Join(metaDir, "table_file_mapping.json"))
	if err != nil {
		if os.IsNotExist(err) {
			cm.nextFileID = 1
			return nil
		}
		return fmt.Errorf("LoadTableFileMapping: %w", err)
	}

	if err := json.Unmarshal(data, &cm.TableToFileId); err != nil {
		return fmt.Errorf("LoadTableFileMapping: %w", err)
	}

	counterData, err := os.ReadFile(filepath.Join(metaDir, "next_file_id.json"))
	if err == nil {
		var counter uint32
		if json.Unmarshal(counterData, &counter) == nil {
			cm.nextFileID = counter
		}
	} else {
		// Counter file missing: resume past the highest ID in use.
		maxID := uint32(0)
		for _, m := range cm.TableToFileId {
			if m.HeapFileID > maxID {
				maxID = m.HeapFileID
			}
			for _, id := range m.IndexFileIDs {
				if id > maxID {
					maxID = id
				}
			}
		}
		cm.nextFileID = maxID + 1
	}

	return nil
}

// LoadAllTableSchemas preloads every table's schema file into the cache —
// used at database open so the first query against each table is a cache
// hit rather than a cold JSON parse.
func (cm *CatalogManager) LoadAllTableSchemas() error {
	cm.mu.RLock()
	currDb := cm.currDb
	cm.mu.RUnlock()
	if currDb == "" {
		return fmt.Errorf("LoadAllTableSchemas: no database selected")
	}

	tablesDir := filepath.Join(cm.dbRoot, currDb, "tables")
	entries, err := os.ReadDir(tablesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("LoadAllTableSchemas: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_schema.json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(tablesDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("LoadAllTableSchemas: %w", err)
		}

		var tab types.TabMeta
		if err := json.Unmarshal(data, &tab); err != nil {
			return fmt.Errorf("LoadAllTableSchemas: invalid schema in %s: %w", entry.Name(), err)
		}

		cm.schemaCache.Set(tab.Name, &tab, int64(len(data)))
	}
	cm.schemaCache.Wait()

	return nil
}

// GetAllTableMappings returns a copy of the in-memory table→fileID map.
func (cm *CatalogManager) GetAllTableMappings() map[string]TableFileMapping {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	result := make(map[string]TableFileMapping, len(cm.TableToFileId))
	for k, v := range cm.TableToFileId {
		result[k] = v
	}
	return result
}
