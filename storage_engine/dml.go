package storageengine

import (
	"fmt"

	indexfile "coredb/storage_engine/access/indexfile_manager"
	bplus "coredb/storage_engine/access/indexfile_manager/bplustree"
	txn "coredb/storage_engine/transaction_manager"
	"coredb/types"

	"coredb/executor"
)

// BeginTxn starts a new transaction against this session's lock and
// transaction managers.
func (se *StorageEngine) BeginTxn() *txn.Transaction {
	return se.TxnManager.Begin()
}

// CommitTxn releases every lock the transaction holds and marks it
// committed. Commit and abort both end in releasing the full lock set;
// only the terminal state differs.
func (se *StorageEngine) CommitTxn(t *txn.Transaction) error {
	se.LockManager.ReleaseAll(t)
	return se.TxnManager.Commit(t.ID)
}

// AbortTxn releases every lock the transaction holds and marks it aborted.
// Undoing the transaction's writes (InsertedRows/UpdatedRows) is the
// recovery component's job; txn.Transaction carries the logical undo log
// for that component to consume.
func (se *StorageEngine) AbortTxn(t *txn.Transaction) error {
	se.LockManager.ReleaseAll(t)
	return se.TxnManager.Abort(t.ID)
}

// tableIndexes returns every (indexMeta, B+ tree) pair backing tab,
// opening any index file not already cached.
func (se *StorageEngine) tableIndexes(tab types.TabMeta) ([]types.IndexMeta, []*bplus.BPlusTree, error) {
	trees := make([]*bplus.BPlusTree, len(tab.Indexes))
	for i, idx := range tab.Indexes {
		indexFileID, err := se.CatalogManager.GetIndexFileIDFor(tab.Name, idx.Cols)
		if err != nil {
			return nil, nil, fmt.Errorf("tableIndexes: %w", err)
		}
		tree, err := se.IndexManager.GetOrCreateIndex(tab, idx, indexFileID)
		if err != nil {
			return nil, nil, fmt.Errorf("tableIndexes: %w", err)
		}
		trees[i] = tree
	}
	return tab.Indexes, trees, nil
}

// indexKeyValues extracts the typed Values an index's columns need from a
// raw row, in the index's declared column order.
func indexKeyValues(tab types.TabMeta, idx types.IndexMeta, row []byte) ([]types.Value, error) {
	vals := make([]types.Value, len(idx.Cols))
	for i, name := range idx.Cols {
		col, err := tab.Col(name)
		if err != nil {
			return nil, err
		}
		vals[i] = types.Value{Type: col.Type, Raw: row[col.Offset : col.Offset+col.Len]}
	}
	return vals, nil
}

// InsertRow acquires IX on the table, appends row to its heap file, inserts
// the new Rid into every secondary index, and records the insert on t for
// the recovery component's undo log.
func (se *StorageEngine) InsertRow(t *txn.Transaction, tableName string, row []byte) (types.Rid, error) {
	if err := se.RequireDatabase(); err != nil {
		return types.Rid{}, err
	}
	tab, err := se.CatalogManager.GetTableSchema(tableName)
	if err != nil {
		return types.Rid{}, fmt.Errorf("InsertRow: %w", err)
	}
	if len(row) != tab.RecordSize {
		return types.Rid{}, fmt.Errorf("InsertRow: row length %d does not match record size %d", len(row), tab.RecordSize)
	}

	heapFileID, err := se.CatalogManager.GetTableFileID(tableName)
	if err != nil {
		return types.Rid{}, fmt.Errorf("InsertRow: %w", err)
	}

	if err := se.LockManager.LockIXOnTable(t, heapFileID); err != nil {
		return types.Rid{}, fmt.Errorf("InsertRow: %w", err)
	}

	rid, err := se.HeapManager.InsertRow(heapFileID, row)
	if err != nil {
		return types.Rid{}, fmt.Errorf("InsertRow: %w", err)
	}

	idxs, trees, err := se.tableIndexes(tab)
	if err != nil {
		return types.Rid{}, fmt.Errorf("InsertRow: %w", err)
	}
	for i, idx := range idxs {
		vals, err := indexKeyValues(tab, idx, row)
		if err != nil {
			return types.Rid{}, fmt.Errorf("InsertRow: %w", err)
		}
		key := indexfile.EncodeKey(vals)
		if err := trees[i].Insertion(key, indexfile.EncodeRid(rid)); err != nil {
			return types.Rid{}, fmt.Errorf("InsertRow: index insert failed for %v: %w", idx.Cols, err)
		}
	}

	t.RecordInsert(tableName, rid, row)
	return rid, nil
}

// tableExecutorCtx bundles what every plan-building helper needs to
// construct an Executor over one table: its schema and heap file ID.
type tableExecutorCtx struct {
	tab        types.TabMeta
	heapFileID uint32
}

func (se *StorageEngine) tableCtx(tableName string) (tableExecutorCtx, error) {
	if err := se.RequireDatabase(); err != nil {
		return tableExecutorCtx{}, err
	}
	tab, err := se.CatalogManager.GetTableSchema(tableName)
	if err != nil {
		return tableExecutorCtx{}, fmt.Errorf("tableCtx: %w", err)
	}
	heapFileID, err := se.CatalogManager.GetTableFileID(tableName)
	if err != nil {
		return tableExecutorCtx{}, fmt.Errorf("tableCtx: %w", err)
	}
	return tableExecutorCtx{tab: tab, heapFileID: heapFileID}, nil
}

// BuildSeqScan acquires IS on the table and returns a full-table scan
// filtered by conds.
func (se *StorageEngine) BuildSeqScan(t *txn.Transaction, tableName string, conds []types.Condition) (*executor.SeqScanExecutor, error) {
	ctx, err := se.tableCtx(tableName)
	if err != nil {
		return nil, err
	}
	if err := se.LockManager.LockISOnTable(t, ctx.heapFileID); err != nil {
		return nil, fmt.Errorf("BuildSeqScan: %w", err)
	}
	return executor.NewSeqScanExecutor(se.HeapManager, ctx.heapFileID, tableName, ctx.tab.Columns, ctx.tab.RecordSize, conds), nil
}

// BuildIndexScan acquires IS on the table and returns a range scan over
// the index whose column list matches idxCols.
func (se *StorageEngine) BuildIndexScan(t *txn.Transaction, tableName string, idxCols []string, conds []types.Condition) (*executor.IndexScanExecutor, error) {
	ctx, err := se.tableCtx(tableName)
	if err != nil {
		return nil, err
	}
	if err := se.LockManager.LockISOnTable(t, ctx.heapFileID); err != nil {
		return nil, fmt.Errorf("BuildIndexScan: %w", err)
	}
	var idx *types.IndexMeta
	for i := range ctx.tab.Indexes {
		if equalCols(ctx.tab.Indexes[i].Cols, idxCols) {
			idx = &ctx.tab.Indexes[i]
			break
		}
	}
	if idx == nil {
		return nil, fmt.Errorf("BuildIndexScan: %w: %s%v", types.ErrIndexNotFound, tableName, idxCols)
	}
	indexFileID, err := se.CatalogManager.GetIndexFileIDFor(tableName, idx.Cols)
	if err != nil {
		return nil, fmt.Errorf("BuildIndexScan: %w", err)
	}
	return executor.NewIndexScanExecutor(se.HeapManager, se.IndexManager, ctx.heapFileID, indexFileID, ctx.tab, *idx, ctx.tab.Columns, ctx.tab.RecordSize, conds)
}

func equalCols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// BuildDelete acquires IX on the table and returns a DeleteExecutor over
// rids, residual-filtered by conds. DeleteExecutor removes heap rows only:
// whichever scan produced rids, callers remove the deleted rows' index
// entries themselves with DeleteIndexEntries.
func (se *StorageEngine) BuildDelete(t *txn.Transaction, tableName string, conds []types.Condition, rids []types.Rid) (*executor.DeleteExecutor, error) {
	ctx, err := se.tableCtx(tableName)
	if err != nil {
		return nil, err
	}
	if err := se.LockManager.LockIXOnTable(t, ctx.heapFileID); err != nil {
		return nil, fmt.Errorf("BuildDelete: %w", err)
	}
	return executor.NewDeleteExecutor(se.HeapManager, ctx.heapFileID, ctx.tab.Columns, ctx.tab.RecordSize, conds, rids), nil
}

// DeleteIndexEntries removes key's entry from every index on tab whose
// stored row produced key — called alongside BuildDelete's heap-level
// removal so that a deleted row's index entries don't dangle. row is the
// live record that was just removed from the heap.
func (se *StorageEngine) DeleteIndexEntries(tableName string, row []byte) error {
	tab, err := se.CatalogManager.GetTableSchema(tableName)
	if err != nil {
		return fmt.Errorf("DeleteIndexEntries: %w", err)
	}
	idxs, trees, err := se.tableIndexes(tab)
	if err != nil {
		return fmt.Errorf("DeleteIndexEntries: %w", err)
	}
	for i, idx := range idxs {
		vals, err := indexKeyValues(tab, idx, row)
		if err != nil {
			return fmt.Errorf("DeleteIndexEntries: %w", err)
		}
		if err := trees[i].Delete(indexfile.EncodeKey(vals)); err != nil {
			return fmt.Errorf("DeleteIndexEntries: index delete failed for %v: %w", idx.Cols, err)
		}
	}
	return nil
}
