package types

import "fmt"

// ColType is the set of scalar types a column may hold. User-defined types
// beyond these three are out of scope.
type ColType uint8

const (
	TypeInt32 ColType = iota
	TypeFloat32
	TypeFixedString
)

func (t ColType) String() string {
	switch t {
	case TypeInt32:
		return "INT32"
	case TypeFloat32:
		return "FLOAT32"
	case TypeFixedString:
		return "FIXED_STRING"
	default:
		return "UNKNOWN"
	}
}

// ColMeta describes one column: its name, type,
// fixed byte length, its offset within a record, and whether it is covered
// by a secondary index.
type ColMeta struct {
	TableName string  `json:"table_name"`
	Name      string  `json:"name"`
	Type      ColType `json:"type"`
	Len       int     `json:"len"`
	Offset    int     `json:"offset"`
	IsIndexed bool    `json:"is_indexed"`
}

// IndexMeta names the columns making up one secondary index plus the
// precomputed total key width, matching the B+ tree file header's
// per-column (types, lens) arrays.
type IndexMeta struct {
	Cols      []string `json:"cols"`
	ColTotLen int       `json:"col_tot_len"`
	NumCols   int       `json:"num_cols"`
}

// TabMeta is the in-memory schema shape the executor consumes: name,
// ordered columns, and the table's index definitions. The catalog persists
// this same shape as the database directory's schema file.
type TabMeta struct {
	Name       string      `json:"name"`
	Columns    []ColMeta   `json:"columns"`
	Indexes    []IndexMeta `json:"indexes"`
	RecordSize int         `json:"record_size"`
}

// Col looks up a column by name, returning an error the executor and
// condition evaluator can propagate as ErrColumnNotFound.
func (t *TabMeta) Col(name string) (*ColMeta, error) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], nil
		}
	}
	return nil, fmt.Errorf("Col: %w: %s.%s", ErrColumnNotFound, t.Name, name)
}

// IndexOn returns the index definition whose leading column matches col, if
// any — used by plan construction to decide whether an index scan is
// available for a predicate.
func (t *TabMeta) IndexOn(col string) (*IndexMeta, bool) {
	for i := range t.Indexes {
		if len(t.Indexes[i].Cols) > 0 && t.Indexes[i].Cols[0] == col {
			return &t.Indexes[i], true
		}
	}
	return nil, false
}

// ComputeLayout assigns byte offsets to columns in declaration order and
// sets RecordSize to the sum of column lengths.
func ComputeLayout(name string, cols []ColMeta) TabMeta {
	offset := 0
	laidOut := make([]ColMeta, len(cols))
	for i, c := range cols {
		c.TableName = name
		c.Offset = offset
		laidOut[i] = c
		offset += c.Len
	}
	return TabMeta{Name: name, Columns: laidOut, RecordSize: offset}
}
