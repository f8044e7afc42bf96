package bplus

import (
	"coredb/storage_engine/page"
	"encoding/binary"
	"fmt"
)

/*
SerializeNode writes a Node into a 4KB page buffer.
All page IDs (pageID, parent, prev, next, children) are stored as LOCAL
page IDs (lower 32 bits only) so they remain valid across restarts
regardless of how global IDs are reassigned.

Layout:

	Header (44 bytes):
	  localPageID  int64  (8 bytes)
	  pageType            (1 byte)  — stamped by DiskManager on write
	  isLeaf       bool   (1 byte)  — 1=leaf, 0=internal
	  numKeys      int16  (2 bytes)
	  localParent  int64  (8 bytes) — -1 if no parent
	  localNext    int64  (8 bytes) — leaf-only, -1 at the last leaf
	  localPrev    int64  (8 bytes) — leaf-only, -1 at the first leaf
	  reserved            (8 bytes)

	Body:
	  keys: dense array, numKeys × keyWidth bytes (no per-key length —
	        composite keys are fixed-width, keyWidth comes from the
	        file's metadata page)
	  internal: numKeys × [ localChildID int64 ] — children[i] pairs
	        with keys[i]
	  leaf:     numKeys × [ rid 12 bytes ]

Local vs global IDs: on load, DeserializeNode reconstructs global IDs as
int64(fileID)<<32 | localID. In memory, all IDs are global.
*/

const nodeHeaderSize = 44

func localID(global int64) int64 {
	if global < 0 {
		return -1
	}
	return global & 0xFFFFFFFF
}

func globalID(fileID uint32, local int64) int64 {
	if local < 0 {
		return -1
	}
	return int64(fileID)<<32 | (local & 0xFFFFFFFF)
}

func SerializeNode(node *Node, data []byte, keyWidth int) error {
	if len(data) != page.PageSize {
		return fmt.Errorf("serializeNode: data buffer must be %d bytes", page.PageSize)
	}

	binary.LittleEndian.PutUint64(data[0:], uint64(localID(node.pageID)))
	// data[8] is the page-type stamp, owned by DiskManager.WritePage.
	if node.nodeType == NodeLeaf {
		data[9] = 1
	} else {
		data[9] = 0
	}
	binary.LittleEndian.PutUint16(data[10:], uint16(len(node.keys)))
	binary.LittleEndian.PutUint64(data[12:], uint64(localID(node.parent)))
	binary.LittleEndian.PutUint64(data[20:], uint64(localID(node.next)))
	binary.LittleEndian.PutUint64(data[28:], uint64(localID(node.prev)))

	offset := nodeHeaderSize
	for i, key := range node.keys {
		if len(key) != keyWidth {
			return fmt.Errorf("serializeNode: key %d is %d bytes, want %d", i, len(key), keyWidth)
		}
		if offset+keyWidth > page.PageSize {
			return fmt.Errorf("serializeNode: page overflow while writing keys")
		}
		copy(data[offset:], key)
		offset += keyWidth
	}

	if node.nodeType == NodeLeaf {
		for i, val := range node.values {
			if len(val) != ridValueSize {
				return fmt.Errorf("serializeNode: value %d is %d bytes, want %d", i, len(val), ridValueSize)
			}
			if offset+ridValueSize > page.PageSize {
				return fmt.Errorf("serializeNode: page overflow while writing values")
			}
			copy(data[offset:], val)
			offset += ridValueSize
		}
	} else {
		for _, childID := range node.children {
			if offset+8 > page.PageSize {
				return fmt.Errorf("serializeNode: page overflow while writing children")
			}
			binary.LittleEndian.PutUint64(data[offset:], uint64(localID(childID)))
			offset += 8
		}
	}

	return nil
}

// DeserializeNode reads a Node from a 4KB page buffer. fileID reconstructs
// global page IDs from the stored local IDs; keyWidth is the dense key
// stride from the file's metadata page. The caller (fetchNode) always
// overrides node.pageID with the actual global page ID used to fetch the
// page — the stored pageID is informational only.
func DeserializeNode(data []byte, fileID uint32, keyWidth int) (*Node, error) {
	if len(data) != page.PageSize {
		return nil, fmt.Errorf("deserializeNode: data must be %d bytes", page.PageSize)
	}

	node := &Node{}
	node.pageID = globalID(fileID, int64(binary.LittleEndian.Uint64(data[0:])))
	if data[9] == 1 {
		node.nodeType = NodeLeaf
	} else {
		node.nodeType = NodeInternal
	}
	numKeys := int(binary.LittleEndian.Uint16(data[10:]))
	node.parent = globalID(fileID, int64(binary.LittleEndian.Uint64(data[12:])))
	node.next = globalID(fileID, int64(binary.LittleEndian.Uint64(data[20:])))
	node.prev = globalID(fileID, int64(binary.LittleEndian.Uint64(data[28:])))

	offset := nodeHeaderSize
	if offset+numKeys*keyWidth > page.PageSize {
		return nil, fmt.Errorf("deserializeNode: %d keys of width %d overflow the page", numKeys, keyWidth)
	}
	node.keys = make([][]byte, 0, numKeys)
	for i := 0; i < numKeys; i++ {
		key := make([]byte, keyWidth)
		copy(key, data[offset:offset+keyWidth])
		offset += keyWidth
		node.keys = append(node.keys, key)
	}

	if node.nodeType == NodeLeaf {
		if offset+numKeys*ridValueSize > page.PageSize {
			return nil, fmt.Errorf("deserializeNode: %d values overflow the page", numKeys)
		}
		node.values = make([][]byte, 0, numKeys)
		for i := 0; i < numKeys; i++ {
			val := make([]byte, ridValueSize)
			copy(val, data[offset:offset+ridValueSize])
			offset += ridValueSize
			node.values = append(node.values, val)
		}
		node.children = nil
	} else {
		if offset+numKeys*8 > page.PageSize {
			return nil, fmt.Errorf("deserializeNode: %d children overflow the page", numKeys)
		}
		node.children = make([]int64, 0, numKeys)
		for i := 0; i < numKeys; i++ {
			node.children = append(node.children, globalID(fileID, int64(binary.LittleEndian.Uint64(data[offset:]))))
			offset += 8
		}
		node.values = nil
	}

	return node, nil
}
