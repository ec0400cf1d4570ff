// Package btree implements the on-disk B+Tree engine: construction over a
// pager.PageManager, point lookup, ordered range scan with leaf linking and
// column projection, and insert with recursive split propagation.
//
// Page 0 of every tree's file is a metadata page (pager.FlagMetadata) that
// stores a single entry under the key "BTREE_ROOT_ID" whose 8-byte
// big-endian value is the current root page's PageID. Every other page is
// either a leaf (FlagLeaf) or a branch (FlagBranch).
//
// Branch pages use an empty-key-leftmost-child convention rather than a
// separate right-child trailer field: element 0 always carries an
// empty key and is the pointer to the subtree holding every key less than
// element 1's key; every element's value is an 8-byte big-endian child
// PageID. This keeps one generic pager.Page/Element shape for both leaves
// and branches instead of a second page layout.
package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/nmanojkumar030/sparklite-core/internal/pager"
)

const rootIDKey = "BTREE_ROOT_ID"

// Row is one decoded leaf entry returned by Scan.
type Row struct {
	Key   []byte
	Value map[string]any
}

// BTree is a single tree backed by one pager.PageManager-owned file.
type BTree struct {
	pm   *pager.PageManager
	root pager.PageID
}

// Open creates a new tree file (page 0 metadata + an empty root leaf at page
// 1) if path doesn't exist or is empty, or loads the current root id from an
// existing file's metadata page. Errors from pager.Open (such as
// pager.ErrFormat for a file length that is not a multiple of pageSize) are
// returned unchanged; the tree does no page-size check of its own.
func Open(path string, pageSize int, cfg pager.PageManagerConfig) (*BTree, error) {
	pm, err := pager.Open(path, pageSize, cfg)
	if err != nil {
		return nil, err
	}

	if pm.FileSize() == 0 {
		return bootstrap(pm)
	}

	meta, err := pm.Read(0)
	if err != nil {
		return nil, err
	}
	if meta.Flags()&pager.FlagMetadata == 0 {
		// Legacy layout with no metadata page: the tree is rooted at page 0.
		return &BTree{pm: pm, root: 0}, nil
	}
	idx, found := meta.Find([]byte(rootIDKey))
	if !found {
		return nil, fmt.Errorf("btree: metadata page missing %s: %w", rootIDKey, pager.ErrFormat)
	}
	e, err := meta.Element(idx)
	if err != nil {
		return nil, err
	}
	if len(e.Value) != 8 {
		return nil, fmt.Errorf("btree: corrupt root id entry (%d bytes): %w", len(e.Value), pager.ErrFormat)
	}

	return &BTree{pm: pm, root: pager.PageID(binary.BigEndian.Uint64(e.Value))}, nil
}

func bootstrap(pm *pager.PageManager) (*BTree, error) {
	metaID, err := pm.Allocate()
	if err != nil {
		return nil, err
	}
	rootID, err := pm.Allocate()
	if err != nil {
		return nil, err
	}

	meta := pager.NewPage(pm.PageSize(), metaID)
	meta.SetFlags(pager.FlagMetadata)
	var rb [8]byte
	binary.BigEndian.PutUint64(rb[:], uint64(rootID))
	if !meta.Insert([]byte(rootIDKey), rb[:], false, 0) {
		return nil, fmt.Errorf("btree: metadata page too small to hold %s", rootIDKey)
	}
	if err := pm.Write(meta); err != nil {
		return nil, err
	}

	root := pager.NewPage(pm.PageSize(), rootID)
	root.SetFlags(pager.FlagLeaf)
	if err := pm.Write(root); err != nil {
		return nil, err
	}

	return &BTree{pm: pm, root: rootID}, nil
}

// Close flushes and releases the underlying file.
func (t *BTree) Close() error { return t.pm.Close() }

// PageReads and PageWrites expose the underlying PageManager's counters, for
// tests and instrumentation that want to observe I/O volume directly.
func (t *BTree) PageReads() uint64  { return t.pm.PageReads() }
func (t *BTree) PageWrites() uint64 { return t.pm.PageWrites() }

func (t *BTree) setRoot(id pager.PageID) error {
	meta, err := t.pm.Read(0)
	if err != nil {
		return err
	}
	var rb [8]byte
	binary.BigEndian.PutUint64(rb[:], uint64(id))
	if !meta.Insert([]byte(rootIDKey), rb[:], false, 0) {
		return fmt.Errorf("btree: failed to update %s on metadata page", rootIDKey)
	}
	if err := t.pm.Write(meta); err != nil {
		return err
	}
	t.root = id
	return nil
}

// Insert writes key -> value, splitting leaves and branches along the
// descent path as needed. A value that could not fit on a single page even
// if it were completely empty fails immediately with ErrValueTooLarge,
// before any page is touched.
func (t *BTree) Insert(key []byte, value map[string]any) error {
	valBytes, err := pager.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("btree: encode value for key %q: %w", key, err)
	}

	empty := pager.NewPage(t.pm.PageSize(), 0)
	if len(key)+len(valBytes) > empty.FreeSpace() {
		return fmt.Errorf("btree: key %q (%d bytes key + %d bytes value): %w", key, len(key), len(valBytes), ErrValueTooLarge)
	}

	path, err := t.descendPath(key)
	if err != nil {
		return err
	}

	leafID := path[len(path)-1]
	leaf, err := t.pm.Read(leafID)
	if err != nil {
		return err
	}
	if leaf.Insert(key, valBytes, false, 0) {
		return t.pm.Write(leaf)
	}

	return t.splitLeafAndInsert(path, key, valBytes)
}

// Get performs a point lookup. found is false (with a nil error) if key is
// absent.
func (t *BTree) Get(key []byte) (value map[string]any, found bool, err error) {
	path, err := t.descendPath(key)
	if err != nil {
		return nil, false, err
	}
	leaf, err := t.pm.Read(path[len(path)-1])
	if err != nil {
		return nil, false, err
	}
	idx, ok := leaf.Find(key)
	if !ok {
		return nil, false, nil
	}
	e, err := leaf.Element(idx)
	if err != nil {
		return nil, false, err
	}
	val, err := pager.DecodeValue(e.Value)
	if err != nil {
		return nil, false, fmt.Errorf("btree: decode value for key %q: %w", key, err)
	}
	return val, true, nil
}

// Scan returns every row with key in [start, end) in ascending order,
// following leaf links across page boundaries. A nil start scans from the
// first key; a nil end scans to the last. When columns is non-nil, each
// returned row's Value is projected down to just those fields.
func (t *BTree) Scan(start, end []byte, columns []string) ([]Row, error) {
	descendKey := start
	if descendKey == nil {
		descendKey = []byte{}
	}
	path, err := t.descendPath(descendKey)
	if err != nil {
		return nil, err
	}

	var rows []Row
	leafID := path[len(path)-1]
	first := true

	for leafID != 0 {
		leaf, err := t.pm.Read(leafID)
		if err != nil {
			return nil, err
		}

		startIdx := 0
		if first && start != nil {
			idx, _ := leaf.Find(start)
			startIdx = idx
		}
		first = false

		for i := startIdx; i < leaf.Count(); i++ {
			e, err := leaf.Element(i)
			if err != nil {
				return nil, err
			}
			if end != nil && bytes.Compare(e.Key, end) >= 0 {
				return rows, nil
			}
			val, err := pager.DecodeValue(e.Value)
			if err != nil {
				return nil, fmt.Errorf("btree: decode value for key %q: %w", e.Key, err)
			}
			if columns != nil {
				val = projectColumns(val, columns)
			}
			key := append([]byte(nil), e.Key...)
			rows = append(rows, Row{Key: key, Value: val})
		}

		leafID = leaf.NextPageID()
	}

	return rows, nil
}

func projectColumns(m map[string]any, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		if v, ok := m[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Delete is unimplemented by this core; see ErrUnsupported.
func (t *BTree) Delete(key []byte) error {
	return fmt.Errorf("btree: delete %q: %w", key, ErrUnsupported)
}

// descendPath walks from the root to the leaf that does, or would, contain
// key, returning every page ID visited (branches followed by the leaf).
func (t *BTree) descendPath(key []byte) ([]pager.PageID, error) {
	path := make([]pager.PageID, 0, 4)
	cur := t.root

	for {
		p, err := t.pm.Read(cur)
		if err != nil {
			return nil, err
		}
		path = append(path, cur)
		if p.Flags()&pager.FlagLeaf != 0 {
			return path, nil
		}
		if p.Flags()&pager.FlagBranch == 0 {
			return nil, fmt.Errorf("btree: page %d has neither leaf nor branch flag: %w", cur, pager.ErrFormat)
		}

		idx, err := findChildIndex(p, key)
		if err != nil {
			return nil, err
		}
		e, err := p.Element(idx)
		if err != nil {
			return nil, err
		}
		if len(e.Value) != 8 {
			return nil, fmt.Errorf("btree: corrupt child pointer on page %d: %w", cur, pager.ErrFormat)
		}
		cur = pager.PageID(binary.BigEndian.Uint64(e.Value))
	}
}

// findChildIndex returns the index of the rightmost element whose key is <=
// key. Element 0's key is always empty and therefore always <= key, so the
// search never fails to find a candidate on a non-empty branch page.
func findChildIndex(p *pager.Page, key []byte) (int, error) {
	lo, hi := 0, p.Count()-1
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		e, err := p.Element(mid)
		if err != nil {
			return 0, err
		}
		if bytes.Compare(e.Key, key) <= 0 {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}
