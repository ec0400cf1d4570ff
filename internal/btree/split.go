package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/nmanojkumar030/sparklite-core/internal/pager"
)

// entry is a decoded (key, value) pair used while rebuilding a page's
// contents during a split; value is a serialized Value for a leaf entry or
// an 8-byte big-endian child PageID for a branch entry.
type entry struct {
	key   []byte
	value []byte
}

func allEntries(p *pager.Page) ([]entry, error) {
	n := p.Count()
	out := make([]entry, 0, n)
	for i := 0; i < n; i++ {
		e, err := p.Element(i)
		if err != nil {
			return nil, err
		}
		out = append(out, entry{key: e.Key, value: e.Value})
	}
	return out, nil
}

// upsert inserts (key, value) into a key-sorted entry slice, replacing an
// existing entry with the same key.
func upsert(entries []entry, key, value []byte) []entry {
	idx := sort.Search(len(entries), func(i int) bool {
		return bytes.Compare(entries[i].key, key) >= 0
	})
	if idx < len(entries) && bytes.Equal(entries[idx].key, key) {
		entries[idx].value = value
		return entries
	}
	out := make([]entry, 0, len(entries)+1)
	out = append(out, entries[:idx]...)
	out = append(out, entry{key: key, value: value})
	out = append(out, entries[idx:]...)
	return out
}

// splitLeafAndInsert splits the leaf at the end of path to make room for
// (key, value), then propagates the resulting separator up through the
// branch pages on path.
func (t *BTree) splitLeafAndInsert(path []pager.PageID, key, value []byte) error {
	leafID := path[len(path)-1]
	leaf, err := t.pm.Read(leafID)
	if err != nil {
		return err
	}

	entries, err := allEntries(leaf)
	if err != nil {
		return err
	}
	entries = upsert(entries, key, value)
	if len(entries) < 2 {
		return fmt.Errorf("btree: cannot split a leaf with fewer than 2 entries: %w", ErrPageTooSmall)
	}

	mid := len(entries) / 2
	leftEntries, rightEntries := entries[:mid], entries[mid:]

	newLeafID, err := t.pm.Allocate()
	if err != nil {
		return err
	}

	leftPage := pager.NewPage(t.pm.PageSize(), leafID)
	leftPage.SetFlags(pager.FlagLeaf)
	if err := fillPage(leftPage, leftEntries); err != nil {
		return err
	}
	leftPage.SetNextPageID(newLeafID)

	rightPage := pager.NewPage(t.pm.PageSize(), newLeafID)
	rightPage.SetFlags(pager.FlagLeaf)
	if err := fillPage(rightPage, rightEntries); err != nil {
		return err
	}
	rightPage.SetNextPageID(leaf.NextPageID())

	if err := t.pm.Write(leftPage); err != nil {
		return err
	}
	if err := t.pm.Write(rightPage); err != nil {
		return err
	}

	return t.propagateSplit(path[:len(path)-1], rightEntries[0].key, newLeafID)
}

// propagateSplit inserts a new (separator, rightChildID) pointer into the
// branch at the end of branchPath, splitting that branch (and recursing
// upward) if it doesn't fit. An empty branchPath means the split reached the
// root; a new root is created above the old one.
func (t *BTree) propagateSplit(branchPath []pager.PageID, sepKey []byte, rightChildID pager.PageID) error {
	var rb [8]byte
	binary.BigEndian.PutUint64(rb[:], uint64(rightChildID))

	if len(branchPath) == 0 {
		return t.newRoot(sepKey, rightChildID)
	}

	branchID := branchPath[len(branchPath)-1]
	branch, err := t.pm.Read(branchID)
	if err != nil {
		return err
	}

	if branch.Insert(sepKey, rb[:], false, 0) {
		return t.pm.Write(branch)
	}

	entries, err := allEntries(branch)
	if err != nil {
		return err
	}
	entries = upsert(entries, sepKey, rb[:])
	if len(entries) < 2 {
		return fmt.Errorf("btree: cannot split a branch with fewer than 2 entries: %w", ErrPageTooSmall)
	}

	mid := len(entries) / 2
	promoted := entries[mid]

	leftEntries := entries[:mid]
	rightEntries := make([]entry, 0, len(entries)-mid)
	rightEntries = append(rightEntries, entry{key: []byte{}, value: promoted.value})
	rightEntries = append(rightEntries, entries[mid+1:]...)

	newBranchID, err := t.pm.Allocate()
	if err != nil {
		return err
	}

	leftPage := pager.NewPage(t.pm.PageSize(), branchID)
	leftPage.SetFlags(pager.FlagBranch)
	if err := fillPage(leftPage, leftEntries); err != nil {
		return err
	}

	rightPage := pager.NewPage(t.pm.PageSize(), newBranchID)
	rightPage.SetFlags(pager.FlagBranch)
	if err := fillPage(rightPage, rightEntries); err != nil {
		return err
	}

	if err := t.pm.Write(leftPage); err != nil {
		return err
	}
	if err := t.pm.Write(rightPage); err != nil {
		return err
	}

	return t.propagateSplit(branchPath[:len(branchPath)-1], promoted.key, newBranchID)
}

func (t *BTree) newRoot(sepKey []byte, rightChildID pager.PageID) error {
	newRootID, err := t.pm.Allocate()
	if err != nil {
		return err
	}
	newRoot := pager.NewPage(t.pm.PageSize(), newRootID)
	newRoot.SetFlags(pager.FlagBranch)

	var leftb [8]byte
	binary.BigEndian.PutUint64(leftb[:], uint64(t.root))
	if !newRoot.Insert([]byte{}, leftb[:], false, 0) {
		return fmt.Errorf("btree: page too small to hold a fresh root: %w", ErrPageTooSmall)
	}

	var rightb [8]byte
	binary.BigEndian.PutUint64(rightb[:], uint64(rightChildID))
	if !newRoot.Insert(sepKey, rightb[:], false, 0) {
		return fmt.Errorf("btree: page too small to hold a fresh root: %w", ErrPageTooSmall)
	}

	if err := t.pm.Write(newRoot); err != nil {
		return err
	}
	return t.setRoot(newRootID)
}

func fillPage(p *pager.Page, entries []entry) error {
	for _, e := range entries {
		if !p.Insert(e.key, e.value, false, 0) {
			return fmt.Errorf("btree: page %d: %w", p.SelfPageID(), ErrPageTooSmall)
		}
	}
	return nil
}
