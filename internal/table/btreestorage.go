package table

import "github.com/nmanojkumar030/sparklite-core/internal/btree"

// btreeStorage adapts a *btree.BTree to the Storage contract.
type btreeStorage struct {
	bt *btree.BTree
}

// NewBTreeStorage wraps an already-open B+Tree as a Table Storage backend.
func NewBTreeStorage(bt *btree.BTree) Storage {
	return &btreeStorage{bt: bt}
}

func (s *btreeStorage) Write(key []byte, value map[string]any) error {
	return s.bt.Insert(key, value)
}

// WriteBatch collapses to many individual writes; the B+Tree has no
// cheaper bulk path.
func (s *btreeStorage) WriteBatch(entries []Entry) error {
	for _, e := range entries {
		if err := s.bt.Insert(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *btreeStorage) Read(key []byte) (map[string]any, bool, error) {
	return s.bt.Get(key)
}

func (s *btreeStorage) Scan(start, end []byte, columns []string) ([]Entry, error) {
	rows, err := s.bt.Scan(start, end, columns)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = Entry{Key: r.Key, Value: r.Value}
	}
	return out, nil
}

func (s *btreeStorage) Delete(key []byte) error {
	return s.bt.Delete(key)
}

func (s *btreeStorage) Close() error {
	return s.bt.Close()
}
