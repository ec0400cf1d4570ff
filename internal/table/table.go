package table

import "fmt"

// Table projects a typed Schema onto a generic Storage contract.
type Table struct {
	schema  Schema
	storage Storage
}

// New binds a Schema to a Storage backend, validating that the schema names
// a real primary-key column.
func New(schema Schema, storage Storage) (*Table, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}
	return &Table{schema: schema, storage: storage}, nil
}

func (t *Table) Schema() Schema { return t.schema }

// primaryKeyBytes renders the primary-key field's value as the UTF-8 byte
// string the storage layer keys on. Strings pass through verbatim; integers
// use their decimal text form, so lexicographic byte order matches numeric
// order only when callers zero-pad consistently ("CUST0001" style keys).
func primaryKeyBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []byte:
		return val, nil
	case int32:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	default:
		return nil, fmt.Errorf("table: primary key value %v has unsupported type %T", v, v)
	}
}

// Insert writes record under its primary-key field.
func (t *Table) Insert(record map[string]any) error {
	pk, ok := record[t.schema.PrimaryKey]
	if !ok {
		return fmt.Errorf("table: record missing primary key field %q", t.schema.PrimaryKey)
	}
	key, err := primaryKeyBytes(pk)
	if err != nil {
		return err
	}
	return t.storage.Write(key, record)
}

// InsertBatch computes every record's key up front, then hands the whole
// batch to the backend in one WriteBatch call.
func (t *Table) InsertBatch(records []map[string]any) error {
	entries := make([]Entry, len(records))
	for i, r := range records {
		pk, ok := r[t.schema.PrimaryKey]
		if !ok {
			return fmt.Errorf("table: record %d missing primary key field %q", i, t.schema.PrimaryKey)
		}
		key, err := primaryKeyBytes(pk)
		if err != nil {
			return err
		}
		entries[i] = Entry{Key: key, Value: r}
	}
	return t.storage.WriteBatch(entries)
}

// FindByPrimaryKey performs a point lookup. found is false with a nil error
// when pk is absent; a missing key is not an error.
func (t *Table) FindByPrimaryKey(pk any) (record map[string]any, found bool, err error) {
	key, err := primaryKeyBytes(pk)
	if err != nil {
		return nil, false, err
	}
	return t.storage.Read(key)
}

// Scan returns rows with primary key in [startPK, endPK) in ascending order,
// projected to columns (nil means every column). A nil startPK or endPK
// leaves that bound unbounded.
func (t *Table) Scan(startPK, endPK any, columns []string) ([]Entry, error) {
	var start, end []byte
	var err error
	if startPK != nil {
		if start, err = primaryKeyBytes(startPK); err != nil {
			return nil, err
		}
	}
	if endPK != nil {
		if end, err = primaryKeyBytes(endPK); err != nil {
			return nil, err
		}
	}
	return t.storage.Scan(start, end, columns)
}

// Close releases the underlying storage.
func (t *Table) Close() error {
	return t.storage.Close()
}
