package parquet

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Footer wire format (big-endian, length-prefixed, self-describing — the
// same style as pager.EncodeValue/DecodeValue):
//
//	schema_count       uint32
//	  for each column:
//	    name_len uint32, name bytes, type_tag uint8
//	row_group_count    uint32
//	  for each row group:
//	    row_count    uint64
//	    byte_offset  uint64
//	    byte_length  uint64
//	    column_count uint32
//	      for each column:
//	        name_len uint32, name bytes
//	        present  uint8
//	        (if present)
//	          type_tag    uint8
//	          min_present uint8, (min_body if 1)
//	          max_present uint8, (max_body if 1)
//	          null_count  uint64
//	          value_count uint64
//	          distinct_present uint8, (distinct_count uint64 if 1)

func encodeFooter(meta FileMetadata) ([]byte, error) {
	buf := make([]byte, 0, 256)

	schemaTypes := make(map[string]PrimitiveType, len(meta.Schema))
	buf = appendU32(buf, uint32(len(meta.Schema)))
	for _, col := range meta.Schema {
		buf = appendString(buf, col.Name)
		buf = append(buf, byte(col.Type))
		schemaTypes[col.Name] = col.Type
	}

	buf = appendU32(buf, uint32(len(meta.RowGroups)))
	for _, rg := range meta.RowGroups {
		buf = appendU64(buf, rg.RowCount)
		buf = appendU64(buf, rg.ByteOffset)
		buf = appendU64(buf, rg.ByteLength)
		buf = appendU32(buf, uint32(len(rg.ColumnStats)))

		// Deterministic iteration order keeps footer bytes stable across
		// encodes of the same metadata, which
		// TestParquet_EncodeFooterDeterministicOrdering asserts.
		names := make([]string, 0, len(rg.ColumnStats))
		for name := range rg.ColumnStats {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			stats := rg.ColumnStats[name]
			buf = appendString(buf, name)
			if !stats.Present {
				buf = append(buf, 0)
				continue
			}
			buf = append(buf, 1)

			// An all-null column has no Min/Max to derive a tag from;
			// fall back to the column's declared schema type.
			tag, err := tagForValue(stats.Min)
			if err != nil {
				tag, err = tagForValue(stats.Max)
			}
			if err != nil {
				st, ok := schemaTypes[name]
				if !ok {
					return nil, fmt.Errorf("row group stats for %q: %w", name, err)
				}
				tag = byte(st)
			}
			buf = append(buf, tag)

			var encErr error
			buf, encErr = appendOptionalScalar(buf, stats.Min, tag)
			if encErr != nil {
				return nil, fmt.Errorf("min for %q: %w", name, encErr)
			}
			buf, encErr = appendOptionalScalar(buf, stats.Max, tag)
			if encErr != nil {
				return nil, fmt.Errorf("max for %q: %w", name, encErr)
			}

			buf = appendU64(buf, stats.NullCount)
			buf = appendU64(buf, stats.ValueCount)
			if stats.DistinctCount != nil {
				buf = append(buf, 1)
				buf = appendU64(buf, *stats.DistinctCount)
			} else {
				buf = append(buf, 0)
			}
		}
	}
	return buf, nil
}

func decodeFooter(data []byte) (FileMetadata, error) {
	var meta FileMetadata
	r := &byteReader{data: data}

	schemaCount, err := r.u32()
	if err != nil {
		return meta, fmt.Errorf("schema count: %w", err)
	}
	meta.Schema = make([]SchemaColumn, schemaCount)
	for i := range meta.Schema {
		name, err := r.string()
		if err != nil {
			return meta, fmt.Errorf("schema[%d] name: %w", i, err)
		}
		typeTag, err := r.u8()
		if err != nil {
			return meta, fmt.Errorf("schema[%d] type: %w", i, err)
		}
		meta.Schema[i] = SchemaColumn{Name: name, Type: PrimitiveType(typeTag)}
	}

	rgCount, err := r.u32()
	if err != nil {
		return meta, fmt.Errorf("row group count: %w", err)
	}
	meta.RowGroups = make([]RowGroup, rgCount)
	for i := range meta.RowGroups {
		rg := &meta.RowGroups[i]
		var err error
		if rg.RowCount, err = r.u64(); err != nil {
			return meta, fmt.Errorf("row group %d row count: %w", i, err)
		}
		if rg.ByteOffset, err = r.u64(); err != nil {
			return meta, fmt.Errorf("row group %d offset: %w", i, err)
		}
		if rg.ByteLength, err = r.u64(); err != nil {
			return meta, fmt.Errorf("row group %d length: %w", i, err)
		}
		colCount, err := r.u32()
		if err != nil {
			return meta, fmt.Errorf("row group %d column count: %w", i, err)
		}
		rg.ColumnStats = make(map[string]ColumnStatistics, colCount)
		for c := uint32(0); c < colCount; c++ {
			name, err := r.string()
			if err != nil {
				return meta, fmt.Errorf("row group %d column %d name: %w", i, c, err)
			}
			present, err := r.u8()
			if err != nil {
				return meta, fmt.Errorf("row group %d column %d present: %w", i, c, err)
			}
			if present == 0 {
				rg.ColumnStats[name] = ColumnStatistics{Present: false}
				continue
			}
			tag, err := r.u8()
			if err != nil {
				return meta, fmt.Errorf("row group %d column %d type: %w", i, c, err)
			}
			stats := ColumnStatistics{Present: true}
			stats.Min, err = r.optionalScalar(tag)
			if err != nil {
				return meta, fmt.Errorf("row group %d column %d min: %w", i, c, err)
			}
			stats.Max, err = r.optionalScalar(tag)
			if err != nil {
				return meta, fmt.Errorf("row group %d column %d max: %w", i, c, err)
			}
			if stats.NullCount, err = r.u64(); err != nil {
				return meta, fmt.Errorf("row group %d column %d null count: %w", i, c, err)
			}
			if stats.ValueCount, err = r.u64(); err != nil {
				return meta, fmt.Errorf("row group %d column %d value count: %w", i, c, err)
			}
			distinctPresent, err := r.u8()
			if err != nil {
				return meta, fmt.Errorf("row group %d column %d distinct flag: %w", i, c, err)
			}
			if distinctPresent == 1 {
				dc, err := r.u64()
				if err != nil {
					return meta, fmt.Errorf("row group %d column %d distinct count: %w", i, c, err)
				}
				stats.DistinctCount = &dc
			}
			rg.ColumnStats[name] = stats
		}
	}
	return meta, nil
}

func tagForValue(v any) (byte, error) {
	switch v.(type) {
	case nil:
		return 0, ErrUnsupportedType
	case string:
		return byte(TypeString), nil
	case int32:
		return byte(TypeInt32), nil
	case int64:
		return byte(TypeInt64), nil
	case float64:
		return byte(TypeDouble), nil
	case bool:
		return byte(TypeBool), nil
	default:
		return 0, fmt.Errorf("%T: %w", v, ErrUnsupportedType)
	}
}

func appendOptionalScalar(buf []byte, v any, tag byte) ([]byte, error) {
	if v == nil {
		return append(buf, 0), nil
	}
	buf = append(buf, 1)
	switch PrimitiveType(tag) {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedType)
		}
		return appendString(buf, s), nil
	case TypeInt32:
		n, ok := v.(int32)
		if !ok {
			return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedType)
		}
		return appendU32(buf, uint32(n)), nil
	case TypeInt64:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedType)
		}
		return appendU64(buf, uint64(n)), nil
	case TypeDouble:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedType)
		}
		return appendU64(buf, math.Float64bits(f)), nil
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedType)
		}
		if b {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	default:
		return nil, fmt.Errorf("tag 0x%02x: %w", tag, ErrFormat)
	}
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}

// byteReader is a small cursor over the footer byte slice; it never
// dereferences past len(data), returning ErrFormat instead (the same
// clean-failure posture pager.Element enforces for slot access).
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) u8() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, ErrFormat
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrFormat
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, ErrFormat
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) string() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", ErrFormat
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *byteReader) optionalScalar(tag byte) (any, error) {
	present, err := r.u8()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	switch PrimitiveType(tag) {
	case TypeString:
		return r.string()
	case TypeInt32:
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case TypeInt64:
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case TypeDouble:
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(v), nil
	case TypeBool:
		v, err := r.u8()
		if err != nil {
			return nil, err
		}
		return v != 0, nil
	default:
		return nil, fmt.Errorf("tag 0x%02x: %w", tag, ErrFormat)
	}
}
