package pager

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Value is a pure encode/decode layer for the record payload stored in
// B+Tree leaves: a map from short field name to one typed scalar. It does
// no I/O and owns nothing. The format is self-describing (each entry
// carries its own type tag) so a Table layer can decode without side
// information.

var (
	ErrCorruptValue    = errors.New("pager: corrupt value")
	ErrUnsupportedType = errors.New("pager: unsupported value type")
)

const (
	tagNull   byte = 0
	tagString byte = 1
	tagInt32  byte = 2
	tagInt64  byte = 3
	tagDouble byte = 4
	tagBool   byte = 5
)

// EncodeValue serializes a map of named typed scalars. Allowed types are
// nil, string, int32, int64, float64 and bool; a Go int is also accepted
// and stored as int64 (so it decodes as int64). Anything else fails with
// ErrUnsupportedType. Wire format (big-endian, length-prefixed):
//
//	entry_count  uint32
//	for each entry:
//	  key_len    uint32
//	  key_bytes  (UTF-8, key_len bytes)
//	  type_tag   uint8
//	  value_body (tag-dependent)
func EncodeValue(m map[string]any) ([]byte, error) {
	buf := make([]byte, 4, 4+len(m)*16)
	binary.BigEndian.PutUint32(buf, uint32(len(m)))

	for k, v := range m {
		var kb [4]byte
		binary.BigEndian.PutUint32(kb[:], uint32(len(k)))
		buf = append(buf, kb[:]...)
		buf = append(buf, k...)

		switch val := v.(type) {
		case nil:
			buf = append(buf, tagNull)
		case string:
			buf = append(buf, tagString)
			var lb [4]byte
			binary.BigEndian.PutUint32(lb[:], uint32(len(val)))
			buf = append(buf, lb[:]...)
			buf = append(buf, val...)
		case int32:
			buf = append(buf, tagInt32)
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(val))
			buf = append(buf, b[:]...)
		case int64:
			buf = append(buf, tagInt64)
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(val))
			buf = append(buf, b[:]...)
		case int:
			buf = append(buf, tagInt64)
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(int64(val)))
			buf = append(buf, b[:]...)
		case float64:
			buf = append(buf, tagDouble)
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], math.Float64bits(val))
			buf = append(buf, b[:]...)
		case bool:
			buf = append(buf, tagBool)
			if val {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		default:
			return nil, fmt.Errorf("field %q has type %T: %w", k, v, ErrUnsupportedType)
		}
	}
	return buf, nil
}

// DecodeValue parses the wire format produced by EncodeValue. It fails with
// ErrCorruptValue on truncated input or an unrecognized type tag.
func DecodeValue(data []byte) (map[string]any, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("header: %w", ErrCorruptValue)
	}
	count := int(binary.BigEndian.Uint32(data))
	off := 4
	out := make(map[string]any, count)

	for i := 0; i < count; i++ {
		if off+4 > len(data) {
			return nil, fmt.Errorf("entry %d key length: %w", i, ErrCorruptValue)
		}
		kl := int(binary.BigEndian.Uint32(data[off:]))
		off += 4
		if off+kl > len(data) {
			return nil, fmt.Errorf("entry %d key bytes: %w", i, ErrCorruptValue)
		}
		key := string(data[off : off+kl])
		off += kl

		if off >= len(data) {
			return nil, fmt.Errorf("entry %d type tag: %w", i, ErrCorruptValue)
		}
		tag := data[off]
		off++

		switch tag {
		case tagNull:
			out[key] = nil
		case tagString:
			if off+4 > len(data) {
				return nil, fmt.Errorf("entry %d string length: %w", i, ErrCorruptValue)
			}
			sl := int(binary.BigEndian.Uint32(data[off:]))
			off += 4
			if off+sl > len(data) {
				return nil, fmt.Errorf("entry %d string bytes: %w", i, ErrCorruptValue)
			}
			out[key] = string(data[off : off+sl])
			off += sl
		case tagInt32:
			if off+4 > len(data) {
				return nil, fmt.Errorf("entry %d int32: %w", i, ErrCorruptValue)
			}
			out[key] = int32(binary.BigEndian.Uint32(data[off:]))
			off += 4
		case tagInt64:
			if off+8 > len(data) {
				return nil, fmt.Errorf("entry %d int64: %w", i, ErrCorruptValue)
			}
			out[key] = int64(binary.BigEndian.Uint64(data[off:]))
			off += 8
		case tagDouble:
			if off+8 > len(data) {
				return nil, fmt.Errorf("entry %d double: %w", i, ErrCorruptValue)
			}
			out[key] = math.Float64frombits(binary.BigEndian.Uint64(data[off:]))
			off += 8
		case tagBool:
			if off+1 > len(data) {
				return nil, fmt.Errorf("entry %d bool: %w", i, ErrCorruptValue)
			}
			out[key] = data[off] != 0
			off++
		default:
			return nil, fmt.Errorf("entry %d tag 0x%02x: %w", i, tag, ErrCorruptValue)
		}
	}
	return out, nil
}
