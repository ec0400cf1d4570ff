package pager

import (
	"reflect"
	"testing"
)

func TestValue_RoundTrip(t *testing.T) {
	m := map[string]any{
		"id":     int64(42),
		"name":   "ada",
		"score":  3.5,
		"active": true,
		"note":   nil,
		"age":    int32(7),
	}
	enc, err := EncodeValue(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := DecodeValue(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(m, dec) {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", dec, m)
	}
}

func TestValue_EmptyMap(t *testing.T) {
	enc, err := EncodeValue(map[string]any{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := DecodeValue(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dec) != 0 {
		t.Fatalf("expected empty map, got %+v", dec)
	}
}

func TestValue_UnsupportedType(t *testing.T) {
	_, err := EncodeValue(map[string]any{"x": []int{1, 2, 3}})
	if err == nil {
		t.Fatal("expected ErrUnsupportedType")
	}
}

func TestValue_CorruptTruncated(t *testing.T) {
	enc, _ := EncodeValue(map[string]any{"k": "value"})
	for i := 1; i < len(enc); i++ {
		if _, err := DecodeValue(enc[:i]); err == nil {
			t.Fatalf("expected error decoding truncated input of length %d", i)
		}
	}
}

func TestValue_CorruptUnknownTag(t *testing.T) {
	enc, _ := EncodeValue(map[string]any{"k": "v"})
	// Locate and corrupt the type tag byte (right after the 4-byte key
	// length and the 1-byte key "k").
	tagOffset := 4 + 4 + 1
	enc[tagOffset] = 0xEE
	if _, err := DecodeValue(enc); err == nil {
		t.Fatal("expected error decoding unknown type tag")
	}
}
