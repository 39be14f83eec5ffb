package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

const HeaderLen = 7

var (
	ErrShortFieldHeader  = errors.New("tlv: short field header")
	ErrShortFieldValue   = errors.New("tlv: short field value")
	ErrFieldTypeMismatch = errors.New("tlv: field type mismatch")
	ErrInvalidLength     = errors.New("tlv: invalid length")
)

// Type IDs used on the wire.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeU64    uint8 = 4
	TypeBool   uint8 = 5
	TypeString uint8 = 6
	TypeBytes  uint8 = 7
)

// Nested list/map entries use these ids inside a TypeBytes value.
const (
	entryValue uint16 = 1
	entryKey   uint16 = 2
)

// Field is one decoded TLV field.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func EncodeField(f Field) []byte {
	buf := make([]byte, HeaderLen+len(f.Value))
	binary.BigEndian.PutUint16(buf[0:2], f.ID)
	buf[2] = f.Type
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(f.Value)))
	copy(buf[7:], f.Value)
	return buf
}

func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0, 4)
	i := 0
	for i < len(payload) {
		if len(payload)-i < HeaderLen {
			return nil, ErrShortFieldHeader
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		typeID := payload[i+2]
		l := binary.BigEndian.Uint32(payload[i+3 : i+7])
		i += HeaderLen
		if uint32(len(payload)-i) < l {
			return nil, ErrShortFieldValue
		}
		val := make([]byte, l)
		copy(val, payload[i:i+int(l)])
		i += int(l)
		fields = append(fields, Field{ID: id, Type: typeID, Value: val})
	}
	return fields, nil
}

func EncodeFields(fields []Field) []byte {
	size := 0
	for _, f := range fields {
		size += HeaderLen + len(f.Value)
	}
	out := make([]byte, 0, size)
	for _, f := range fields {
		out = append(out, EncodeField(f)...)
	}
	return out
}

// GetField returns the first field with id.
func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// GetFields returns every field with id, in wire order.
func GetFields(fields []Field, id uint16) []Field {
	out := make([]Field, 0)
	for _, f := range fields {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

func MustType(f Field, expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("%w: field %d got %d want %d", ErrFieldTypeMismatch, f.ID, f.Type, expected)
	}
	return nil
}

// EncodeStrings packs an ordered string list into one bytes value.
func EncodeStrings(values []string) []byte {
	fields := make([]Field, 0, len(values))
	for _, v := range values {
		fields = append(fields, String(entryValue, v))
	}
	return EncodeFields(fields)
}

func DecodeStrings(b []byte) ([]string, error) {
	fields, err := DecodeFields(b)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.ID != entryValue {
			continue
		}
		v, err := f.Text()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeStringMap packs a string map as key/value pairs sorted by key.
func EncodeStringMap(m map[string]string) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]Field, 0, 2*len(keys))
	for _, k := range keys {
		fields = append(fields, String(entryKey, k), String(entryValue, m[k]))
	}
	return EncodeFields(fields)
}

func DecodeStringMap(b []byte) (map[string]string, error) {
	fields, err := DecodeFields(b)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields)/2)
	for i := 0; i < len(fields); i++ {
		if fields[i].ID != entryKey {
			continue
		}
		key, err := fields[i].Text()
		if err != nil {
			return nil, err
		}
		if i+1 >= len(fields) || fields[i+1].ID != entryValue {
			return nil, fmt.Errorf("%w: map key %q has no value", ErrShortFieldValue, key)
		}
		val, err := fields[i+1].Text()
		if err != nil {
			return nil, err
		}
		out[key] = val
		i++
	}
	return out, nil
}
