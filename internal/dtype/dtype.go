// Package dtype decodes raw detector frames into float64 values.
//
// Types are named with numpy-style descriptors: an optional byte order
// character ('<' little, '>' big, '|' or '=' not applicable/native little),
// a kind ('u' unsigned, 'i' signed, 'f' IEEE float) and an item size in bytes.
// Examples: "u1", "<u2", ">u2", "<i4", "<f4", ">f8".
package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// DType is a parsed element type.
type DType struct {
	Kind     byte // 'u', 'i' or 'f'
	ItemSize int
	Order    binary.ByteOrder
}

// Common element types.
var (
	Uint8   = DType{Kind: 'u', ItemSize: 1, Order: binary.LittleEndian}
	Uint16  = DType{Kind: 'u', ItemSize: 2, Order: binary.LittleEndian}
	Uint32  = DType{Kind: 'u', ItemSize: 4, Order: binary.LittleEndian}
	Float32 = DType{Kind: 'f', ItemSize: 4, Order: binary.LittleEndian}
	Float64 = DType{Kind: 'f', ItemSize: 8, Order: binary.LittleEndian}
)

// Parse parses a numpy-style descriptor.
func Parse(s string) (DType, error) {
	if s == "" {
		return DType{}, errors.New("empty dtype")
	}

	order := binary.ByteOrder(binary.LittleEndian)
	switch s[0] {
	case '<', '|', '=':
		s = s[1:]
	case '>':
		order = binary.BigEndian
		s = s[1:]
	}
	if len(s) != 2 {
		return DType{}, fmt.Errorf("malformed dtype %q", s)
	}

	d := DType{Kind: s[0], ItemSize: int(s[1] - '0'), Order: order}
	switch d.Kind {
	case 'u', 'i':
		if d.ItemSize != 1 && d.ItemSize != 2 && d.ItemSize != 4 && d.ItemSize != 8 {
			return DType{}, fmt.Errorf("unsupported integer size %d", d.ItemSize)
		}
	case 'f':
		if d.ItemSize != 4 && d.ItemSize != 8 {
			return DType{}, fmt.Errorf("unsupported float size %d", d.ItemSize)
		}
	default:
		return DType{}, fmt.Errorf("unsupported dtype kind %q", d.Kind)
	}
	return d, nil
}

// MustParse is Parse for descriptors known at compile time.
func MustParse(s string) DType {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the canonical descriptor.
func (d DType) String() string {
	if d.ItemSize == 1 {
		return fmt.Sprintf("%c1", d.Kind)
	}
	prefix := '<'
	if d.Order == binary.BigEndian {
		prefix = '>'
	}
	return fmt.Sprintf("%c%c%d", prefix, d.Kind, d.ItemSize)
}

// Decode converts len(dst) elements from raw into dst.
func (d DType) Decode(raw []byte, dst []float64) error {
	if len(raw) < len(dst)*d.ItemSize {
		return fmt.Errorf("data truncated (%s): have %d bytes, need %d",
			d, len(raw), len(dst)*d.ItemSize)
	}

	order := d.Order
	switch {
	case d.Kind == 'u' && d.ItemSize == 1:
		for i := range dst {
			dst[i] = float64(raw[i])
		}
	case d.Kind == 'i' && d.ItemSize == 1:
		for i := range dst {
			dst[i] = float64(int8(raw[i]))
		}
	case d.Kind == 'u' && d.ItemSize == 2:
		for i := range dst {
			dst[i] = float64(order.Uint16(raw[i*2:]))
		}
	case d.Kind == 'i' && d.ItemSize == 2:
		for i := range dst {
			//nolint:gosec // G115: two's complement reinterpretation
			dst[i] = float64(int16(order.Uint16(raw[i*2:])))
		}
	case d.Kind == 'u' && d.ItemSize == 4:
		for i := range dst {
			dst[i] = float64(order.Uint32(raw[i*4:]))
		}
	case d.Kind == 'i' && d.ItemSize == 4:
		for i := range dst {
			//nolint:gosec // G115: two's complement reinterpretation
			dst[i] = float64(int32(order.Uint32(raw[i*4:])))
		}
	case d.Kind == 'u' && d.ItemSize == 8:
		for i := range dst {
			dst[i] = float64(order.Uint64(raw[i*8:]))
		}
	case d.Kind == 'i' && d.ItemSize == 8:
		for i := range dst {
			//nolint:gosec // G115: two's complement reinterpretation
			dst[i] = float64(int64(order.Uint64(raw[i*8:])))
		}
	case d.Kind == 'f' && d.ItemSize == 4:
		for i := range dst {
			dst[i] = float64(math.Float32frombits(order.Uint32(raw[i*4:])))
		}
	case d.Kind == 'f' && d.ItemSize == 8:
		for i := range dst {
			dst[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	default:
		return fmt.Errorf("unsupported dtype for conversion to float64: %s", d)
	}
	return nil
}

// Encode writes src into raw using this type. It is the inverse of Decode
// for values representable in the type and is used to produce fixtures.
func (d DType) Encode(src []float64, raw []byte) error {
	if len(raw) < len(src)*d.ItemSize {
		return fmt.Errorf("buffer too small (%s): have %d bytes, need %d",
			d, len(raw), len(src)*d.ItemSize)
	}

	order := d.Order
	for i, v := range src {
		switch {
		case d.ItemSize == 1:
			if d.Kind == 'i' {
				raw[i] = byte(int8(v))
			} else {
				raw[i] = byte(v)
			}
		case d.Kind == 'f' && d.ItemSize == 4:
			order.PutUint32(raw[i*4:], math.Float32bits(float32(v)))
		case d.Kind == 'f' && d.ItemSize == 8:
			order.PutUint64(raw[i*8:], math.Float64bits(v))
		case d.ItemSize == 2:
			if d.Kind == 'i' {
				order.PutUint16(raw[i*2:], uint16(int16(v)))
			} else {
				order.PutUint16(raw[i*2:], uint16(v))
			}
		case d.ItemSize == 4:
			if d.Kind == 'i' {
				order.PutUint32(raw[i*4:], uint32(int32(v)))
			} else {
				order.PutUint32(raw[i*4:], uint32(v))
			}
		case d.ItemSize == 8:
			if d.Kind == 'i' {
				order.PutUint64(raw[i*8:], uint64(int64(v)))
			} else {
				order.PutUint64(raw[i*8:], uint64(v))
			}
		default:
			return fmt.Errorf("unsupported dtype for encoding: %s", d)
		}
	}
	return nil
}
