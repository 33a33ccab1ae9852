package payload

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// PatternGenerator abstracts pattern string generators.
type PatternGenerator interface {
	// Pattern generates a pattern string as a []byte of the
	// specified length. Implementations used as buffer fillers
	// must be deterministic: the same length yields the same
	// bytes on every call.
	Pattern(numBytes int) ([]byte, error)
}

// NewRegion creates a new *Region with the specified name. Region
// names must be unique within a buffer.
//
// By default a region is placed immediately after the previous region
// in the buffer and its length is determined by its content. Use At
// and FixLen to override either.
func NewRegion(name string) *Region {
	return &Region{
		name:     name,
		placeAt:  -1,
		fixedLen: -1,
	}
}

// Region is a named, ordered span of payload content: literal bytes
// and deferred references. It implements the "builder pattern" -
// content methods are chainable and the first error encountered is
// latched and surfaced when the region is added to a buffer.
//
// For methods that take endianness as an optional argument, the
// default is little endian. The default endianness can be overridden
// using SetEndianness.
//
// Once a region has taken part in a resolve it is sealed: further
// content mutation fails with a *RegionSealedError.
type Region struct {
	name     string
	tags     []string
	placeAt  int
	fixedLen int
	items    []contentItem
	bo       binary.ByteOrder
	sealed   atomic.Bool
	err      error
}

// contentItem is either a literal byte span (lit) or a deferred
// reference with its declared encoded width.
type contentItem struct {
	lit   []byte
	ref   Reference
	width int
}

// Name returns the region's name.
func (o *Region) Name() string {
	return o.name
}

// Err returns the first error latched by the builder methods, if any.
func (o *Region) Err() error {
	return o.err
}

// At places the region at an explicit byte offset instead of
// sequentially after the previous region.
func (o *Region) At(offset int) *Region {
	if !o.mutable() {
		return o
	}

	if offset < 0 {
		o.err = fmt.Errorf("region '%s': offset cannot be negative", o.name)
		return o
	}

	o.placeAt = offset

	return o
}

// FixLen declares the region's total length. The content's encoded
// widths must sum to exactly this value by the time the buffer is
// resolved.
func (o *Region) FixLen(numBytes int) *Region {
	if !o.mutable() {
		return o
	}

	if numBytes < 0 {
		o.err = fmt.Errorf("region '%s': length cannot be negative", o.name)
		return o
	}

	o.fixedLen = numBytes

	return o
}

// Tag attaches the specified tags to the region. Tags carry through
// to layout reports, where they group and color related regions
// (e.g., all fragments of one ROP chain).
func (o *Region) Tag(tags ...string) *Region {
	if !o.mutable() {
		return o
	}

	o.tags = append(o.tags, tags...)

	return o
}

// Tags returns the region's tags.
func (o *Region) Tags() []string {
	return o.tags
}

// SetEndianness sets the default endianness for the methods that take
// endianness as an optional argument.
func (o *Region) SetEndianness(order binary.ByteOrder) *Region {
	o.bo = order

	return o
}

func (o *Region) getEndianness(optOrder ...binary.ByteOrder) binary.ByteOrder {
	switch len(optOrder) {
	case 0:
		if o.bo == nil {
			return binary.LittleEndian
		}
		return o.bo
	case 1:
		return optOrder[0]
	default:
		panic("only one binary.ByteOrder may be specified")
	}
}

// Bytes appends the specified []byte to the region's content.
func (o *Region) Bytes(b []byte) *Region {
	if !o.mutable() {
		return o
	}

	cp := make([]byte, len(b))

	copy(cp, b)

	o.items = append(o.items, contentItem{lit: cp, width: len(cp)})

	return o
}

// Byte appends the specified byte to the region's content.
func (o *Region) Byte(b byte) *Region {
	return o.Bytes([]byte{b})
}

// String appends the specified string to the region's content.
func (o *Region) String(str string) *Region {
	return o.Bytes([]byte(str))
}

// RepeatBytes repeatedly appends the specified []byte to the
// region's content.
func (o *Region) RepeatBytes(b []byte, count int) *Region {
	if !o.mutable() {
		return o
	}

	if count < 0 {
		o.err = fmt.Errorf("region '%s': repeat count cannot be negative", o.name)
		return o
	}

	return o.Bytes(bytes.Repeat(b, count))
}

// RepeatString repeatedly appends the specified string to the
// region's content.
func (o *Region) RepeatString(str string, count int) *Region {
	return o.RepeatBytes([]byte(str), count)
}

// Uint32 appends an unsigned 32-bit integer to the region's content.
// The endianness can be specified by the optOrder argument. If the
// optOrder argument is unspecified, the default endianness set by
// SetEndianness will be used.
func (o *Region) Uint32(u uint32, optOrder ...binary.ByteOrder) *Region {
	if !o.mutable() {
		return o
	}

	b := make([]byte, 4)

	o.getEndianness(optOrder...).PutUint32(b, u)

	o.items = append(o.items, contentItem{lit: b, width: 4})

	return o
}

// Uint64 appends an unsigned 64-bit integer to the region's content.
// The endianness can be specified by the optOrder argument. If the
// optOrder argument is unspecified, the default endianness set by
// SetEndianness will be used.
func (o *Region) Uint64(u uint64, optOrder ...binary.ByteOrder) *Region {
	if !o.mutable() {
		return o
	}

	b := make([]byte, 8)

	o.getEndianness(optOrder...).PutUint64(b, u)

	o.items = append(o.items, contentItem{lit: b, width: 8})

	return o
}

// Ref appends a deferred reference with the specified encoded width
// in bytes. The reference is evaluated and encoded at resolve time
// using the context's endianness (or the region's, if set with
// SetEndianness).
func (o *Region) Ref(ref Reference, width int) *Region {
	if !o.mutable() {
		return o
	}

	if ref == nil {
		o.err = fmt.Errorf("region '%s': reference cannot be nil", o.name)
		return o
	}

	if width <= 0 || width > 8 {
		o.err = fmt.Errorf("region '%s': reference width must be between 1 and 8 bytes - got %d",
			o.name, width)
		return o
	}

	o.items = append(o.items, contentItem{ref: ref, width: width})

	return o
}

// Pattern appends the specified number of bytes from the
// PatternGenerator to the region's content.
func (o *Region) Pattern(generator PatternGenerator, numBytes int) *Region {
	if !o.mutable() {
		return o
	}

	b, err := generator.Pattern(numBytes)
	if err != nil {
		o.err = fmt.Errorf("region '%s': pattern generator failed - %w", o.name, err)
		return o
	}

	o.items = append(o.items, contentItem{lit: b, width: len(b)})

	return o
}

func (o *Region) mutable() bool {
	if o.err != nil {
		return false
	}

	if o.sealed.Load() {
		o.err = &RegionSealedError{Region: o.name}
		return false
	}

	return true
}

// declaredLen returns the region's total width in bytes: the sum of
// the content items' encoded widths. If a fixed length was declared
// with FixLen, the sum must match it exactly.
func (o *Region) declaredLen() (int, error) {
	sum := 0

	for _, item := range o.items {
		sum += item.width
	}

	if o.fixedLen >= 0 && sum != o.fixedLen {
		return 0, fmt.Errorf("region '%s': content is %d bytes but the declared length is %d",
			o.name, sum, o.fixedLen)
	}

	return sum, nil
}
