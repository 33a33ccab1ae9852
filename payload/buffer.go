package payload

import (
	"encoding/binary"
	"fmt"
)

// NewBuffer instantiates a new *Buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		byName:  make(map[string]*Region),
		symbols: make(map[string]uint64),
	}
}

// Buffer assembles named regions and deferred references into one
// symbolic payload. The symbolic shape of the payload (region
// placement and sizes) is environment-invariant; only the reference
// values vary between contexts. Resolving the same buffer against two
// different contexts therefore yields byte sequences with identical
// region boundaries.
//
// A Buffer is not internally synchronized: construct it from a single
// goroutine. Resolve does not mutate the buffer, so once construction
// is complete, concurrent Resolve calls with different contexts are
// safe.
//
// Builder methods are chainable and latch the first error they
// encounter; it is surfaced by Err, Validate, and Resolve.
type Buffer struct {
	regions []*Region
	byName  map[string]*Region
	symbols map[string]uint64
	filler  PatternGenerator
	length  int
	bo      binary.ByteOrder
	err     error
}

// Err returns the first error latched by the builder methods, if any.
func (o *Buffer) Err() error {
	return o.err
}

// SetEndianness sets the endianness used to encode references when
// the context does not specify one.
func (o *Buffer) SetEndianness(order binary.ByteOrder) *Buffer {
	o.bo = order

	return o
}

// SetFiller sets the generator used to fill gaps between regions
// (and the tail of a fixed-length buffer). The default filler is
// zero bytes. A de Bruijn pattern makes offsets of accidental
// overwrites recoverable - see the pattern package.
func (o *Buffer) SetFiller(generator PatternGenerator) *Buffer {
	o.filler = generator

	return o
}

// SetLength fixes the buffer's total length. Content placed beyond
// this length fails validation. A length of zero (the default) means
// the buffer ends at the last region's end.
func (o *Buffer) SetLength(numBytes int) *Buffer {
	if o.err != nil {
		return o
	}

	if numBytes < 0 {
		o.err = fmt.Errorf("payload.buffer: length cannot be negative")
		return o
	}

	o.length = numBytes

	return o
}

// RegisterSymbol adds a buffer-local constant to the symbol table.
// Symbols registered here take precedence over context symbols of the
// same name. Names must be unique within the buffer.
func (o *Buffer) RegisterSymbol(name string, value uint64) *Buffer {
	if o.err != nil {
		return o
	}

	if o.nameTaken(name) {
		o.err = fmt.Errorf("payload.buffer: the name '%s' is already in use", name)
		return o
	}

	o.symbols[name] = value

	return o
}

// Add appends a region to the buffer. Unless the region declares an
// explicit offset (Region.At), it is placed immediately after the
// previous region's end - sequential layout is the default, mirroring
// how stack payloads are written top to bottom.
func (o *Buffer) Add(region *Region) *Buffer {
	if o.err != nil {
		return o
	}

	if region == nil {
		o.err = fmt.Errorf("payload.buffer: region cannot be nil")
		return o
	}

	err := region.Err()
	if err != nil {
		o.err = fmt.Errorf("payload.buffer: failed to add region '%s' - %w",
			region.Name(), err)
		return o
	}

	if region.Name() == "" {
		o.err = fmt.Errorf("payload.buffer: region name cannot be empty")
		return o
	}

	if o.nameTaken(region.Name()) {
		o.err = fmt.Errorf("payload.buffer: the name '%s' is already in use",
			region.Name())
		return o
	}

	o.regions = append(o.regions, region)
	o.byName[region.Name()] = region

	return o
}

// AddAt appends a region at an explicit byte offset. It is shorthand
// for Add(region.At(offset)).
func (o *Buffer) AddAt(region *Region, offset int) *Buffer {
	if region == nil {
		return o.Add(nil)
	}

	return o.Add(region.At(offset))
}

func (o *Buffer) nameTaken(name string) bool {
	_, isRegion := o.byName[name]
	if isRegion {
		return true
	}

	_, isSymbol := o.symbols[name]

	return isSymbol
}

// End returns the smallest buffer size that can accommodate all the
// regions (not necessarily the total length - see Len).
func (o *Buffer) End() (int, error) {
	p, err := o.place()
	if err != nil {
		return 0, err
	}

	return p.end, nil
}

// Len returns the buffer's total length: the length set with
// SetLength if one was set, otherwise the end of the last region.
func (o *Buffer) Len() (int, error) {
	p, err := o.place()
	if err != nil {
		return 0, err
	}

	return p.total(o.length), nil
}

// RegionsAt returns the names of the regions whose placed byte ranges
// overlap the half-open interval [start, stop), in ascending offset
// order. Useful for answering "what did I put at offset 0x28?".
func (o *Buffer) RegionsAt(start int, stop int) ([]string, error) {
	p, err := o.place()
	if err != nil {
		return nil, err
	}

	var names []string

	for _, pr := range p.sorted() {
		if pr.end <= start {
			continue
		}

		if pr.offset >= stop {
			break
		}

		names = append(names, pr.region.Name())
	}

	return names, nil
}
