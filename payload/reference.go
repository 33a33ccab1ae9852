package payload

import (
	"fmt"
)

// A Reference is a deferred value. It is evaluated only at resolve
// time, against the context's symbols, the buffer's symbol table, and
// the computed region offsets.
//
// References are immutable once created. Placeholder is the one
// exception: it may be bound to another Reference exactly once.
type Reference interface {
	fmt.Stringer

	eval(st *evalState) (uint64, error)
}

// evalState is the transient per-resolve state handed to reference
// evaluation. It is created and discarded per resolve call - nothing
// in it outlives the call.
type evalState struct {
	symbols  map[string]uint64
	ctx      map[string]uint64
	offsets  map[string]int
	lengths  map[string]int
	visiting map[*Placeholder]struct{}
}

// Sym returns a Reference that resolves the named symbol. The buffer's
// symbol table is consulted first, then the context.
func Sym(name string) Reference {
	return symRef(name)
}

type symRef string

func (o symRef) String() string {
	return string(o)
}

func (o symRef) eval(st *evalState) (uint64, error) {
	value, hasIt := st.symbols[string(o)]
	if hasIt {
		return value, nil
	}

	value, hasIt = st.ctx[string(o)]
	if hasIt {
		return value, nil
	}

	return 0, &UnresolvedSymbolError{Symbol: string(o)}
}

// Lit returns a Reference with a fixed unsigned value.
func Lit(value uint64) Reference {
	return litRef(value)
}

type litRef uint64

func (o litRef) String() string {
	return fmt.Sprintf("0x%x", uint64(o))
}

func (o litRef) eval(*evalState) (uint64, error) {
	return uint64(o), nil
}

// LitInt returns a Reference with a fixed signed value. Negative
// values wrap around when encoded.
func LitInt(value int64) Reference {
	return intLitRef(value)
}

type intLitRef int64

func (o intLitRef) String() string {
	return fmt.Sprintf("%d", int64(o))
}

func (o intLitRef) eval(*evalState) (uint64, error) {
	return uint64(o), nil
}

// Add returns a Reference evaluating to a + b. Overflow beyond the
// encoding width is not an error here - it is caught when the result
// is encoded.
func Add(a Reference, b Reference) Reference {
	return &binRef{op: '+', a: a, b: b}
}

// Sub returns a Reference evaluating to a - b. Underflow wraps; it is
// caught when the result is encoded if it does not fit the declared
// width.
func Sub(a Reference, b Reference) Reference {
	return &binRef{op: '-', a: a, b: b}
}

type binRef struct {
	op byte
	a  Reference
	b  Reference
}

func (o *binRef) String() string {
	return fmt.Sprintf("(%s %c %s)", o.a, o.op, o.b)
}

func (o *binRef) eval(st *evalState) (uint64, error) {
	a, err := o.a.eval(st)
	if err != nil {
		return 0, err
	}

	b, err := o.b.eval(st)
	if err != nil {
		return 0, err
	}

	if o.op == '-' {
		return a - b, nil
	}

	return a + b, nil
}

// OffsetOf returns a Reference evaluating to the named region's final
// base offset within the buffer. Offsets of all regions are computed
// before any reference is evaluated, so a region may refer to the
// offset of any other region, including ones added after it.
func OffsetOf(regionName string) Reference {
	return offsetRef(regionName)
}

type offsetRef string

func (o offsetRef) String() string {
	return fmt.Sprintf("off(%s)", string(o))
}

func (o offsetRef) eval(st *evalState) (uint64, error) {
	offset, hasIt := st.offsets[string(o)]
	if !hasIt {
		return 0, &UnresolvedSymbolError{Symbol: string(o)}
	}

	return uint64(offset), nil
}

// SizeOf returns a Reference evaluating to the named region's declared
// length in bytes.
func SizeOf(regionName string) Reference {
	return sizeRef(regionName)
}

type sizeRef string

func (o sizeRef) String() string {
	return fmt.Sprintf("size(%s)", string(o))
}

func (o sizeRef) eval(st *evalState) (uint64, error) {
	length, hasIt := st.lengths[string(o)]
	if !hasIt {
		return 0, &UnresolvedSymbolError{Symbol: string(o)}
	}

	return uint64(length), nil
}

// NewPlaceholder creates a late-bound Reference. A Placeholder can be
// appended to a region before the expression it stands for exists,
// and bound later with Bind. An unbound Placeholder fails resolution
// with an *UnresolvedSymbolError.
func NewPlaceholder(name string) *Placeholder {
	return &Placeholder{name: name}
}

// Placeholder is a Reference whose expression is supplied after
// creation. Binding happens once; the payload author is expected to
// bind every placeholder before resolving.
type Placeholder struct {
	name string
	ref  Reference
}

// Bind sets the expression the Placeholder stands for. Binding twice
// is an error.
func (o *Placeholder) Bind(ref Reference) error {
	if o.ref != nil {
		return fmt.Errorf("placeholder '%s' is already bound", o.name)
	}

	o.ref = ref

	return nil
}

// BindOrExit calls Bind. It calls DefaultExitFn if an error occurs.
func (o *Placeholder) BindOrExit(ref Reference) {
	err := o.Bind(ref)
	if err != nil {
		DefaultExitFn(fmt.Errorf("payload.reference: failed to bind placeholder - %w", err))
	}
}

func (o *Placeholder) String() string {
	if o.ref == nil {
		return o.name + "?"
	}

	return o.name
}

// eval detects self-referential bindings with a visitation marker
// rather than a static check, because expressions are built
// dynamically and a cycle only exists once binding has happened.
func (o *Placeholder) eval(st *evalState) (uint64, error) {
	if o.ref == nil {
		return 0, &UnresolvedSymbolError{Symbol: o.name}
	}

	_, visiting := st.visiting[o]
	if visiting {
		return 0, &CyclicReferenceError{Name: o.name}
	}

	st.visiting[o] = struct{}{}

	value, err := o.ref.eval(st)

	delete(st.visiting, o)

	return value, err
}
