package payload

import (
	"encoding/binary"
	"fmt"
	"sort"

	"gitlab.com/stephen-fox/pbkit/target"
)

// Resolution happens in four ordered passes:
//
//  1. Placement: compute every region's final byte offset.
//  2. Overlap validation: fail if any two placed ranges intersect.
//  3. Reference evaluation: evaluate every reference against the
//     context and the pass-1 offsets, batching all failures.
//  4. Encoding: encode literals and evaluated references, in offset
//     order, into the final byte sequence.
//
// The ordering is the load-bearing part: because offsets of all
// regions are known before any reference is evaluated, "region B's
// base + 16" can be expressed before region A's own length is final.
// Passes 1-2 are context-independent, so the payload's shape is
// identical across contexts.

type placedRegion struct {
	region *Region
	offset int
	length int
	end    int
}

type placement struct {
	placed  []placedRegion
	offsets map[string]int
	lengths map[string]int
	end     int
}

func (o *placement) total(declaredLength int) int {
	if declaredLength > 0 {
		return declaredLength
	}

	return o.end
}

// sorted returns the placed regions in ascending offset order.
// The sort is stable so that regions sharing an offset keep their
// insertion order.
func (o *placement) sorted() []placedRegion {
	cp := make([]placedRegion, len(o.placed))

	copy(cp, o.placed)

	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].offset < cp[j].offset
	})

	return cp
}

// place is pass 1. Explicit offsets are taken as-is; other regions
// are placed at the previous region's end. Region lengths never
// depend on other regions' offsets, so this pass needs no context.
func (o *Buffer) place() (*placement, error) {
	if o.err != nil {
		return nil, o.err
	}

	p := &placement{
		offsets: make(map[string]int, len(o.regions)),
		lengths: make(map[string]int, len(o.regions)),
	}

	cursor := 0

	for _, region := range o.regions {
		length, err := region.declaredLen()
		if err != nil {
			return nil, fmt.Errorf("payload.buffer: %w", err)
		}

		offset := region.placeAt
		if offset < 0 {
			offset = cursor
		}

		end := offset + length

		p.placed = append(p.placed, placedRegion{
			region: region,
			offset: offset,
			length: length,
			end:    end,
		})

		p.offsets[region.Name()] = offset
		p.lengths[region.Name()] = length

		cursor = end

		if end > p.end {
			p.end = end
		}
	}

	if o.length > 0 && p.end > o.length {
		return nil, fmt.Errorf("payload.buffer: content ends at 0x%x which is beyond the buffer length 0x%x",
			p.end, o.length)
	}

	return p, nil
}

// checkOverlaps is pass 2. Zero-length regions may sit exactly at
// another region's boundary (or anywhere - their byte range is empty).
func (o *Buffer) checkOverlaps(p *placement) error {
	var havePrev bool
	var maxSoFar placedRegion

	for _, pr := range p.sorted() {
		if havePrev && pr.length > 0 && pr.offset < maxSoFar.end {
			return &OverlapError{
				RegionA: maxSoFar.region.Name(),
				StartA:  maxSoFar.offset,
				EndA:    maxSoFar.end,
				RegionB: pr.region.Name(),
				StartB:  pr.offset,
				EndB:    pr.end,
			}
		}

		if !havePrev || pr.end > maxSoFar.end {
			maxSoFar = pr
			havePrev = true
		}
	}

	return nil
}

// Validate checks the buffer's structure (placement and overlaps)
// without a context. It lets payload construction mistakes surface
// before any target environment exists; references' values are never
// touched.
func (o *Buffer) Validate() error {
	p, err := o.place()
	if err != nil {
		return err
	}

	return o.checkOverlaps(p)
}

// ValidateOrExit calls Validate. It calls DefaultExitFn if an
// error occurs.
func (o *Buffer) ValidateOrExit() {
	err := o.Validate()
	if err != nil {
		DefaultExitFn(fmt.Errorf("payload.buffer: failed to validate - %w", err))
	}
}

// Resolve turns the symbolic buffer into concrete bytes for the
// specified context. Refer to the pass documentation at the top of
// this file for the algorithm.
//
// Reference-evaluation failures are batched into a *ResolutionError
// so that every broken placeholder is reported in one attempt.
// Encoding failures are reported immediately - they can only be
// known after evaluation succeeds.
//
// Resolve does not mutate the buffer beyond sealing the regions
// against further content mutation. Resolving twice with the same
// context yields byte-identical output.
func (o *Buffer) Resolve(ctx target.Context) ([]byte, error) {
	p, err := o.place()
	if err != nil {
		return nil, err
	}

	err = o.checkOverlaps(p)
	if err != nil {
		return nil, err
	}

	for _, region := range o.regions {
		region.sealed.Store(true)
	}

	st := &evalState{
		symbols:  o.symbols,
		ctx:      ctx.Symbols,
		offsets:  p.offsets,
		lengths:  p.lengths,
		visiting: make(map[*Placeholder]struct{}),
	}

	// Pass 3.
	values := make([][]uint64, len(o.regions))

	var evalErrs []error

	for i, region := range o.regions {
		values[i] = make([]uint64, len(region.items))

		for j, item := range region.items {
			if item.ref == nil {
				continue
			}

			value, err := item.ref.eval(st)
			if err != nil {
				evalErrs = append(evalErrs, fmt.Errorf("region '%s' item %d (%s) - %w",
					region.Name(), j, item.ref, err))
				continue
			}

			values[i][j] = value
		}
	}

	if len(evalErrs) > 0 {
		return nil, &ResolutionError{Errs: evalErrs}
	}

	// Pass 4.
	out, err := o.newFilledBuffer(p.total(o.length))
	if err != nil {
		return nil, err
	}

	for i, pr := range p.placed {
		at := pr.offset
		bo := o.encodingOrder(pr.region, ctx)

		for j, item := range pr.region.items {
			if item.ref == nil {
				copy(out[at:], item.lit)
				at += len(item.lit)
				continue
			}

			b, err := encodeEvaluated(values[i][j], item.width, bo)
			if err != nil {
				return nil, fmt.Errorf("payload.buffer: region '%s' item %d (%s) - %w",
					pr.region.Name(), j, item.ref, err)
			}

			copy(out[at:], b)
			at += item.width
		}
	}

	return out, nil
}

// ResolveOrExit calls Resolve. It calls DefaultExitFn if an
// error occurs.
func (o *Buffer) ResolveOrExit(ctx target.Context) []byte {
	b, err := o.Resolve(ctx)
	if err != nil {
		DefaultExitFn(fmt.Errorf("payload.buffer: failed to resolve - %w", err))
	}

	return b
}

func (o *Buffer) encodingOrder(region *Region, ctx target.Context) binary.ByteOrder {
	if region.bo != nil {
		return region.bo
	}

	if ctx.ByteOrder != nil {
		return ctx.ByteOrder
	}

	if o.bo != nil {
		return o.bo
	}

	return binary.LittleEndian
}

func (o *Buffer) newFilledBuffer(total int) ([]byte, error) {
	out := make([]byte, total)

	if o.filler == nil || total == 0 {
		return out, nil
	}

	b, err := o.filler.Pattern(total)
	if err != nil {
		return nil, fmt.Errorf("payload.buffer: filler failed - %w", err)
	}

	copy(out, b)

	return out, nil
}
