package payload

import (
	"encoding/hex"
	"strings"

	"gitlab.com/stephen-fox/pbkit/target"
)

// previewLen is the number of leading bytes shown in a resolved
// content preview.
const previewLen = 4

// Row is one line of a layout report: a region's placement plus a
// short content preview. Rows are produced in ascending offset order
// and are meant to be handed to a rendering sink (see the viz
// package) - this package never draws anything itself.
type Row struct {
	// Offset is the region's base offset within the buffer.
	Offset int

	// Length is the region's length in bytes.
	Length int

	// Name is the region's name.
	Name string

	// Tags are the region's tags, if any.
	Tags []string

	// Preview is a short description of the region's content:
	// hex-encoded leading bytes for resolved content, reference
	// description strings for symbolic content.
	Preview string

	// Symbolic reports whether Preview is symbolic rather than
	// resolved bytes.
	Symbolic bool
}

// Layout produces the buffer's layout report. With a nil context the
// previews are symbolic. With a context, previews show resolved
// bytes; regions whose references cannot be evaluated fall back to
// symbolic previews, so a partially-broken buffer still renders.
//
// Unlike Validate, Layout tolerates overlapping regions - rendering
// the broken layout is exactly what makes the overlap diagnosable.
func (o *Buffer) Layout(optCtx *target.Context) ([]Row, error) {
	p, err := o.place()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(o.regions))

	for _, pr := range p.sorted() {
		row := Row{
			Offset:   pr.offset,
			Length:   pr.length,
			Name:     pr.region.Name(),
			Tags:     pr.region.Tags(),
			Preview:  pr.region.symbolicPreview(),
			Symbolic: true,
		}

		if optCtx != nil {
			preview, ok := o.resolvedPreview(pr.region, p, *optCtx)
			if ok {
				row.Preview = preview
				row.Symbolic = false
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// LayoutOrExit calls Layout. It calls DefaultExitFn if an error occurs.
func (o *Buffer) LayoutOrExit(optCtx *target.Context) []Row {
	rows, err := o.Layout(optCtx)
	if err != nil {
		DefaultExitFn(err)
	}

	return rows
}

func (o *Buffer) resolvedPreview(region *Region, p *placement, ctx target.Context) (string, bool) {
	st := &evalState{
		symbols:  o.symbols,
		ctx:      ctx.Symbols,
		offsets:  p.offsets,
		lengths:  p.lengths,
		visiting: make(map[*Placeholder]struct{}),
	}

	bo := o.encodingOrder(region, ctx)

	var b []byte

	for _, item := range region.items {
		if len(b) >= previewLen {
			break
		}

		if item.ref == nil {
			b = append(b, item.lit...)
			continue
		}

		value, err := item.ref.eval(st)
		if err != nil {
			return "", false
		}

		encoded, err := encodeEvaluated(value, item.width, bo)
		if err != nil {
			return "", false
		}

		b = append(b, encoded...)
	}

	if len(b) > previewLen {
		b = b[0:previewLen]
	}

	return hex.EncodeToString(b), true
}

// symbolicPreview describes the first content items without
// evaluating anything.
func (o *Region) symbolicPreview() string {
	if len(o.items) == 0 {
		return ""
	}

	var parts []string

	for _, item := range o.items {
		if len(parts) == 2 {
			parts = append(parts, "...")
			break
		}

		if item.ref != nil {
			parts = append(parts, item.ref.String())
			continue
		}

		lit := item.lit
		if len(lit) > previewLen {
			lit = lit[0:previewLen]
		}

		parts = append(parts, hex.EncodeToString(lit))
	}

	return strings.Join(parts, " ")
}
