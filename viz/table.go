// Package viz renders payload layout reports for humans and for
// external plotting backends. It only formats the rows produced by
// the payload package - it never computes placement itself.
package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gitlab.com/stephen-fox/pbkit/payload"
)

// TableOptions configures WriteTable.
type TableOptions struct {
	// Colorized enables per-tag ANSI colors. Rows sharing a main
	// tag (their first tag) share a color, making the fragments of
	// one ROP chain stand out from another's.
	Colorized bool
}

// tagPalette is cycled through as new main tags are encountered.
var tagPalette = []color.Attribute{
	color.FgGreen,
	color.FgYellow,
	color.FgBlue,
	color.FgMagenta,
	color.FgCyan,
	color.FgRed,
}

// WriteTable writes a layout report to w, one row per region:
//
//	00-0c ( c): 00000000    pad
//	0c-10 ( 4): target_addr ret (chain A)
//
// Offsets are hexadecimal, padded to the width of the report's
// largest offset.
func WriteTable(w io.Writer, rows []payload.Row, options TableOptions) error {
	if len(rows) == 0 {
		return nil
	}

	hexW := hexDigits(reportEnd(rows))

	previewW := 0
	for _, row := range rows {
		if len(row.Preview) > previewW {
			previewW = len(row.Preview)
		}
	}

	colors := newTagColors()

	for _, row := range rows {
		line := fmt.Sprintf("%0*x-%0*x (%*x): %-*s %s",
			hexW, row.Offset,
			hexW, row.Offset+row.Length,
			hexW, row.Length,
			previewW, row.Preview,
			row.Name)

		if len(row.Tags) > 0 {
			line += " (" + strings.Join(row.Tags, ", ") + ")"
		}

		if options.Colorized {
			line = colors.colorize(mainTag(row), line)
		}

		_, err := fmt.Fprintln(w, line)
		if err != nil {
			return err
		}
	}

	return nil
}

func mainTag(row payload.Row) string {
	if len(row.Tags) == 0 {
		return ""
	}

	return row.Tags[0]
}

func reportEnd(rows []payload.Row) int {
	end := 0

	for _, row := range rows {
		if row.Offset+row.Length > end {
			end = row.Offset + row.Length
		}
	}

	return end
}

func hexDigits(value int) int {
	digits := 1

	for value > 0xf {
		value >>= 4
		digits++
	}

	return digits
}

func newTagColors() *tagColors {
	return &tagColors{
		assigned: make(map[string]*color.Color),
	}
}

type tagColors struct {
	assigned map[string]*color.Color
	next     int
}

func (o *tagColors) colorize(tag string, line string) string {
	c, hasIt := o.assigned[tag]
	if !hasIt {
		c = color.New(tagPalette[o.next%len(tagPalette)])
		o.assigned[tag] = c
		o.next++
	}

	return c.Sprint(line)
}
