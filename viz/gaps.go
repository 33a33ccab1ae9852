package viz

import (
	"fmt"
	"io"
	"sort"

	"gitlab.com/stephen-fox/pbkit/payload"
)

// WriteGaps writes the unoccupied ranges between rows to w, flagging
// colliding rows along the way:
//
//	00-10 (10)
//	collision at 14-1c ( 8) overlaps 18-20 ( 8)
//
// Gaps are where the buffer's filler ends up; collisions are what
// Validate would reject. Rendering both makes a broken layout
// diagnosable at a glance.
func WriteGaps(w io.Writer, rows []payload.Row) error {
	if len(rows) == 0 {
		return nil
	}

	sorted := make([]payload.Row, len(rows))

	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	hexW := hexDigits(reportEnd(sorted))

	if sorted[0].Offset > 0 {
		err := writeGapLine(w, hexW, 0, sorted[0].Offset)
		if err != nil {
			return err
		}
	}

	for i := 0; i < len(sorted)-1; i++ {
		iEnd := sorted[i].Offset + sorted[i].Length

		for j := i + 1; j < len(sorted); j++ {
			if iEnd <= sorted[j].Offset {
				break
			}

			_, err := fmt.Fprintf(w, "collision at %0*x-%0*x (%*x) overlaps %0*x-%0*x (%*x)\n",
				hexW, sorted[i].Offset,
				hexW, iEnd,
				hexW, sorted[i].Length,
				hexW, sorted[j].Offset,
				hexW, sorted[j].Offset+sorted[j].Length,
				hexW, sorted[j].Length)
			if err != nil {
				return err
			}
		}

		if sorted[i+1].Offset > iEnd {
			err := writeGapLine(w, hexW, iEnd, sorted[i+1].Offset)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func writeGapLine(w io.Writer, hexW int, start int, end int) error {
	_, err := fmt.Fprintf(w, "%0*x-%0*x (%*x)\n",
		hexW, start,
		hexW, end,
		hexW, end-start)

	return err
}
