package conv

import (
	"bufio"
	"fmt"
	"io"
)

// bytesPerGoSliceLine keeps generated declarations within a typical
// source line width.
const bytesPerGoSliceLine = 12

// BytesToGoSlice writes b to w as a Go []byte declaration, for
// embedding a resolved payload in an exploit script.
func BytesToGoSlice(b []byte, w io.Writer) error {
	buffered := bufio.NewWriter(w)

	_, err := buffered.WriteString("[]byte{")
	if err != nil {
		return err
	}

	for i, value := range b {
		if i%bytesPerGoSliceLine == 0 {
			_, err = buffered.WriteString("\n\t")
			if err != nil {
				return err
			}
		} else {
			err = buffered.WriteByte(' ')
			if err != nil {
				return err
			}
		}

		_, err = fmt.Fprintf(buffered, "0x%02x,", value)
		if err != nil {
			return err
		}
	}

	if len(b) > 0 {
		err = buffered.WriteByte('\n')
		if err != nil {
			return err
		}
	}

	_, err = buffered.WriteString("}\n")
	if err != nil {
		return err
	}

	return buffered.Flush()
}
