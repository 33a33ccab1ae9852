// Package conv converts payload data between human-oriented formats
// (hex blobs, Go source declarations) and raw bytes.
package conv

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// HexToBytes reads hexadecimal characters from r and decodes them
// into a []byte. Whitespace, commas, and "0x" prefixes are ignored,
// as are C comments ("//" and "/* */"). That allows pasting gadget
// bytes straight out of a disassembler listing or a C array.
func HexToBytes(r io.Reader) ([]byte, error) {
	src := bufio.NewReader(r)

	var hexChars []byte

	const (
		stateData = iota
		stateLineComment
		stateBlockComment
	)

	state := stateData

	var prev byte

	for {
		b, err := src.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("conv: failed to read next byte - %w", err)
		}

		switch state {
		case stateLineComment:
			if b == '\n' {
				state = stateData
			}
		case stateBlockComment:
			if prev == '*' && b == '/' {
				state = stateData
				b = 0
			}
		default:
			switch {
			case prev == '/' && b == '/':
				state = stateLineComment
			case prev == '/' && b == '*':
				state = stateBlockComment
				b = 0
			case (b == 'x' || b == 'X') && len(hexChars) > 0 && hexChars[len(hexChars)-1] == '0':
				// "0x" prefix - drop the leading zero.
				hexChars = hexChars[0 : len(hexChars)-1]
			case isHexChar(b):
				hexChars = append(hexChars, b)
			}
		}

		prev = b
	}

	if state == stateBlockComment {
		return nil, errors.New("conv: unterminated '/*' comment")
	}

	if len(hexChars)%2 != 0 {
		return nil, fmt.Errorf("conv: odd number of hex characters (%d)", len(hexChars))
	}

	decoded := make([]byte, hex.DecodedLen(len(hexChars)))

	_, err := hex.Decode(decoded, hexChars)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to hex decode data - %w", err)
	}

	return decoded, nil
}

func isHexChar(b byte) bool {
	return (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') || (b >= '0' && b <= '9')
}
