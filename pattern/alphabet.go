package pattern

import (
	"bytes"
	"strconv"
)

// Alphabet generates a human-readable pattern of alternating letters
// and digits ("a0b0c0..."). It is easier to eyeball in a debugger
// than a de Bruijn sequence, at the cost of longer repeat windows.
//
// The zero value starts at 'a'. Alphabet implements the
// payload.PatternGenerator interface.
type Alphabet struct {
	// AlphabetIndex is the index of the next letter.
	AlphabetIndex int

	// CurrentNum is the digit interleaved with the letters.
	CurrentNum uint8
}

const alphabetChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Pattern generates numBytes bytes of the pattern starting from the
// receiver's configured position. The receiver is not modified, so
// repeated calls yield identical bytes.
func (o *Alphabet) Pattern(numBytes int) ([]byte, error) {
	index := o.AlphabetIndex
	num := o.CurrentNum

	result := bytes.NewBuffer(nil)

	for i := 0; i < numBytes; i++ {
		if i%2 == 0 {
			result.WriteByte(alphabetChars[index])

			if index < len(alphabetChars)-1 {
				index++
			} else {
				index = 0
				num++
			}
		} else {
			result.WriteString(strconv.Itoa(int(num % 10)))
		}
	}

	return result.Bytes(), nil
}
