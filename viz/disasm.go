package viz

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// DisassembleX86 decodes b as x86 instructions and returns one
// Intel-syntax line per instruction. bits must be 32 or 64.
//
// This is a debugging aid for eyeballing resolved gadget and
// dispatcher-stub regions - it does not locate gadgets.
func DisassembleX86(b []byte, bits int) ([]string, error) {
	if bits != 32 && bits != 64 {
		return nil, fmt.Errorf("viz: unsupported bits: %d", bits)
	}

	var lines []string

	for index := 0; index < len(b); {
		inst, err := x86asm.Decode(b[index:], bits)
		if err != nil {
			return lines, fmt.Errorf("viz: failed to decode instruction at offset 0x%x - %w",
				index, err)
		}

		lines = append(lines, x86asm.IntelSyntax(inst, uint64(index), nil))

		index += inst.Len
	}

	return lines, nil
}
