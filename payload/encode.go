package payload

import (
	"encoding/binary"
	"fmt"
)

// EncodeUint converts value to a byte sequence of exactly width bytes
// in the specified byte order. It fails with an *EncodingError if
// value does not fit in width bytes.
func EncodeUint(value uint64, width int, bo binary.ByteOrder) ([]byte, error) {
	err := checkWidth(width, bo)
	if err != nil {
		return nil, err
	}

	if width < 8 && value>>(uint(width)*8) != 0 {
		return nil, &EncodingError{Value: value, Width: width}
	}

	return encodeRaw(value, width, bo), nil
}

// EncodeInt converts value to a byte sequence of exactly width bytes
// in the specified byte order. Negative values are encoded via
// two's-complement wraparound, matching the common exploit-dev
// convention of allowing small negative offsets. It fails with an
// *EncodingError if value does not fit in width bytes.
func EncodeInt(value int64, width int, bo binary.ByteOrder) ([]byte, error) {
	if value >= 0 {
		return EncodeUint(uint64(value), width, bo)
	}

	err := checkWidth(width, bo)
	if err != nil {
		return nil, err
	}

	if width < 8 && value < -(int64(1)<<(uint(width)*8-1)) {
		return nil, &EncodingError{Value: uint64(value), Width: width}
	}

	return encodeRaw(uint64(value), width, bo), nil
}

// encodeEvaluated encodes an evaluated reference value. The value is
// accepted if it fits width bytes either as an unsigned integer or as
// a sign-extended negative one (references may legitimately evaluate
// to small negative deltas, e.g. "base - 8").
func encodeEvaluated(value uint64, width int, bo binary.ByteOrder) ([]byte, error) {
	b, err := EncodeUint(value, width, bo)
	if err == nil {
		return b, nil
	}

	if int64(value) < 0 {
		return EncodeInt(int64(value), width, bo)
	}

	return nil, err
}

func checkWidth(width int, bo binary.ByteOrder) error {
	if bo == nil {
		return fmt.Errorf("byte order cannot be nil")
	}

	if width <= 0 || width > 8 {
		return fmt.Errorf("width must be between 1 and 8 bytes - got %d", width)
	}

	return nil
}

func encodeRaw(value uint64, width int, bo binary.ByteOrder) []byte {
	tmp := make([]byte, 8)

	binary.LittleEndian.PutUint64(tmp, value)

	out := make([]byte, width)

	if bo.String() == binary.BigEndian.String() {
		for i := 0; i < width; i++ {
			out[width-1-i] = tmp[i]
		}
	} else {
		copy(out, tmp[0:width])
	}

	return out
}
