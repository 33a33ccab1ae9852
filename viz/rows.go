package viz

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gitlab.com/stephen-fox/pbkit/payload"
)

// EncodeRows writes the layout rows to w as msgpack, for consumption
// by an external plotting backend. No particular wire format is
// promised beyond field presence and ascending offset order - the
// rows are the interface, not the encoding.
func EncodeRows(w io.Writer, rows []payload.Row) error {
	err := msgpack.NewEncoder(w).Encode(rows)
	if err != nil {
		return fmt.Errorf("viz: failed to msgpack-encode rows - %w", err)
	}

	return nil
}

// DecodeRows reads layout rows previously written by EncodeRows.
func DecodeRows(r io.Reader) ([]payload.Row, error) {
	var rows []payload.Row

	err := msgpack.NewDecoder(r).Decode(&rows)
	if err != nil {
		return nil, fmt.Errorf("viz: failed to msgpack-decode rows - %w", err)
	}

	return rows, nil
}
