package pattern

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
)

// DeBruijn generates a pattern string using a de Bruijn sequence.
// Every four-byte (and eight-byte) window of the sequence is unique,
// which makes it the filler of choice for payload buffers: when a
// fragment of the filler shows up in a register or a saved return
// address, its offset in the buffer can be recovered.
//
// The zero value is ready to use. DeBruijn implements the
// payload.PatternGenerator interface via Pattern.
//
// This code is heavily based on work by D3Ext:
// https://gist.github.com/D3Ext/845bdc6a22bbdd50fe409d78b7d59b96
type DeBruijn struct {
	// OptLogger logs the pattern string if specified.
	OptLogger *log.Logger
	t         int
	p         int
	n         int
	buf       *bytes.Buffer
	numCalls  int
}

const (
	deBruijnChars    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ012345689"
	deBruijnCharsLen = len(deBruijnChars)
)

// Pattern returns the first numBytes bytes of the de Bruijn sequence.
//
// Unlike WriteToN, Pattern always starts from the beginning of the
// sequence and does not advance the receiver's state. The same length
// yields the same bytes on every call, which is what a payload
// buffer's gap filler requires for deterministic resolves.
func (o *DeBruijn) Pattern(numBytes int) ([]byte, error) {
	fresh := DeBruijn{}

	buf := bytes.NewBuffer(nil)

	err := fresh.WriteToN(buf, numBytes)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteToNOrExit calls WriteToN and calls DefaultExitFn if an error occurs.
func (o *DeBruijn) WriteToNOrExit(w io.Writer, n int) {
	err := o.WriteToN(w, n)
	if err != nil {
		DefaultExitFn(fmt.Errorf("pattern.debruijn: failed to write pattern string number %d of size %d - %w",
			o.numCalls, n, err))
	}
}

// WriteToN writes n bytes of a de Bruijn pattern string to w.
// Subsequent calls to WriteToN will resume the de Bruijn sequence.
func (o *DeBruijn) WriteToN(w io.Writer, n int) error {
	if n <= 0 {
		return errors.New("n is less than or equal to zero")
	}

	if o.buf == nil {
		o.buf = bytes.NewBuffer(nil)
	}

	for o.buf.Len() < n {
		err := o.generate()
		if err != nil {
			return err
		}
	}

	if o.OptLogger != nil {
		o.OptLogger.Println("pattern string "+
			strconv.Itoa(o.numCalls)+":",
			string(o.buf.Bytes()[0:n]))
	}

	_, err := io.CopyN(w, o.buf, int64(n))
	if err != nil {
		return err
	}

	o.numCalls++

	return nil
}

func (o *DeBruijn) generate() error {
	o.n += 4

	if o.t == 0 {
		o.t = 1
	}

	if o.p == 0 {
		o.p = 1
	}

	a := make([]byte, deBruijnCharsLen*o.n)
	var seq []byte
	var db func(int, int)

	db = func(t, p int) {
		o.t = t
		o.p = p

		if t > o.n {
			if o.n%p == 0 {
				seq = append(seq, a[1:p+1]...)
			}
		} else {
			a[t] = a[t-p]

			db(t+1, p)

			for j := int(a[t-p] + 1); j < deBruijnCharsLen; j++ {
				a[t] = byte(j)

				db(t+1, t)
			}
		}
	}

	db(o.t, o.p)

	for _, i := range seq {
		err := o.buf.WriteByte(deBruijnChars[i])
		if err != nil {
			return err
		}
	}

	cp := o.buf.Bytes()[0 : o.n-1]

	_, err := o.buf.Write(cp)
	if err != nil {
		return err
	}

	return nil
}
