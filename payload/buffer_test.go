package payload

import (
	"bytes"
	"errors"
	"testing"

	"gitlab.com/stephen-fox/pbkit/target"
)

func TestResolve_EndToEnd(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("pad").RepeatBytes([]byte{0x00}, 12)).
		Add(NewRegion("ret").Ref(Sym("target_addr"), 4))

	out, err := buf.Resolve(target.X86_32().WithSymbol("target_addr", 0xdeadbeef))
	if err != nil {
		t.Fatal(err)
	}

	exp := append(bytes.Repeat([]byte{0x00}, 12), 0xef, 0xbe, 0xad, 0xde)
	if !bytes.Equal(out, exp) {
		t.Fatalf("expected 0x%x - got 0x%x", exp, out)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("pad").RepeatString("A", 8)).
		Add(NewRegion("ret").Ref(Sym("target_addr"), 8))

	ctx := target.X86_64().WithSymbol("target_addr", 0xdeadbeef)

	first, err := buf.Resolve(ctx)
	if err != nil {
		t.Fatal(err)
	}

	second, err := buf.Resolve(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical output - got 0x%x and 0x%x", first, second)
	}
}

func TestResolve_ShapeIsContextIndependent(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("pad").RepeatString("A", 8)).
		Add(NewRegion("ret").Ref(Sym("target_addr"), 8))

	local, err := buf.Resolve(target.X86_64().WithSymbol("target_addr", 0x400000))
	if err != nil {
		t.Fatal(err)
	}

	remote, err := buf.Resolve(target.X86_64().WithSymbol("target_addr", 0x500000))
	if err != nil {
		t.Fatal(err)
	}

	if len(local) != len(remote) {
		t.Fatalf("expected equal lengths - got %d and %d", len(local), len(remote))
	}

	if !bytes.Equal(local[0:8], remote[0:8]) {
		t.Fatalf("expected identical pad bytes - got 0x%x and 0x%x",
			local[0:8], remote[0:8])
	}

	if bytes.Equal(local[8:], remote[8:]) {
		t.Fatal("expected the ret bytes to differ between contexts")
	}
}

func TestValidate_Overlap(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("a").At(0).RepeatBytes([]byte{0x41}, 8)).
		Add(NewRegion("b").At(4).RepeatBytes([]byte{0x42}, 8))

	err := buf.Validate()
	if err == nil {
		t.Fatal("expected an overlap error")
	}

	var overlapErr *OverlapError
	if !errors.As(err, &overlapErr) {
		t.Fatalf("expected an OverlapError - got %T (%s)", err, err)
	}

	if overlapErr.RegionA != "a" || overlapErr.RegionB != "b" {
		t.Fatalf("expected the error to name 'a' and 'b' - got '%s' and '%s'",
			overlapErr.RegionA, overlapErr.RegionB)
	}
}

func TestValidate_AdjacentRegionsDoNotOverlap(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("a").At(0).RepeatBytes([]byte{0x41}, 8)).
		Add(NewRegion("b").At(8).RepeatBytes([]byte{0x42}, 8))

	err := buf.Validate()
	if err != nil {
		t.Fatal(err)
	}
}

func TestValidate_ZeroLengthRegionOnBoundary(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("a").At(0).RepeatBytes([]byte{0x41}, 8)).
		Add(NewRegion("mark").At(8)).
		Add(NewRegion("b").At(8).RepeatBytes([]byte{0x42}, 8))

	err := buf.Validate()
	if err != nil {
		t.Fatal(err)
	}
}

func TestResolve_AggregatesEvaluationFailures(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("a").Ref(Sym("missing_one"), 4)).
		Add(NewRegion("b").Ref(Sym("missing_two"), 4))

	_, err := buf.Resolve(target.X86_32())
	if err == nil {
		t.Fatal("expected an error")
	}

	var resolutionErr *ResolutionError
	if !errors.As(err, &resolutionErr) {
		t.Fatalf("expected a ResolutionError - got %T (%s)", err, err)
	}

	if len(resolutionErr.Errs) != 2 {
		t.Fatalf("expected 2 aggregated errors - got %d (%s)",
			len(resolutionErr.Errs), err)
	}
}

func TestResolve_SealsRegions(t *testing.T) {
	region := NewRegion("r").RepeatBytes([]byte{0x41}, 4)

	buf := NewBuffer().Add(region)

	_, err := buf.Resolve(target.X86_64())
	if err != nil {
		t.Fatal(err)
	}

	region.Bytes([]byte{0x42})

	var sealedErr *RegionSealedError
	if !errors.As(region.Err(), &sealedErr) {
		t.Fatalf("expected a RegionSealedError - got %v", region.Err())
	}
}

func TestResolve_GapsGetFillerBytes(t *testing.T) {
	gen := &stubPatternGenerator{}

	buf := NewBuffer().
		SetFiller(gen).
		Add(NewRegion("a").RepeatBytes([]byte{0x00}, 4)).
		Add(NewRegion("b").At(8).RepeatBytes([]byte{0x00}, 4))

	out, err := buf.Resolve(target.X86_64())
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != 12 {
		t.Fatalf("expected 12 bytes - got %d", len(out))
	}

	filler, err := gen.Pattern(12)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(out[4:8], filler[4:8]) {
		t.Fatalf("expected gap bytes %q - got %q", filler[4:8], out[4:8])
	}
}

func TestResolve_FixedLengthBounds(t *testing.T) {
	buf := NewBuffer().
		SetLength(8).
		Add(NewRegion("a").RepeatBytes([]byte{0x41}, 12))

	_, err := buf.Resolve(target.X86_64())
	if err == nil {
		t.Fatal("expected an error for content beyond the buffer length")
	}
}

func TestResolve_FixedLengthTailIsFilled(t *testing.T) {
	buf := NewBuffer().
		SetLength(8).
		SetFiller(&stubPatternGenerator{}).
		Add(NewRegion("a").RepeatBytes([]byte{0x41}, 4))

	out, err := buf.Resolve(target.X86_64())
	if err != nil {
		t.Fatal(err)
	}

	exp := []byte("AAAA4567")
	if !bytes.Equal(out, exp) {
		t.Fatalf("expected %q - got %q", exp, out)
	}
}

func TestResolve_EncodingFailureNamesRegion(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("ret").Ref(Sym("target_addr"), 2))

	_, err := buf.Resolve(target.X86_64().WithSymbol("target_addr", 0xdeadbeef))
	if err == nil {
		t.Fatal("expected an error")
	}

	var encodingErr *EncodingError
	if !errors.As(err, &encodingErr) {
		t.Fatalf("expected an EncodingError - got %T (%s)", err, err)
	}
}

func TestAdd_DuplicateNames(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("r").Byte(0x41)).
		Add(NewRegion("r").Byte(0x42))

	if buf.Err() == nil {
		t.Fatal("expected an error for the duplicate region name")
	}

	buf = NewBuffer().
		RegisterSymbol("r", 1).
		Add(NewRegion("r").Byte(0x41))

	if buf.Err() == nil {
		t.Fatal("expected an error for the region name shadowing a symbol")
	}
}

func TestRegion_FixLenMismatch(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("r").FixLen(8).RepeatBytes([]byte{0x41}, 4))

	err := buf.Validate()
	if err == nil {
		t.Fatal("expected an error for the length mismatch")
	}
}

func TestRegionsAt(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("a").At(16).RepeatString("1", 4)).
		Add(NewRegion("b").At(20).RepeatString("2", 4))

	names, err := buf.RegionsAt(16, 20)
	if err != nil {
		t.Fatal(err)
	}

	if len(names) != 1 || names[0] != "a" {
		t.Fatalf("expected only 'a' - got %v", names)
	}

	names, err = buf.RegionsAt(16, 21)
	if err != nil {
		t.Fatal(err)
	}

	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected 'a' and 'b' - got %v", names)
	}
}

func TestEnd(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("a").At(16).RepeatString("A", 4))

	end, err := buf.End()
	if err != nil {
		t.Fatal(err)
	}

	if end != 20 {
		t.Fatalf("expected 20 - got %d", end)
	}
}

// stubPatternGenerator returns ASCII digits so that filler bytes are
// easy to assert on.
type stubPatternGenerator struct{}

func (o *stubPatternGenerator) Pattern(numBytes int) ([]byte, error) {
	b := make([]byte, numBytes)

	for i := range b {
		b[i] = byte('0' + i%10)
	}

	return b, nil
}
