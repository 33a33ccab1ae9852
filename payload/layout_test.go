package payload

import (
	"testing"

	"gitlab.com/stephen-fox/pbkit/target"
)

func TestLayout_SymbolicPreviews(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("pad").RepeatBytes([]byte{0x41}, 12)).
		Add(NewRegion("ret").Ref(Sym("target_addr"), 4))

	rows, err := buf.Layout(nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows - got %d", len(rows))
	}

	if rows[0].Preview != "41414141" {
		t.Fatalf("expected preview '41414141' - got '%s'", rows[0].Preview)
	}

	if rows[1].Preview != "target_addr" {
		t.Fatalf("expected preview 'target_addr' - got '%s'", rows[1].Preview)
	}

	if !rows[1].Symbolic {
		t.Fatal("expected a symbolic preview")
	}
}

func TestLayout_ResolvedPreviews(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("ret").Ref(Sym("target_addr"), 4))

	ctx := target.X86_32().WithSymbol("target_addr", 0xdeadbeef)

	rows, err := buf.Layout(&ctx)
	if err != nil {
		t.Fatal(err)
	}

	if rows[0].Preview != "efbeadde" {
		t.Fatalf("expected preview 'efbeadde' - got '%s'", rows[0].Preview)
	}

	if rows[0].Symbolic {
		t.Fatal("expected a resolved preview")
	}
}

func TestLayout_UnresolvableFallsBackToSymbolic(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("ret").Ref(Sym("nope"), 4))

	ctx := target.X86_32()

	rows, err := buf.Layout(&ctx)
	if err != nil {
		t.Fatal(err)
	}

	if !rows[0].Symbolic {
		t.Fatal("expected a symbolic fallback preview")
	}

	if rows[0].Preview != "nope" {
		t.Fatalf("expected preview 'nope' - got '%s'", rows[0].Preview)
	}
}

func TestLayout_ToleratesOverlaps(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("a").At(0).RepeatBytes([]byte{0x41}, 8)).
		Add(NewRegion("b").At(4).RepeatBytes([]byte{0x42}, 8))

	rows, err := buf.Layout(nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows despite the overlap - got %d", len(rows))
	}
}

func TestLayout_RowsAreSortedByOffset(t *testing.T) {
	buf := NewBuffer().
		Add(NewRegion("late").At(16).RepeatBytes([]byte{0x41}, 4)).
		Add(NewRegion("early").At(0).RepeatBytes([]byte{0x42}, 4))

	rows, err := buf.Layout(nil)
	if err != nil {
		t.Fatal(err)
	}

	if rows[0].Name != "early" || rows[1].Name != "late" {
		t.Fatalf("expected ascending offset order - got %s, %s",
			rows[0].Name, rows[1].Name)
	}
}
