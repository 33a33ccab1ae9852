package pattern

import (
	"bytes"
	"testing"
)

func TestDeBruijn_Duplicates(t *testing.T) {
	numBytes := 1_000_000

	t.Run("FourBytes", func(t *testing.T) {
		checkDeBruijnDuplicates(t, numBytes, 4)
	})

	t.Run("EightBytes", func(t *testing.T) {
		checkDeBruijnDuplicates(t, numBytes, 8)
	})
}

func checkDeBruijnDuplicates(t *testing.T, numBytes int, width int) {
	t.Helper()

	buf := bytes.NewBuffer(nil)

	deBruijn := DeBruijn{}

	err := deBruijn.WriteToN(buf, numBytes)
	if err != nil {
		t.Fatalf("failed to write - %s", err)
	}

	m := make(map[string]int)

	i := 0

	for buf.Len() > 0 {
		l := make([]byte, width)

		_, err := buf.Read(l)
		if err != nil {
			t.Fatalf("failed to read from buf - %s", err)
		}

		str := string(l)

		previousI, hasIt := m[str]
		if hasIt {
			t.Fatalf("already encountered %q at iteration %d (current iter: %d)",
				str, previousI, i)
		}

		m[str] = i

		i++
	}
}

func TestDeBruijn_PatternIsDeterministic(t *testing.T) {
	deBruijn := DeBruijn{}

	first, err := deBruijn.Pattern(64)
	if err != nil {
		t.Fatal(err)
	}

	second, err := deBruijn.Pattern(64)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical patterns - got %q and %q", first, second)
	}
}

func TestDeBruijn_PatternPrefixProperty(t *testing.T) {
	deBruijn := DeBruijn{}

	short, err := deBruijn.Pattern(16)
	if err != nil {
		t.Fatal(err)
	}

	long, err := deBruijn.Pattern(64)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix(long, short) {
		t.Fatalf("expected %q to be a prefix of %q", short, long)
	}
}

func TestDeBruijn_PatternDoesNotAdvanceWriteToNState(t *testing.T) {
	deBruijn := DeBruijn{}

	viaPattern, err := deBruijn.Pattern(32)
	if err != nil {
		t.Fatal(err)
	}

	buf := bytes.NewBuffer(nil)

	err = deBruijn.WriteToN(buf, 32)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(viaPattern, buf.Bytes()) {
		t.Fatalf("expected %q - got %q", viaPattern, buf.Bytes())
	}
}
