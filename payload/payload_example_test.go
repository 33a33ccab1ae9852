package payload_test

import (
	"encoding/hex"
	"fmt"

	"gitlab.com/stephen-fox/pbkit/payload"
	"gitlab.com/stephen-fox/pbkit/target"
)

func ExampleBuffer() {
	ctx := target.X86_64().WithSymbol("system", 0x7ffff7a52290)

	out := payload.NewBuffer().
		Add(payload.NewRegion("pad").RepeatString("A", 16)).
		Add(payload.NewRegion("rbp").Uint64(0x4242424242424242)).
		Add(payload.NewRegion("ret").Ref(payload.Sym("system"), 8)).
		ResolveOrExit(ctx)

	fmt.Print(hex.Dump(out))

	// Output:
	// 00000000  41 41 41 41 41 41 41 41  41 41 41 41 41 41 41 41  |AAAAAAAAAAAAAAAA|
	// 00000010  42 42 42 42 42 42 42 42  90 22 a5 f7 ff 7f 00 00  |BBBBBBBB."......|
}

func ExampleBuffer_multipleContexts() {
	// One symbolic payload, two builds of the same binary. Only the
	// reference values differ between the two resolves - the layout
	// is identical.
	contexts := target.NewContextSet("local").
		AddSymbolInContext("one_gadget", 0x7ffff7a52290, "local").
		AddSymbolInContext("one_gadget", 0x7ffff7a41120, "remote")

	buf := payload.NewBuffer().
		Add(payload.NewRegion("pad").RepeatString("A", 8)).
		Add(payload.NewRegion("ret").Ref(payload.Sym("one_gadget"), 8))

	local := buf.ResolveOrExit(contexts.ContextOrExit())

	contexts.SetContext("remote")

	remote := buf.ResolveOrExit(contexts.ContextOrExit())

	fmt.Printf("local ret:  0x%x\n", local[8:])
	fmt.Printf("remote ret: 0x%x\n", remote[8:])

	// Output:
	// local ret:  0x9022a5f7ff7f0000
	// remote ret: 0x2011a4f7ff7f0000
}

func ExampleBuffer_Layout() {
	buf := payload.NewBuffer().
		Add(payload.NewRegion("pad").RepeatBytes([]byte{0x00}, 12)).
		Add(payload.NewRegion("ret").Ref(payload.Sym("target_addr"), 4).Tag("chain A"))

	rows := buf.LayoutOrExit(nil)

	for _, row := range rows {
		fmt.Printf("%#04x %#04x %s %s\n", row.Offset, row.Length, row.Name, row.Preview)
	}

	// Output:
	// 0x00 0x0c pad 00000000
	// 0x0c 0x04 ret target_addr
}
