// pbuf resolves a symbolic payload description against a target
// context and renders the result.
//
// The payload is described in a TOML file as a list of regions.
// Each region holds literal content (hex blobs, strings, pattern
// bytes) and deferred references that are only resolved against the
// chosen context:
//
//	length = 64
//	filler = "debruijn"
//
//	[symbols]
//	chain_base = "0x40"
//
//	[[region]]
//	name = "pad"
//	tags = ["stage 1"]
//
//	  [[region.item]]
//	  pattern = 24
//
//	[[region]]
//	name = "ret"
//	offset = 24
//
//	  [[region.item]]
//	  ref = "pop_rdi + 0x10"
//	  width = 8
//
// Reference expressions support symbols, integers, "off(region)",
// "size(region)", and +/- arithmetic. Contexts come from a separate
// TOML file (see the target package) so that one payload description
// can be resolved against any number of builds of the same binary.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"gitlab.com/stephen-fox/pbkit/conv"
	"gitlab.com/stephen-fox/pbkit/pattern"
	"gitlab.com/stephen-fox/pbkit/payload"
	"gitlab.com/stephen-fox/pbkit/target"
	"gitlab.com/stephen-fox/pbkit/viz"
)

func main() {
	log.SetFlags(0)

	err := mainWithError()
	if err != nil {
		log.Fatalln("fatal:", err)
	}
}

func mainWithError() error {
	payloadPath := flag.String(
		"p",
		"",
		"The payload description TOML file")

	contextsPath := flag.String(
		"c",
		"",
		"The contexts TOML file")

	contextName := flag.String(
		"ctx",
		"",
		"The context to resolve against (defaults to the file's 'current')")

	layout := flag.Bool(
		"layout",
		false,
		"Print the layout table instead of payload bytes")

	gaps := flag.Bool(
		"gaps",
		false,
		"Print the gap and collision report")

	rowsPath := flag.String(
		"rows",
		"",
		"Write msgpack layout rows to the specified file (for plotting backends)")

	goDecl := flag.Bool(
		"go",
		false,
		"Print the resolved payload as a Go []byte declaration")

	disRegion := flag.String(
		"dis",
		"",
		"Disassemble the named region's resolved bytes as x86")

	raw := flag.Bool(
		"raw",
		false,
		"Write raw payload bytes to stdout instead of a hex dump")

	noColor := flag.Bool(
		"nocolor",
		false,
		"Disable colorized layout output")

	flag.Parse()

	if *payloadPath == "" {
		return errors.New("please specify a payload description file ('-p')")
	}

	buf, err := loadPayloadFile(*payloadPath)
	if err != nil {
		return err
	}

	var optCtx *target.Context

	if *contextsPath != "" {
		set, err := target.LoadContextsFile(*contextsPath)
		if err != nil {
			return err
		}

		if *contextName != "" {
			set.SetContext(*contextName)
		}

		ctx, err := set.Context()
		if err != nil {
			return err
		}

		optCtx = &ctx
	}

	if *layout || *gaps || *rowsPath != "" {
		rows, err := buf.Layout(optCtx)
		if err != nil {
			return err
		}

		if *layout {
			err = viz.WriteTable(os.Stdout, rows, viz.TableOptions{
				Colorized: !*noColor,
			})
			if err != nil {
				return err
			}
		}

		if *gaps {
			err = viz.WriteGaps(os.Stdout, rows)
			if err != nil {
				return err
			}
		}

		if *rowsPath != "" {
			err = writeRowsFile(*rowsPath, rows)
			if err != nil {
				return err
			}
		}

		return nil
	}

	if optCtx == nil {
		return errors.New("please specify a contexts file ('-c') to resolve the payload")
	}

	resolved, err := buf.Resolve(*optCtx)
	if err != nil {
		return err
	}

	switch {
	case *disRegion != "":
		return disassembleRegion(buf, resolved, *disRegion, optCtx.Bits)
	case *goDecl:
		return conv.BytesToGoSlice(resolved, os.Stdout)
	case *raw:
		_, err = os.Stdout.Write(resolved)
		return err
	default:
		fmt.Print(hex.Dump(resolved))
		return nil
	}
}

func writeRowsFile(path string, rows []payload.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create rows file - %w", err)
	}
	defer f.Close()

	err = viz.EncodeRows(f, rows)
	if err != nil {
		return err
	}

	return f.Close()
}

func disassembleRegion(buf *payload.Buffer, resolved []byte, name string, bits int) error {
	rows, err := buf.Layout(nil)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if row.Name != name {
			continue
		}

		lines, err := viz.DisassembleX86(resolved[row.Offset:row.Offset+row.Length], bits)
		if err != nil {
			return err
		}

		for _, line := range lines {
			fmt.Println(line)
		}

		return nil
	}

	return fmt.Errorf("no region named '%s'", name)
}

type payloadFile struct {
	Length  int64             `toml:"length"`
	Filler  string            `toml:"filler"`
	Symbols map[string]string `toml:"symbols"`
	Regions []regionEntry     `toml:"region"`
}

type regionEntry struct {
	Name   string      `toml:"name"`
	Offset *int64      `toml:"offset"`
	Length *int64      `toml:"length"`
	Tags   []string    `toml:"tags"`
	Items  []itemEntry `toml:"item"`
}

type itemEntry struct {
	Hex     string `toml:"hex"`
	Str     string `toml:"str"`
	Ref     string `toml:"ref"`
	Width   int    `toml:"width"`
	Pattern int    `toml:"pattern"`
}

func loadPayloadFile(path string) (*payload.Buffer, error) {
	var file payloadFile

	_, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload file - %w", err)
	}

	buf := payload.NewBuffer()

	generator, err := fillerNamed(file.Filler)
	if err != nil {
		return nil, err
	}

	if generator != nil {
		buf.SetFiller(generator)
	}

	if file.Length > 0 {
		length, err := safecast.Conv[int](file.Length)
		if err != nil {
			return nil, fmt.Errorf("payload length - %w", err)
		}

		buf.SetLength(length)
	}

	for name, valueStr := range file.Symbols {
		value, err := strconv.ParseUint(valueStr, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse value of symbol '%s' - %w",
				name, err)
		}

		buf.RegisterSymbol(name, value)
	}

	for _, entry := range file.Regions {
		region, err := entry.region(generator)
		if err != nil {
			return nil, err
		}

		buf.Add(region)
	}

	err = buf.Err()
	if err != nil {
		return nil, err
	}

	return buf, nil
}

func fillerNamed(name string) (payload.PatternGenerator, error) {
	switch name {
	case "", "zero":
		return nil, nil
	case "debruijn":
		return &pattern.DeBruijn{}, nil
	case "alphabet":
		return &pattern.Alphabet{}, nil
	default:
		return nil, fmt.Errorf("unknown filler '%s'", name)
	}
}

func (o regionEntry) region(generator payload.PatternGenerator) (*payload.Region, error) {
	if o.Name == "" {
		return nil, errors.New("region is missing a name")
	}

	region := payload.NewRegion(o.Name).Tag(o.Tags...)

	if o.Offset != nil {
		offset, err := safecast.Conv[int](*o.Offset)
		if err != nil {
			return nil, fmt.Errorf("region '%s' offset - %w", o.Name, err)
		}

		region.At(offset)
	}

	if o.Length != nil {
		length, err := safecast.Conv[int](*o.Length)
		if err != nil {
			return nil, fmt.Errorf("region '%s' length - %w", o.Name, err)
		}

		region.FixLen(length)
	}

	for i, item := range o.Items {
		err := item.appendTo(region, generator)
		if err != nil {
			return nil, fmt.Errorf("region '%s' item %d - %w", o.Name, i, err)
		}
	}

	return region, nil
}

func (o itemEntry) appendTo(region *payload.Region, generator payload.PatternGenerator) error {
	switch {
	case o.Hex != "":
		b, err := conv.HexToBytes(strings.NewReader(o.Hex))
		if err != nil {
			return err
		}

		region.Bytes(b)
	case o.Str != "":
		region.String(o.Str)
	case o.Ref != "":
		if o.Width == 0 {
			return errors.New("a ref item needs a width")
		}

		ref, err := parseRef(o.Ref)
		if err != nil {
			return err
		}

		region.Ref(ref, o.Width)
	case o.Pattern > 0:
		if generator == nil {
			generator = &pattern.DeBruijn{}
		}

		region.Pattern(generator, o.Pattern)
	default:
		return errors.New("item must set one of 'hex', 'str', 'ref', or 'pattern'")
	}

	return nil
}

// parseRef parses a reference expression: terms joined by '+' or '-',
// where a term is an integer (base 0), "off(region)", "size(region)",
// or a symbol name.
func parseRef(expr string) (payload.Reference, error) {
	var result payload.Reference

	op := byte('+')
	term := strings.Builder{}

	flush := func() error {
		ref, err := parseTerm(strings.TrimSpace(term.String()))
		if err != nil {
			return err
		}

		term.Reset()

		switch {
		case result == nil:
			if op == '-' {
				result = payload.Sub(payload.Lit(0), ref)
			} else {
				result = ref
			}
		case op == '-':
			result = payload.Sub(result, ref)
		default:
			result = payload.Add(result, ref)
		}

		return nil
	}

	for i := 0; i < len(expr); i++ {
		c := expr[i]

		if c == '+' || c == '-' {
			// A leading sign has no term to flush yet.
			if result == nil && strings.TrimSpace(term.String()) == "" {
				op = c
				continue
			}

			err := flush()
			if err != nil {
				return nil, err
			}

			op = c

			continue
		}

		term.WriteByte(c)
	}

	err := flush()
	if err != nil {
		return nil, err
	}

	return result, nil
}

func parseTerm(term string) (payload.Reference, error) {
	if term == "" {
		return nil, errors.New("empty term in reference expression")
	}

	if inner, hasIt := strings.CutPrefix(term, "off("); hasIt {
		name, hasIt := strings.CutSuffix(inner, ")")
		if !hasIt {
			return nil, fmt.Errorf("missing ')' in '%s'", term)
		}

		return payload.OffsetOf(strings.TrimSpace(name)), nil
	}

	if inner, hasIt := strings.CutPrefix(term, "size("); hasIt {
		name, hasIt := strings.CutSuffix(inner, ")")
		if !hasIt {
			return nil, fmt.Errorf("missing ')' in '%s'", term)
		}

		return payload.SizeOf(strings.TrimSpace(name)), nil
	}

	value, err := strconv.ParseUint(term, 0, 64)
	if err == nil {
		return payload.Lit(value), nil
	}

	return payload.Sym(term), nil
}
