package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zipwith/lc-baremetal/elf32"
	"github.com/zipwith/lc-baremetal/format"
)

// ErrBadAddress is returned when an argument's address portion is
// missing, malformed, or overflows 32 bits.
var ErrBadAddress = errors.New("bad address")

// ErrBadRange is returned when a "keyword:first-last" argument's range
// is missing or first > last.
var ErrBadRange = errors.New("bad range")

// ErrUnrecognizedArg is returned for any argument that matches none of
// the grammar forms in spec.md §4.8.
var ErrUnrecognizedArg = errors.New("unrecognized argument")

// FileReader loads the raw bytes of a named file. cmd/mimgbuild passes
// os.ReadFile; tests pass an in-memory map.
type FileReader func(name string) ([]byte, error)

// ProcessArgs interprets each string in args against the grammar of
// spec.md §4.8 and applies it to img, in the style of parseArg in
// mimgmake.c (one pass, left to right, each argument independent).
func ProcessArgs(img *Image, args []string, read FileReader) error {
	for _, arg := range args {
		if err := processArg(img, arg, read); err != nil {
			return fmt.Errorf("argument %q: %w", arg, err)
		}
	}
	return nil
}

func processArg(img *Image, arg string, read FileReader) error {
	switch {
	case strings.HasPrefix(arg, "noload:"):
		return insertELF(img, arg[len("noload:"):], read, true)
	case strings.HasPrefix(arg, "zero:"):
		return insertRange(img, arg, "zero:", format.Zero)
	case strings.HasPrefix(arg, "bootdata:"):
		return insertRange(img, arg, "bootdata:", format.BootData)
	case strings.HasPrefix(arg, "reserved:"):
		return insertRange(img, arg, "reserved:", format.Reserved)
	}

	if idx := strings.IndexByte(arg, ':'); idx >= 0 {
		return fmt.Errorf("%w: unknown keyword %q", ErrUnrecognizedArg, arg[:idx])
	}

	if idx := strings.IndexByte(arg, '@'); idx >= 0 {
		name, spec := arg[:idx], arg[idx+1:]
		addr, err := resolveAtAddress(img, spec)
		if err != nil {
			return err
		}
		if name == "entry" {
			return img.SetEntry(addr)
		}
		return insertFile(img, name, addr, read)
	}

	// Plain filename: ELF load.
	return insertELF(img, arg, read, false)
}

// resolveAtAddress interprets the text after '@': "next", "page", or a
// literal hex address.
func resolveAtAddress(img *Image, spec string) (format.Address, error) {
	switch spec {
	case "next":
		return img.NextAddr(0)
	case "page":
		return img.NextAddr(12)
	default:
		return parseHexAddr(spec)
	}
}

// parseHexAddr parses a hex address with an optional 0x/0X prefix,
// matching readAddr in mimgmake.c: at least one hex digit required,
// and the accumulated value must not overflow 32 bits.
func parseHexAddr(s string) (format.Address, error) {
	orig := s
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if s == "" {
		return 0, fmt.Errorf("%w: missing address in %q", ErrBadAddress, orig)
	}
	var addr uint64
	for i := 0; i < len(s); i++ {
		d := hexDigit(s[i])
		if d < 0 {
			if i == 0 {
				return 0, fmt.Errorf("%w: missing address in %q", ErrBadAddress, orig)
			}
			return 0, fmt.Errorf("%w: junk after address in %q", ErrBadAddress, orig)
		}
		addr = addr<<4 | uint64(d)
		if addr > 0xFFFFFFFF {
			return 0, fmt.Errorf("%w: address overflow in %q", ErrBadAddress, orig)
		}
	}
	return format.Address(addr), nil
}

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}

// insertRange parses a "keyword:first-last" argument and inserts a
// section of the given type, registering a header record the same way
// insertFile does (matching the zero/bootdata/reserved branches in
// mimgmake.c's parseArg, which all call addHeader after insert).
func insertRange(img *Image, arg, prefix string, typ format.SectionType) error {
	body := arg[len(prefix):]
	dash := strings.IndexByte(body, '-')
	if dash < 0 {
		return fmt.Errorf("%w: missing range in %q", ErrBadRange, arg)
	}
	first, err := parseHexAddr(body[:dash])
	if err != nil {
		return err
	}
	last, err := parseHexAddr(body[dash+1:])
	if err != nil {
		return err
	}
	if first > last {
		return fmt.Errorf("%w: illegal range in %q", ErrBadRange, arg)
	}
	if err := img.Insert(Section{First: first, Last: last, Type: typ}); err != nil {
		return err
	}
	img.AddHeader(first, last, format.NoAddress)
	return nil
}

// insertFile loads a raw data file at a caller-resolved address,
// registering it as a no-entry header record, matching insertFile in
// mimgmake.c.
func insertFile(img *Image, name string, first format.Address, read FileReader) error {
	data, err := read(name)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("file %q is empty", name)
	}
	last := first + format.Address(len(data)) - 1
	if err := img.Insert(Section{First: first, Last: last, Type: format.Data, Payload: data}); err != nil {
		return err
	}
	img.AddHeader(first, last, format.NoAddress)
	return nil
}

// insertELF loads an ELF32 executable's PT_LOAD segments. If reserve
// is true (the "noload:" form), every PT_LOAD range becomes a single
// RESERVED section per segment and no header record is added,
// matching insertElf(mimg, filename, load=0) in mimgmake.c.
func insertELF(img *Image, name string, read FileReader, reserve bool) error {
	data, err := read(name)
	if err != nil {
		return err
	}
	f, err := elf32.Parse(data)
	if err != nil {
		return fmt.Errorf("input file %q: %w", name, err)
	}

	for _, r := range f.Regions {
		if reserve {
			if err := img.Insert(Section{
				First: format.Address(r.Paddr),
				Last:  format.Address(r.Paddr + r.MemSize - 1),
				Type:  format.Reserved,
			}); err != nil {
				return err
			}
			continue
		}
		if r.FileSize > 0 {
			payload := data[r.Offset : r.Offset+r.FileSize]
			if err := img.Insert(Section{
				First:   format.Address(r.Paddr),
				Last:    format.Address(r.Paddr + r.FileSize - 1),
				Type:    format.Data,
				Payload: payload,
			}); err != nil {
				return err
			}
		}
		if r.MemSize > r.FileSize {
			if err := img.Insert(Section{
				First: format.Address(r.Paddr + r.FileSize),
				Last:  format.Address(r.Paddr + r.MemSize - 1),
				Type:  format.Zero,
			}); err != nil {
				return err
			}
		}
	}

	if !reserve && len(f.Regions) > 0 {
		min, max := f.Bounds()
		img.AddHeader(format.Address(min), format.Address(max), format.Address(f.Entry))
	}

	return nil
}
