// Multiboot 1 normalization: turning the two values a freestanding
// bootstrap hands the loader (a magic word and a pointer to a
// MultibootInfo structure) into a memory map and a single boot
// module, per the Multiboot Specification version 0.6.1.
package loader

import "errors"

// ExpectedMagic is the value the bootstrap's magic register must hold
// on entry.
const ExpectedMagic uint32 = 0x2BADB002

// Multiboot info flag bits (struct multiboot_info.flags).
const (
	FlagMemValid  uint32 = 1 << 0
	FlagCmdValid  uint32 = 1 << 2
	FlagModsValid uint32 = 1 << 3
	FlagMMapValid uint32 = 1 << 6
)

// ErrBadMultibootMagic is returned when the magic register does not
// match ExpectedMagic.
var ErrBadMultibootMagic = errors.New("invalid multiboot magic")

// ErrNoMemoryMap is returned when neither the mmap-valid nor the
// mem-valid flag is set.
var ErrNoMemoryMap = errors.New("cannot obtain memory map")

// ErrNoBootModule is returned when the mods-valid flag is clear or no
// modules were supplied.
var ErrNoBootModule = errors.New("no boot modules specified")

// ErrMultipleBootModules is returned when more than one module was
// supplied; this loader only knows how to boot a single memory image.
var ErrMultipleBootModules = errors.New("multiple boot modules specified")

// MMapEntry mirrors one struct MultibootMMap entry: a base/length pair
// split into low/high 32-bit halves, plus a BIOS-assigned type.
type MMapEntry struct {
	BaseLo, BaseHi uint32
	LenLo, LenHi   uint32
	Type           uint32
}

// AvailableTypeCode is the BIOS memory-map type value meaning
// "available RAM".
const AvailableTypeCode = 1

// Module describes the one boot module the bootstrap delivered: the
// memory image's byte range and the command string attached to it.
// Start and End mirror the raw multiboot_module fields verbatim: the
// image occupies the half-open range [Start, End) as the bootstrap
// reports it. ResolveModule converts this to the closed [start,
// finish] range Validate and Load expect before handing it back.
type Module struct {
	Start, End uint32
	CmdLine    string
}

// Info is a normalized view of a struct MultibootInfo: just the
// fields the loader actually consults, decoded once by the
// freestanding bootstrap (or, in cmd/mimgload, by the demonstration
// harness standing in for one).
type Info struct {
	Flags              uint32
	MemLowerKB         uint32
	MemUpperKB         uint32
	CmdLine            string
	Modules            []Module
	MMap               []MMapEntry // only meaningful if Flags&FlagMMapValid != 0
}

// isAvailable reports whether an entry describes available RAM. It
// reproduces mmapAvailable's final overflow check faithfully: baseLo +
// lenLo - 1 is computed with 32-bit wraparound, then compared against
// baseLo, exactly as the unsigned arithmetic in the original would.
//
// The original's first test is mmap->type=1, an assignment that always
// evaluates true and stomps every entry's type; this implementation
// applies the evidently-intended mmap->type==1 instead, per the
// resolved open question in the design notes.
func isAvailable(e MMapEntry) bool {
	if e.Type != AvailableTypeCode || e.BaseHi != 0 || e.LenHi != 0 {
		return false
	}
	sum := e.BaseLo + e.LenLo - 1
	return sum >= e.BaseLo
}

// Region is a normalized, available physical address range.
type Region struct {
	First, Last uint32
}

// MemoryMap resolves the normalized mmap entries this loader will
// work from: the info's own mmap if present, else a synthetic
// two-entry map derived from memLower/memUpper, else ErrNoMemoryMap.
func MemoryMap(info Info) ([]MMapEntry, error) {
	if info.Flags&FlagMMapValid != 0 {
		return info.MMap, nil
	}
	if info.Flags&FlagMemValid != 0 {
		return []MMapEntry{
			{BaseLo: 0, LenLo: info.MemLowerKB * 1024, Type: AvailableTypeCode},
			{BaseLo: 0x100000, LenLo: info.MemUpperKB * 1024, Type: AvailableTypeCode},
		}, nil
	}
	return nil, ErrNoMemoryMap
}

// AvailableRegions filters an mmap down to the available ranges the
// validator checks section placement against.
func AvailableRegions(mmap []MMapEntry) []Region {
	regions := make([]Region, 0, len(mmap))
	for _, e := range mmap {
		if isAvailable(e) {
			regions = append(regions, Region{First: e.BaseLo, Last: e.BaseLo + e.LenLo - 1})
		}
	}
	return regions
}

// ResolveModule requires the mods-valid flag and exactly one module,
// returning it with End converted from the raw multiboot mod_end
// (exclusive) to the inclusive last byte Validate and Load expect as
// finish, per spec.md's "the image occupies [modStart, modEnd - 1]".
func ResolveModule(info Info) (Module, error) {
	if info.Flags&FlagModsValid == 0 || len(info.Modules) < 1 {
		return Module{}, ErrNoBootModule
	}
	if len(info.Modules) > 1 {
		return Module{}, ErrMultipleBootModules
	}
	mod := info.Modules[0]
	mod.End--
	return mod, nil
}

func fitsInMemory(first, last uint32, regions []Region) bool {
	for _, r := range regions {
		if r.First <= first && last <= r.Last {
			return true
		}
	}
	return false
}
