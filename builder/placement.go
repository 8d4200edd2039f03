// Package builder implements the host-side half of the memory-image
// toolchain: the placement model that accumulates non-overlapping
// sections and per-module headers, the image serializer, and the CLI
// argument grammar that drives both.
//
// The placement model is a direct generalization of insert/nextAddr/
// checkEntry in original_source/mimg/mimgmake.c: an ordered,
// non-overlapping list of sections plus a cursor tracking the most
// recently inserted one (the "MRI"), used to resolve the relative
// "next"/"page" placement forms.
package builder

import (
	"errors"
	"fmt"

	"github.com/zipwith/lc-baremetal/format"
)

// ErrOverlap is returned by Insert when the new section's range
// intersects an already-inserted section's range.
var ErrOverlap = errors.New("overlapping sections")

// ErrEmptyRange is returned when first > last.
var ErrEmptyRange = errors.New("empty section range")

// ErrNoCursor is returned by NextAddr when no section has been
// inserted yet.
var ErrNoCursor = errors.New("no previous loaded section")

// ErrMultipleEntries is returned when two different explicit entry
// addresses are set.
var ErrMultipleEntries = errors.New("multiple entry points specified")

// ErrNoEntry is returned by ResolveEntry when no entry point was ever
// specified, explicitly or via a loaded module.
var ErrNoEntry = errors.New("no entry point has been specified")

// ErrEntryNotLoaded is returned by ResolveEntry when the resolved
// entry address does not fall inside any DATA section.
var ErrEntryNotLoaded = errors.New("entry point is not loaded")

// Section is one section pending serialization: its header plus the
// raw payload bytes (nil for ZERO, RESERVED and BOOTDATA sections; a
// BOOTDATA payload is built from the image's header records by
// Serialize, not taken from Payload).
type Section struct {
	First   format.Address
	Last    format.Address
	Type    format.SectionType
	Payload []byte // raw bytes for Data; nil otherwise
}

// Len returns the number of addresses the section covers.
func (s Section) Len() uint32 {
	return uint32(s.Last-s.First) + 1
}

// Image is the builder's in-progress placement model: an ordered,
// non-overlapping list of sections, a cursor onto the most recently
// inserted one, a parallel list of per-module headers (in insertion
// order, independent of address order), and an optional explicit
// entry point.
type Image struct {
	sections []Section // kept sorted by First, pairwise disjoint
	mri      int        // index into sections of the most recently inserted one, or -1
	headers  []format.ModuleHeader
	entry    format.Address
	hasEntry bool
}

// NewImage returns an empty placement model.
func NewImage() *Image {
	return &Image{mri: -1, entry: format.NoAddress}
}

// Insert adds a new section to the image. Sections must not overlap
// any existing section; Insert returns ErrOverlap (wrapped with both
// sections' ranges) if they do. The cursor used by NextAddr is updated
// to point at the newly inserted section regardless of where in
// address order it landed, matching mimg->mri in insert() in
// mimgmake.c.
func (img *Image) Insert(sec Section) error {
	if sec.First > sec.Last {
		return fmt.Errorf("%w: [0x%x-0x%x]", ErrEmptyRange, sec.First, sec.Last)
	}

	// Find the insertion point: the first existing section whose Last
	// is >= sec.First. This mirrors the linear scan in insert().
	idx := len(img.sections)
	for i, cur := range img.sections {
		if sec.Last >= cur.First {
			if sec.First <= cur.Last {
				return fmt.Errorf("%w: [0x%x-0x%x] vs [0x%x-0x%x]",
					ErrOverlap, cur.First, cur.Last, sec.First, sec.Last)
			}
			continue
		}
		idx = i
		break
	}

	img.sections = append(img.sections, Section{})
	copy(img.sections[idx+1:], img.sections[idx:])
	img.sections[idx] = sec
	img.mri = idx

	return nil
}

// NextAddr returns the next address after the most recently inserted
// section, aligned up to a 1<<alignBits boundary. alignBits=0 yields
// the next byte; alignBits=12 yields the next 4 KiB boundary. It
// returns ErrNoCursor if no section has been inserted yet.
func (img *Image) NextAddr(alignBits uint) (format.Address, error) {
	if img.mri < 0 {
		return 0, ErrNoCursor
	}
	last := img.sections[img.mri].Last
	return ((last >> alignBits) + 1) << alignBits, nil
}

// AddHeader appends a per-module header record. Order of calls is
// preserved regardless of the header's address range, matching
// addHeader's append-to-tail behavior in mimgmake.c.
func (img *Image) AddHeader(min, max, entry format.Address) {
	img.headers = append(img.headers, format.ModuleHeader{MinAddr: min, MaxAddr: max, Entry: entry})
}

// Headers returns the accumulated per-module header records in
// insertion order.
func (img *Image) Headers() []format.ModuleHeader {
	return img.headers
}

// Sections returns the accumulated sections in ascending address
// order.
func (img *Image) Sections() []Section {
	return img.sections
}

// SetEntry records an explicit entry point. A second call with a
// different address returns ErrMultipleEntries; a second call with
// the same address is a no-op, matching mimg->entry!=NOENTRY check in
// parseArg.
func (img *Image) SetEntry(addr format.Address) error {
	if img.hasEntry && img.entry != addr {
		return fmt.Errorf("%w (0x%x, 0x%x)", ErrMultipleEntries, img.entry, addr)
	}
	img.entry = addr
	img.hasEntry = true
	return nil
}

// ResolveEntry fixes the image's final entry point: the explicit one
// if set, else the first header record with a non-sentinel Entry
// (checkEntry's firstEntry fallback). It then verifies the resolved
// address falls inside some DATA section's range, as checkEntry does.
func (img *Image) ResolveEntry() (format.Address, error) {
	entry := img.entry
	if !img.hasEntry || entry == format.NoAddress {
		entry = format.NoAddress
		for _, h := range img.headers {
			if h.Entry != format.NoAddress {
				entry = h.Entry
				break
			}
		}
	}
	if entry == format.NoAddress {
		return 0, ErrNoEntry
	}
	for _, s := range img.sections {
		if s.Type == format.Data && s.First <= entry && entry <= s.Last {
			img.entry = entry
			return entry, nil
		}
	}
	return 0, fmt.Errorf("%w: 0x%x", ErrEntryNotLoaded, entry)
}
