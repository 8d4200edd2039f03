// Structural validation of a memory image, performed before a single
// byte of it is loaded. Validate walks the same section chain Load
// will later walk, but never writes: it only needs to convince itself
// that stepping through and materializing every section is safe.
package loader

import (
	"bytes"
	"errors"

	"github.com/zipwith/lc-baremetal/format"
	"github.com/zipwith/lc-baremetal/physmem"
)

// The diagnostic strings below are the stable external contract for
// image validation; their exact wording must not change.
var (
	ErrStartExceedsFinish   = errors.New("image start exceeds image finish")
	ErrImageTooSmall        = errors.New("image is too small")
	ErrBadMagic             = errors.New("image has incorrect magic number")
	ErrNoEntryPoint         = errors.New("image does not specify an entry point")
	ErrIncompleteHeader     = errors.New("incomplete section header")
	ErrSectionRangeInverted = errors.New("section first exceeds section last")
	ErrSectionsOverlap      = errors.New("sections overlap or are not sorted")
	ErrSectionNotInMemory   = errors.New("section does not fit within memory map")
	ErrSectionOverlapsSelf  = errors.New("section overlaps with loader")
	ErrBootDataTooSmall     = errors.New("bootdata section is too small")
	ErrSectionTooBig        = errors.New("section does not fit in image")
	ErrSectionWraps         = errors.New("section wraps around address space")
	ErrEntryNotFound        = errors.New("entry point falls outside loaded sections")
)

// Footprint is the address range the loader itself occupies in
// physical memory — the systems-language stand-in for the original's
// _text_start/_bss_end linker symbols. A section whose range
// intersects it is rejected, since materializing it would overwrite
// the code doing the materializing.
type Footprint struct {
	TextStart, BssEnd uint32
}

// Validate checks a candidate image at [start, finish] against the
// rules of the loader validator: structural well-formedness, fit
// within the available memory map, no collision with the loader's own
// footprint, and an entry point that resolves inside some loaded DATA
// section. On success it returns the image's declared entry point.
func Validate(mem *physmem.Space, start, finish uint32, available []Region, fp Footprint) (uint32, error) {
	if start > finish {
		return 0, ErrStartExceedsFinish
	}
	if uint64(finish)-uint64(start)+1 < uint64(format.HeaderSize) {
		return 0, ErrImageTooSmall
	}

	magic, err := mem.Bytes(start, 4)
	if err != nil {
		return 0, err
	}
	if !bytes.Equal(magic, format.Magic[:]) {
		return 0, ErrBadMagic
	}
	entry, err := mem.Uint32(start + 8)
	if err != nil {
		return 0, err
	}
	if entry == uint32(format.NoAddress) {
		return 0, ErrNoEntryPoint
	}

	pos := start + uint32(format.HeaderSize)
	var allowed uint32
	foundEntry := false

	for pos <= finish {
		if uint64(pos)+uint64(format.SectionHeaderSize) > uint64(finish)+1 {
			return 0, ErrIncompleteHeader
		}
		hdr, err := readHeader(mem, pos)
		if err != nil {
			return 0, err
		}
		if hdr.First > hdr.Last {
			return 0, ErrSectionRangeInverted
		}
		if uint32(hdr.First) < allowed {
			return 0, ErrSectionsOverlap
		}
		if !fitsInMemory(uint32(hdr.First), uint32(hdr.Last), available) {
			return 0, ErrSectionNotInMemory
		}
		if !(uint32(hdr.Last) < fp.TextStart || uint32(hdr.First) >= fp.BssEnd) {
			return 0, ErrSectionOverlapsSelf
		}

		headerEnd, next, err := sectionExtent(mem, pos, hdr)
		if err != nil {
			return 0, err
		}
		if hdr.Type == format.BootData {
			l, err := mem.Uint32(headerEnd)
			if err != nil {
				return 0, err
			}
			if uint64(hdr.First)+bootDataMinLen64(l) > uint64(hdr.Last)+1 {
				return 0, ErrBootDataTooSmall
			}
		}
		if next > uint64(finish)+1 {
			return 0, ErrSectionTooBig
		}
		if next < uint64(pos)+uint64(format.SectionHeaderSize) {
			return 0, ErrSectionWraps
		}
		if hdr.Type == format.Data && uint32(hdr.First) <= entry && entry <= uint32(hdr.Last) {
			foundEntry = true
		}

		pos = uint32(next)
		allowed = uint32(hdr.Last) + 1
	}

	if !foundEntry {
		return 0, ErrEntryNotFound
	}
	return entry, nil
}
