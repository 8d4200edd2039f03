package loader

import (
	"github.com/zipwith/lc-baremetal/format"
	"github.com/zipwith/lc-baremetal/physmem"
)

// BootContext carries the values a BOOTDATA section needs that don't
// come from the image itself: the normalized memory map and the two
// strings the runtime boot-data block points at.
type BootContext struct {
	MMap          []MMapEntry
	CmdLine       string // the kernel command line, or "" if MBI_CMD_VALID is clear
	ModuleCmdLine string // the boot module's own command string
}

// chained is one section captured while scanning ahead for an overlap
// chain: its header and the addresses Load needs to materialize it,
// read before any section in the chain is written.
type chained struct {
	pos       uint32
	hdr       format.SectionHeader
	headerEnd uint32
}

// Load materializes every section of the image at [start, finish]
// into mem. Callers must have already run Validate successfully on
// the same range; Load does not re-check structural well-formedness.
//
// Sections are walked in on-disk order, but a section whose
// destination range covers the in-image bytes of one or more later
// section headers must not be copied until those later sections have
// been read. Load builds an explicit chain of such sections (newest
// last) and unwinds it after loading the first section that doesn't
// collide with anything still unread, guaranteeing every header is
// consumed before anything could overwrite it — see Design Notes on
// why this replaces in-place mutation of the on-disk prev field.
func Load(mem *physmem.Space, start, finish uint32, boot BootContext) error {
	pos := start + uint32(format.HeaderSize)

	for pos <= finish {
		hdr, err := readHeader(mem, pos)
		if err != nil {
			return err
		}
		headerEnd, next, err := sectionExtent(mem, pos, hdr)
		if err != nil {
			return err
		}

		var chain []chained
		curPos, curHdr, curHeaderEnd, curNext := pos, hdr, headerEnd, next
		for curNext <= uint64(finish) &&
			uint64(curHdr.Last) >= curNext &&
			uint64(curHdr.First) <= uint64(finish) {
			chain = append(chain, chained{pos: curPos, hdr: curHdr, headerEnd: curHeaderEnd})

			curPos = uint32(curNext)
			curHdr, err = readHeader(mem, curPos)
			if err != nil {
				return err
			}
			curHeaderEnd, curNext, err = sectionExtent(mem, curPos, curHdr)
			if err != nil {
				return err
			}
		}

		if err := loadSection(mem, curPos, curHdr, curHeaderEnd, boot); err != nil {
			return err
		}
		for i := len(chain) - 1; i >= 0; i-- {
			c := chain[i]
			if err := loadSection(mem, c.pos, c.hdr, c.headerEnd, boot); err != nil {
				return err
			}
		}

		pos = uint32(curNext)
	}

	return nil
}

func loadSection(mem *physmem.Space, pos uint32, hdr format.SectionHeader, headerEnd uint32, boot BootContext) error {
	switch hdr.Type {
	case format.Zero:
		return mem.Zero(uint32(hdr.First), hdr.Len())
	case format.Data:
		return mem.CopyWithin(uint32(hdr.First), headerEnd, hdr.Len())
	case format.BootData:
		return loadBootData(mem, hdr, headerEnd, boot)
	default:
		return nil
	}
}
