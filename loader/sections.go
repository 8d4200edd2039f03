package loader

import (
	"github.com/zipwith/lc-baremetal/format"
	"github.com/zipwith/lc-baremetal/physmem"
)

// readHeader decodes the section header at pos.
func readHeader(mem *physmem.Space, pos uint32) (format.SectionHeader, error) {
	raw, err := mem.Bytes(pos, format.SectionHeaderSize)
	if err != nil {
		return format.SectionHeader{}, err
	}
	return format.SectionHeaderAt(raw), nil
}

// sectionExtent returns the address of the first byte past the
// header (where its payload, if any, begins) and the address of the
// first byte past the whole section (header + payload), matching
// nextSection in the original loader. The "next" address is returned
// as a uint64 so that a pathological BOOTDATA count word cannot wrap
// it back into range and hide a too-large section.
func sectionExtent(mem *physmem.Space, pos uint32, hdr format.SectionHeader) (headerEnd uint32, next uint64, err error) {
	headerEnd = pos + format.SectionHeaderSize
	switch hdr.Type {
	case format.Data:
		next = uint64(headerEnd) + uint64(hdr.Len())
	case format.BootData:
		l, err := mem.Uint32(headerEnd)
		if err != nil {
			return 0, 0, err
		}
		next = uint64(headerEnd) + 4 + uint64(format.ModuleHeaderSize)*uint64(l)
	default: // Zero; Reserved never appears on disk
		next = uint64(headerEnd)
	}
	return headerEnd, next, nil
}

// bootHeaderPayloadLen returns the number of payload bytes (count word
// plus L header records) a BOOTDATA section carries on disk, without
// risking a 32-bit overflow when L is an attacker- or corruption-
// supplied value.
func bootHeaderPayloadLen(l uint32) uint64 {
	return 4 + uint64(format.ModuleHeaderSize)*uint64(l)
}

// bootDataMinLen64 is format.BootDataMinLen computed in 64-bit
// arithmetic, for the same reason.
func bootDataMinLen64(l uint32) uint64 {
	return uint64(format.BootDataBlockSize) + bootHeaderPayloadLen(l) + 4 + 2
}
