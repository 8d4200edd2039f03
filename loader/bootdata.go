package loader

import (
	"github.com/zipwith/lc-baremetal/format"
	"github.com/zipwith/lc-baremetal/physmem"
)

// loadBootData materializes a BOOTDATA section: it moves the
// builder's header-record payload out of the way of the runtime
// pointer block, then synthesizes the memory map and the two
// command-line strings after it. first and last are captured from hdr
// before any write, since the header itself sits inside the range
// being overwritten.
func loadBootData(mem *physmem.Space, hdr format.SectionHeader, headerEnd uint32, boot BootContext) error {
	first := uint32(hdr.First)
	last := uint32(hdr.Last)

	l, err := mem.Uint32(headerEnd)
	if err != nil {
		return err
	}
	req := bootHeaderPayloadLen(l)

	hdrsAddr := first + format.BootDataBlockSize
	if err := mem.CopyWithin(hdrsAddr, headerEnd, uint32(req)); err != nil {
		return err
	}
	if err := mem.PutUint32(first+0, hdrsAddr); err != nil {
		return err
	}

	mmapAddr := hdrsAddr + uint32(req)
	if err := mem.PutUint32(first+4, mmapAddr); err != nil {
		return err
	}

	nxt, err := writeMMap(mem, mmapAddr, last-2, boot.MMap)
	if err != nil {
		return err
	}

	cmdlineAddr := nxt
	if err := mem.PutUint32(first+8, cmdlineAddr); err != nil {
		return err
	}
	nxt, err = writeString(mem, boot.CmdLine, nxt, last-1)
	if err != nil {
		return err
	}

	imglineAddr := nxt
	if err := mem.PutUint32(first+12, imglineAddr); err != nil {
		return err
	}
	_, err = writeString(mem, boot.ModuleCmdLine, nxt, last)
	return err
}

// writeMMap writes a 32-bit count followed by that many (base, last)
// pairs drawn from the available entries of mmap, starting at addr and
// never writing past boundary. It returns the address of the first
// byte after the table.
//
// The original computes the entry budget as ((boundary-addr)-3)/8
// using unsigned arithmetic, which wraps to a huge bogus count when
// boundary-addr < 3; this bound-checks instead of reproducing that
// wraparound, per the resolved open question in the design notes.
func writeMMap(mem *physmem.Space, addr, boundary uint32, mmap []MMapEntry) (uint32, error) {
	var budget uint64
	if span := uint64(boundary) - uint64(addr); boundary >= addr && span >= 3 {
		budget = (span - 3) / 8
	}

	count := uint32(0)
	for _, e := range mmap {
		if uint64(count) >= budget {
			break
		}
		if !isAvailable(e) {
			continue
		}
		off := addr + 4 + 8*count
		if err := mem.PutUint32(off, e.BaseLo); err != nil {
			return 0, err
		}
		if err := mem.PutUint32(off+4, e.BaseLo+e.LenLo-1); err != nil {
			return 0, err
		}
		count++
	}
	if err := mem.PutUint32(addr, count); err != nil {
		return 0, err
	}
	return addr + 4 + 8*count, nil
}

// writeString copies s into [first, last) as a null-terminated,
// truncated-if-necessary string, matching copyStr: the terminator
// always fits because the loop stops one byte short of last.
func writeString(mem *physmem.Space, s string, first, last uint32) (uint32, error) {
	if first > last {
		return first, nil
	}
	i := 0
	for first < last && i < len(s) {
		if err := mem.WriteAt(first, []byte{s[i]}); err != nil {
			return 0, err
		}
		first++
		i++
	}
	if err := mem.WriteAt(first, []byte{0}); err != nil {
		return 0, err
	}
	return first + 1, nil
}
