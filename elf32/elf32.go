// Package elf32 reads the subset of the ELF32 format the memory-image
// builder needs: identity validation for a little- or big-endian IA-32
// executable, and enumeration of its PT_LOAD program headers.
//
// The original mimgmake.c probes the host's own byte order at startup
// (calcByteorder) and byte-swaps each ELF field by hand when the
// declared encoding disagrees with it. In Go the same effect is had
// more directly: encoding/binary.ByteOrder gives us a LittleEndian or
// BigEndian reader selected once from the ELF identity bytes, with no
// dependency on the host's own layout. elfHalf/elfWord's logic lives
// on in byteOrderOf/Parse; the "probe the host" step does not need a
// Go counterpart.
package elf32

import (
	"encoding/binary"
	"errors"
)

// Class corresponds to EI_CLASS.
type Class byte

// Data corresponds to EI_DATA.
type Data byte

// Machine corresponds to e_machine.
type Machine uint16

// Identity values this package recognizes; anything else fails parsing.
const (
	Class32 Class = 1

	DataLE Data = 1
	DataBE Data = 2
)

const (
	etExec        = 2
	emI386 Machine = 3
	ptLoad        = 1
	ehSize        = 52
	phEntSize     = 32
)

// ErrNotELF is returned when the input does not look like an ELF32
// IA-32 executable.
var ErrNotELF = errors.New("not in ELF format")

// ErrSectionPastEOF is returned when a PT_LOAD program header's
// offset+filesz runs past the end of the file.
var ErrSectionPastEOF = errors.New("invalid ELF section passes end of file")

// Region is one loadable range extracted from a PT_LOAD program
// header.
type Region struct {
	Paddr    uint32
	Offset   uint32
	FileSize uint32
	MemSize  uint32
}

// File is a parsed ELF32 header plus its PT_LOAD regions, in program
// header order.
type File struct {
	Class   Class
	Data    Data
	Machine Machine
	Entry   uint32
	Regions []Region
}

// Parse validates raw as an ELF32 little- or big-endian IA-32
// executable and enumerates its PT_LOAD program headers.
func Parse(raw []byte) (*File, error) {
	if len(raw) < ehSize ||
		raw[0] != 0x7F || raw[1] != 'E' || raw[2] != 'L' || raw[3] != 'F' {
		return nil, ErrNotELF
	}

	class := Class(raw[4])
	data := Data(raw[5])
	if class != Class32 || (data != DataLE && data != DataBE) {
		return nil, ErrNotELF
	}

	order := byteOrderOf(data)

	etype := order.Uint16(raw[16:18])
	machine := Machine(order.Uint16(raw[18:20]))
	if etype != etExec || machine != emI386 {
		return nil, ErrNotELF
	}

	entry := order.Uint32(raw[24:28])
	phoff := order.Uint32(raw[28:32])
	ehsize := order.Uint16(raw[40:42])
	phentsize := order.Uint16(raw[42:44])
	phnum := order.Uint16(raw[44:46])

	if ehsize != ehSize || phentsize != phEntSize {
		return nil, ErrNotELF
	}

	f := &File{Class: class, Data: data, Machine: machine, Entry: entry}

	for i := uint16(0); i < phnum; i++ {
		off := int(phoff) + int(i)*phEntSize
		if off < 0 || off+phEntSize > len(raw) {
			return nil, ErrNotELF
		}
		ph := raw[off : off+phEntSize]
		if order.Uint32(ph[0:4]) != ptLoad {
			continue
		}
		offset := order.Uint32(ph[4:8])
		paddr := order.Uint32(ph[12:16])
		filesz := order.Uint32(ph[16:20])
		memsz := order.Uint32(ph[20:24])

		if uint64(offset)+uint64(filesz) > uint64(len(raw)) {
			return nil, ErrSectionPastEOF
		}

		f.Regions = append(f.Regions, Region{
			Paddr:    paddr,
			Offset:   offset,
			FileSize: filesz,
			MemSize:  memsz,
		})
	}

	return f, nil
}

// byteOrderOf returns the binary.ByteOrder matching the ELF file's
// declared data encoding.
func byteOrderOf(d Data) binary.ByteOrder {
	if d == DataBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Bounds returns the minimum Paddr and maximum (Paddr+MemSize-1) across
// every region. Callers must not call Bounds on a File with no
// regions.
func (f *File) Bounds() (min, max uint32) {
	min = ^uint32(0)
	for _, r := range f.Regions {
		if r.Paddr < min {
			min = r.Paddr
		}
		if end := r.Paddr + r.MemSize - 1; end > max {
			max = end
		}
	}
	return min, max
}
