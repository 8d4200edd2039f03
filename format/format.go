// Package format defines the on-disk layout of a memory image: the
// image header, the per-section header, and the per-module header
// record carried inside a BOOTDATA section. Both the builder and the
// loader import this package so that they agree, byte for byte, on
// what they are producing and consuming.
//
// All multi-byte fields are little-endian, regardless of host or
// target byte order (the image format itself is fixed little-endian;
// only the ELF32 reader on the builder side deals with foreign byte
// orders, see package elf32).
package format

import "encoding/binary"

// Address is a 32-bit physical address.
type Address uint32

// NoAddress is the sentinel value meaning "no entry point" or "no
// entry" in a per-module header record.
const NoAddress Address = 0xFFFFFFFF

// Magic is the 4-byte identifier at the start of every image.
var Magic = [4]byte{'m', 'i', 'm', 'g'}

// HeaderSize is the size in bytes of the fixed image header: magic,
// version, entry.
const HeaderSize = 4 + 4 + 4

// SectionHeaderSize is the size in bytes of a section header, not
// including its payload.
const SectionHeaderSize = 4 + 4 + 4 + 4

// ModuleHeaderSize is the size in bytes of one per-module header
// record inside a BOOTDATA payload.
const ModuleHeaderSize = 4 + 4 + 4

// BootDataBlockSize is the size in bytes of the runtime boot-data
// block the loader writes at the base of a BOOTDATA section: four
// 32-bit pointers (headers, mmap, cmdline, imgline).
const BootDataBlockSize = 4 * 4

// SectionType identifies the kind of a section.
type SectionType uint32

// Section type values, matching original_source/mimg/mimg.h.
const (
	Zero SectionType = iota
	Data
	BootData
	Reserved
)

func (t SectionType) String() string {
	switch t {
	case Zero:
		return "ZERO"
	case Data:
		return "DATA"
	case BootData:
		return "BOOTDATA"
	case Reserved:
		return "RESERVED"
	default:
		return "UNKNOWN"
	}
}

// SectionHeader is the fixed-size header preceding every section's
// payload (if any) in the image.
type SectionHeader struct {
	First Address
	Last  Address
	Prev  uint32 // always 0 on disk; the loader may use it as scratch.
	Type  SectionType
}

// Len returns last-first+1, the number of addresses covered by the
// section. Callers must not call Len on an invalid (First > Last)
// header.
func (h SectionHeader) Len() uint32 {
	return uint32(h.Last-h.First) + 1
}

// ModuleHeader is one 12-byte per-module record carried inside a
// BOOTDATA section's payload.
type ModuleHeader struct {
	MinAddr Address
	MaxAddr Address
	Entry   Address
}

// BootHeaderLen returns the number of bytes occupied by l header
// records plus their leading count word: 4 + 12*l.
func BootHeaderLen(l int) int {
	return 4 + ModuleHeaderSize*l
}

// BootDataMinLen returns the minimum number of bytes a BOOTDATA
// section must reserve to hold the runtime boot-data block, l header
// records, a minimal (zero-entry) memory-map count word, and two
// empty null-terminated strings. This matches BOOTLEN in
// original_source/mimg/mimg.h.
func BootDataMinLen(l int) int {
	return BootDataBlockSize + BootHeaderLen(l) + 4 + 2
}

// PutSectionHeader encodes h into the first SectionHeaderSize bytes of
// dst. dst must be at least that long.
func PutSectionHeader(dst []byte, h SectionHeader) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(h.First))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(h.Last))
	binary.LittleEndian.PutUint32(dst[8:12], h.Prev)
	binary.LittleEndian.PutUint32(dst[12:16], uint32(h.Type))
}

// SectionHeaderAt decodes a SectionHeader from the first
// SectionHeaderSize bytes of src. src must be at least that long.
func SectionHeaderAt(src []byte) SectionHeader {
	return SectionHeader{
		First: Address(binary.LittleEndian.Uint32(src[0:4])),
		Last:  Address(binary.LittleEndian.Uint32(src[4:8])),
		Prev:  binary.LittleEndian.Uint32(src[8:12]),
		Type:  SectionType(binary.LittleEndian.Uint32(src[12:16])),
	}
}

// PutModuleHeader encodes h into the first ModuleHeaderSize bytes of
// dst.
func PutModuleHeader(dst []byte, h ModuleHeader) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(h.MinAddr))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(h.MaxAddr))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(h.Entry))
}

// ModuleHeaderAt decodes a ModuleHeader from the first
// ModuleHeaderSize bytes of src.
func ModuleHeaderAt(src []byte) ModuleHeader {
	return ModuleHeader{
		MinAddr: Address(binary.LittleEndian.Uint32(src[0:4])),
		MaxAddr: Address(binary.LittleEndian.Uint32(src[4:8])),
		Entry:   Address(binary.LittleEndian.Uint32(src[8:12])),
	}
}

// PutUint32 encodes v as little-endian into the first 4 bytes of dst.
func PutUint32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}

// Uint32 decodes a little-endian uint32 from the first 4 bytes of src.
func Uint32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}
