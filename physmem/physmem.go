// Package physmem simulates a flat physical address space: a single
// contiguous byte slice with bounds-checked, byte-ordered accessors.
// It stands in for the physical memory a freestanding loader would
// write into directly; the loader package operates against a Space
// instead of raw pointers so that both its tests and the
// mimgload demonstration harness can run as ordinary hosted
// processes.
//
// A memory image's sections are dense, contiguous ranges rather than a
// sparse general-purpose address space, so unlike a guest-CPU bus this
// package has no paging or page cache: every address in [0, Size) is
// backed by real storage.
package physmem

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when an access falls outside the space or
// crosses its end.
var ErrOutOfRange = errors.New("physmem: access out of range")

// Space is a simulated physical address space of a fixed size.
type Space struct {
	mem []byte
}

// New returns a zero-filled Space of the given size in bytes.
func New(size uint32) *Space {
	return &Space{mem: make([]byte, size)}
}

// FromBytes wraps an existing byte slice as a Space without copying.
// Used by tests that want to seed memory contents up front.
func FromBytes(b []byte) *Space {
	return &Space{mem: b}
}

// Size returns the number of addressable bytes.
func (s *Space) Size() uint32 {
	return uint32(len(s.mem))
}

func (s *Space) bounds(addr, n uint32) error {
	if uint64(addr)+uint64(n) > uint64(len(s.mem)) {
		return fmt.Errorf("%w: [0x%x, 0x%x) in space of size 0x%x", ErrOutOfRange, addr, uint64(addr)+uint64(n), len(s.mem))
	}
	return nil
}

// Bytes returns a read-only view of n bytes starting at addr.
func (s *Space) Bytes(addr, n uint32) ([]byte, error) {
	if err := s.bounds(addr, n); err != nil {
		return nil, err
	}
	return s.mem[addr : addr+n], nil
}

// Slice returns a mutable view of n bytes starting at addr, for
// callers that need to write a run of bytes directly (e.g. copying a
// section payload).
func (s *Space) Slice(addr, n uint32) ([]byte, error) {
	if err := s.bounds(addr, n); err != nil {
		return nil, err
	}
	return s.mem[addr : addr+n : addr+n], nil
}

// WriteAt copies data into the space starting at addr.
func (s *Space) WriteAt(addr uint32, data []byte) error {
	dst, err := s.Slice(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Zero fills n bytes starting at addr with zero.
func (s *Space) Zero(addr, n uint32) error {
	dst, err := s.Slice(addr, n)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = 0
	}
	return nil
}

// Uint32 reads a little-endian uint32 at addr.
func (s *Space) Uint32(addr uint32) (uint32, error) {
	b, err := s.Bytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PutUint32 writes a little-endian uint32 at addr.
func (s *Space) PutUint32(addr, v uint32) error {
	dst, err := s.Slice(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst, v)
	return nil
}

// CopyWithin copies n bytes from src to dst inside the same space,
// correctly even when the ranges overlap (as memmove would).
func (s *Space) CopyWithin(dst, src, n uint32) error {
	if err := s.bounds(dst, n); err != nil {
		return err
	}
	if err := s.bounds(src, n); err != nil {
		return err
	}
	// Go's copy() already handles overlapping slices of the same
	// underlying array correctly, in either direction.
	copy(s.mem[dst:dst+n], s.mem[src:src+n])
	return nil
}
