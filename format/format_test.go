package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipwith/lc-baremetal/format"
)

func TestSectionHeaderRoundTrip(t *testing.T) {
	h := format.SectionHeader{
		First: 0x00100000,
		Last:  0x0010003F,
		Prev:  0,
		Type:  format.Data,
	}
	buf := make([]byte, format.SectionHeaderSize)
	format.PutSectionHeader(buf, h)

	// Fields are little-endian; check the low byte of First lands
	// at offset 0.
	require.Equal(t, byte(0x00), buf[0])

	got := format.SectionHeaderAt(buf)
	assert.Equal(t, h, got)
}

func TestSectionHeaderLen(t *testing.T) {
	h := format.SectionHeader{First: 0x1000, Last: 0x103F}
	assert.Equal(t, uint32(0x40), h.Len())

	single := format.SectionHeader{First: 5, Last: 5}
	assert.Equal(t, uint32(1), single.Len())
}

func TestModuleHeaderRoundTrip(t *testing.T) {
	m := format.ModuleHeader{MinAddr: 0x1000, MaxAddr: 0x2FFF, Entry: format.NoAddress}
	buf := make([]byte, format.ModuleHeaderSize)
	format.PutModuleHeader(buf, m)
	assert.Equal(t, m, format.ModuleHeaderAt(buf))
}

func TestBootHeaderLen(t *testing.T) {
	assert.Equal(t, 4, format.BootHeaderLen(0))
	assert.Equal(t, 4+12, format.BootHeaderLen(1))
	assert.Equal(t, 4+12*3, format.BootHeaderLen(3))
}

func TestBootDataMinLen(t *testing.T) {
	// BootDataBlockSize(16) + BootHeaderLen(l) + 4 (mmap count) + 2 (two empty strings)
	assert.Equal(t, 16+4+4+2, format.BootDataMinLen(0))
	assert.Equal(t, 16+16+4+2, format.BootDataMinLen(1))
}

func TestSectionTypeString(t *testing.T) {
	cases := map[format.SectionType]string{
		format.Zero:     "ZERO",
		format.Data:     "DATA",
		format.BootData: "BOOTDATA",
		format.Reserved: "RESERVED",
	}
	for st, want := range cases {
		assert.Equal(t, want, st.String())
	}
	assert.Equal(t, "UNKNOWN", format.SectionType(99).String())
}
