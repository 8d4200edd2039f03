package loader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipwith/lc-baremetal/builder"
	"github.com/zipwith/lc-baremetal/format"
	"github.com/zipwith/lc-baremetal/loader"
	"github.com/zipwith/lc-baremetal/physmem"
)

func TestLoadZeroSection(t *testing.T) {
	img := builder.NewImage()
	payload := []byte{1, 2, 3, 4}
	require.NoError(t, img.Insert(builder.Section{First: 0x2000, Last: 0x2003, Type: format.Data, Payload: payload}))
	img.AddHeader(0x2000, 0x2003, 0x2000)
	require.NoError(t, img.Insert(builder.Section{First: 0x2004, Last: 0x2007, Type: format.Zero}))

	raw, err := img.Serialize()
	require.NoError(t, err)

	mem := physmem.New(0x2100)
	require.NoError(t, mem.WriteAt(0, raw))
	require.NoError(t, mem.WriteAt(0x2004, []byte{0xFF, 0xFF, 0xFF, 0xFF}))

	require.NoError(t, loader.Load(mem, 0, uint32(len(raw))-1, loader.BootContext{}))

	got, err := mem.Bytes(0x2000, 4)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	zeroed, err := mem.Bytes(0x2004, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, zeroed)
}

// TestLoadReverseChained exercises the overlap-aware chain: DATA
// section X's destination range [0xA000,0xBFFF] spans over the
// address in physical memory where a later section Y's own header and
// payload physically sit (since the image is stored starting at an
// address low enough that X's 8 KiB payload runs into that range).
// Y must be fully consumed before X's copy can overwrite it.
func TestLoadReverseChained(t *testing.T) {
	img := builder.NewImage()

	xPayload := make([]byte, 0x2000)
	for i := range xPayload {
		xPayload[i] = byte(i)
	}
	require.NoError(t, img.Insert(builder.Section{First: 0xA000, Last: 0xBFFF, Type: format.Data, Payload: xPayload}))
	img.AddHeader(0xA000, 0xBFFF, 0xA000)

	yPayload := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0x00}
	require.NoError(t, img.Insert(builder.Section{First: 0xC000, Last: 0xC00F, Type: format.Data, Payload: yPayload}))
	img.AddHeader(0xC000, 0xC00F, format.NoAddress)

	raw, err := img.Serialize()
	require.NoError(t, err)

	const start = 0x8000
	// Sanity check on the scenario: Y's on-disk header must land
	// strictly inside X's destination range for this test to actually
	// exercise the overlap chain.
	yHeaderAddr := start + format.HeaderSize + format.SectionHeaderSize + len(xPayload)
	require.Greater(t, yHeaderAddr, 0xA000)
	require.Less(t, yHeaderAddr, 0xC000)

	mem := physmem.New(0xC010)
	require.NoError(t, mem.WriteAt(start, raw))

	require.NoError(t, loader.Load(mem, start, uint32(start+len(raw)-1), loader.BootContext{}))

	gotX, err := mem.Bytes(0xA000, 0x2000)
	require.NoError(t, err)
	assert.Equal(t, xPayload, gotX)

	gotY, err := mem.Bytes(0xC000, 16)
	require.NoError(t, err)
	assert.Equal(t, yPayload, gotY)
}

func TestLoadBootDataSynthesizesPointerBlock(t *testing.T) {
	img := builder.NewImage()
	payload := make([]byte, 4)
	require.NoError(t, img.Insert(builder.Section{First: 0x1000, Last: 0x1003, Type: format.Data, Payload: payload}))
	img.AddHeader(0x1000, 0x1003, 0x1000)

	bdLen := uint32(format.BootDataMinLen(1)) + 64 // generous headroom over the minimum
	require.NoError(t, img.Insert(builder.Section{First: 0x2000, Last: 0x2000 + bdLen - 1, Type: format.BootData}))

	raw, err := img.Serialize()
	require.NoError(t, err)

	mem := physmem.New(0x2000 + bdLen + 0x100)
	require.NoError(t, mem.WriteAt(0, raw))

	boot := loader.BootContext{
		MMap: []loader.MMapEntry{
			{BaseLo: 0, LenLo: 0x9FC00, Type: loader.AvailableTypeCode},
			{BaseLo: 0x100000, LenLo: 0x1000000, Type: loader.AvailableTypeCode},
		},
		CmdLine:       "console=ttyS0",
		ModuleCmdLine: "boot.img",
	}
	require.NoError(t, loader.Load(mem, 0, uint32(len(raw))-1, boot))

	headersPtr, err := mem.Uint32(0x2000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2000+format.BootDataBlockSize), headersPtr)

	rec, err := mem.Bytes(headersPtr, format.ModuleHeaderSize)
	require.NoError(t, err)
	h := format.ModuleHeaderAt(rec)
	assert.Equal(t, format.Address(0x1000), h.MinAddr)
	assert.Equal(t, format.Address(0x1003), h.MaxAddr)

	mmapPtr, err := mem.Uint32(0x2004)
	require.NoError(t, err)
	count, err := mem.Uint32(mmapPtr)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)

	base0, err := mem.Uint32(mmapPtr + 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), base0)

	cmdlinePtr, err := mem.Uint32(0x2008)
	require.NoError(t, err)
	cmdlineBytes, err := mem.Bytes(cmdlinePtr, uint32(len(boot.CmdLine))+1)
	require.NoError(t, err)
	assert.Equal(t, append([]byte(boot.CmdLine), 0), cmdlineBytes)

	imglinePtr, err := mem.Uint32(0x200C)
	require.NoError(t, err)
	imglineBytes, err := mem.Bytes(imglinePtr, uint32(len(boot.ModuleCmdLine))+1)
	require.NoError(t, err)
	assert.Equal(t, append([]byte(boot.ModuleCmdLine), 0), imglineBytes)
}
